package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/pitwall/internal/data/repos/conversation"
	"github.com/yungbote/pitwall/internal/data/repos/corpus"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

type Repos struct {
	Chunks corpus.ChunkRepo
	Runs   corpus.RunRepo
	Turns  conversation.TurnRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Chunks: corpus.NewChunkRepo(db, log),
		Runs:   corpus.NewRunRepo(db, log),
		Turns:  conversation.NewTurnRepo(db, log),
	}
}
