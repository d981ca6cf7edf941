package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	corpusrepo "github.com/yungbote/pitwall/internal/data/repos/corpus"
	"github.com/yungbote/pitwall/internal/domain/corpus"
	"github.com/yungbote/pitwall/internal/http/response"
	"github.com/yungbote/pitwall/internal/platform/dbctx"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

type StatusHandler struct {
	log    *logger.Logger
	chunks corpusrepo.ChunkRepo
	runs   corpusrepo.RunRepo
}

func NewStatusHandler(log *logger.Logger, chunks corpusrepo.ChunkRepo, runs corpusrepo.RunRepo) *StatusHandler {
	return &StatusHandler{log: log.With("handler", "StatusHandler"), chunks: chunks, runs: runs}
}

type statusResp struct {
	ChunkCount int64                `json:"chunkCount"`
	LastRun    *corpus.IngestionRun `json:"lastRun"`
}

// GET /api/status
func (h *StatusHandler) Status(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	n, err := h.chunks.Count(dbc)
	if err != nil {
		h.log.Error("Chunk count failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "Failed to read corpus status.")
		return
	}
	run, err := h.runs.Latest(dbc)
	if err != nil {
		h.log.Error("Latest run lookup failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "Failed to read corpus status.")
		return
	}
	response.RespondOK(c, statusResp{ChunkCount: n, LastRun: run})
}
