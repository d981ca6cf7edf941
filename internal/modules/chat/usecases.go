package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	convrepo "github.com/yungbote/pitwall/internal/data/repos/conversation"
	"github.com/yungbote/pitwall/internal/domain/conversation"
	"github.com/yungbote/pitwall/internal/modules/ingestion"
	"github.com/yungbote/pitwall/internal/modules/retrieval"
	"github.com/yungbote/pitwall/internal/platform/apierr"
	"github.com/yungbote/pitwall/internal/platform/dbctx"
	"github.com/yungbote/pitwall/internal/platform/logger"
	"github.com/yungbote/pitwall/internal/platform/openai"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type LLM interface {
	Complete(ctx context.Context, messages []openai.Message) (string, error)
}

// CorpusGate lets the request path seed an empty corpus when startup seeding
// did not.
type CorpusGate interface {
	HasCorpus(ctx context.Context) bool
	EnsureCorpus(ctx context.Context) (ingestion.Result, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query []float32) []retrieval.Result
}

type UsecasesDeps struct {
	Log *logger.Logger

	Embedder  Embedder
	Retriever Retriever
	LLM       LLM
	Turns     convrepo.TurnRepo

	// Optional.
	Corpus CorpusGate

	// HistoryLimit keeps only the most recent turns; 0 keeps all.
	HistoryLimit int
}

type Usecases struct {
	deps UsecasesDeps
	log  *logger.Logger
}

func New(deps UsecasesDeps) Usecases {
	return Usecases{deps: deps, log: deps.Log.With("service", "ChatUsecases")}
}

type AnswerInput struct {
	Query  string
	UserID string
}

type AnswerOutput struct {
	Answer string
	UserID string
	// Sources are the chunks the answer was grounded on, best first.
	Sources []retrieval.Result
}

// Answer runs one chat exchange. A blank query fails with a 400 apierr
// before anything else is touched.
func (u Usecases) Answer(ctx context.Context, in AnswerInput) (AnswerOutput, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return AnswerOutput{}, apierr.BadRequest("query_required", "Query is required.")
	}
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		userID = uuid.NewString()
	}
	log := u.log.With("user_id", userID)
	out := AnswerOutput{UserID: userID}

	if u.deps.Corpus != nil && !u.deps.Corpus.HasCorpus(ctx) {
		if _, err := u.deps.Corpus.EnsureCorpus(ctx); err != nil {
			return out, fmt.Errorf("bootstrap corpus: %w", err)
		}
	}

	vecs, err := u.deps.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return out, fmt.Errorf("embed query: %w", err)
	}
	var qvec []float32
	if len(vecs) > 0 {
		qvec = vecs[0]
	}

	results := u.deps.Retriever.Retrieve(ctx, qvec)
	if len(results) == 0 {
		log.Info("No relevant documents; answering with fallback")
		out.Answer = FallbackAnswer
		return out, nil
	}
	out.Sources = results

	dbc := dbctx.New(ctx)
	history, err := u.deps.Turns.ListByUser(dbc, userID, u.deps.HistoryLimit)
	if err != nil {
		log.Warn("History read failed; continuing without it", "error", err)
		history = nil
	}

	answer, err := u.deps.LLM.Complete(ctx, BuildMessages(history, results, query))
	if err != nil {
		return out, fmt.Errorf("llm: %w", err)
	}

	if _, err := u.deps.Turns.Append(dbc, userID, conversation.RoleUser, query); err != nil {
		return out, fmt.Errorf("save user turn: %w", err)
	}
	if _, err := u.deps.Turns.Append(dbc, userID, conversation.RoleAssistant, answer); err != nil {
		return out, fmt.Errorf("save assistant turn: %w", err)
	}

	log.Info("Answered", "sources", len(results), "history", len(history))
	out.Answer = answer
	return out, nil
}
