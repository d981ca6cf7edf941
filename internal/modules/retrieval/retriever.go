package retrieval

import (
	"context"

	"github.com/yungbote/pitwall/internal/platform/logger"
)

// Retriever wraps an Index with the read-failure policy of the chat path: a
// failed search is logged and reads as "nothing found".
type Retriever struct {
	log   *logger.Logger
	index Index
	k     int
}

func NewRetriever(log *logger.Logger, index Index, k int) *Retriever {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Retriever{log: log.With("service", "Retriever"), index: index, k: k}
}

func (r *Retriever) Retrieve(ctx context.Context, query []float32) []Result {
	if len(query) == 0 {
		r.log.Warn("Invalid query embedding; nothing retrieved")
		return nil
	}
	res, err := r.index.Search(ctx, query, r.k)
	if err != nil {
		r.log.Warn("Error retrieving relevant documents", "error", err)
		return nil
	}
	if len(res) > r.k {
		res = res[:r.k]
	}
	return res
}
