// Package retriever answers similarity queries against the persisted
// manual-chunk index. The pipeline only sees the Retriever interface;
// the chromem and postgres implementations are interchangeable.
package retriever

import (
	"context"
	"errors"

	"guide-rag/internal/models"
)

// ErrUnavailable marks a missing or unreachable text index. This is
// fatal: without the index no answers are possible.
var ErrUnavailable = errors.New("text index unavailable")

// Retriever returns the top-k chunks most relevant to the query,
// rank-ordered. An empty result is a valid outcome, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.TextChunk, error)
}
