package retriever

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"guide-rag/internal/db"
	"guide-rag/internal/embedding"
	"guide-rag/internal/models"
)

// PostgresRetriever searches the pgvector manual_chunks table.
type PostgresRetriever struct {
	db       *bun.DB
	embedder embedding.Embedder
}

// NewPostgresRetriever verifies the chunk table is reachable and
// non-empty before handing out a retriever.
func NewPostgresRetriever(ctx context.Context, bunDB *bun.DB, embedder embedding.Embedder) (*PostgresRetriever, error) {
	count, err := db.CountChunks(ctx, bunDB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: manual_chunks table is empty, run ingestion first", ErrUnavailable)
	}
	return &PostgresRetriever{db: bunDB, embedder: embedder}, nil
}

func (r *PostgresRetriever) Retrieve(ctx context.Context, query string, k int) ([]models.TextChunk, error) {
	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := db.SearchChunks(ctx, r.db, queryEmbedding, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.TextChunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, models.TextChunk{
			Content:        row.Content,
			SourceFilename: row.SourceFilename,
			ChunkIndex:     row.ChunkIndex,
		})
	}
	return chunks, nil
}
