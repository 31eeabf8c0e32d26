package retriever

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"guide-rag/internal/chromemdb"
	"guide-rag/internal/embedding"
	"guide-rag/internal/models"
)

// ChromemRetriever searches the chromem-go chunk collection.
type ChromemRetriever struct {
	store         *chromemdb.VectorDBManager
	embedder      embedding.Embedder
	minSimilarity float32
}

// NewChromemRetriever binds to the named collection. A store that
// cannot be opened or a collection with zero documents means the
// external ingestion never ran, which is ErrUnavailable.
func NewChromemRetriever(dbPath, collectionName string, embedder embedding.Embedder, minSimilarity float32) (*ChromemRetriever, error) {
	store, err := chromemdb.NewVectorDBManager(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := store.GetOrCreateCollection(collectionName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if store.Count() == 0 {
		return nil, fmt.Errorf("%w: collection %q is empty, run ingestion first", ErrUnavailable, collectionName)
	}
	return &ChromemRetriever{store: store, embedder: embedder, minSimilarity: minSimilarity}, nil
}

// NewChromemRetrieverFromStore wraps an already opened store. Tests
// use this with an in-memory store.
func NewChromemRetrieverFromStore(store *chromemdb.VectorDBManager, embedder embedding.Embedder, minSimilarity float32) *ChromemRetriever {
	return &ChromemRetriever{store: store, embedder: embedder, minSimilarity: minSimilarity}
}

func (r *ChromemRetriever) Retrieve(ctx context.Context, query string, k int) ([]models.TextChunk, error) {
	// chromem rejects nResults above the document count.
	if count := r.store.Count(); count < k {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.store.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, err
	}

	var chunks []models.TextChunk
	for _, res := range results {
		if res.Similarity < r.minSimilarity {
			continue
		}
		chunkIndex, err := strconv.Atoi(res.Metadata[chromemdb.MetaChunkIndex])
		if err != nil {
			log.Warn().Str("id", res.ID).Msg("Chunk has no usable chunk_index metadata")
		}
		chunks = append(chunks, models.TextChunk{
			Content:        res.Content,
			SourceFilename: res.Metadata[chromemdb.MetaFilename],
			ChunkIndex:     chunkIndex,
		})
	}
	return chunks, nil
}
