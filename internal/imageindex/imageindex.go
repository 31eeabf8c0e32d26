// Package imageindex owns the in-memory image knowledge base. Records
// are loaded and embedded once at startup; afterwards the index is
// read-only and safe for concurrent searches.
package imageindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"guide-rag/internal/embedding"
	"guide-rag/internal/models"
)

// Match is one scored search hit.
type Match struct {
	Record models.ImageRecord
	Score  float32
}

// Index holds the embedded image records.
type Index struct {
	records   []models.ImageRecord
	embedder  embedding.Embedder
	threshold float32
	dim       int
}

// NewIndex loads the image corpus JSON and embeds each record's
// metadata. A missing or empty corpus file yields a valid empty index;
// records that fail to embed or whose embedding dimension does not
// match are excluded, never fatal.
func NewIndex(ctx context.Context, corpusPath string, embedder embedding.Embedder, threshold float32) (*Index, error) {
	idx := &Index{embedder: embedder, threshold: threshold}

	data, err := os.ReadFile(corpusPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("path", corpusPath).Msg("Image corpus not found, image matching disabled")
			return idx, nil
		}
		return nil, fmt.Errorf("reading image corpus: %w", err)
	}
	if len(data) == 0 {
		return idx, nil
	}

	var raw []models.ImageRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing image corpus: %w", err)
	}

	for _, rec := range raw {
		vec, err := embedder.EmbedQuery(ctx, CombinedText(rec))
		if err != nil {
			log.Warn().Err(err).Str("id", rec.ID).Msg("Skipping image record, embedding failed")
			continue
		}
		if len(vec) == 0 {
			log.Warn().Str("id", rec.ID).Msg("Skipping image record, empty embedding")
			continue
		}
		if idx.dim == 0 {
			idx.dim = len(vec)
		} else if len(vec) != idx.dim {
			log.Warn().Str("id", rec.ID).Int("dim", len(vec)).Msg("Skipping image record, dimension mismatch")
			continue
		}
		rec.Embedding = vec
		idx.records = append(idx.records, rec)
	}

	log.Info().Int("records", len(idx.records)).Msg("Image corpus ready")
	return idx, nil
}

// CombinedText is the deterministic embedding input for a record.
func CombinedText(rec models.ImageRecord) string {
	return strings.TrimSpace(rec.ProblemName + " " + rec.DenseCaption + " " + strings.Join(rec.DetectedObjects, ", "))
}

// Len reports how many records are searchable.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Search embeds queryText and returns at most topK records scoring
// above the threshold, best first. Ties keep corpus insertion order.
func (idx *Index) Search(ctx context.Context, queryText string, topK int) ([]Match, error) {
	if len(idx.records) == 0 || topK <= 0 {
		return nil, nil
	}

	queryVec, err := idx.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding image query: %w", err)
	}

	matches := make([]Match, 0, len(idx.records))
	for _, rec := range idx.records {
		score := cosineSimilarity(queryVec, rec.Embedding)
		if score > idx.threshold {
			matches = append(matches, Match{Record: rec, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
