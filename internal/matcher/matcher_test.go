package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"guide-rag/internal/imageindex"
	"guide-rag/internal/models"
)

type embedFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedFunc) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

var wordEmbedder = embedFunc(func(_ context.Context, text string) ([]float32, error) {
	const dim = 64
	vec := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%dim]++
	}
	return vec, nil
})

func buildIndex(t *testing.T, records []models.ImageRecord) *imageindex.Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.json")
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	idx, err := imageindex.NewIndex(context.Background(), path, wordEmbedder, 0.35)
	require.NoError(t, err)
	return idx
}

func TestAttachImages(t *testing.T) {
	idx := buildIndex(t, []models.ImageRecord{
		{ID: "cap", FilePath: "./img/cap.png", DenseCaption: "turning the blue cap counterclockwise"},
		{ID: "panel", FilePath: "./img/panel.png", DenseCaption: "pressing buttons on the display panel"},
	})
	m := New(idx, 3)

	guide := models.Guide{
		Status:    models.StatusSuccess,
		TaskTitle: "Clean the filter",
		Steps: []models.GuideStep{
			{StepNumber: 1, Instruction: "Turn the blue cap counterclockwise to remove it"},
			{StepNumber: 2, Instruction: "Completely unrelated smartphone firmware flashing"},
		},
	}

	m.AttachImages(context.Background(), &guide)

	require.Contains(t, guide.Steps[0].Images, "./img/cap.png")
	require.Empty(t, guide.Steps[1].Images)
}

func TestAttachImagesPrefersVisualDescription(t *testing.T) {
	idx := buildIndex(t, []models.ImageRecord{
		{ID: "cap", FilePath: "./img/cap.png", DenseCaption: "hand turning the blue drain cap counterclockwise"},
	})
	m := New(idx, 3)

	guide := models.Guide{
		Status:    models.StatusSuccess,
		TaskTitle: "Drain the machine",
		Steps: []models.GuideStep{
			{
				StepNumber:        1,
				Instruction:       "Open it as described in section four",
				VisualDescription: "Hand turning the blue drain cap counterclockwise",
			},
		},
	}

	m.AttachImages(context.Background(), &guide)
	require.Equal(t, []string{"./img/cap.png"}, guide.Steps[0].Images)
}

func TestAttachImagesEmptyIndex(t *testing.T) {
	idx, err := imageindex.NewIndex(context.Background(), filepath.Join(t.TempDir(), "absent.json"), wordEmbedder, 0.35)
	require.NoError(t, err)
	m := New(idx, 3)

	guide := models.Guide{
		Status: models.StatusSuccess,
		Steps:  []models.GuideStep{{StepNumber: 1, Instruction: "Do a thing"}},
	}

	m.AttachImages(context.Background(), &guide)
	require.Empty(t, guide.Steps[0].Images)
}

func TestAttachImagesSearchFailureKeepsGuide(t *testing.T) {
	embedderDown := false
	embedder := embedFunc(func(ctx context.Context, text string) ([]float32, error) {
		if embedderDown {
			return nil, errors.New("embedding service down")
		}
		return wordEmbedder(ctx, text)
	})

	path := filepath.Join(t.TempDir(), "corpus.json")
	data, err := json.Marshal([]models.ImageRecord{
		{ID: "cap", FilePath: "./img/cap.png", DenseCaption: "turning the blue cap counterclockwise"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	idx, err := imageindex.NewIndex(context.Background(), path, embedder, 0.35)
	require.NoError(t, err)
	embedderDown = true

	m := New(idx, 3)
	guide := models.Guide{
		Status:    models.StatusSuccess,
		TaskTitle: "Clean the filter",
		Steps: []models.GuideStep{
			{StepNumber: 1, Instruction: "Turn the blue cap counterclockwise"},
			{StepNumber: 2, Instruction: "Rinse the filter"},
		},
	}

	m.AttachImages(context.Background(), &guide)

	require.Equal(t, models.StatusSuccess, guide.Status)
	require.Len(t, guide.Steps, 2)
	require.Empty(t, guide.Steps[0].Images)
	require.Empty(t, guide.Steps[1].Images)
}

func TestAttachImagesSkipsErrorGuide(t *testing.T) {
	idx := buildIndex(t, []models.ImageRecord{
		{ID: "cap", FilePath: "./img/cap.png", DenseCaption: "turning the blue cap"},
	})
	m := New(idx, 3)

	guide := models.ErrorGuide("out of scope")
	m.AttachImages(context.Background(), &guide)
	require.Empty(t, guide.Steps)
	require.Equal(t, models.StatusError, guide.Status)
}
