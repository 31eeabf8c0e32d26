// Package matcher attaches corpus images to generated guide steps by
// embedding similarity. It is best-effort enrichment: nothing here may
// fail the pipeline.
package matcher

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"guide-rag/internal/imageindex"
	"guide-rag/internal/models"
)

// Matcher populates GuideStep.Images from the image corpus index.
type Matcher struct {
	index *imageindex.Index
	topK  int
}

func New(index *imageindex.Index, topK int) *Matcher {
	return &Matcher{index: index, topK: topK}
}

// AttachImages fills Images on every step of a success guide. The
// search text is the task title plus the step's visual description
// when the model authored one, else its instruction. Steps with no
// match above the threshold keep nil images; a search failure only
// costs the affected step its images.
func (m *Matcher) AttachImages(ctx context.Context, guide *models.Guide) {
	if guide.Status != models.StatusSuccess || m.index.Len() == 0 {
		return
	}

	for i := range guide.Steps {
		step := &guide.Steps[i]
		searchText := m.searchText(guide.TaskTitle, step)

		matches, err := m.index.Search(ctx, searchText, m.topK)
		if err != nil {
			log.Warn().Err(err).Int("step", step.StepNumber).Msg("Image search failed, step keeps no images")
			continue
		}

		for _, match := range matches {
			step.Images = append(step.Images, match.Record.FilePath)
		}
	}
}

func (m *Matcher) searchText(taskTitle string, step *models.GuideStep) string {
	desc := step.VisualDescription
	if desc == "" {
		desc = step.Instruction
	}
	return strings.TrimSpace(taskTitle + " " + desc)
}
