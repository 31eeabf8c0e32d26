// Package generator turns a query and its retrieved chunks into a
// structured Guide via one LLM call. The model is untrusted text: its
// output is parsed and validated here before anything downstream
// touches it.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"guide-rag/internal/llmservice"
	"guide-rag/internal/models"
)

// MalformedResponseError means the model output was not valid JSON.
// Raw is preserved for diagnosis; there is no partial recovery.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// SchemaViolationError means the JSON parsed but misses required
// fields.
type SchemaViolationError struct {
	Reason string
	Raw    string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("model response violates guide schema: %s", e.Reason)
}

// modelResponse mirrors the JSON contract the prompt demands. Every
// field is optional at parse time; validation decides what is fatal.
type modelResponse struct {
	Status    string      `json:"status"`
	TaskTitle string      `json:"task_title"`
	Steps     []modelStep `json:"steps"`
	Message   string      `json:"message"`
}

type modelStep struct {
	Step              int    `json:"step"`
	Instruction       string `json:"instruction"`
	ChunkIDs          []int  `json:"chunk_ids"`
	VisualDescription string `json:"visual_description"`
}

// BuildPrompt renders the grounding prompt. Chunks are labeled with
// their 0-based position; citations in the response resolve against
// the same positions. Embedded newlines are collapsed so a chunk stays
// a single prompt line.
func BuildPrompt(query string, chunks []models.TextChunk) string {
	labeled := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		content := strings.Join(strings.Fields(chunk.Content), " ")
		labeled = append(labeled, fmt.Sprintf("[Chunk %d] (Source: %s): %s", i, chunk.SourceFilename, content))
	}
	contextBlock := strings.Join(labeled, "\n\n")
	return fmt.Sprintf(models.GuidePromptTemplate, contextBlock, query)
}

// Generate performs exactly one backend call and returns the validated
// Guide. Retry policy lives in the orchestrator, not here.
func Generate(ctx context.Context, backend llmservice.Backend, query string, chunks []models.TextChunk) (models.Guide, error) {
	prompt := BuildPrompt(query, chunks)

	log.Debug().
		Str("backend", backend.Name()).
		Int("chunks", len(chunks)).
		Int("prompt_chars", len(prompt)).
		Msg("Sending prompt to LLM")

	raw, err := backend.Complete(ctx, prompt)
	if err != nil {
		return models.Guide{}, err
	}

	return ParseGuide(raw, len(chunks))
}

// ParseGuide validates raw model output against the guide schema.
// Out-of-range chunk citations are dropped rather than rejected; the
// model is uncontrolled and strictness there would make the pipeline
// too brittle. Step numbers are renumbered sequentially.
func ParseGuide(raw string, chunkCount int) (models.Guide, error) {
	var resp modelResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return models.Guide{}, &MalformedResponseError{Raw: raw, Err: err}
	}

	switch resp.Status {
	case models.StatusError:
		if resp.Message == "" {
			return models.Guide{}, &SchemaViolationError{Reason: "status is error but message is missing", Raw: raw}
		}
		return models.ErrorGuide(resp.Message), nil
	case models.StatusSuccess:
	case "":
		return models.Guide{}, &SchemaViolationError{Reason: "status field is missing", Raw: raw}
	default:
		return models.Guide{}, &SchemaViolationError{Reason: fmt.Sprintf("unknown status %q", resp.Status), Raw: raw}
	}

	if len(resp.Steps) == 0 {
		return models.Guide{}, &SchemaViolationError{Reason: "status is success but steps are empty", Raw: raw}
	}

	steps := make([]models.GuideStep, 0, len(resp.Steps))
	for i, step := range resp.Steps {
		if strings.TrimSpace(step.Instruction) == "" {
			return models.Guide{}, &SchemaViolationError{Reason: fmt.Sprintf("step %d has no instruction", i+1), Raw: raw}
		}
		var cited []int
		for _, id := range step.ChunkIDs {
			if id < 0 || id >= chunkCount {
				log.Warn().Int("chunk_id", id).Int("chunk_count", chunkCount).Msg("Dropping out-of-range citation")
				continue
			}
			cited = append(cited, id)
		}
		steps = append(steps, models.GuideStep{
			StepNumber:        i + 1,
			Instruction:       step.Instruction,
			CitedChunks:       cited,
			VisualDescription: step.VisualDescription,
		})
	}

	return models.Guide{
		Status:    models.StatusSuccess,
		TaskTitle: resp.TaskTitle,
		Steps:     steps,
	}, nil
}
