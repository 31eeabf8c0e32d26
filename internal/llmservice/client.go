// Package llmservice hides the two LLM deployments behind one Backend
// interface. Both variants run with temperature 0 and JSON-forced
// output; guide generation needs reproducibility, not creativity.
package llmservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"guide-rag/internal/config"
)

// ErrBackendUnreachable marks a failed call to the model endpoint.
var ErrBackendUnreachable = errors.New("model backend unreachable")

// Backend is one LLM deployment able to complete a prompt into raw
// (JSON) text.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

type llmBackend struct {
	model llms.Model
	name  string
}

// NewLocalBackend connects to a self-hosted ollama server.
func NewLocalBackend(llmConfig *config.LLMConfig) (Backend, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, err
	}
	return &llmBackend{model: llm, name: "ollama/" + llmConfig.Model}, nil
}

// NewCloudBackend connects to an OpenAI-compatible cloud API.
func NewCloudBackend(llmConfig *config.LLMConfig) (Backend, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
		openai.WithResponseFormat(openai.ResponseFormatJSON),
	)
	if err != nil {
		return nil, err
	}
	return &llmBackend{model: llm, name: "cloud/" + llmConfig.Model}, nil
}

func (b *llmBackend) Name() string { return b.name }

func (b *llmBackend) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := b.model.GenerateContent(ctx, messages,
		llms.WithTemperature(0.0),
		llms.WithJSONMode(),
	)
	if err != nil {
		log.Error().Err(err).Str("backend", b.name).Msg("LLM call failed")
		if isTransportError(err) {
			return "", fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
		}
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("llm generation failed: empty response")
	}
	return res.Choices[0].Content, nil
}

// isTransportError separates connection-level failures, which are
// worth one retry, from everything else. Rejected keys, 4xx responses
// and expired contexts are systematic; retrying them only doubles the
// latency of the same failure.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
