// Package rag sequences the guide pipeline: retrieval, generation,
// image matching, result assembly.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"guide-rag/internal/config"
	"guide-rag/internal/generator"
	"guide-rag/internal/helper"
	"guide-rag/internal/llmservice"
	"guide-rag/internal/matcher"
	"guide-rag/internal/models"
	"guide-rag/internal/retriever"
)

// stage names the pipeline states, used for logging and failure
// attribution.
type stage string

const (
	stageRetrieving     stage = "RETRIEVING"
	stageGenerating     stage = "GENERATING"
	stageMatchingImages stage = "MATCHING_IMAGES"
	stageDone           stage = "DONE"
	stageFailed         stage = "FAILED"
)

const backendRetryDelay = 2 * time.Second

// Pipeline wires the retriever, the LLM backends and the image matcher
// into one synchronous per-query flow. All dependencies are read-only
// after construction; a Pipeline is safe for concurrent use.
type Pipeline struct {
	retriever retriever.Retriever
	backends  map[models.Mode]llmservice.Backend
	matcher   *matcher.Matcher
	retrieveK int
	timeouts  config.TimeoutConfig
}

func NewPipeline(r retriever.Retriever, backends map[models.Mode]llmservice.Backend, m *matcher.Matcher, cfg *config.Config) *Pipeline {
	return &Pipeline{
		retriever: r,
		backends:  backends,
		matcher:   m,
		retrieveK: cfg.Retriever.TopK,
		timeouts:  cfg.Timeouts,
	}
}

// GenerateGuide runs one query through the pipeline. The returned
// Guide is always well-formed; on failure it carries status=error and
// the error explains which stage failed.
func (p *Pipeline) GenerateGuide(ctx context.Context, query string, mode models.Mode) (models.Guide, error) {
	requestID, _ := helper.GenerateUUID()
	logger := log.With().Str("request_id", requestID).Str("mode", string(mode)).Logger()

	backend, ok := p.backends[mode]
	if !ok {
		err := fmt.Errorf("no backend configured for mode %q", mode)
		logger.Error().Err(err).Msg("Invalid mode")
		return models.ErrorGuide(err.Error()), err
	}

	// RETRIEVING
	logger.Info().Str("stage", string(stageRetrieving)).Str("query", query).Msg("Searching knowledge base")
	chunks, err := p.retrieve(ctx, query)
	if err != nil {
		logger.Error().Err(err).Str("stage", string(stageFailed)).Msg("Retrieval failed")
		return models.ErrorGuide("Knowledge base search failed."), err
	}
	if len(chunks) == 0 {
		// Out of scope, a normal outcome. The LLM is never called.
		logger.Info().Str("stage", string(stageDone)).Msg("No relevant chunks found")
		return models.ErrorGuide(models.NoContextMessage), nil
	}
	logger.Debug().Int("chunks", len(chunks)).Msg("Retrieved chunks")

	// GENERATING
	logger.Info().Str("stage", string(stageGenerating)).Str("backend", backend.Name()).Msg("Generating guide")
	guide, err := p.generate(ctx, logger, backend, query, chunks)
	if err != nil {
		logger.Error().Err(err).Str("stage", string(stageFailed)).Msg("Generation failed")
		return models.ErrorGuide("Guide generation failed."), err
	}
	if guide.Status != models.StatusSuccess {
		// The model declared the query out of scope.
		logger.Info().Str("stage", string(stageDone)).Str("message", guide.Message).Msg("Model returned error guide")
		return guide, nil
	}

	// MATCHING_IMAGES
	logger.Info().Str("stage", string(stageMatchingImages)).Int("steps", len(guide.Steps)).Msg("Matching images to steps")
	p.attachImages(ctx, logger, &guide)

	logger.Info().Str("stage", string(stageDone)).Msg("Guide assembled")
	return guide, nil
}

func (p *Pipeline) retrieve(ctx context.Context, query string) ([]models.TextChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.Retrieval())
	defer cancel()
	return p.retriever.Retrieve(ctx, query, p.retrieveK)
}

// generate calls the backend once, with a single bounded retry when
// the backend itself was unreachable. Malformed or schema-invalid
// output is not retried: at temperature zero a bad response is
// systematic, not transient.
func (p *Pipeline) generate(ctx context.Context, logger zerolog.Logger, backend llmservice.Backend, query string, chunks []models.TextChunk) (models.Guide, error) {
	genCtx, cancel := context.WithTimeout(ctx, p.timeouts.Generation())
	defer cancel()

	guide, err := generator.Generate(genCtx, backend, query, chunks)
	if err == nil || !errors.Is(err, llmservice.ErrBackendUnreachable) {
		return guide, err
	}

	logger.Warn().Err(err).Dur("backoff", backendRetryDelay).Msg("Backend unreachable, retrying once")
	select {
	case <-ctx.Done():
		return models.Guide{}, err
	case <-time.After(backendRetryDelay):
	}

	retryCtx, cancel := context.WithTimeout(ctx, p.timeouts.Generation())
	defer cancel()
	return generator.Generate(retryCtx, backend, query, chunks)
}

// attachImages shields the pipeline from the matching stage: a panic
// there costs the remaining steps their images, never the guide.
func (p *Pipeline) attachImages(ctx context.Context, logger zerolog.Logger, guide *models.Guide) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Interface("panic", r).Msg("Image matching panicked, continuing without images")
		}
	}()
	p.matcher.AttachImages(ctx, guide)
}
