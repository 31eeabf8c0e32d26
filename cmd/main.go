package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"guide-rag/internal/config"
	"guide-rag/internal/db"
	"guide-rag/internal/embedding"
	"guide-rag/internal/helper"
	"guide-rag/internal/imageindex"
	"guide-rag/internal/llmservice"
	"guide-rag/internal/matcher"
	"guide-rag/internal/models"
	"guide-rag/internal/rag"
	"guide-rag/internal/retriever"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	query := flag.String("query", "", "Troubleshooting question to answer")
	mode := flag.String("mode", "", "LLM backend: CLOUD or LOCAL (default from config)")
	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	if *query == "" {
		log.Fatal().Msg("Please provide a question using the -query flag")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	if *mode == "" {
		*mode = cfg.DefaultMode
	}
	requestMode := models.Mode(strings.ToUpper(*mode))
	if requestMode != models.ModeCloud && requestMode != models.ModeLocal {
		log.Fatal().Str("mode", *mode).Msg("Invalid mode, use CLOUD or LOCAL")
	}

	ctx := context.Background()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	textRetriever, err := buildRetriever(ctx, cfg, embedder)
	if err != nil {
		// No text index means no answers; refuse to run degraded.
		log.Fatal().Err(err).Msg("Text index unavailable")
	}

	imageIndex, err := imageindex.NewIndex(ctx, cfg.Images.CorpusPath, embedder, cfg.Images.Threshold)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building image index")
	}

	localBackend, err := llmservice.NewLocalBackend(&cfg.LocalLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing local backend")
	}
	cloudBackend, err := llmservice.NewCloudBackend(&cfg.CloudLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing cloud backend")
	}
	backends := map[models.Mode]llmservice.Backend{
		models.ModeLocal: localBackend,
		models.ModeCloud: cloudBackend,
	}

	pipeline := rag.NewPipeline(textRetriever, backends, matcher.New(imageIndex, cfg.Images.TopK), cfg)

	guide, err := pipeline.GenerateGuide(ctx, *query, requestMode)
	if err != nil {
		log.Error().Err(err).Msg("Pipeline failed")
	}

	log.Info().Msg("Guide: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(guide)
}

func buildRetriever(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (retriever.Retriever, error) {
	switch cfg.Retriever.Backend {
	case "postgres":
		dbClient, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return retriever.NewPostgresRetriever(ctx, db.NewDB(dbClient, cfg.Database.Debug), embedder)
	default:
		return retriever.NewChromemRetriever(cfg.Retriever.DBPath, cfg.Retriever.CollectionName, embedder, cfg.Retriever.MinSimilarity)
	}
}
