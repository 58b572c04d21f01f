package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/api"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/config"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/extract"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/infrastructure"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/logging"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/progress"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/qa"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/storage"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/transcribe"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	closeLogs, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not set up logging")
	}
	defer closeLogs()

	transcriber := transcribe.New(newBackend(cfg))
	extractor := extract.New(extract.NewHTTPRecognizer(cfg.Entities.NERURL, os.Getenv("NER_API_KEY")), *cfg.Entities.MinScore)
	qaSystem := qa.New(
		qa.NewEmbeddingRetriever(cfg.QA.EmbedBaseURL, os.Getenv("QA_API_KEY"), cfg.QA.EmbedModel, cfg.QA.TopK),
		qa.NewHTTPReader(cfg.QA.ReaderURL, os.Getenv("QA_API_KEY")),
	)

	// The models are useless until loaded, so refuse to serve without
	// them.
	readyCtx, cancelReady := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelReady()
	if err := infrastructure.Await(readyCtx, "transcriber", transcriber.Ready); err != nil {
		log.Fatal().Err(err).Msg("Speech model did not become ready")
	}
	if err := infrastructure.Await(readyCtx, "ner", extractor.Ready); err != nil {
		log.Fatal().Err(err).Msg("Entity model did not become ready")
	}
	if err := infrastructure.Await(readyCtx, "qa", qaSystem.Ready); err != nil {
		log.Fatal().Err(err).Msg("Question answering models did not become ready")
	}

	server := api.New(transcriber, extractor, qaSystem, storage.NewTempStore(cfg.Storage.TempRoot), progress.NewHub())

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}).Handler(server)

	httpServer := &http.Server{Addr: cfg.Server.Addr, Handler: handler}

	ctx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	server.HandleShutdownSignals(shutdown)

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("backend", transcriber.Name()).Msg("Listening")
		serverDone <- httpServer.ListenAndServe()
	}()

	server.AwaitForShutdown(ctx, httpServer, serverDone, shutdown)
}

func newBackend(cfg *config.Config) transcribe.Backend {
	if cfg.Speech.Backend == "google" {
		return transcribe.NewGoogleBackend(cfg.Speech.Google.Bucket, cfg.Speech.Google.Language)
	}
	return transcribe.NewWhisperBackend(
		cfg.Speech.Whisper.BaseURL,
		os.Getenv("SPEECH_API_KEY"),
		cfg.Speech.Whisper.Model,
		cfg.Speech.Whisper.Language,
	)
}
