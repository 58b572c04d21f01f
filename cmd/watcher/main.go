package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/config"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/extract"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/infrastructure"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/logging"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/transcribe"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/watcher"
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

	readyCtx, cancelReady := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelReady()
	if err := infrastructure.Await(readyCtx, "transcriber", transcriber.Ready); err != nil {
		log.Fatal().Err(err).Msg("Speech model did not become ready")
	}
	if err := infrastructure.Await(readyCtx, "ner", extractor.Ready); err != nil {
		log.Fatal().Err(err).Msg("Entity model did not become ready")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		log.Info().Msg("Shutting down")
		cancel()
	}()

	if err := watcher.New(cfg.Watcher, transcriber, extractor).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Watcher stopped with error")
	}
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
