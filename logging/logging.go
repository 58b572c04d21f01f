package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/config"
)

// Setup routes the global logger to the console and the append-only
// log file. The log file is advisory; nothing reads it back. The
// returned closer releases the file handle.
func Setup(cfg config.LogConfig) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()

	return func() { f.Close() }, nil
}
