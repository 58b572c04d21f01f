package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Speech   SpeechConfig   `yaml:"speech"`
	Entities EntitiesConfig `yaml:"entities"`
	QA       QAConfig       `yaml:"qa"`
	Watcher  WatcherConfig  `yaml:"watcher"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type StorageConfig struct {
	TempRoot string `yaml:"temp_root"`
}

type SpeechConfig struct {
	Backend string        `yaml:"backend"`
	Whisper WhisperConfig `yaml:"whisper"`
	Google  GoogleConfig  `yaml:"google"`
}

type WhisperConfig struct {
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type GoogleConfig struct {
	Bucket   string `yaml:"bucket"`
	Language string `yaml:"language"`
}

type EntitiesConfig struct {
	NERURL string `yaml:"ner_url"`
	// MinScore is a pointer so an explicit 0 (keep every name) is
	// distinguishable from the field being absent.
	MinScore *float64 `yaml:"min_score"`
}

type QAConfig struct {
	EmbedBaseURL string `yaml:"embed_base_url"`
	EmbedModel   string `yaml:"embed_model"`
	ReaderURL    string `yaml:"reader_url"`
	TopK         int    `yaml:"top_k"`
}

type WatcherConfig struct {
	Input         string `yaml:"input"`
	Output        string `yaml:"output"`
	Archived      string `yaml:"archived"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Speech.Backend == "" {
		c.Speech.Backend = "whisper"
	}
	if c.Speech.Backend != "whisper" && c.Speech.Backend != "google" {
		return fmt.Errorf("speech.backend must be \"whisper\" or \"google\", got %q", c.Speech.Backend)
	}
	if c.Speech.Backend == "google" && c.Speech.Google.Bucket == "" {
		return fmt.Errorf("speech.google.bucket is required")
	}
	if c.Entities.MinScore != nil && (*c.Entities.MinScore < 0 || *c.Entities.MinScore > 1) {
		return fmt.Errorf("entities.min_score must be between 0 and 1")
	}
	if c.QA.TopK < 0 {
		return fmt.Errorf("qa.top_k must not be negative")
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "app.log"
	}
	if c.Speech.Whisper.BaseURL == "" {
		c.Speech.Whisper.BaseURL = "http://localhost:9000/v1"
	}
	if c.Speech.Whisper.Model == "" {
		c.Speech.Whisper.Model = "whisper-1"
	}
	if c.Speech.Google.Language == "" {
		c.Speech.Google.Language = "en-US"
	}
	if c.Entities.NERURL == "" {
		c.Entities.NERURL = "http://localhost:8600/ner"
	}
	if c.Entities.MinScore == nil {
		v := 0.5
		c.Entities.MinScore = &v
	}
	if c.QA.EmbedBaseURL == "" {
		c.QA.EmbedBaseURL = "http://localhost:9100/v1"
	}
	if c.QA.EmbedModel == "" {
		c.QA.EmbedModel = "all-MiniLM-L6-v2"
	}
	if c.QA.ReaderURL == "" {
		c.QA.ReaderURL = "http://localhost:8700/qa"
	}
	if c.QA.TopK == 0 {
		c.QA.TopK = 3
	}
	if c.Watcher.Input == "" {
		c.Watcher.Input = "data/input"
	}
	if c.Watcher.Output == "" {
		c.Watcher.Output = "data/output"
	}
	if c.Watcher.Archived == "" {
		c.Watcher.Archived = "data/archived"
	}
	if c.Watcher.MaxConcurrent == 0 {
		c.Watcher.MaxConcurrent = 2
	}

	return nil
}
