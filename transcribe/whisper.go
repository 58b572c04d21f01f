package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/progress"
)

// Share of the backend's progress band spent streaming the file to the
// server. The remainder is the wait for the model, which sends no
// intermediate signal.
const whisperUploadShare = 0.7

// WhisperBackend talks to an OpenAI-compatible transcription endpoint,
// typically a local whisper server.
type WhisperBackend struct {
	client   *openai.Client
	model    string
	language string
}

func NewWhisperBackend(baseURL, apiKey, model, language string) *WhisperBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &WhisperBackend{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: language,
	}
}

func (b *WhisperBackend) Name() string { return "whisper" }

func (b *WhisperBackend) Ready(ctx context.Context) error {
	if _, err := b.client.ListModels(ctx); err != nil {
		return fmt.Errorf("whisper server not reachable: %w", err)
	}
	return nil
}

func (b *WhisperBackend) Transcribe(ctx context.Context, path string, sink progress.Sink) (domain.Transcription, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("stat audio: %w", err)
	}

	resp, err := b.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    b.model,
		FilePath: filepath.Base(path),
		Reader:   &progressReader{r: f, total: info.Size(), scale: whisperUploadShare, sink: sink},
		Language: b.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("create transcription: %w", err)
	}

	result := domain.Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
	}
	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, domain.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	return result, nil
}
