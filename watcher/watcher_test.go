package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/config"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/extract"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/progress"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/transcribe"
)

type stubBackend struct {
	result domain.Transcription
	err    error
	called chan string
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Transcribe(ctx context.Context, path string, sink progress.Sink) (domain.Transcription, error) {
	if b.called != nil {
		b.called <- path
	}
	sink.Report(0.5)
	return b.result, b.err
}

func (b *stubBackend) Ready(ctx context.Context) error { return nil }

type stubRecognizer struct{}

func (r *stubRecognizer) Entities(ctx context.Context, text string) ([]domain.Entity, error) {
	return nil, nil
}

func testConfig(t *testing.T) config.WatcherConfig {
	t.Helper()
	root := t.TempDir()
	return config.WatcherConfig{
		Input:         filepath.Join(root, "input"),
		Output:        filepath.Join(root, "output"),
		Archived:      filepath.Join(root, "archived"),
		MaxConcurrent: 1,
	}
}

func newTestWatcher(cfg config.WatcherConfig, backend *stubBackend) *Watcher {
	return New(cfg, transcribe.New(backend), extract.New(&stubRecognizer{}, 0.5))
}

// waitForAnalysis polls until the document exists and parses. A parse
// failure means the writer is mid-flight, so it keeps polling.
func waitForAnalysis(t *testing.T, path string) domain.Analysis {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil {
			var analysis domain.Analysis
			if json.Unmarshal(data, &analysis) == nil {
				return analysis
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for analysis at %s", path)
	return domain.Analysis{}
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
}

func TestRunPicksUpExistingFiles(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Input, 0o755); err != nil {
		t.Fatal(err)
	}
	audioPath := filepath.Join(cfg.Input, "clip.mp3")
	if err := os.WriteFile(audioPath, []byte("mp3 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := &stubBackend{result: domain.Transcription{
		Text:     "Call 123-456-7890 or mail kim@site.org",
		Language: "en",
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWatcher(cfg, backend).Run(ctx) }()

	analysis := waitForAnalysis(t, filepath.Join(cfg.Output, "clip.json"))
	if analysis.Transcript != backend.result.Text {
		t.Errorf("transcript = %q", analysis.Transcript)
	}
	if len(analysis.Info.Phones) != 1 || analysis.Info.Phones[0] != "123-456-7890" {
		t.Errorf("phones = %v", analysis.Info.Phones)
	}
	if len(analysis.Info.Emails) != 1 || analysis.Info.Emails[0] != "kim@site.org" {
		t.Errorf("emails = %v", analysis.Info.Emails)
	}

	waitForFile(t, filepath.Join(cfg.Archived, "clip.mp3"))
	if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
		t.Errorf("audio file still in input: %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestRunProcessesNewFiles(t *testing.T) {
	cfg := testConfig(t)
	backend := &stubBackend{result: domain.Transcription{Text: "hello there"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWatcher(cfg, backend).Run(ctx) }()

	// Recreate the file until the analysis shows up, in case a write
	// lands before the directory watch is in place.
	audioPath := filepath.Join(cfg.Input, "meeting.wav")
	outPath := filepath.Join(cfg.Output, "meeting.json")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(outPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("analysis never appeared")
		}
		os.Remove(audioPath)
		os.WriteFile(audioPath, []byte("wav bytes"), 0o644)
		time.Sleep(250 * time.Millisecond)
	}

	analysis := waitForAnalysis(t, outPath)
	if analysis.Transcript != "hello there" {
		t.Errorf("transcript = %q", analysis.Transcript)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestRunLeavesFileOnTranscriptionFailure(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Input, 0o755); err != nil {
		t.Fatal(err)
	}
	audioPath := filepath.Join(cfg.Input, "broken.mp3")
	if err := os.WriteFile(audioPath, []byte("mp3 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := &stubBackend{err: errors.New("model crashed"), called: make(chan string, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWatcher(cfg, backend).Run(ctx) }()

	select {
	case <-backend.called:
	case <-time.After(5 * time.Second):
		t.Fatal("backend never called")
	}

	// Run waits for the worker, so after it returns the file state is
	// settled.
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}

	if _, err := os.Stat(audioPath); err != nil {
		t.Errorf("audio file should stay in input after a failure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output, "broken.json")); !os.IsNotExist(err) {
		t.Error("analysis written despite transcription failure")
	}
}

// The startup scan and a create event can both report a file that
// lands while Run is starting up; only one worker may take it.
func TestDispatchSkipsInFlightDuplicate(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrent = 2
	for _, dir := range []string{cfg.Input, cfg.Output, cfg.Archived} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	audioPath := filepath.Join(cfg.Input, "twice.mp3")
	if err := os.WriteFile(audioPath, []byte("mp3 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := &stubBackend{
		result: domain.Transcription{Text: "only once"},
		called: make(chan string, 4),
	}
	w := newTestWatcher(cfg, backend)

	ctx := context.Background()
	w.dispatch(ctx, audioPath)
	w.dispatch(ctx, audioPath)
	w.wg.Wait()

	if got := len(backend.called); got != 1 {
		t.Errorf("backend transcribed the file %d times, want 1", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Archived, "twice.mp3")); err != nil {
		t.Errorf("audio file not archived: %v", err)
	}
}

func TestIsAudio(t *testing.T) {
	cases := map[string]bool{
		"clip.mp3": true,
		"clip.WAV": true,
		"clip.txt": false,
		"clip.mp4": false,
		"clip":     false,
	}
	for path, want := range cases {
		if got := isAudio(path); got != want {
			t.Errorf("isAudio(%q) = %v, want %v", path, got, want)
		}
	}
}
