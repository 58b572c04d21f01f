// Package watcher runs the analysis pipeline over audio files dropped
// into a directory, without the HTTP server in front.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/config"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/extract"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/progress"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/transcribe"
)

// settleDelay gives the writer time to finish before the file is read.
const settleDelay = 500 * time.Millisecond

// Watcher analyzes audio files appearing in the input directory and
// writes one JSON document per file into the output directory.
// Processed files move to the archived directory.
type Watcher struct {
	cfg         config.WatcherConfig
	transcriber *transcribe.Transcriber
	extractor   *extract.Extractor
	sem         chan struct{}
	wg          sync.WaitGroup

	// active holds paths between dispatch and the end of processing,
	// so the startup scan and a create event for the same file cannot
	// both hand it to a worker.
	mu     sync.Mutex
	active map[string]bool
}

func New(cfg config.WatcherConfig, transcriber *transcribe.Transcriber, extractor *extract.Extractor) *Watcher {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	return &Watcher{
		cfg:         cfg,
		transcriber: transcriber,
		extractor:   extractor,
		sem:         make(chan struct{}, maxConcurrent),
		active:      map[string]bool{},
	}
}

// Run blocks until ctx is cancelled, analyzing audio files as they
// appear. Files already present in the input directory are picked up
// on start. Cancellation waits for running analyses to finish.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.cfg.Input, w.cfg.Output, w.cfg.Archived} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Input); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Input, err)
	}

	log.Info().
		Str("dir", w.cfg.Input).
		Int("max_concurrent", cap(w.sem)).
		Msg("Watching for audio files")

	entries, err := os.ReadDir(w.cfg.Input)
	if err != nil {
		return fmt.Errorf("list %s: %w", w.cfg.Input, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isAudio(entry.Name()) {
			continue
		}
		w.dispatch(ctx, filepath.Join(w.cfg.Input, entry.Name()))
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Waiting for running analyses to finish")
			w.wg.Wait()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isAudio(event.Name) {
				log.Debug().Str("file", event.Name).Msg("Ignoring non-audio file")
				continue
			}
			w.dispatch(ctx, event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// dispatch hands the file to a worker, blocking while all slots are
// busy. A path already in flight is skipped; once its worker finishes,
// a fresh drop of the same name is picked up again.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	w.mu.Lock()
	if w.active[path] {
		w.mu.Unlock()
		log.Debug().Str("file", path).Msg("Already in flight, skipping duplicate event")
		return
	}
	w.active[path] = true
	w.mu.Unlock()

	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		w.clear(path)
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()
		defer w.clear(path)
		w.process(ctx, path)
	}()
}

func (w *Watcher) clear(path string) {
	w.mu.Lock()
	delete(w.active, path)
	w.mu.Unlock()
}

func (w *Watcher) process(ctx context.Context, path string) {
	time.Sleep(settleDelay)

	log.Info().Str("file", path).Msg("Analyzing audio file")

	transcription, err := w.transcriber.Transcribe(ctx, path, logSink(path))
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Transcription failed, leaving file in place")
		return
	}

	info, err := w.extractor.Extract(ctx, transcription.Text)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Name recognition unavailable, keeping pattern matches")
	}

	analysis := domain.Analysis{
		Transcript: transcription.Text,
		Language:   transcription.Language,
		Info:       info,
		NameGroups: extract.GroupNames(info.Names),
	}

	outPath, err := w.writeAnalysis(path, analysis)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Could not write analysis, leaving file in place")
		return
	}

	w.archive(path)

	log.Info().
		Str("file", path).
		Str("output", outPath).
		Int("phones", len(info.Phones)).
		Int("emails", len(info.Emails)).
		Int("names", len(info.Names)).
		Msg("Analysis written")
}

// writeAnalysis stores the document as <input base>.json in the output
// directory.
func (w *Watcher) writeAnalysis(audioPath string, analysis domain.Analysis) (string, error) {
	base := filepath.Base(audioPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	outPath := filepath.Join(w.cfg.Output, name)

	data, err := json.MarshalIndent(analysis, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write analysis: %w", err)
	}

	return outPath, nil
}

func (w *Watcher) archive(path string) {
	dest := filepath.Join(w.cfg.Archived, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Could not archive audio file")
	}
}

func isAudio(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav":
		return true
	}
	return false
}

// logSink reports coarse steps so per-file progress stays readable in
// the log.
func logSink(path string) progress.Sink {
	last := -1.0
	return progress.Func(func(v float64) {
		if v < 1 && v-last < 0.1 {
			return
		}
		last = v
		log.Debug().Str("file", path).Float64("progress", v).Msg("Transcription progress")
	})
}
