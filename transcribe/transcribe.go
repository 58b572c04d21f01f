package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/progress"
)

// ErrAudioNotFound reports that the audio path did not point at a
// file. Callers can tell it apart from transcription failures with
// errors.Is.
var ErrAudioNotFound = errors.New("audio file not found")

// Backend is a speech-to-text engine. Implementations report their own
// progress to sink as a fraction in [0,1] of the backend's work; the
// Transcriber maps that into the overall pipeline range.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, path string, sink progress.Sink) (domain.Transcription, error)
	Ready(ctx context.Context) error
}

// Milestone floors for the caller-visible progress feed. Backend
// progress is stretched between stageAudioLoaded and stageParsed.
const (
	stageStarted     = 0.05
	stageAudioLoaded = 0.25
	stageParsed      = 0.90
)

// Transcriber wraps a Backend with the progress contract: reported
// values stay in [0,1], never decrease, and exactly one terminal 1.0
// is delivered on every call that starts, success or failure.
type Transcriber struct {
	backend Backend
}

func New(backend Backend) *Transcriber {
	return &Transcriber{backend: backend}
}

func (t *Transcriber) Name() string {
	return t.backend.Name()
}

func (t *Transcriber) Ready(ctx context.Context) error {
	return t.backend.Ready(ctx)
}

func (t *Transcriber) Transcribe(ctx context.Context, path string, sink progress.Sink) (domain.Transcription, error) {
	if sink == nil {
		sink = progress.Discard
	}
	out := progress.Monotonic(sink)
	defer out.Report(1)

	out.Report(stageStarted)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Transcription{}, fmt.Errorf("%w: %s", ErrAudioNotFound, path)
		}
		return domain.Transcription{}, fmt.Errorf("inspect audio file: %w", err)
	}
	if info.IsDir() {
		return domain.Transcription{}, fmt.Errorf("%w: %s is a directory", ErrAudioNotFound, path)
	}
	out.Report(stageAudioLoaded)

	backendSink := progress.Func(func(v float64) {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out.Report(stageAudioLoaded + v*(stageParsed-stageAudioLoaded))
	})

	result, err := t.backend.Transcribe(ctx, path, backendSink)
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("%s transcription: %w", t.backend.Name(), err)
	}

	out.Report(stageParsed)
	return result, nil
}

// progressReader reports bytes read as a fraction of total, scaled
// into [0, scale].
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	scale float64
	sink  progress.Sink
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.sink.Report(p.scale * float64(p.read) / float64(p.total))
	}
	return n, err
}
