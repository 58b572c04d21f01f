package progress

import "sync"

// Sink receives transcription progress values in [0,1].
type Sink interface {
	Report(v float64)
}

// Func adapts a plain function to a Sink.
type Func func(v float64)

func (f Func) Report(v float64) { f(v) }

// Discard drops every value.
var Discard Sink = Func(func(float64) {})

// Monotonic wraps sink so that reported values are clamped to [0,1]
// and never decrease. A value lower than the last delivered one is
// dropped, not reordered.
func Monotonic(sink Sink) Sink {
	return &monotonicSink{sink: sink}
}

type monotonicSink struct {
	mu   sync.Mutex
	sink Sink
	last float64
}

func (m *monotonicSink) Report(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	m.mu.Lock()
	if v < m.last {
		m.mu.Unlock()
		return
	}
	m.last = v
	m.mu.Unlock()

	m.sink.Report(v)
}
