package labeling

import (
	"errors"
	"sync"
)

// Sink consumes labeled frames in deterministic scene, agent, frame order.
type Sink interface {
	WriteFrame(f LabeledFrame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f LabeledFrame) error

func (fn SinkFunc) WriteFrame(f LabeledFrame) error { return fn(f) }

// MultiSink fans every frame out to each sink in order. All sinks see the
// frame even if an earlier one fails; the errors are joined.
type MultiSink []Sink

func (m MultiSink) WriteFrame(f LabeledFrame) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteFrame(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps every frame in memory. Useful in tests and for small
// runs that render reports after labeling.
type MemorySink struct {
	mu     sync.Mutex
	frames []LabeledFrame
}

func (m *MemorySink) WriteFrame(f LabeledFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, f)
	return nil
}

// Frames returns the frames written so far.
func (m *MemorySink) Frames() []LabeledFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LabeledFrame(nil), m.frames...)
}
