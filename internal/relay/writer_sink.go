package relay

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// WriterSink writes fragments to an io.Writer, flushing after each one when
// the writer supports it.
type WriterSink struct {
	w      io.Writer
	mu     sync.Mutex
	closed bool
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) WriteFragment(fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if _, err := io.WriteString(s.w, fragment); err != nil {
		return err
	}
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
