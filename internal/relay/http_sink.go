package relay

import (
	"io"
	"net/http"
	"sync"
)

const ContentTypeEventStream = "text/event-stream"

// HTTPSink writes fragments to a chunked HTTP response. Headers are only
// committed with the first fragment, so a failure before that point can
// still be answered with a regular error response.
type HTTPSink struct {
	writer  http.ResponseWriter
	flusher http.Flusher

	mu        sync.Mutex
	committed bool
	closed    bool
}

func NewHTTPSink(w http.ResponseWriter) (*HTTPSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, http.ErrNotSupported
	}
	return &HTTPSink{
		writer:  w,
		flusher: flusher,
	}, nil
}

func (s *HTTPSink) WriteFragment(fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if !s.committed {
		s.commit()
	}

	if _, err := io.WriteString(s.writer, fragment); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *HTTPSink) commit() {
	h := s.writer.Header()
	h.Set("Content-Type", ContentTypeEventStream)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.writer.WriteHeader(http.StatusOK)
	s.committed = true
}

// Written reports whether any bytes reached the caller.
func (s *HTTPSink) Written() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Close ends the stream. Later writes fail with ErrSinkClosed.
func (s *HTTPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.committed {
		s.flusher.Flush()
	}
	return nil
}

// Finish commits headers for a stream that ended normally without any
// fragments. It is a no-op once bytes have been written.
func (s *HTTPSink) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.committed {
		s.commit()
		s.flusher.Flush()
	}
}
