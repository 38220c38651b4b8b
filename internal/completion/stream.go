package completion

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/eleven-am/menu-capture/internal/shared"
)

const (
	doneMarker    = "[DONE]"
	maxStreamLine = 1 << 20
)

// Stream yields text fragments from an upstream server-sent event body in
// arrival order. It is not safe for concurrent use.
type Stream struct {
	ctx       context.Context
	body      io.ReadCloser
	scanner   *bufio.Scanner
	cancel    context.CancelFunc
	done      bool
	closeOnce sync.Once
}

func newStream(ctx context.Context, body io.ReadCloser, cancel context.CancelFunc) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxStreamLine)
	return &Stream{
		ctx:     ctx,
		body:    body,
		scanner: scanner,
		cancel:  cancel,
	}
}

// Next returns the next non-empty fragment. It returns io.EOF once the
// upstream signals completion or the body ends.
func (s *Stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == doneMarker {
			s.done = true
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", &shared.UpstreamError{Op: "stream", Err: fmt.Errorf("decode chunk: %w", err)}
		}
		if chunk.Error != nil {
			return "", &shared.UpstreamError{Op: "stream", Err: errors.New(chunk.Error.Message)}
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}

	if err := s.ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &shared.UpstreamError{Op: "stream", Err: err}
	}
	if err := s.scanner.Err(); err != nil {
		return "", &shared.UpstreamError{Op: "stream", Err: err}
	}

	s.done = true
	return "", io.EOF
}

// Close cancels the request context and releases the upstream body. A Next
// blocked on the body then returns context.Canceled.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}
