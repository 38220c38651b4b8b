package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Source yields text fragments in arrival order and io.EOF at the end.
type Source interface {
	Next() (string, error)
}

// Sink receives fragments. Close must be safe to call more than once.
type Sink interface {
	WriteFragment(fragment string) error
	Close() error
}

// ErrorCloser is implemented by sinks that can tell the caller the stream
// ended abnormally.
type ErrorCloser interface {
	CloseWithError(err error) error
}

var ErrSinkClosed = errors.New("sink closed")

type Relay struct {
	logger *slog.Logger
	now    func() time.Time
}

func New(logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		logger: logger.With("component", "relay"),
		now:    time.Now,
	}
}

// With returns a Relay whose logs carry the given attributes.
func (r *Relay) With(args ...any) *Relay {
	return &Relay{
		logger: r.logger.With(args...),
		now:    r.now,
	}
}

// Pump copies fragments from src to sink until src is exhausted, the sink
// fails or ctx ends. Each fragment is written as soon as it arrives. cancel
// aborts the upstream and is invoked whenever Pump stops early, including
// when ctx is cancelled while src is blocked. The sink is always closed,
// through CloseWithError when Pump fails and the sink supports it.
func (r *Relay) Pump(ctx context.Context, src Source, sink Sink, cancel func()) (session *Session, err error) {
	if cancel == nil {
		cancel = func() {}
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	defer func() {
		if ec, ok := sink.(ErrorCloser); ok && err != nil {
			ec.CloseWithError(err)
			return
		}
		sink.Close()
	}()

	session = NewSession(r.now())
	logger := r.logger

	for {
		if err := ctx.Err(); err != nil {
			cancel()
			return session, err
		}

		fragment, err := src.Next()
		if errors.Is(err, io.EOF) {
			logger.Debug("stream finished",
				"chunks", session.ChunkIndex,
				"bytes", session.Bytes(),
				"elapsed_ms", r.now().Sub(session.StartTime).Milliseconds())
			return session, nil
		}
		if err != nil {
			cancel()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return session, ctxErr
			}
			return session, err
		}

		elapsed := session.record(fragment, r.now())

		if err := sink.WriteFragment(fragment); err != nil {
			cancel()
			logger.Warn("fragment write failed, cancelling upstream",
				"chunk", session.ChunkIndex,
				"error", err)
			return session, fmt.Errorf("write fragment %d: %w", session.ChunkIndex, err)
		}

		logger.Debug("fragment relayed",
			"chunk", session.ChunkIndex,
			"bytes", len(fragment),
			"elapsed_ms", elapsed.Milliseconds())
	}
}
