package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

// WSSink sends each fragment as one websocket text message and finishes
// with a normal close frame.
type WSSink struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
	sent   int
}

func NewWSSink(ws *websocket.Conn) *WSSink {
	return &WSSink{ws: ws}
}

func (s *WSSink) WriteFragment(fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	_ = s.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := s.ws.WriteMessage(websocket.TextMessage, []byte(fragment)); err != nil {
		return err
	}
	s.sent++
	return nil
}

// Sent is the number of fragments delivered.
func (s *WSSink) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func (s *WSSink) Close() error {
	return s.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith sends a close frame with the given code and reason. Only the
// first call has any effect.
func (s *WSSink) CloseWith(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

// CloseWithError ends the stream with an internal-error close frame so the
// client can tell a truncated stream from a complete one.
func (s *WSSink) CloseWithError(err error) error {
	return s.CloseWith(websocket.CloseInternalServerErr, "stream aborted")
}
