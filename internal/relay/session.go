package relay

import (
	"strings"
	"time"
)

// Session tracks one relayed stream. ChunkIndex always equals the number of
// fragments relayed so far and Text their ordered concatenation.
type Session struct {
	StartTime  time.Time
	ChunkIndex int

	firstFragment time.Duration
	text          strings.Builder
}

func NewSession(start time.Time) *Session {
	return &Session{StartTime: start}
}

func (s *Session) record(fragment string, now time.Time) time.Duration {
	s.ChunkIndex++
	s.text.WriteString(fragment)
	elapsed := now.Sub(s.StartTime)
	if s.ChunkIndex == 1 {
		s.firstFragment = elapsed
	}
	return elapsed
}

func (s *Session) Text() string {
	return s.text.String()
}

func (s *Session) Bytes() int {
	return s.text.Len()
}

// FirstFragment is the delay before the first fragment arrived, zero if
// none did.
func (s *Session) FirstFragment() time.Duration {
	return s.firstFragment
}
