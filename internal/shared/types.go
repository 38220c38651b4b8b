package shared

import (
	"crypto/rand"
	"encoding/hex"
)

func NewID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

type Mode string

const (
	ModeStream    Mode = "stream"
	ModeBuffered  Mode = "buffered"
	ModeWebSocket Mode = "websocket"
)

func (m Mode) String() string {
	return string(m)
}
