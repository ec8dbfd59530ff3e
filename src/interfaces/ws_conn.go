package interfaces

import "time"

// -----------------------------------------------------------------------------
// IWSConn is the subset of *websocket.Conn the hub's pumps use.
// -----------------------------------------------------------------------------

type IWSConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}
