package core

import (
	"context"
	"time"

	"github.com/dkeye/chatsync/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks github.com/dkeye/chatsync/internal/core WSConn,Dialer,IdentityProvider

// Frame is one discrete text message on the persistent connection.
type Frame []byte

// WSConn is an indirection over *websocket.Conn to ease testing.
// Only one goroutine may call WriteMessage at a time.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	WriteControl(mt int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// Dialer opens the single live connection of a session.
type Dialer interface {
	Dial(ctx context.Context) (WSConn, error)
}

// IdentityProvider resolves the locally persisted current user.
type IdentityProvider interface {
	Current() (domain.Identity, error)
}

// RoomRegistry is the room -> members view owned by the receive loop.
// Every method holds the lock for exactly one map operation.
type RoomRegistry interface {
	ApplySnapshot(rooms map[domain.RoomName]map[domain.SessionID]string)
	ApplyJoin(room domain.RoomName, m domain.Member, local domain.SessionID)
	ApplyQuit(room domain.RoomName, sid, local domain.SessionID)
	ApplyRename(sid domain.SessionID, name string)
	Seed(room domain.RoomName) bool

	Snapshot() map[domain.RoomName]map[domain.SessionID]string
	Rooms() []domain.RoomName
	Members(room domain.RoomName) []domain.Member
}

// MessageStore is the per-room append-only history.
type MessageStore interface {
	Append(room domain.RoomName, msg domain.Message)
	Read(room domain.RoomName) []domain.Message
	Len(room domain.RoomName) int
}
