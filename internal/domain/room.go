package domain

type (
	RoomName  string
	SessionID string
)

// DefaultRoom is materialized when a session opens with an empty registry.
const DefaultRoom RoomName = "main"
