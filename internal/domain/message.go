package domain

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// MessageID is the server-assigned message id. The server uses 128-bit
// integers, so the id is kept as its decimal text and never used in arithmetic.
type MessageID string

// LocalMessageID marks a message appended locally that has not been round-tripped.
const LocalMessageID MessageID = "0"

func (id *MessageID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*id = LocalMessageID
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("message id: bad string %s: %w", b, err)
		}
		*id = MessageID(s)
	default:
		for _, c := range b {
			if c < '0' || c > '9' {
				return fmt.Errorf("message id: not an unsigned integer %s", b)
			}
		}
		*id = MessageID(b)
	}
	return nil
}

// Message is immutable once stored. IsOwn is a local annotation and never
// travels on the wire.
type Message struct {
	ID         MessageID `json:"id"`
	Room       RoomName  `json:"room"`
	SenderID   SessionID `json:"from_id"`
	SenderName string    `json:"from_name"`
	Content    string    `json:"content"`
	Time       string    `json:"time"`
	IsOwn      bool      `json:"is_own"`
}
