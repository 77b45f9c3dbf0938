package app

import (
	"slices"
	"sync"

	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
)

// History is the per-room message log of the current session. It only grows.
type History struct {
	mu    sync.Mutex
	rooms map[domain.RoomName][]domain.Message
}

var _ core.MessageStore = (*History)(nil)

func NewHistory() *History {
	return &History{rooms: make(map[domain.RoomName][]domain.Message)}
}

func (h *History) Append(room domain.RoomName, msg domain.Message) {
	h.mu.Lock()
	h.rooms[room] = append(h.rooms[room], msg)
	h.mu.Unlock()
}

// Read returns a copy of the room's history; unknown rooms yield an empty slice.
func (h *History) Read(room domain.RoomName) []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := slices.Clone(h.rooms[room])
	if out == nil {
		out = []domain.Message{}
	}
	return out
}

func (h *History) Len(room domain.RoomName) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}
