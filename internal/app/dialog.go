package app

import (
	"sync"

	"github.com/dkeye/chatsync/internal/domain"
)

// DialogState is the conversation view as the UI left it.
type DialogState struct {
	OpenRoom *domain.RoomName `json:"open_room"`
	Visible  bool             `json:"visible"`
}

// Dialog is mutated by UI actions only, never by the protocol.
type Dialog struct {
	mu    sync.Mutex
	state DialogState
}

func NewDialog() *Dialog { return &Dialog{} }

// Open shows the conversation view. An empty room keeps the current selection.
func (d *Dialog) Open(room domain.RoomName) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Visible = true
	if room != "" {
		d.state.OpenRoom = &room
	}
}

// Close hides the view; the connection is not affected.
func (d *Dialog) Close() {
	d.mu.Lock()
	d.state.Visible = false
	d.mu.Unlock()
}

func (d *Dialog) Select(room domain.RoomName) {
	d.mu.Lock()
	d.state.OpenRoom = &room
	d.mu.Unlock()
}

func (d *Dialog) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Visible
}

// State returns a copy safe to hand to a renderer.
func (d *Dialog) State() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	if s.OpenRoom != nil {
		room := *s.OpenRoom
		s.OpenRoom = &room
	}
	return s
}
