package orch

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatsync/internal/domain"
)

// OpenDialog shows the conversation view on room.
func (o *Orchestrator) OpenDialog(room domain.RoomName) {
	o.Dialog.Open(room)
	log.Info().Str("module", "orch").Str("room", string(room)).Msg("dialog opened")
	o.Changes.Notify()
}

// OpenFromToast opens the conversation on the toast's room and drops every
// pending toast, the way clicking a message notification does.
func (o *Orchestrator) OpenFromToast(id uuid.UUID) bool {
	t, ok := o.Toasts.Get(id)
	if !ok {
		return false
	}
	o.Dialog.Open(t.Room)
	o.Toasts.Clear()
	log.Info().Str("module", "orch").Str("room", string(t.Room)).Msg("dialog opened from toast")
	o.Changes.Notify()
	return true
}

// CloseDialog hides the conversation view; the connection stays up.
func (o *Orchestrator) CloseDialog() {
	o.Dialog.Close()
	o.Changes.Notify()
}

func (o *Orchestrator) SelectRoom(room domain.RoomName) {
	o.Dialog.Select(room)
	o.Changes.Notify()
}

func (o *Orchestrator) DismissToast(id uuid.UUID) bool {
	if _, ok := o.Toasts.Dismiss(id); !ok {
		return false
	}
	o.Changes.Notify()
	return true
}
