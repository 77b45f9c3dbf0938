package app

import "github.com/dkeye/chatsync/internal/protocol"

// Decision is what the UI should see after an inbound event was applied.
type Decision int

const (
	// Redraw is a silent signal: open views re-read the registry and history.
	Redraw Decision = iota
	// ShowToast pushes a transient incoming-message notification.
	ShowToast
)

func (d Decision) String() string {
	if d == ShowToast {
		return "toast"
	}
	return "redraw"
}

type Policy interface {
	Route(evt protocol.Event, dialogVisible bool) Decision
}

// NotificationPolicy toasts chat messages only while no conversation view
// is open. Everything else is a silent redraw.
type NotificationPolicy struct{}

func (NotificationPolicy) Route(evt protocol.Event, dialogVisible bool) Decision {
	if _, ok := evt.(protocol.ChatMessage); ok && !dialogVisible {
		return ShowToast
	}
	return Redraw
}
