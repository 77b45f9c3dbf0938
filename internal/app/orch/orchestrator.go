package orch

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatsync/internal/app"
	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
	"github.com/dkeye/chatsync/internal/protocol"
)

// Orchestrator applies decoded events to the registry and history, then
// decides what the UI sees. The connection session is its only caller for
// protocol events; UI actions go through the dialog and toast helpers.
type Orchestrator struct {
	Rooms   core.RoomRegistry
	History core.MessageStore
	Toasts  *app.Toasts
	Dialog  *app.Dialog
	Policy  app.Policy
	Changes *app.Changes

	// Local is the identity of this client, fixed for the connection lifetime.
	Local domain.Identity

	now func() time.Time
}

// New wires an orchestrator with fresh state for one session.
func New(local domain.Identity, timeouts app.ToastTimeouts) *Orchestrator {
	changes := app.NewChanges()
	return &Orchestrator{
		Rooms:   app.NewRegistry(),
		History: app.NewHistory(),
		Toasts:  app.NewToasts(timeouts, changes.Notify),
		Dialog:  app.NewDialog(),
		Policy:  app.NotificationPolicy{},
		Changes: changes,
		Local:   local,
		now:     time.Now,
	}
}

// Apply mutates state for evt, then routes the notification and signals a
// re-render. Mutation happens before the notification.
func (o *Orchestrator) Apply(evt protocol.Event) app.Decision {
	local := o.Local.SessionID()
	switch e := evt.(type) {
	case protocol.RoomSnapshot:
		o.Rooms.ApplySnapshot(e.Rooms)
	case protocol.MemberJoined:
		o.Rooms.ApplyJoin(e.Room, e.Member, local)
	case protocol.MemberQuit:
		o.Rooms.ApplyQuit(e.Room, e.SessionID, local)
	case protocol.MemberRenamed:
		o.Rooms.ApplyRename(e.SessionID, e.Name)
	case protocol.ChatMessage:
		o.History.Append(e.Message.Room, e.Message)
	default:
		log.Warn().Str("module", "orch").Msgf("unhandled event %T", evt)
		return app.Redraw
	}

	decision := o.policy().Route(evt, o.Dialog.Visible())
	if decision == app.ShowToast {
		if msg, ok := evt.(protocol.ChatMessage); ok {
			o.Toasts.Message(msg.Message)
		}
	}
	log.Debug().Str("module", "orch").Str("kind", string(evt.Kind())).Stringer("decision", decision).Msg("event applied")
	o.Changes.Notify()
	return decision
}

// AppendOwn records a message this client just sent, so the sender sees it
// without waiting for the server echo.
func (o *Orchestrator) AppendOwn(room domain.RoomName, text string) domain.Message {
	msg := domain.Message{
		ID:         domain.LocalMessageID,
		Room:       room,
		SenderID:   o.Local.SessionID(),
		SenderName: o.Local.DisplayName(),
		Content:    text,
		Time:       o.clock().Format(time.RFC3339),
		IsOwn:      true,
	}
	o.History.Append(room, msg)
	o.Changes.Notify()
	return msg
}

// Notice pushes a locally generated toast; it never touches history.
func (o *Orchestrator) Notice(kind app.ToastKind, text string) uuid.UUID {
	var id uuid.UUID
	switch kind {
	case app.KindSuccess:
		id = o.Toasts.OK(text)
	case app.KindWarning:
		id = o.Toasts.Warn(text)
	case app.KindError:
		id = o.Toasts.Error(text)
	default:
		id = o.Toasts.Info(text)
	}
	o.Changes.Notify()
	return id
}

func (o *Orchestrator) policy() app.Policy {
	if o.Policy == nil {
		return app.NotificationPolicy{}
	}
	return o.Policy
}

func (o *Orchestrator) clock() time.Time {
	if o.now == nil {
		return time.Now()
	}
	return o.now()
}
