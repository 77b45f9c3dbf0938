package app

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatsync/internal/domain"
)

type ToastKind string

const (
	KindSuccess ToastKind = "success"
	KindInfo    ToastKind = "info"
	KindWarning ToastKind = "warning"
	KindError   ToastKind = "error"
	// KindMessage is an incoming chat message; it is never persisted to history.
	KindMessage ToastKind = "message"
)

// ToastTimeouts is how long each kind stays up. Zero means until dismissed.
type ToastTimeouts struct {
	Success time.Duration
	Info    time.Duration
	Warning time.Duration
	Error   time.Duration
	Message time.Duration
}

func DefaultToastTimeouts() ToastTimeouts {
	return ToastTimeouts{
		Success: 5 * time.Second,
		Info:    5 * time.Second,
		Warning: 8 * time.Second,
		Error:   10 * time.Second,
	}
}

func (t ToastTimeouts) of(kind ToastKind) time.Duration {
	switch kind {
	case KindSuccess:
		return t.Success
	case KindInfo:
		return t.Info
	case KindWarning:
		return t.Warning
	case KindError:
		return t.Error
	default:
		return t.Message
	}
}

type Toast struct {
	ID      uuid.UUID        `json:"id"`
	Kind    ToastKind        `json:"kind"`
	Title   string           `json:"title"`
	Room    domain.RoomName  `json:"room,omitempty"`
	Content string           `json:"content"`
	From    string           `json:"from,omitempty"`
	FromID  domain.SessionID `json:"from_id,omitempty"`
	Timeout time.Duration    `json:"timeout"`
}

type toastEntry struct {
	toast Toast
	timer *time.Timer
}

// Toasts is the list of visible notifications. Every timed toast owns its
// own timer, stopped when the toast goes away first.
type Toasts struct {
	mu       sync.Mutex
	items    []*toastEntry
	timeouts ToastTimeouts
	onChange func()
	closed   bool
}

// NewToasts builds an empty list. onChange runs after a toast expired on its
// own and may be nil.
func NewToasts(timeouts ToastTimeouts, onChange func()) *Toasts {
	if onChange == nil {
		onChange = func() {}
	}
	return &Toasts{timeouts: timeouts, onChange: onChange}
}

func (t *Toasts) Push(toast Toast) uuid.UUID {
	toast.ID = uuid.New()
	toast.Timeout = t.timeouts.of(toast.Kind)
	e := &toastEntry{toast: toast}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return toast.ID
	}
	if toast.Timeout > 0 {
		id := toast.ID
		e.timer = time.AfterFunc(toast.Timeout, func() { t.expire(id) })
	}
	t.items = append(t.items, e)
	return toast.ID
}

func (t *Toasts) OK(msg string) uuid.UUID {
	return t.Push(Toast{Kind: KindSuccess, Title: "Success", Content: msg})
}

func (t *Toasts) Warn(msg string) uuid.UUID {
	return t.Push(Toast{Kind: KindWarning, Title: "Warning", Content: msg})
}

func (t *Toasts) Info(msg string) uuid.UUID {
	return t.Push(Toast{Kind: KindInfo, Title: "Info", Content: msg})
}

func (t *Toasts) Error(msg string) uuid.UUID {
	return t.Push(Toast{Kind: KindError, Title: "Error", Content: msg})
}

// Message pushes an incoming chat toast titled with its room.
func (t *Toasts) Message(msg domain.Message) uuid.UUID {
	return t.Push(Toast{
		Kind:    KindMessage,
		Title:   string(msg.Room),
		Room:    msg.Room,
		Content: msg.Content,
		From:    msg.SenderName,
		FromID:  msg.SenderID,
	})
}

// Dismiss removes a toast and cancels its timer.
func (t *Toasts) Dismiss(id uuid.UUID) (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(id)
}

// Clear dismisses every toast.
func (t *Toasts) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.items {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	t.items = nil
}

func (t *Toasts) Get(id uuid.UUID) (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.items {
		if e.toast.ID == id {
			return e.toast, true
		}
	}
	return Toast{}, false
}

func (t *Toasts) List() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, 0, len(t.items))
	for _, e := range t.items {
		out = append(out, e.toast)
	}
	return out
}

// Close stops all timers. Later pushes are dropped.
func (t *Toasts) Close() {
	t.Clear()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *Toasts) expire(id uuid.UUID) {
	t.mu.Lock()
	_, ok := t.removeLocked(id)
	t.mu.Unlock()
	if ok {
		log.Debug().Str("module", "app.toasts").Str("id", id.String()).Msg("toast expired")
		t.onChange()
	}
}

func (t *Toasts) removeLocked(id uuid.UUID) (Toast, bool) {
	i := slices.IndexFunc(t.items, func(e *toastEntry) bool { return e.toast.ID == id })
	if i < 0 {
		return Toast{}, false
	}
	e := t.items[i]
	if e.timer != nil {
		e.timer.Stop()
	}
	t.items = slices.Delete(t.items, i, i+1)
	return e.toast, true
}
