// Package signal owns the single WebSocket connection to the chat server.
// It is the only writer into the room registry and the message history.
package signal

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatsync/internal/app"
	"github.com/dkeye/chatsync/internal/app/orch"
	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
	"github.com/dkeye/chatsync/internal/protocol"
)

const defaultWriteTimeout = 5 * time.Second

type Options struct {
	// ReadLimit caps an inbound frame in bytes; zero keeps the library default.
	ReadLimit int64
	// PingPeriod enables WebSocket ping control frames when positive.
	PingPeriod   time.Duration
	WriteTimeout time.Duration
	// DefaultRoom is materialized when the registry is empty on open.
	DefaultRoom domain.RoomName
	// SendLimit outbound messages per room within SendInterval; zero disables.
	SendLimit    int
	SendInterval time.Duration
}

// Session is the connection state machine. It is started at most once;
// there is no reconnection.
type Session struct {
	dialer core.Dialer
	Orch   *orch.Orchestrator
	opts   Options

	state   core.StateCell
	started atomic.Bool

	mu     sync.Mutex
	conn   core.WSConn
	cancel context.CancelFunc

	// writeMu gives one writer the socket for exactly one frame.
	writeMu sync.Mutex
	done    chan struct{}
	limiter *RoomRateLimiter
}

func NewSession(dialer core.Dialer, o *orch.Orchestrator, opts Options) *Session {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = domain.DefaultRoom
	}
	return &Session{
		dialer:  dialer,
		Orch:    o,
		opts:    opts,
		done:    make(chan struct{}),
		limiter: NewRoomRateLimiter(opts.SendLimit, opts.SendInterval),
	}
}

// Start dials the server, announces this client and runs the receive loop
// in the background. A failed dial leaves the session Disconnected for good.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return domain.ErrAlreadyStarted
	}
	logger := log.With().Str("module", "signal").Str("sid", string(s.Orch.Local.SessionID())).Logger()

	s.setState(core.Connecting)
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		s.setState(core.Disconnected)
		close(s.done)
		terr := &domain.TransportError{Op: "dial", Err: err}
		logger.Error().Err(terr).Msg("connect failed")
		s.Orch.Notice(app.KindError, "connection failed: "+err.Error())
		return terr
	}
	if s.opts.ReadLimit > 0 {
		conn.SetReadLimit(s.opts.ReadLimit)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	if s.Orch.Rooms.Seed(s.opts.DefaultRoom) {
		logger.Debug().Str("room", string(s.opts.DefaultRoom)).Msg("seeded default room")
	}
	s.setState(core.Open)
	logger.Info().Msg("connected")

	if err := s.writeFrame(runCtx, core.Frame(protocol.Announcement)); err != nil {
		logger.Warn().Err(err).Msg("announce failed")
	}

	go s.readPump(runCtx, conn)
	if s.opts.PingPeriod > 0 {
		go s.pingPump(runCtx, conn)
	}
	go func() {
		select {
		case <-runCtx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return nil
}

// Close ends an open connection on user request. Closing the conversation
// view does not call this.
func (s *Session) Close() {
	if !s.state.Transition(core.Open, core.Closing) {
		return
	}
	s.Orch.Changes.Notify()
	conn := s.currentConn()

	s.writeMu.Lock()
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(s.opts.WriteTimeout),
	)
	s.writeMu.Unlock()
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("close frame not sent")
	}
	_ = conn.Close()
	<-s.done
}

func (s *Session) State() core.ConnState { return s.state.Load() }

// Done is closed once the session reached a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) setState(st core.ConnState) {
	s.state.Store(st)
	log.Debug().Str("module", "signal").Stringer("state", st).Msg("state changed")
	s.Orch.Changes.Notify()
}

func (s *Session) currentConn() core.WSConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// WSDialer dials the chat endpoint with gorilla/websocket.
type WSDialer struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
}

func (d WSDialer) Dial(ctx context.Context) (core.WSConn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
