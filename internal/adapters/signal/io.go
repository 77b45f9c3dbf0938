package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatsync/internal/app"
	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
	"github.com/dkeye/chatsync/internal/protocol"
)

// readPump is the single consumer of inbound frames; frames are applied in
// arrival order. It ends on the first read error and never reconnects.
func (s *Session) readPump(ctx context.Context, conn core.WSConn) {
	defer func() {
		log.Info().Str("module", "signal").Stringer("state", s.State()).Msg("readPump closing")
		_ = conn.Close()
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		close(s.done)
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			s.onReadError(ctx, err)
			return
		}
		if mt != websocket.TextMessage {
			log.Debug().Str("module", "signal").Int("type", mt).Msg("non-text frame ignored")
			continue
		}
		s.handleFrame(data)
	}
}

func (s *Session) handleFrame(data []byte) {
	evt, err := protocol.Decode(data)
	if err != nil {
		// drop the frame, keep the loop
		log.Error().Err(err).Str("module", "signal").Msg("bad frame")
		return
	}
	if evt == nil {
		log.Debug().Str("module", "signal").Str("tag", protocol.Tag(data)).Msg("frame ignored")
		return
	}
	s.Orch.Apply(evt)
}

// onReadError picks the terminal state. An abnormal closure (1006) is what
// the library reports for a dropped socket, so it counts as transport loss.
func (s *Session) onReadError(ctx context.Context, err error) {
	var closeErr *websocket.CloseError
	switch {
	case s.state.Load() == core.Closing || ctx.Err() != nil:
		s.setState(core.Closed)
		log.Info().Str("module", "signal").Msg("connection closed")
	case errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure:
		s.setState(core.Closed)
		log.Info().Str("module", "signal").Int("code", closeErr.Code).Str("text", closeErr.Text).Msg("connection closed by server")
		s.Orch.Notice(app.KindInfo, "connection closed by server")
	default:
		terr := &domain.TransportError{Op: "read", Err: err}
		s.setState(core.Disconnected)
		log.Error().Err(terr).Str("module", "signal").Msg("readPump read error")
		s.Orch.Notice(app.KindError, "connection lost")
	}
}

func (s *Session) pingPump(ctx context.Context, conn core.WSConn) {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteTimeout)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("ping failed")
				return
			}
		}
	}
}

// writeFrame holds the write side for one frame.
func (s *Session) writeFrame(ctx context.Context, f core.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn := s.currentConn()
	if conn == nil {
		return domain.ErrNotConnected
	}
	deadline := time.Now().Add(s.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, f)
}
