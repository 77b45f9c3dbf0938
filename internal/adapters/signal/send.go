package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatsync/internal/app"
	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
	"github.com/dkeye/chatsync/internal/protocol"
)

// Send writes text to the server for room and appends it locally as the
// client's own message. The room is not carried on the wire.
//
// A failed send is reported as *domain.SendError and an error toast; the
// receive loop keeps running. Nothing is appended unless the write succeeded.
func (s *Session) Send(ctx context.Context, room domain.RoomName, text string) (domain.Message, error) {
	if room == "" {
		return domain.Message{}, &domain.SendError{Room: room, Err: domain.ErrRoomEmpty}
	}
	if text == "" {
		return domain.Message{}, &domain.SendError{Room: room, Err: domain.ErrEmptyMessage}
	}
	if s.State() != core.Open {
		return domain.Message{}, &domain.SendError{Room: room, Err: domain.ErrNotConnected}
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, &domain.SendError{Room: room, Err: err}
	}
	if !s.limiter.Allow(room) {
		s.Orch.Notice(app.KindWarning, "sending too fast")
		return domain.Message{}, &domain.SendError{Room: room, Err: domain.ErrRateLimited}
	}

	if err := s.writeFrame(ctx, protocol.EncodeChat(text)); err != nil {
		serr := &domain.SendError{Room: room, Err: err}
		log.Error().Err(serr).Str("module", "signal").Msg("message send error")
		s.Orch.Notice(app.KindError, "message send failed")
		return domain.Message{}, serr
	}
	return s.Orch.AppendOwn(room, text), nil
}
