// Package protocol decodes the tagged text frames pushed by the chat server.
//
// An inbound frame is a literal tag followed by a JSON payload, for example
//
//	join_room:{"session_id":"s1","name":"Alice","room":"general"}
//
// Frames with a tag this package does not know are ignored so that newer
// servers can add kinds without breaking older clients. Outbound frames are
// plain chat text with no tag.
package protocol

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"

	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
)

const (
	TagRoomSnapshot  = "list:"
	TagMemberJoined  = "join_room:"
	TagMemberQuit    = "quit_room:"
	TagMemberRenamed = "update_name:"
	TagChatMessage   = "message:"
	// TagSessionUpdate is sent by the server but carries nothing the client needs.
	TagSessionUpdate = "update_session:"
)

// Announcement is the liveness frame written once right after the socket opens.
const Announcement = "i am back online!"

var (
	errMissingSession = errors.New("missing session_id")
	errMissingRoom    = errors.New("missing room")
)

type roomChange struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Room      string `json:"room"`
}

type nameChange struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	OldName   string `json:"old_name"`
}

type messageContent struct {
	ID       domain.MessageID `json:"id"`
	Room     string           `json:"room"`
	FromID   string           `json:"from_id"`
	FromName string           `json:"from_name"`
	Content  string           `json:"content"`
	Time     string           `json:"time"`
}

// Decode classifies frame by its tag and decodes the payload.
// It returns (nil, nil) for frames with an unknown tag and a
// *domain.DecodeError when a known tag carries a malformed payload.
func Decode(frame core.Frame) (Event, error) {
	switch {
	case bytes.HasPrefix(frame, []byte(TagChatMessage)):
		var p messageContent
		if err := unmarshal(TagChatMessage, frame, &p); err != nil {
			return nil, err
		}
		if p.Room == "" {
			return nil, &domain.DecodeError{Tag: TagChatMessage, Err: errMissingRoom}
		}
		if p.ID == "" {
			p.ID = domain.LocalMessageID
		}
		return ChatMessage{Message: domain.Message{
			ID:         p.ID,
			Room:       domain.RoomName(p.Room),
			SenderID:   domain.SessionID(p.FromID),
			SenderName: p.FromName,
			Content:    p.Content,
			Time:       p.Time,
		}}, nil

	case bytes.HasPrefix(frame, []byte(TagRoomSnapshot)):
		var rooms map[string]map[string]string
		if err := unmarshal(TagRoomSnapshot, frame, &rooms); err != nil {
			return nil, err
		}
		out := make(map[domain.RoomName]map[domain.SessionID]string, len(rooms))
		for room, members := range rooms {
			ms := make(map[domain.SessionID]string, len(members))
			for sid, name := range members {
				ms[domain.SessionID(sid)] = name
			}
			out[domain.RoomName(room)] = ms
		}
		return RoomSnapshot{Rooms: out}, nil

	case bytes.HasPrefix(frame, []byte(TagMemberJoined)):
		p, err := decodeRoomChange(TagMemberJoined, frame)
		if err != nil {
			return nil, err
		}
		m, err := domain.NewMember(domain.SessionID(p.SessionID), p.Name)
		if err != nil {
			return nil, &domain.DecodeError{Tag: TagMemberJoined, Err: err}
		}
		return MemberJoined{Room: domain.RoomName(p.Room), Member: m}, nil

	case bytes.HasPrefix(frame, []byte(TagMemberQuit)):
		p, err := decodeRoomChange(TagMemberQuit, frame)
		if err != nil {
			return nil, err
		}
		return MemberQuit{
			Room:      domain.RoomName(p.Room),
			SessionID: domain.SessionID(p.SessionID),
			Name:      p.Name,
		}, nil

	case bytes.HasPrefix(frame, []byte(TagMemberRenamed)):
		var p nameChange
		if err := unmarshal(TagMemberRenamed, frame, &p); err != nil {
			return nil, err
		}
		if p.SessionID == "" {
			return nil, &domain.DecodeError{Tag: TagMemberRenamed, Err: errMissingSession}
		}
		return MemberRenamed{
			SessionID: domain.SessionID(p.SessionID),
			Name:      p.Name,
			OldName:   p.OldName,
		}, nil
	}
	return nil, nil
}

// Tag returns the known tag frame starts with, or "" when there is none.
func Tag(frame core.Frame) string {
	for _, tag := range []string{
		TagRoomSnapshot, TagMemberJoined, TagMemberQuit,
		TagMemberRenamed, TagChatMessage, TagSessionUpdate,
	} {
		if bytes.HasPrefix(frame, []byte(tag)) {
			return tag
		}
	}
	return ""
}

// EncodeChat builds an outbound chat frame. The addressed room is not on the wire.
func EncodeChat(text string) core.Frame {
	return core.Frame(text)
}

func decodeRoomChange(tag string, frame core.Frame) (roomChange, error) {
	var p roomChange
	if err := unmarshal(tag, frame, &p); err != nil {
		return p, err
	}
	if p.SessionID == "" {
		return p, &domain.DecodeError{Tag: tag, Err: errMissingSession}
	}
	if p.Room == "" {
		return p, &domain.DecodeError{Tag: tag, Err: errMissingRoom}
	}
	return p, nil
}

func unmarshal(tag string, frame core.Frame, v any) error {
	if err := json.Unmarshal(frame[len(tag):], v); err != nil {
		return &domain.DecodeError{Tag: tag, Err: err}
	}
	return nil
}
