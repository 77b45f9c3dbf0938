package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
)

func TestDecode_KnownTags(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "snapshot",
			frame: `list:{"general":{},"dev":{"s1":"Alice"}}`,
			want: RoomSnapshot{Rooms: map[domain.RoomName]map[domain.SessionID]string{
				"general": {},
				"dev":     {"s1": "Alice"},
			}},
		},
		{
			name:  "join",
			frame: `join_room:{"session_id":"s1","name":"Alice","room":"general"}`,
			want:  MemberJoined{Room: "general", Member: domain.Member{SessionID: "s1", DisplayName: "Alice"}},
		},
		{
			name:  "quit",
			frame: `quit_room:{"session_id":"s1","name":"Alice","room":"general"}`,
			want:  MemberQuit{Room: "general", SessionID: "s1", Name: "Alice"},
		},
		{
			name:  "rename",
			frame: `update_name:{"session_id":"s1","name":"Ally","old_name":"Alice"}`,
			want:  MemberRenamed{SessionID: "s1", Name: "Ally", OldName: "Alice"},
		},
		{
			name:  "message",
			frame: `message:{"id":340282366920938463463374607431768211455,"room":"general","from_id":"s1","from_name":"Alice","content":"hi","time":"2024-01-01 10:00:00"}`,
			want: ChatMessage{Message: domain.Message{
				ID:         "340282366920938463463374607431768211455",
				Room:       "general",
				SenderID:   "s1",
				SenderName: "Alice",
				Content:    "hi",
				Time:       "2024-01-01 10:00:00",
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode(core.Frame(tt.frame))
			require.NoError(t, err)
			require.Equal(t, tt.want, evt)
		})
	}
}

func TestDecode_MessageWithoutIDIsLocal(t *testing.T) {
	evt, err := Decode(core.Frame(`message:{"room":"general","content":"x"}`))
	require.NoError(t, err)
	require.Equal(t, domain.LocalMessageID, evt.(ChatMessage).Message.ID)
	require.False(t, evt.(ChatMessage).Message.IsOwn)
}

func TestDecode_UnknownTagIsIgnored(t *testing.T) {
	for _, frame := range []string{
		`update_session:{"session_id":"s1"}`,
		`typing:{"room":"general"}`,
		`hello there`,
		``,
	} {
		evt, err := Decode(core.Frame(frame))
		require.NoError(t, err, frame)
		require.Nil(t, evt, frame)
	}
}

func TestDecode_MalformedPayload(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		tag   string
	}{
		{name: "broken json", frame: `list:{"general":`, tag: TagRoomSnapshot},
		{name: "wrong shape", frame: `list:["general"]`, tag: TagRoomSnapshot},
		{name: "join without session", frame: `join_room:{"name":"Alice","room":"general"}`, tag: TagMemberJoined},
		{name: "join without name", frame: `join_room:{"session_id":"s1","name":"","room":"general"}`, tag: TagMemberJoined},
		{name: "quit without room", frame: `quit_room:{"session_id":"s1"}`, tag: TagMemberQuit},
		{name: "rename without session", frame: `update_name:{"name":"Ally"}`, tag: TagMemberRenamed},
		{name: "message without room", frame: `message:{"id":1,"content":"hi"}`, tag: TagChatMessage},
		{name: "message bad id", frame: `message:{"id":-3,"room":"r"}`, tag: TagChatMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode(core.Frame(tt.frame))
			require.Nil(t, evt)
			var decodeErr *domain.DecodeError
			require.True(t, errors.As(err, &decodeErr))
			require.Equal(t, tt.tag, decodeErr.Tag)
		})
	}
}

func TestTag(t *testing.T) {
	req := require.New(t)
	req.Equal(TagChatMessage, Tag(core.Frame(`message:{}`)))
	req.Equal(TagSessionUpdate, Tag(core.Frame(`update_session:{}`)))
	req.Equal("", Tag(core.Frame(`nothing`)))
}

func TestEncodeChat_IsPlainText(t *testing.T) {
	require.Equal(t, core.Frame("hi there"), EncodeChat("hi there"))
}
