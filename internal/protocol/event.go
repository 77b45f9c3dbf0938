package protocol

import "github.com/dkeye/chatsync/internal/domain"

// Kind names the semantic kind of a decoded frame.
type Kind string

const (
	KindRoomSnapshot  Kind = "full_room_snapshot"
	KindMemberJoined  Kind = "member_joined"
	KindMemberQuit    Kind = "member_quit"
	KindMemberRenamed Kind = "member_renamed"
	KindChatMessage   Kind = "chat_message"
)

// Event is a typed inbound frame.
type Event interface {
	Kind() Kind
}

// RoomSnapshot is the authoritative full listing of rooms and members.
type RoomSnapshot struct {
	Rooms map[domain.RoomName]map[domain.SessionID]string
}

type MemberJoined struct {
	Room   domain.RoomName
	Member domain.Member
}

type MemberQuit struct {
	Room      domain.RoomName
	SessionID domain.SessionID
	Name      string
}

type MemberRenamed struct {
	SessionID domain.SessionID
	Name      string
	OldName   string
}

type ChatMessage struct {
	Message domain.Message
}

func (RoomSnapshot) Kind() Kind  { return KindRoomSnapshot }
func (MemberJoined) Kind() Kind  { return KindMemberJoined }
func (MemberQuit) Kind() Kind    { return KindMemberQuit }
func (MemberRenamed) Kind() Kind { return KindMemberRenamed }
func (ChatMessage) Kind() Kind   { return KindChatMessage }
