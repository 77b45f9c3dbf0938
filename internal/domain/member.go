package domain

// Member is a session seen inside a room. Identity is SessionID;
// DisplayName may change through rename events.
type Member struct {
	SessionID   SessionID `json:"session_id"`
	DisplayName string    `json:"name"`
}

// NewMember is the only place the non-empty session and name rules live.
// The decoder and the registry both go through it.
func NewMember(sid SessionID, name string) (Member, error) {
	if sid == "" {
		return Member{}, ErrSessionEmpty
	}
	if name == "" {
		return Member{}, ErrUsernameEmpty
	}
	return Member{SessionID: sid, DisplayName: name}, nil
}
