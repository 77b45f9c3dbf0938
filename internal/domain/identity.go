// Package domain contains entity without logic, just meta-data
package domain

import "strings"

const (
	MaxUsernameLen = 64
)

// Identity is the locally persisted current user. It is resolved once per
// connection and never changes while the connection lives.
type Identity struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email" validate:"omitempty,email"`
}

// SessionID is the id the server uses for this client: the user name, or
// the email when no name was set.
func (i Identity) SessionID() SessionID {
	return SessionID(i.DisplayName())
}

func (i Identity) DisplayName() string {
	if n := strings.TrimSpace(i.Name); n != "" {
		return n
	}
	return strings.TrimSpace(i.Email)
}

func (i Identity) Validate() error {
	name := i.DisplayName()
	if name == "" {
		return ErrIdentityMissing
	}
	if len(name) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
