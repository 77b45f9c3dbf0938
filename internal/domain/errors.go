package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrSessionEmpty    = errors.New("session id empty")

	ErrIdentityMissing = errors.New("no current identity")
	ErrNotConnected    = errors.New("not connected")
	ErrEmptyMessage    = errors.New("empty message")
	ErrRoomEmpty       = errors.New("no room selected")
	ErrRateLimited     = errors.New("rate limited")
	ErrAlreadyStarted  = errors.New("session already started")
)

// DecodeError reports a malformed payload after a recognized tag.
// The frame is dropped; the connection keeps running.
type DecodeError struct {
	Tag string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q frame: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError reports a socket level failure. It ends the Open state.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SendError reports that one outbound chat frame was not written.
type SendError struct {
	Room RoomName
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to room %q: %v", e.Room, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
