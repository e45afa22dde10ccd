package session

import "errors"

var (
	// ErrNameRequired means the join precondition failed; the relay was
	// never contacted.
	ErrNameRequired = errors.New("display name is required")

	// ErrRoomFull means the room already had two participants.
	ErrRoomFull = errors.New("room is full")

	// ErrConnectionLost means the relay connection dropped while the
	// session was active.
	ErrConnectionLost = errors.New("relay connection lost")
)
