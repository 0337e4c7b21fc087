package session

import "errors"

// Sentinel errors for session transitions.
var (
	ErrBusy   = errors.New("exchange already in flight")
	ErrClosed = errors.New("session closed")
)
