package chat

import "errors"

// Sentinel errors returned by Submit and reported on Exchange results.
var (
	// ErrInvalidState is returned when an exchange is already in flight.
	ErrInvalidState = errors.New("invalid state")
	// ErrClosed is returned once the controller has been torn down.
	ErrClosed = errors.New("controller is closed")
	// ErrEmptyMessage is returned for blank submissions.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrAbandoned is reported by an exchange that was torn down before it
	// reached a terminal state.
	ErrAbandoned = errors.New("exchange abandoned")
)
