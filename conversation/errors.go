package conversation

import "errors"

// Sentinel errors for store operations.
var (
	ErrInvalidState  = errors.New("another turn is already in flight")
	ErrInvalidTurn   = errors.New("invalid turn")
	ErrDuplicateTurn = errors.New("turn already exists")
)
