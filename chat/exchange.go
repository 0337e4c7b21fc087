package chat

import (
	"context"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/session"
)

// Result is the outcome of one exchange.
type Result struct {
	// Turn is the reply turn as of the end of the exchange. An abandoned
	// reply is left pending or streaming.
	Turn protocol.Turn
	// State is the connection state the exchange ended in.
	State session.ConnectionState
	// Err is the transport failure, ErrAbandoned, or nil on a clean close.
	Err error
}

// Exchange is a handle on a submitted message and its streaming reply.
type Exchange struct {
	userTurnID string
	turnID     string
	done       chan struct{}
	result     Result
}

// UserTurnID returns the ID of the appended user turn.
func (e *Exchange) UserTurnID() string {
	return e.userTurnID
}

// TurnID returns the ID of the assistant turn receiving the reply.
func (e *Exchange) TurnID() string {
	return e.turnID
}

// Done is closed when the exchange has ended.
func (e *Exchange) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the exchange ends or ctx is done.
func (e *Exchange) Wait(ctx context.Context) (Result, error) {
	select {
	case <-e.done:
		return e.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
