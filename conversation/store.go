// Package conversation holds the ordered turn log of a conversation and
// notifies subscribers after every mutation.
package conversation

import "github.com/tailored-agentic-units/streamchat/core/protocol"

// Subscriber receives a snapshot of the turn sequence after each mutation.
// Callbacks run synchronously on the mutating goroutine and must not mutate
// the Store.
type Subscriber interface {
	OnTurnsChanged(turns []protocol.Turn)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(turns []protocol.Turn)

func (f SubscriberFunc) OnTurnsChanged(turns []protocol.Turn) {
	f(turns)
}

// Store is the ordered, append-only log of turns. Positions never change once
// appended and turns are never removed. Implementations must be safe for
// concurrent readers.
type Store interface {
	// Append inserts a turn at the end. It returns ErrInvalidState when both
	// the new turn and an existing turn are non-terminal.
	Append(turn protocol.Turn) error
	// MarkStreaming moves a pending turn to streaming.
	MarkStreaming(id string) bool
	// UpdateContent appends delta to a streaming turn. Any other target is
	// left untouched and false is returned.
	UpdateContent(id, delta string) bool
	// Finalize moves a non-terminal turn to a terminal status, appending
	// suffix to its content. Returns false when nothing changed.
	Finalize(id string, status protocol.Status, suffix string) bool

	// Turns returns a copy of the sequence in insertion order.
	Turns() []protocol.Turn
	// Turn returns a copy of the addressed turn.
	Turn(id string) (protocol.Turn, bool)
	// Active returns the non-terminal turn, if any.
	Active() (protocol.Turn, bool)
	// Len returns the number of turns.
	Len() int

	// Subscribe registers s and returns a function that removes it.
	Subscribe(s Subscriber) (unsubscribe func())
}
