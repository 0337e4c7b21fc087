// Package transport opens the unidirectional server-push channel an
// exchange reads its frames from. Three wire variants are provided:
// Server-Sent Events over HTTP POST (the default), Connect server-streaming
// RPC, and WebSocket.
package transport

import (
	"context"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

// EventMessage is the event name of ordinary data messages. Transports
// without named events always report it.
const EventMessage = "message"

// EventError is the event name some servers use to report a failure of the
// remote generator without tearing the connection down.
const EventError = "error"

// Message is one raw payload delivered by a Stream.
type Message struct {
	Event string
	Data  []byte
}

// Stream yields the messages of one exchange in delivery order.
type Stream interface {
	// Next blocks until the next message arrives. It returns io.EOF when
	// the remote side ends the stream cleanly; any other error means the
	// channel failed. Cancelling the context given to Open unblocks it.
	Next() (Message, error)
	// Close releases the channel. It is idempotent.
	Close() error
}

// Transport opens streams. Open returns once the channel is established;
// the request is sent exactly once.
type Transport interface {
	Open(ctx context.Context, req protocol.Request) (Stream, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req protocol.Request) (Stream, error)

func (f Func) Open(ctx context.Context, req protocol.Request) (Stream, error) {
	return f(ctx, req)
}
