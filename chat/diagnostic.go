package chat

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/streamchat/observability"
)

// DiagnosticKind classifies a diagnostic. DiagnosticRemoteError extends the
// status, parseError and transportError kinds to report application error
// frames, which leave the stream open.
type DiagnosticKind string

const (
	// DiagnosticStatus carries the content of a status frame.
	DiagnosticStatus DiagnosticKind = "status"
	// DiagnosticParseError reports an inbound payload that was dropped.
	DiagnosticParseError DiagnosticKind = "parseError"
	// DiagnosticTransportError reports the failure that ended an exchange.
	DiagnosticTransportError DiagnosticKind = "transportError"
	// DiagnosticRemoteError carries an error reported by the remote side.
	DiagnosticRemoteError DiagnosticKind = "remoteError"
)

// Diagnostic is an out-of-band report about an exchange. Diagnostics never
// change the conversation.
type Diagnostic struct {
	Kind   DiagnosticKind
	Detail string
	TurnID string
}

// DiagnosticSink receives diagnostics on the exchange goroutine.
type DiagnosticSink interface {
	OnDiagnostic(ctx context.Context, d Diagnostic)
}

// DiagnosticFunc adapts a function to the DiagnosticSink interface.
type DiagnosticFunc func(ctx context.Context, d Diagnostic)

func (f DiagnosticFunc) OnDiagnostic(ctx context.Context, d Diagnostic) {
	f(ctx, d)
}

// ObserverSink forwards diagnostics to an Observer as chat.diagnostic events.
type ObserverSink struct {
	observer observability.Observer
}

// NewObserverSink creates a sink that emits to observer.
func NewObserverSink(observer observability.Observer) *ObserverSink {
	return &ObserverSink{observer: observer}
}

func (s *ObserverSink) OnDiagnostic(ctx context.Context, d Diagnostic) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventDiagnostic,
		Level:     d.Kind.level(),
		Timestamp: time.Now(),
		Source:    "chat.Controller",
		Data: map[string]any{
			"kind":    string(d.Kind),
			"detail":  d.Detail,
			"turn_id": d.TurnID,
		},
	})
}

func (k DiagnosticKind) level() observability.Level {
	switch k {
	case DiagnosticStatus:
		return observability.LevelInfo
	case DiagnosticTransportError:
		return observability.LevelError
	default:
		return observability.LevelWarning
	}
}
