package observability

import "context"

// NoOpObserver drops every event. It is registered as "noop" and is what
// NewMultiObserver returns when given nothing to forward to.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}
