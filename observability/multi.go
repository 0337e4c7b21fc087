package observability

import "context"

// MultiObserver delivers each event to every observer it holds, in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver combines observers into one. Nil and NoOpObserver
// entries are dropped and nested MultiObservers are flattened. With nothing
// left it returns NoOpObserver; with one observer it returns that observer
// unwrapped.
func NewMultiObserver(observers ...Observer) Observer {
	var flat []Observer
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil, NoOpObserver:
		case *MultiObserver:
			flat = append(flat, o.observers...)
		default:
			flat = append(flat, o)
		}
	}

	switch len(flat) {
	case 0:
		return NoOpObserver{}
	case 1:
		return flat[0]
	}
	return &MultiObserver{observers: flat}
}

// Len reports how many observers receive each event.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
