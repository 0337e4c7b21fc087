package conversation

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

type subscription struct {
	id  int
	sub Subscriber
}

type memoryStore struct {
	turns  []protocol.Turn
	index  map[string]int
	subs   []subscription
	nextID int
	mu     sync.RWMutex

	// notify serializes mutate+notify so subscribers observe mutations in
	// the order they were applied.
	notify sync.Mutex
}

// NewMemoryStore creates a Store backed by an in-memory slice.
func NewMemoryStore() Store {
	return &memoryStore{
		index: make(map[string]int),
	}
}

func (s *memoryStore) Append(turn protocol.Turn) error {
	_, err := s.mutate(func() (bool, error) {
		if turn.ID == "" {
			return false, fmt.Errorf("%w: empty id", ErrInvalidTurn)
		}
		if !turn.Role.IsValid() {
			return false, fmt.Errorf("%w: role %q", ErrInvalidTurn, turn.Role)
		}
		if !turn.Status.IsValid() {
			return false, fmt.Errorf("%w: status %q", ErrInvalidTurn, turn.Status)
		}
		if _, exists := s.index[turn.ID]; exists {
			return false, fmt.Errorf("%w: %s", ErrDuplicateTurn, turn.ID)
		}
		if !turn.Status.Terminal() {
			if active, ok := s.activeLocked(); ok {
				return false, fmt.Errorf("%w: %s is %s", ErrInvalidState, active.ID, active.Status)
			}
		}

		s.index[turn.ID] = len(s.turns)
		s.turns = append(s.turns, turn)
		return true, nil
	})
	return err
}

func (s *memoryStore) MarkStreaming(id string) bool {
	changed, _ := s.mutate(func() (bool, error) {
		i, ok := s.index[id]
		if !ok || s.turns[i].Status != protocol.StatusPending {
			return false, nil
		}
		s.turns[i].Status = protocol.StatusStreaming
		return true, nil
	})
	return changed
}

func (s *memoryStore) UpdateContent(id, delta string) bool {
	changed, _ := s.mutate(func() (bool, error) {
		i, ok := s.index[id]
		if !ok || s.turns[i].Status != protocol.StatusStreaming {
			return false, nil
		}
		s.turns[i].Content += delta
		return true, nil
	})
	return changed
}

func (s *memoryStore) Finalize(id string, status protocol.Status, suffix string) bool {
	if !status.Terminal() {
		return false
	}

	changed, _ := s.mutate(func() (bool, error) {
		i, ok := s.index[id]
		if !ok || s.turns[i].Status.Terminal() {
			return false, nil
		}
		s.turns[i].Status = status
		s.turns[i].Content += suffix
		return true, nil
	})
	return changed
}

func (s *memoryStore) Turns() []protocol.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.turns)
}

func (s *memoryStore) Turn(id string) (protocol.Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return protocol.Turn{}, false
	}
	return s.turns[i], true
}

func (s *memoryStore) Active() (protocol.Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

func (s *memoryStore) Subscribe(sub Subscriber) func() {
	if sub == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, sub: sub})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(e subscription) bool {
				return e.id == id
			})
		})
	}
}

// activeLocked scans from the end: the in-flight turn, when present, is
// always the most recent non-terminal one.
func (s *memoryStore) activeLocked() (protocol.Turn, bool) {
	for i := len(s.turns) - 1; i >= 0; i-- {
		if !s.turns[i].Status.Terminal() {
			return s.turns[i], true
		}
	}
	return protocol.Turn{}, false
}

func (s *memoryStore) mutate(fn func() (bool, error)) (bool, error) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	changed, err := fn()
	if err != nil || !changed {
		s.mu.Unlock()
		return false, err
	}
	snapshot := s.turns
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, e := range subs {
		e.sub.OnTurnsChanged(slices.Clone(snapshot))
	}
	return true, nil
}
