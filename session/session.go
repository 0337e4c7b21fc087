// Package session tracks the connection state and active turn of the single
// exchange a controller may have in flight.
//
// Every exchange is identified by a Token captured when it begins. Mutations
// made on behalf of an exchange run through Guard, which refuses tokens that
// have been superseded or abandoned, so work from a torn-down exchange never
// reaches shared state.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ConnectionState is the state of the session's server-push channel.
type ConnectionState string

const (
	StateIdle       ConnectionState = "idle"
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateClosed     ConnectionState = "closed"
	StateFailed     ConnectionState = "failed"
)

// InFlight reports whether the channel is being established or is open.
func (s ConnectionState) InFlight() bool {
	return s == StateConnecting || s == StateOpen
}

// View is a point-in-time copy of the session's observable state.
type View struct {
	State        ConnectionState
	ActiveTurnID string
}

// Token identifies one exchange for liveness checks.
type Token struct {
	generation uint64
	turnID     string
}

// TurnID returns the turn the exchange was opened for.
func (t Token) TurnID() string {
	return t.turnID
}

// Session is the ambient state of the active exchange. It is safe for
// concurrent use; reads never block on Guard.
type Session struct {
	id         string
	generation uint64
	closed     bool
	mu         sync.Mutex
	view       atomic.Pointer[View]
}

// NewSession creates an idle Session. An empty id is replaced by a UUIDv7.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	s := &Session{id: id}
	s.view.Store(&View{State: StateIdle})
	return s
}

// ID returns the opaque identifier sent to the remote side.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current state and active turn together.
func (s *Session) Snapshot() View {
	return *s.view.Load()
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	return s.view.Load().State
}

// ActiveTurnID returns the turn receiving frames, or "" when none is.
func (s *Session) ActiveTurnID() string {
	return s.view.Load().ActiveTurnID
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Begin starts a new exchange for turnID and moves the session to
// connecting. It fails when the session is closed or another exchange is in
// flight.
func (s *Session) Begin(turnID string) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Token{}, ErrClosed
	}
	if current := s.view.Load(); current.State.InFlight() {
		return Token{}, fmt.Errorf("%w: %s is %s", ErrBusy, current.ActiveTurnID, current.State)
	}

	s.generation++
	s.view.Store(&View{State: StateConnecting, ActiveTurnID: turnID})
	return Token{generation: s.generation, turnID: turnID}, nil
}

// Guard runs fn while holding the session lock if tok still identifies the
// live exchange. It reports whether fn ran. fn must not call back into the
// Session's mutating methods.
func (s *Session) Guard(tok Token, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveLocked(tok) {
		return false
	}
	fn()
	return true
}

// Open moves a live exchange from connecting to open.
func (s *Session) Open(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveLocked(tok) || s.view.Load().State != StateConnecting {
		return false
	}
	s.view.Store(&View{State: StateOpen, ActiveTurnID: tok.turnID})
	return true
}

// Finish ends a live exchange: fn runs under the lock and the session moves
// to state (StateClosed or StateFailed) with no active turn. If fn returns
// false the exchange stays live and Finish reports false.
func (s *Session) Finish(tok Token, state ConnectionState, fn func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveLocked(tok) {
		return false
	}
	if fn != nil && !fn() {
		return false
	}
	s.view.Store(&View{State: state})
	return true
}

// Close tears the session down. Any live exchange is abandoned without
// further mutation and later calls to Begin fail with ErrClosed. Close is
// idempotent and reports whether an exchange was abandoned.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	abandoned := s.view.Load().State.InFlight()
	s.closed = true
	s.generation++
	if abandoned {
		s.view.Store(&View{State: StateClosed})
	}
	return abandoned
}

func (s *Session) liveLocked(tok Token) bool {
	return !s.closed && tok.generation == s.generation && s.view.Load().State.InFlight()
}
