// Package chat implements the stream session controller: it appends a user
// turn and a reply placeholder, opens a server-push channel for the reply,
// and folds the inbound frames into the placeholder until the channel ends.
//
// The controller initializes from configuration via New. Functional options
// override any collaborator for testing or embedding.
//
//	c, err := chat.New(&cfg)
//	ex, err := c.Submit(ctx, "今日运势")
//	res, err := ex.Wait(ctx)
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tailored-agentic-units/streamchat/conversation"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/core/response"
	"github.com/tailored-agentic-units/streamchat/observability"
	"github.com/tailored-agentic-units/streamchat/session"
	"github.com/tailored-agentic-units/streamchat/transport"
)

// Option configures a Controller after config-driven initialization.
type Option func(*Controller)

// WithStore overrides the config-created conversation store.
func WithStore(s conversation.Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithSession overrides the config-created session.
func WithSession(s *session.Session) Option {
	return func(c *Controller) { c.session = s }
}

// WithTransport overrides the config-created transport.
func WithTransport(t transport.Transport) Option {
	return func(c *Controller) { c.transport = t }
}

// WithObserver overrides the observer named in configuration.
func WithObserver(o observability.Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithDiagnosticSink replaces the default sink, which forwards diagnostics to
// the observer.
func WithDiagnosticSink(s DiagnosticSink) Option {
	return func(c *Controller) { c.sink = s }
}

// Controller owns at most one in-flight exchange for its session. Store
// subscribers, diagnostic sinks and observers run on the exchange goroutine
// and must not call Submit or Close.
type Controller struct {
	store     conversation.Store
	session   *session.Session
	transport transport.Transport
	observer  observability.Observer
	sink      DiagnosticSink
	suffix    string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Controller from configuration. The store, session, and
// transport are initialized from their config sections; options applied
// afterwards can replace any of them.
func New(cfg *Config, opts ...Option) (*Controller, error) {
	store, err := conversation.New(&cfg.Conversation)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	tr, err := transport.New(&cfg.Transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	observerName := cfg.Observer
	if observerName == "" {
		observerName = defaultObserver
	}
	observer, err := observability.GetObserver(observerName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	c := &Controller{
		store:     store,
		session:   session.New(&cfg.Session),
		transport: tr,
		observer:  observer,
		suffix:    cfg.DiagnosticSuffix,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.sink == nil {
		c.sink = NewObserverSink(c.observer)
	}

	return c, nil
}

// Store returns the conversation store the controller mutates.
func (c *Controller) Store() conversation.Store {
	return c.store
}

// Session returns the controller's session.
func (c *Controller) Session() *session.Session {
	return c.session
}

// State returns the session's current connection state.
func (c *Controller) State() session.ConnectionState {
	return c.session.State()
}

// Submit appends text as a user turn followed by a pending assistant turn
// and starts streaming the reply into it. It returns once the exchange has
// started; the returned Exchange reports the outcome.
//
// Submit fails without mutating anything when text is blank, when another
// exchange is in flight (ErrInvalidState), or after Close (ErrClosed).
// Cancelling ctx abandons the exchange and closes the controller.
//
// A store shared through WithStore can take a non-terminal turn between the
// two appends. Submit then returns ErrInvalidState and the user turn stays
// in the store without a reply.
func (c *Controller) Submit(ctx context.Context, text string) (*Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Closed() {
		return nil, ErrClosed
	}
	prev := c.session.Snapshot()
	if prev.State.InFlight() {
		return nil, fmt.Errorf("%w: turn %s is %s", ErrInvalidState, prev.ActiveTurnID, prev.State)
	}
	if active, ok := c.store.Active(); ok {
		return nil, fmt.Errorf("%w: turn %s is %s", ErrInvalidState, active.ID, active.Status)
	}

	user := protocol.NewTurn(protocol.RoleUser, text, protocol.StatusComplete)
	reply := protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending)

	tok, err := c.session.Begin(reply.ID)
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	if err := c.appendPair(user, reply); err != nil {
		c.session.Finish(tok, prev.State, nil)
		return nil, err
	}

	exCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	ex := &Exchange{
		userTurnID: user.ID,
		turnID:     reply.ID,
		done:       make(chan struct{}),
	}

	c.emit(ctx, EventSubmit, observability.LevelInfo, map[string]any{
		"turn_id":        reply.ID,
		"message_length": len(text),
	})

	req := protocol.Request{Message: text, SessionID: c.session.ID()}
	go c.run(exCtx, cancel, ctx, ex, tok, req)

	return ex, nil
}

func (c *Controller) appendPair(user, reply protocol.Turn) error {
	if err := c.store.Append(user); err != nil {
		return fmt.Errorf("%w: append user turn: %w", ErrInvalidState, err)
	}
	if err := c.store.Append(reply); err != nil {
		return fmt.Errorf("%w: append reply turn: %w", ErrInvalidState, err)
	}
	return nil
}

// Close abandons any in-flight exchange and rejects later submits. The
// abandoned reply keeps its non-terminal status. Close is idempotent, and
// chat.abandoned has been emitted by the time any call returns.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cancel := c.cancel
	c.cancel = nil

	view := c.session.Snapshot()
	abandoned := c.session.Close()
	if cancel != nil {
		cancel()
	}

	if abandoned {
		c.emit(context.Background(), EventAbandoned, observability.LevelWarning, map[string]any{
			"turn_id": view.ActiveTurnID,
		})
	}
}

// run drives one exchange to completion on its own goroutine. parent is the
// context given to Submit; its cancellation tears the controller down.
func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, parent context.Context, ex *Exchange, tok session.Token, req protocol.Request) {
	defer close(ex.done)
	defer cancel()

	stop := context.AfterFunc(parent, c.Close)
	defer stop()

	turnID := tok.TurnID()

	c.emit(ctx, EventConnect, observability.LevelVerbose, map[string]any{"turn_id": turnID})

	stream, err := c.transport.Open(ctx, req)
	if err != nil {
		ex.result = c.fail(ctx, tok, err)
		return
	}
	defer stream.Close()

	if !c.session.Open(tok) {
		ex.result = c.abandon(turnID)
		return
	}
	c.emit(ctx, EventOpen, observability.LevelVerbose, map[string]any{"turn_id": turnID})

	for {
		msg, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				ex.result = c.complete(ctx, tok)
			} else {
				ex.result = c.fail(ctx, tok, err)
			}
			return
		}

		if !c.handle(ctx, tok, msg) {
			ex.result = c.abandon(turnID)
			return
		}
	}
}

// handle applies one inbound message. It reports false once the exchange is
// no longer live.
func (c *Controller) handle(ctx context.Context, tok session.Token, msg transport.Message) bool {
	turnID := tok.TurnID()

	if msg.Event == transport.EventError {
		if !c.guard(ctx, tok, func() { c.store.MarkStreaming(turnID) }) {
			return false
		}
		c.diagnose(ctx, DiagnosticRemoteError, response.ParseRemoteError(msg.Data), turnID)
		return true
	}

	frame, err := response.ParseFrame(msg.Data)
	if err != nil {
		if !c.live(ctx, tok) {
			return false
		}
		c.diagnose(ctx, DiagnosticParseError, err.Error(), turnID)
		return true
	}

	live := c.guard(ctx, tok, func() {
		c.store.MarkStreaming(turnID)
		if frame.Kind == protocol.FrameToken {
			c.store.UpdateContent(turnID, frame.Content)
		}
	})
	if !live {
		return false
	}

	c.emit(ctx, EventFrame, observability.LevelVerbose, map[string]any{
		"turn_id": turnID,
		"kind":    string(frame.Kind),
		"length":  len(frame.Content),
	})

	switch frame.Kind {
	case protocol.FrameStatus:
		c.diagnose(ctx, DiagnosticStatus, frame.Content, turnID)
	case protocol.FrameError:
		c.diagnose(ctx, DiagnosticRemoteError, frame.Content, turnID)
	}
	return true
}

func (c *Controller) complete(ctx context.Context, tok session.Token) Result {
	turnID := tok.TurnID()

	finished := c.session.Finish(tok, session.StateClosed, func() bool {
		if ctx.Err() != nil {
			return false
		}
		c.store.Finalize(turnID, protocol.StatusComplete, "")
		return true
	})
	if !finished {
		return c.abandon(turnID)
	}

	turn, _ := c.store.Turn(turnID)
	c.emit(ctx, EventComplete, observability.LevelInfo, map[string]any{
		"turn_id":        turnID,
		"content_length": len(turn.Content),
	})
	return Result{Turn: turn, State: session.StateClosed}
}

func (c *Controller) fail(ctx context.Context, tok session.Token, cause error) Result {
	turnID := tok.TurnID()

	// Errors caused by abandonment are not transport failures.
	finished := c.session.Finish(tok, session.StateFailed, func() bool {
		if ctx.Err() != nil {
			return false
		}
		c.store.Finalize(turnID, protocol.StatusError, c.suffix)
		return true
	})
	if !finished {
		return c.abandon(turnID)
	}

	c.diagnose(ctx, DiagnosticTransportError, cause.Error(), turnID)

	turn, _ := c.store.Turn(turnID)
	c.emit(ctx, EventFailed, observability.LevelError, map[string]any{
		"turn_id": turnID,
		"error":   cause.Error(),
	})
	return Result{Turn: turn, State: session.StateFailed, Err: cause}
}

// abandon closes the controller before reporting, so the session state and
// chat.abandoned are settled when the exchange's Done channel closes.
func (c *Controller) abandon(turnID string) Result {
	c.Close()

	turn, _ := c.store.Turn(turnID)
	return Result{Turn: turn, State: session.StateClosed, Err: ErrAbandoned}
}

// guard runs fn only while the exchange is live: its token is current and
// its context has not been cancelled.
func (c *Controller) guard(ctx context.Context, tok session.Token, fn func()) bool {
	ran := false
	c.session.Guard(tok, func() {
		if ctx.Err() != nil {
			return
		}
		fn()
		ran = true
	})
	return ran
}

func (c *Controller) live(ctx context.Context, tok session.Token) bool {
	return c.guard(ctx, tok, func() {})
}

func (c *Controller) diagnose(ctx context.Context, kind DiagnosticKind, detail, turnID string) {
	c.sink.OnDiagnostic(ctx, Diagnostic{Kind: kind, Detail: detail, TurnID: turnID})
}

func (c *Controller) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "chat.Controller",
		Data:      data,
	})
}
