package conversation_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/streamchat/conversation"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]protocol.Turn
}

func (r *recorder) OnTurnsChanged(turns []protocol.Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, turns)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) last() []protocol.Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func streamingTurn(t *testing.T, s conversation.Store) protocol.Turn {
	t.Helper()
	turn := protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending)
	require.NoError(t, s.Append(turn))
	require.True(t, s.MarkStreaming(turn.ID))
	return turn
}

func TestMemoryStore_Empty(t *testing.T) {
	s := conversation.NewMemoryStore()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Turns())
	_, ok := s.Active()
	assert.False(t, ok)
}

func TestMemoryStore_Append_PreservesOrder(t *testing.T) {
	s := conversation.NewMemoryStore()

	contents := []string{"one", "two", "three", "four"}
	for _, c := range contents {
		require.NoError(t, s.Append(protocol.NewTurn(protocol.RoleUser, c, protocol.StatusComplete)))
	}

	turns := s.Turns()
	require.Len(t, turns, len(contents))
	for i, turn := range turns {
		assert.Equal(t, contents[i], turn.Content)
	}
}

func TestMemoryStore_Append_Validation(t *testing.T) {
	valid := protocol.NewTurn(protocol.RoleUser, "x", protocol.StatusComplete)

	tests := []struct {
		name string
		turn protocol.Turn
		want error
	}{
		{"empty id", protocol.Turn{Role: protocol.RoleUser, Status: protocol.StatusComplete}, conversation.ErrInvalidTurn},
		{"unknown role", protocol.Turn{ID: "a", Role: "system", Status: protocol.StatusComplete}, conversation.ErrInvalidTurn},
		{"unknown status", protocol.Turn{ID: "a", Role: protocol.RoleUser, Status: "queued"}, conversation.ErrInvalidTurn},
		{"duplicate", valid, conversation.ErrDuplicateTurn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := conversation.NewMemoryStore()
			require.NoError(t, s.Append(valid))

			err := s.Append(tt.turn)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, s.Len())
		})
	}
}

func TestMemoryStore_Append_SingleInFlight(t *testing.T) {
	s := conversation.NewMemoryStore()
	pending := protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending)
	require.NoError(t, s.Append(pending))

	err := s.Append(protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending))
	assert.ErrorIs(t, err, conversation.ErrInvalidState)

	require.True(t, s.MarkStreaming(pending.ID))
	err = s.Append(protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusStreaming))
	assert.ErrorIs(t, err, conversation.ErrInvalidState)

	// Terminal turns may still be appended while one is in flight.
	require.NoError(t, s.Append(protocol.NewTurn(protocol.RoleUser, "note", protocol.StatusComplete)))

	require.True(t, s.Finalize(pending.ID, protocol.StatusComplete, ""))
	require.NoError(t, s.Append(protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending)))
}

func TestMemoryStore_UpdateContent_ConcatenatesInOrder(t *testing.T) {
	s := conversation.NewMemoryStore()
	turn := streamingTurn(t, s)

	deltas := []string{"吉", "星", "高照", "", "!"}
	for _, d := range deltas {
		assert.True(t, s.UpdateContent(turn.ID, d))
	}

	got, ok := s.Turn(turn.ID)
	require.True(t, ok)
	assert.Equal(t, strings.Join(deltas, ""), got.Content)
	assert.Equal(t, protocol.StatusStreaming, got.Status)
}

func TestMemoryStore_UpdateContent_IgnoresNonStreaming(t *testing.T) {
	s := conversation.NewMemoryStore()
	rec := &recorder{}

	pending := protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending)
	require.NoError(t, s.Append(pending))
	s.Subscribe(rec)

	assert.False(t, s.UpdateContent(pending.ID, "early"), "pending turn")
	assert.False(t, s.UpdateContent("missing", "x"), "unknown id")

	require.True(t, s.MarkStreaming(pending.ID))
	require.True(t, s.Finalize(pending.ID, protocol.StatusComplete, ""))
	notified := rec.count()

	assert.False(t, s.UpdateContent(pending.ID, "late"), "terminal turn")

	got, _ := s.Turn(pending.ID)
	assert.Equal(t, "", got.Content)
	assert.Equal(t, notified, rec.count(), "no-op updates must not notify")
}

func TestMemoryStore_MarkStreaming(t *testing.T) {
	s := conversation.NewMemoryStore()
	turn := protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending)
	require.NoError(t, s.Append(turn))

	assert.True(t, s.MarkStreaming(turn.ID))
	assert.False(t, s.MarkStreaming(turn.ID), "already streaming")
	assert.False(t, s.MarkStreaming("missing"))

	got, _ := s.Turn(turn.ID)
	assert.Equal(t, protocol.StatusStreaming, got.Status)
}

func TestMemoryStore_Finalize(t *testing.T) {
	tests := []struct {
		name        string
		status      protocol.Status
		suffix      string
		wantContent string
	}{
		{"complete keeps content", protocol.StatusComplete, "", "partial"},
		{"error appends suffix", protocol.StatusError, "\n\n[failed]", "partial\n\n[failed]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := conversation.NewMemoryStore()
			turn := streamingTurn(t, s)
			require.True(t, s.UpdateContent(turn.ID, "partial"))

			assert.True(t, s.Finalize(turn.ID, tt.status, tt.suffix))

			got, _ := s.Turn(turn.ID)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.wantContent, got.Content)
		})
	}
}

func TestMemoryStore_Finalize_FromPending(t *testing.T) {
	s := conversation.NewMemoryStore()
	turn := protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending)
	require.NoError(t, s.Append(turn))

	assert.True(t, s.Finalize(turn.ID, protocol.StatusComplete, ""))

	got, _ := s.Turn(turn.ID)
	assert.Equal(t, protocol.StatusComplete, got.Status)
	_, active := s.Active()
	assert.False(t, active)
}

func TestMemoryStore_Finalize_Idempotent(t *testing.T) {
	s := conversation.NewMemoryStore()
	turn := streamingTurn(t, s)
	require.True(t, s.UpdateContent(turn.ID, "吉"))

	require.True(t, s.Finalize(turn.ID, protocol.StatusError, "[x]"))
	first, _ := s.Turn(turn.ID)

	assert.False(t, s.Finalize(turn.ID, protocol.StatusError, "[x]"))
	assert.False(t, s.Finalize(turn.ID, protocol.StatusComplete, "[y]"))

	second, _ := s.Turn(turn.ID)
	assert.Equal(t, first, second)
	assert.Equal(t, "吉[x]", second.Content)
}

func TestMemoryStore_Finalize_RejectsNonTerminalStatus(t *testing.T) {
	s := conversation.NewMemoryStore()
	turn := streamingTurn(t, s)

	assert.False(t, s.Finalize(turn.ID, protocol.StatusPending, "x"))
	assert.False(t, s.Finalize(turn.ID, protocol.StatusStreaming, "x"))
	assert.False(t, s.Finalize("missing", protocol.StatusComplete, ""))

	got, _ := s.Turn(turn.ID)
	assert.Equal(t, protocol.StatusStreaming, got.Status)
}

func TestMemoryStore_Subscribe_NotifiesOncePerMutation(t *testing.T) {
	s := conversation.NewMemoryStore()
	rec := &recorder{}
	s.Subscribe(rec)

	turn := protocol.NewTurn(protocol.RoleAssistant, "", protocol.StatusPending)
	require.NoError(t, s.Append(turn))
	require.True(t, s.MarkStreaming(turn.ID))
	require.True(t, s.UpdateContent(turn.ID, "a"))
	require.True(t, s.UpdateContent(turn.ID, "b"))
	require.True(t, s.Finalize(turn.ID, protocol.StatusComplete, ""))

	require.Equal(t, 5, rec.count())

	contents := make([]string, 0, 5)
	for _, call := range rec.calls {
		require.Len(t, call, 1)
		contents = append(contents, call[0].Content)
	}
	assert.Equal(t, []string{"", "", "a", "ab", "ab"}, contents)
	assert.Equal(t, protocol.StatusComplete, rec.last()[0].Status)
}

func TestMemoryStore_Subscribe_FailedAppendDoesNotNotify(t *testing.T) {
	s := conversation.NewMemoryStore()
	rec := &recorder{}
	s.Subscribe(rec)

	assert.Error(t, s.Append(protocol.Turn{}))
	assert.Equal(t, 0, rec.count())
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	s := conversation.NewMemoryStore()
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec)

	require.NoError(t, s.Append(protocol.NewTurn(protocol.RoleUser, "a", protocol.StatusComplete)))
	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Append(protocol.NewTurn(protocol.RoleUser, "b", protocol.StatusComplete)))

	assert.Equal(t, 1, rec.count())
}

func TestMemoryStore_Subscriber_CanReadStore(t *testing.T) {
	s := conversation.NewMemoryStore()

	var lens []int
	s.Subscribe(conversation.SubscriberFunc(func(turns []protocol.Turn) {
		lens = append(lens, s.Len())
	}))

	require.NoError(t, s.Append(protocol.NewTurn(protocol.RoleUser, "a", protocol.StatusComplete)))
	assert.Equal(t, []int{1}, lens)
}

func TestMemoryStore_Snapshots_AreDefensiveCopies(t *testing.T) {
	s := conversation.NewMemoryStore()
	turn := streamingTurn(t, s)

	var snapshot []protocol.Turn
	s.Subscribe(conversation.SubscriberFunc(func(turns []protocol.Turn) {
		snapshot = turns
	}))
	require.True(t, s.UpdateContent(turn.ID, "real"))

	snapshot[0].Content = "tampered"
	turns := s.Turns()
	turns[0].Status = protocol.StatusError

	got, _ := s.Turn(turn.ID)
	assert.Equal(t, "real", got.Content)
	assert.Equal(t, protocol.StatusStreaming, got.Status)
}

func TestMemoryStore_ConcurrentReaders(t *testing.T) {
	s := conversation.NewMemoryStore()
	turn := streamingTurn(t, s)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = s.Turns()
				_, _ = s.Active()
			}
		}()
	}

	for range 100 {
		s.UpdateContent(turn.ID, "x")
	}
	wg.Wait()

	got, _ := s.Turn(turn.ID)
	assert.Equal(t, strings.Repeat("x", 100), got.Content)
}
