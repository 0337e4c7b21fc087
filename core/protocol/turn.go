// Package protocol defines the conversation and wire types shared by the
// store, the transports, and the stream controller.
package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the sender of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Status tracks a turn through pending → streaming → complete | error.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusStreaming, StatusComplete, StatusError:
		return true
	}
	return false
}

// Terminal reports whether s is a final status. Content of a turn in a
// terminal status never changes again.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Turn is a single message in a conversation.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
}

// NewTurn creates a Turn with a fresh UUIDv7 identifier. UUIDv7 values are
// time-ordered and the generator is monotonic within a process, so two turns
// created back to back never share an ID and always sort in creation order.
//
// Example:
//
//	turn := protocol.NewTurn(protocol.RoleUser, "hello", protocol.StatusComplete)
func NewTurn(role Role, content string, status Status) Turn {
	return Turn{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Status:    status,
	}
}
