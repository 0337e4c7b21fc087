package protocol

// FrameKind discriminates inbound stream frames.
type FrameKind string

const (
	FrameToken  FrameKind = "token"
	FrameStatus FrameKind = "status"
	FrameError  FrameKind = "error"
	// FrameDone is sent by some servers just before they end the stream.
	// It carries no content and does not finalize the turn by itself.
	FrameDone FrameKind = "done"
)

// IsValid reports whether k is a frame kind the controller understands.
func (k FrameKind) IsValid() bool {
	switch k {
	case FrameToken, FrameStatus, FrameError, FrameDone:
		return true
	}
	return false
}

// Frame is one unit of server-pushed data belonging to an exchange.
type Frame struct {
	Kind    FrameKind `json:"kind"`
	Content string    `json:"content"`
}

// Request is the single outbound payload sent when an exchange opens.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}
