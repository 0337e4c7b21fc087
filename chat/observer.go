package chat

import "github.com/tailored-agentic-units/streamchat/observability"

// Controller event types.
const (
	EventSubmit     observability.EventType = "chat.submit"
	EventConnect    observability.EventType = "chat.connect"
	EventOpen       observability.EventType = "chat.open"
	EventFrame      observability.EventType = "chat.frame"
	EventComplete   observability.EventType = "chat.complete"
	EventFailed     observability.EventType = "chat.failed"
	EventAbandoned  observability.EventType = "chat.abandoned"
	EventDiagnostic observability.EventType = "chat.diagnostic"
)
