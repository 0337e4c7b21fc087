// Package response decodes inbound stream payloads into protocol frames.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

// Sentinel errors for frame decoding.
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownKind    = errors.New("unknown frame kind")
)

// wireFrame accepts both the "kind" discriminator and the older "type" field.
type wireFrame struct {
	Kind    protocol.FrameKind `json:"kind"`
	Type    protocol.FrameKind `json:"type"`
	Content string             `json:"content"`
}

// ParseFrame parses one frame payload. Payloads that are not a JSON object,
// carry a non-string content, or lack a discriminator return
// ErrMalformedFrame; a well-formed payload with an unrecognized kind returns
// ErrUnknownKind.
func ParseFrame(body []byte) (*protocol.Frame, error) {
	var wire wireFrame
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	kind := wire.Kind
	if kind == "" {
		kind = wire.Type
	}
	if kind == "" {
		return nil, fmt.Errorf("%w: missing kind", ErrMalformedFrame)
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return &protocol.Frame{Kind: kind, Content: wire.Content}, nil
}

// ParseRemoteError extracts a human readable message from an error event
// body. Servers send either {"error": "..."}, a regular error frame, or
// plain text.
func ParseRemoteError(body []byte) string {
	trimmed := bytes.TrimSpace(body)

	var payload struct {
		Error   string `json:"error"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Content != "" {
			return payload.Content
		}
	}
	return string(trimmed)
}
