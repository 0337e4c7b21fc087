package response_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/core/response"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name string
		body string
		want protocol.Frame
	}{
		{
			name: "token",
			body: `{"kind":"token","content":"吉"}`,
			want: protocol.Frame{Kind: protocol.FrameToken, Content: "吉"},
		},
		{
			name: "status",
			body: `{"kind":"status","content":"Using tool: bazi..."}`,
			want: protocol.Frame{Kind: protocol.FrameStatus, Content: "Using tool: bazi..."},
		},
		{
			name: "error",
			body: `{"kind":"error","content":"upstream timeout"}`,
			want: protocol.Frame{Kind: protocol.FrameError, Content: "upstream timeout"},
		},
		{
			name: "legacy type field",
			body: `{"type":"token","content":"星高照"}`,
			want: protocol.Frame{Kind: protocol.FrameToken, Content: "星高照"},
		},
		{
			name: "kind wins over type",
			body: `{"kind":"status","type":"token","content":"x"}`,
			want: protocol.Frame{Kind: protocol.FrameStatus, Content: "x"},
		},
		{
			name: "done without content",
			body: `{"type":"done","content":""}`,
			want: protocol.Frame{Kind: protocol.FrameDone},
		},
		{
			name: "missing content is empty",
			body: `{"kind":"token"}`,
			want: protocol.Frame{Kind: protocol.FrameToken},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := response.ParseFrame([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *frame)
		})
	}
}

func TestParseFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"not json", `not json`, response.ErrMalformedFrame},
		{"empty", ``, response.ErrMalformedFrame},
		{"array", `["token","x"]`, response.ErrMalformedFrame},
		{"non-string content", `{"kind":"token","content":42}`, response.ErrMalformedFrame},
		{"missing kind", `{"content":"x"}`, response.ErrMalformedFrame},
		{"unknown kind", `{"kind":"tool_call","content":"x"}`, response.ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := response.ParseFrame([]byte(tt.body))
			assert.Nil(t, frame)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRemoteError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"graph failed"}`, "graph failed"},
		{"error frame", `{"kind":"error","content":"quota exceeded"}`, "quota exceeded"},
		{"plain text", "  backend exploded \n", "backend exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, response.ParseRemoteError([]byte(tt.body)))
		})
	}
}
