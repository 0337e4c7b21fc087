package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

// connectTransport calls a Connect server-streaming procedure whose request
// and response messages are google.protobuf.Struct values shaped like the
// JSON request and frames.
type connectTransport struct {
	client           *connect.Client[structpb.Struct, structpb.Struct]
	url              string
	headers          map[string]string
	handshakeTimeout time.Duration
}

func newConnectTransport(cfg *Config, httpClient *http.Client) *connectTransport {
	url := strings.TrimSuffix(cfg.URL, "/") + cfg.Procedure
	return &connectTransport{
		client:           connect.NewClient[structpb.Struct, structpb.Struct](httpClient, url),
		url:              url,
		headers:          cfg.Headers,
		handshakeTimeout: cfg.HandshakeTimeout,
	}
}

func (t *connectTransport) Open(ctx context.Context, req protocol.Request) (Stream, error) {
	payload, err := structpb.NewStruct(map[string]any{
		"message":    req.Message,
		"session_id": req.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	call := connect.NewRequest(payload)
	for k, v := range t.headers {
		call.Header().Set(k, v)
	}

	timer := startHandshakeTimer(t.handshakeTimeout, cancel)
	stream, err := t.client.CallServerStream(ctx, call)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	// Blocks until response headers arrive or the call fails; failures are
	// reported by the first Receive.
	stream.ResponseHeader()
	if !timer.Stop() {
		stream.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrHandshakeTimeout, t.url)
	}

	return &connectStream{stream: stream, cancel: cancel}, nil
}

type connectStream struct {
	stream *connect.ServerStreamForClient[structpb.Struct]
	cancel context.CancelFunc
	once   sync.Once
}

// Next re-encodes each Struct as JSON so frames take the same decoding path
// as the other transports.
func (s *connectStream) Next() (Message, error) {
	if !s.stream.Receive() {
		if err := s.stream.Err(); err != nil {
			return Message{}, fmt.Errorf("receive: %w", err)
		}
		return Message{}, io.EOF
	}

	data, err := protojson.Marshal(s.stream.Msg())
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedStream, err)
	}
	return Message{Event: EventMessage, Data: data}, nil
}

func (s *connectStream) Close() error {
	var err error
	s.once.Do(func() {
		// Cancel first so closing does not drain a stream that is still
		// being written.
		s.cancel()
		err = s.stream.Close()
	})
	return err
}
