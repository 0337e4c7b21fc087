package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

const closeGracePeriod = time.Second

// websocketTransport writes the request as the first text message and then
// only reads. A normal closure from the server ends the stream cleanly.
type websocketTransport struct {
	dialer  *websocket.Dialer
	url     string
	headers map[string]string
}

func newWebSocketTransport(cfg *Config, dialer *websocket.Dialer) *websocketTransport {
	d := *websocket.DefaultDialer
	if dialer != nil {
		d = *dialer
	}
	if cfg.HandshakeTimeout > 0 {
		d.HandshakeTimeout = cfg.HandshakeTimeout
	}
	return &websocketTransport{
		dialer:  &d,
		url:     websocketURL(cfg.URL),
		headers: cfg.Headers,
	}
}

func (t *websocketTransport) Open(ctx context.Context, req protocol.Request) (Stream, error) {
	header := make(http.Header, len(t.headers))
	for k, v := range t.headers {
		header.Set(k, v)
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s", ErrHandshakeTimeout, t.url)
		}
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}

	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send request: %w", err)
	}

	// ReadMessage does not observe contexts; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	return &websocketStream{conn: conn, stop: stop}, nil
}

type websocketStream struct {
	conn *websocket.Conn
	stop func() bool
	once sync.Once
}

func (s *websocketStream) Next() (Message, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("read: %w", err)
	}
	return Message{Event: EventMessage, Data: data}, nil
}

func (s *websocketStream) Close() error {
	var err error
	s.once.Do(func() {
		s.stop()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		)
		err = s.conn.Close()
	})
	return err
}

// websocketURL lets the same http(s) URL be configured for every transport.
func websocketURL(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	default:
		return url
	}
}
