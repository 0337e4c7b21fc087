package transport

import (
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Kind selects the wire variant.
type Kind string

const (
	KindSSE       Kind = "sse"
	KindConnect   Kind = "connect"
	KindWebSocket Kind = "websocket"
)

const (
	defaultURL              = "http://localhost:8000/api/v1/chat/stream"
	defaultProcedure        = "/streamchat.v1.ChatService/Stream"
	defaultHandshakeTimeout = 30 * time.Second
)

// Config holds transport initialization parameters.
type Config struct {
	Kind Kind   `json:"kind,omitempty" mapstructure:"kind"`
	URL  string `json:"url,omitempty" mapstructure:"url"`
	// Procedure is appended to URL for the connect transport.
	Procedure        string            `json:"procedure,omitempty" mapstructure:"procedure"`
	Headers          map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	HandshakeTimeout time.Duration     `json:"handshake_timeout,omitempty" mapstructure:"handshake_timeout"`
}

// DefaultConfig returns an SSE configuration pointed at a local server.
func DefaultConfig() Config {
	return Config{
		Kind:             KindSSE,
		URL:              defaultURL,
		Procedure:        defaultProcedure,
		HandshakeTimeout: defaultHandshakeTimeout,
	}
}

// Merge applies non-zero values from source into c. Headers are merged key
// by key.
func (c *Config) Merge(source *Config) {
	if source.Kind != "" {
		c.Kind = source.Kind
	}
	if source.URL != "" {
		c.URL = source.URL
	}
	if source.Procedure != "" {
		c.Procedure = source.Procedure
	}
	if source.HandshakeTimeout > 0 {
		c.HandshakeTimeout = source.HandshakeTimeout
	}
	if len(source.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(source.Headers))
		}
		maps.Copy(c.Headers, source.Headers)
	}
}

// Option configures a Transport after config-driven initialization.
type Option func(*options)

type options struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// WithHTTPClient overrides http.DefaultClient for the sse and connect kinds.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// New creates a Transport from configuration.
func New(cfg *Config, opts ...Option) (Transport, error) {
	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.URL == "" {
		return nil, ErrMissingURL
	}

	switch cfg.Kind {
	case KindSSE, "":
		return newSSETransport(cfg, o.httpClient), nil
	case KindConnect:
		return newConnectTransport(cfg, o.httpClient), nil
	case KindWebSocket:
		return newWebSocketTransport(cfg, o.dialer), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, cfg.Kind)
	}
}

// handshakeTimer cancels an exchange whose channel is not established within
// d. Stop reports whether the handshake finished in time.
type handshakeTimer struct {
	timer *time.Timer
}

func startHandshakeTimer(d time.Duration, cancel func()) *handshakeTimer {
	if d <= 0 {
		return &handshakeTimer{}
	}
	return &handshakeTimer{timer: time.AfterFunc(d, cancel)}
}

func (h *handshakeTimer) Stop() bool {
	if h.timer == nil {
		return true
	}
	return h.timer.Stop()
}
