package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

const maxErrorBody = 512

type sseTransport struct {
	client           *http.Client
	url              string
	headers          map[string]string
	handshakeTimeout time.Duration
}

func newSSETransport(cfg *Config, client *http.Client) *sseTransport {
	return &sseTransport{
		client:           client,
		url:              cfg.URL,
		headers:          cfg.Headers,
		handshakeTimeout: cfg.HandshakeTimeout,
	}
}

// Open POSTs the request and returns once a 2xx text/event-stream response
// has arrived.
func (t *sseTransport) Open(ctx context.Context, req protocol.Request) (Stream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	timer := startHandshakeTimer(t.handshakeTimeout, cancel)
	resp, err := t.client.Do(httpReq)
	if !timer.Stop() {
		if err == nil {
			resp.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrHandshakeTimeout, t.url)
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect %s: %w", t.url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(snippet)))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedContentType, resp.Header.Get("Content-Type"))
	}

	return &sseStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
		cancel: cancel,
	}, nil
}

type sseStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	cancel context.CancelFunc
	once   sync.Once
	done   bool
}

// Next reads one event. Comments and events without data are skipped;
// "id" and "retry" fields are ignored since the stream is never resumed.
func (s *sseStream) Next() (Message, error) {
	if s.done {
		return Message{}, io.EOF
	}

	var (
		data    bytes.Buffer
		event   string
		hasData bool
	)

	for {
		line, readErr := s.reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return Message{}, fmt.Errorf("read stream: %w", readErr)
		}

		line = strings.TrimRight(line, "\r\n")
		terminated := readErr == nil

		if line == "" && terminated {
			if !hasData {
				event = ""
				continue
			}
			if event == "" {
				event = EventMessage
			}
			return Message{Event: event, Data: bytes.Clone(data.Bytes())}, nil
		}

		if line != "" {
			field, value := parseField(line)
			switch field {
			case "data":
				if hasData {
					data.WriteByte('\n')
				}
				data.WriteString(value)
				hasData = true
			case "event":
				event = value
			}
		}

		if !terminated {
			s.done = true
			if hasData {
				return Message{}, fmt.Errorf("%w: %v", ErrMalformedStream, io.ErrUnexpectedEOF)
			}
			return Message{}, io.EOF
		}
	}
}

func (s *sseStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
		s.cancel()
	})
	return err
}

// parseField splits "field: value"; a single space after the colon is part
// of the separator. Comment lines yield an empty field.
func parseField(line string) (string, string) {
	if strings.HasPrefix(line, ":") {
		return "", ""
	}
	field, value, found := strings.Cut(line, ":")
	if !found {
		return field, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
