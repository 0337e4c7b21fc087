package transport

import "errors"

// Sentinel errors for channel setup and framing.
var (
	ErrUnknownTransport      = errors.New("unknown transport")
	ErrMissingURL            = errors.New("transport url is empty")
	ErrUnexpectedStatus      = errors.New("unexpected response status")
	ErrUnexpectedContentType = errors.New("unexpected content type")
	ErrHandshakeTimeout      = errors.New("handshake timed out")
	ErrMalformedStream       = errors.New("malformed stream")
)
