package protocol

import "errors"

// Protocol errors
var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrHandshake        = errors.New("handshake failed")
	ErrInvalidFrame     = errors.New("invalid frame")
	ErrUnknownFrame     = errors.New("unknown frame type")
)
