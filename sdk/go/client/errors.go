package client

import "errors"

// Client-specific errors
var (
	ErrClientClosed   = errors.New("client is closed")
	ErrAlreadyServing = errors.New("client is already serving")
	ErrInvalidConfig  = errors.New("invalid client configuration")
)
