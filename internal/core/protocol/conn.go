package protocol

import "context"

// Conn is a bidirectional frame stream. Writes are safe for concurrent use;
// reads must come from a single goroutine.
type Conn interface {
	ReadFrame(ctx context.Context) (Frame, error)
	WriteFrame(ctx context.Context, f Frame) error
	RemoteAddr() string
	Transport() string
	Close() error
}
