package connection

import "errors"

var (
	// ErrNotReady is returned by Send while the socket is not open.
	ErrNotReady = errors.New("connection not ready")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("connection manager closed")
	// ErrRetriesExhausted is recorded as LastError when the loop gives up.
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	// ErrSendQueueFull is returned when the outbound queue cannot take another frame.
	ErrSendQueueFull = errors.New("send queue full")
)
