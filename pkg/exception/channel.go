package exception

import "errors"

// Channel errors
var (
	ErrQueueFull    = errors.New("event queue full")
	ErrQueueClosed  = errors.New("event queue closed")
	ErrNilDialer    = errors.New("channel: nil dialer")
	ErrNoCredential = errors.New("channel: no credential source")
)
