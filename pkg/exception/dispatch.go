package exception

import "errors"

// Dispatch and subscriber errors
var (
	ErrTokenMismatch        = errors.New("dispatch: event token does not match context token")
	ErrSubscriberRegistered = errors.New("dispatch: subscriber already registered for token")
	ErrDispatcherClosed     = errors.New("dispatch: dispatcher closed")
	ErrQueueFull            = errors.New("dispatch: subscriber queue full")
	ErrQueueClosed          = errors.New("dispatch: subscriber queue closed")
	ErrNilSubscriber        = errors.New("dispatch: nil subscriber")
)
