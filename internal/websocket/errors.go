package websocket

import "errors"

var (
	ErrClientQueueFull  = errors.New("client message queue is full")
	ErrConnectionClosed = errors.New("connection closed")
	ErrInvalidMessage   = errors.New("invalid message format")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRateLimited      = errors.New("too many events, slow down")
)
