package websocket

import "errors"

var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrInvalidJSON      = errors.New("message cannot be encoded as JSON")
	ErrWriteTimeout     = errors.New("write timed out")
	ErrNilConnection    = errors.New("connection is nil")
	ErrMissingIdentity  = errors.New("connection has no bound identity")
)
