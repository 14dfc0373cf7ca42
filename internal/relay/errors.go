package relay

import "errors"

var (
	ErrIdentityMismatch = errors.New("event identity does not match connection")
	ErrRateLimited      = errors.New("event rate limit exceeded")
	ErrUnroutableEvent  = errors.New("event has no route")
)
