package auth

import "errors"

var (
	ErrMissingToken    = errors.New("authentication token missing")
	ErrInvalidToken    = errors.New("authentication token invalid")
	ErrMissingIdentity = errors.New("token carries no user identity")
)
