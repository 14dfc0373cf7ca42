package types

import "errors"

var (
	ErrMalformedFrame = errors.New("malformed event frame")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid event payload")
)
