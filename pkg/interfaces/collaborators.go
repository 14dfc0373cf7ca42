package interfaces

import (
	"context"

	"meetpulse/pkg/types"
)

// TokenVerifier validates a bearer credential presented at connection
// establishment and returns the identity it encodes.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// Notifier delivers a call notification to a user with no live connection.
// Implementations may block on network I/O; callers treat the call as a
// suspend point and its failure as non-fatal.
type Notifier interface {
	SendCallNotification(ctx context.Context, n types.CallNotification) error
}
