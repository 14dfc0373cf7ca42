package interfaces

// Connection is a live bidirectional channel to exactly one authenticated
// user. Implementations must make WriteJSON safe for concurrent use; the
// registry and room manager deliver from many goroutines.
type Connection interface {
	// WriteJSON sends a JSON message to the client.
	WriteJSON(v any) error

	// Close shuts the connection down and releases its resources. Safe to
	// call more than once.
	Close() error

	// GetID returns the unique id of this physical connection. Two
	// connections from the same user have distinct ids.
	GetID() string

	// GetUserID returns the identity bound at authentication time.
	// Immutable for the connection's lifetime.
	GetUserID() string
}
