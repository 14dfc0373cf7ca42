package websocket

import (
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"meetpulse/pkg/interfaces"
)

// Registry maps each identity to its single current connection. A new
// connection from the same identity supersedes the prior registration; the
// superseded socket is left open but stops receiving routed events.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]interfaces.Connection
	log         *zap.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		connections: make(map[string]interfaces.Connection),
		log:         log.Named("registry"),
	}
}

// Register records identity -> connection, last writer wins.
func (r *Registry) Register(conn interfaces.Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	userID := conn.GetUserID()
	if userID == "" {
		return ErrMissingIdentity
	}

	r.mu.Lock()
	prev, superseded := r.connections[userID]
	r.connections[userID] = conn
	r.mu.Unlock()

	if superseded && prev != conn {
		r.log.Info("connection superseded",
			zap.String("user_id", userID),
			zap.String("old_conn_id", prev.GetID()),
			zap.String("new_conn_id", conn.GetID()))
	} else {
		r.log.Info("connection registered",
			zap.String("user_id", userID),
			zap.String("conn_id", conn.GetID()))
	}

	return nil
}

// Unregister removes the mapping for the connection's identity, but only
// when that exact connection is still the registered one. A stale
// disconnect must never evict a newer connection's registration.
func (r *Registry) Unregister(conn interfaces.Connection) {
	if conn == nil {
		return
	}
	userID := conn.GetUserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	registered, exists := r.connections[userID]
	if !exists || registered != conn {
		return
	}

	delete(r.connections, userID)
	r.log.Info("connection unregistered",
		zap.String("user_id", userID),
		zap.String("conn_id", conn.GetID()))
}

// Lookup returns the current connection for an identity. Used to decide
// online versus offline routing; reflects the most recent Register or
// Unregister.
func (r *Registry) Lookup(userID string) (interfaces.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.connections[userID]
	return conn, exists
}

// Users returns the identities currently online.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.connections)
}

// Stats reports registry gauges for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"connections": len(r.connections),
	}
}
