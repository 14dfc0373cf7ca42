package room

import (
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"meetpulse/pkg/interfaces"
)

// Manager tracks ephemeral room membership layered over live connections.
// Rooms exist only while they have members: created on first join, pruned
// the moment the last member leaves. No history, only current membership.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]map[interfaces.Connection]struct{}
	log   *zap.Logger
}

// NewManager creates an empty room manager.
func NewManager(log *zap.Logger) *Manager {
	return &Manager{
		rooms: make(map[string]map[interfaces.Connection]struct{}),
		log:   log.Named("rooms"),
	}
}

// Join adds a connection to a room. Idempotent; membership holds no
// duplicates. Entitlement to the room is the caller's concern.
func (m *Manager) Join(roomName string, conn interfaces.Connection) {
	if conn == nil || roomName == "" {
		return
	}

	m.mu.Lock()
	members, exists := m.rooms[roomName]
	if !exists {
		members = make(map[interfaces.Connection]struct{})
		m.rooms[roomName] = members
	}
	members[conn] = struct{}{}
	m.mu.Unlock()

	m.log.Debug("joined room",
		zap.String("room", roomName),
		zap.String("user_id", conn.GetUserID()))
}

// Leave removes a connection from a room. Leaving a room the connection
// does not belong to is a no-op.
func (m *Manager) Leave(roomName string, conn interfaces.Connection) {
	if conn == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	members, exists := m.rooms[roomName]
	if !exists {
		return
	}
	if _, member := members[conn]; !member {
		return
	}

	delete(members, conn)
	if len(members) == 0 {
		delete(m.rooms, roomName)
	}
}

// DropConnection removes a disconnecting connection from every room it
// belongs to, pruning rooms left empty.
func (m *Manager) DropConnection(conn interfaces.Connection) {
	if conn == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for roomName, members := range m.rooms {
		if _, member := members[conn]; !member {
			continue
		}
		delete(members, conn)
		if len(members) == 0 {
			delete(m.rooms, roomName)
		}
	}
}

// Count returns the number of live members in a room. Zero means the room
// does not exist.
func (m *Manager) Count(roomName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rooms[roomName])
}

// Broadcast delivers an event to every member of a room except, optionally,
// the excluded connection. Delivery continues past individual write
// failures. Returns the number of successful deliveries.
func (m *Manager) Broadcast(roomName string, v any, exclude interfaces.Connection) int {
	m.mu.RLock()
	members := lo.Keys(m.rooms[roomName])
	m.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if conn == exclude {
			continue
		}
		if err := conn.WriteJSON(v); err != nil {
			m.log.Warn("broadcast delivery failed",
				zap.String("room", roomName),
				zap.String("user_id", conn.GetUserID()),
				zap.Error(err))
			continue
		}
		delivered++
	}

	return delivered
}

// Rooms returns the names of rooms that currently have members.
func (m *Manager) Rooms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.Keys(m.rooms)
}

// Stats reports room gauges for the health endpoint.
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	memberships := 0
	for _, members := range m.rooms {
		memberships += len(members)
	}

	return map[string]int{
		"rooms":       len(m.rooms),
		"memberships": memberships,
	}
}
