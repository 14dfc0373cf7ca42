package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meetpulse/internal/room"
	"meetpulse/pkg/interfaces"
	"meetpulse/pkg/types"
)

// Dispatcher routes a decoded inbound event. Implemented by the relay.
type Dispatcher interface {
	Dispatch(ctx context.Context, conn interfaces.Connection, ev *types.InboundEvent) error
}

var upgrader = websocket.Upgrader{
	// Mobile clients connect from app webviews with arbitrary origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler authenticates and upgrades incoming WebSocket requests, then
// pumps each connection's events into the dispatcher.
type Handler struct {
	verifier     interfaces.TokenVerifier
	registry     *Registry
	rooms        *room.Manager
	dispatcher   Dispatcher
	pingInterval time.Duration
	readTimeout  time.Duration
	log          *zap.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(verifier interfaces.TokenVerifier, registry *Registry, rooms *room.Manager, dispatcher Dispatcher, pingInterval, readTimeout time.Duration, log *zap.Logger) *Handler {
	return &Handler{
		verifier:     verifier,
		registry:     registry,
		rooms:        rooms,
		dispatcher:   dispatcher,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
		log:          log.Named("ws"),
	}
}

// HandleWebSocket is the /ws endpoint. The authentication gate runs before
// the upgrade: a connection with a missing or invalid token is rejected and
// never reaches the registry.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.Verify(bearerToken(r))
	if err != nil {
		h.log.Warn("connection rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
		http.Error(w, "authentication error", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	conn := NewConnection(ws, userID)

	if err := h.registry.Register(conn); err != nil {
		h.log.Error("registration failed", zap.String("user_id", userID), zap.Error(err))
		_ = conn.Close()
		return
	}

	// Every connection is subscribed to its private user room so incoming
	// calls reach all of the user's live devices.
	h.rooms.Join(types.UserRoom(userID), conn)

	go h.handleConnection(conn)
}

// bearerToken extracts the credential from the Authorization header, or
// from the token query parameter for clients that cannot set headers on a
// WebSocket handshake.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// handleConnection owns the connection's read pump and its cleanup.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.registry.Unregister(conn)
		h.rooms.DropConnection(conn)
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		h.log.Warn("set read deadline failed", zap.String("user_id", conn.GetUserID()), zap.Error(err))
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	// Protocol-level keepalive, independent of the application ping event.
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Warn("read failed", zap.String("user_id", conn.GetUserID()), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ev, err := types.DecodeInbound(data)
		if err != nil {
			h.log.Warn("dropping undecodable event",
				zap.String("user_id", conn.GetUserID()),
				zap.Error(err))
			continue
		}

		// Errors are isolated to the event that caused them; the read pump
		// and all other connections keep going.
		if err := h.dispatcher.Dispatch(conn.ctx, conn, ev); err != nil {
			h.log.Warn("event dispatch failed",
				zap.String("user_id", conn.GetUserID()),
				zap.Stringer("event", ev.Kind),
				zap.Error(err))
		}
	}
}
