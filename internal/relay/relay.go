package relay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"meetpulse/internal/call"
	"meetpulse/internal/room"
	"meetpulse/pkg/interfaces"
	"meetpulse/pkg/types"
)

// Relay is the stateless event dispatcher: it takes a typed inbound event
// from a connection and forwards it to its destination, a room or a single
// user's connection. Call events are delegated to the signaling
// coordinator.
type Relay struct {
	rooms   *room.Manager
	calls   *call.Coordinator
	limiter *RateLimiter
	log     *zap.Logger
}

// NewRelay creates an event relay. limiter may be nil to disable rate
// limiting.
func NewRelay(rooms *room.Manager, calls *call.Coordinator, limiter *RateLimiter, log *zap.Logger) *Relay {
	return &Relay{
		rooms:   rooms,
		calls:   calls,
		limiter: limiter,
		log:     log.Named("relay"),
	}
}

// Dispatch routes one decoded event. The switch is exhaustive over the
// closed event set; an error is scoped to this event only.
func (r *Relay) Dispatch(ctx context.Context, conn interfaces.Connection, ev *types.InboundEvent) error {
	// The heartbeat is answered unconditionally and immediately; it is
	// exempt from rate limiting so a throttled client still probes
	// liveness.
	if ev.Kind == types.EventPing {
		return conn.WriteJSON(types.Pong())
	}

	if r.limiter != nil && !r.limiter.Allow(conn.GetUserID()) {
		return fmt.Errorf("%w: user %s", ErrRateLimited, conn.GetUserID())
	}

	switch ev.Kind {
	case types.EventJoinUserRoom:
		// Clients may re-assert their private room subscription, but only
		// for their own identity.
		if ev.RoomUserID != conn.GetUserID() {
			return fmt.Errorf("%w: %s cannot join user room of %s",
				ErrIdentityMismatch, conn.GetUserID(), ev.RoomUserID)
		}
		r.rooms.Join(types.UserRoom(ev.RoomUserID), conn)
		return nil

	case types.EventJoinChat:
		r.rooms.Join(types.ChatRoom(ev.ChatID), conn)
		r.log.Debug("joined chat",
			zap.String("user_id", conn.GetUserID()),
			zap.String("chat_id", ev.ChatID))
		return nil

	case types.EventLeaveChat:
		r.rooms.Leave(types.ChatRoom(ev.ChatID), conn)
		return nil

	case types.EventTypingStart, types.EventTypingStop:
		r.rooms.Broadcast(types.ChatRoom(ev.Typing.ChatID), types.Envelope{
			Event: types.NameUserTyping,
			Data: types.UserTypingPayload{
				UserID:   conn.GetUserID(),
				ChatID:   ev.Typing.ChatID,
				IsTyping: ev.Kind == types.EventTypingStart,
			},
		}, conn)
		return nil

	case types.EventCallUser:
		return r.calls.CallUser(ctx, conn, ev.CallUser)

	case types.EventCallResponse:
		return r.calls.CallResponse(ctx, conn, ev)

	case types.EventPing, types.EventUnknown:
		// Ping handled above; unknown kinds never leave the decoder.
		return fmt.Errorf("%w: %d", ErrUnroutableEvent, ev.Kind)

	default:
		return fmt.Errorf("%w: %d", ErrUnroutableEvent, ev.Kind)
	}
}

// CleanupLimiter drops stale rate limiter entries. Intended to be called
// periodically by the application.
func (r *Relay) CleanupLimiter() {
	if r.limiter != nil {
		r.limiter.Cleanup()
	}
}
