package call

import (
	"context"

	"go.uber.org/zap"

	"meetpulse/internal/room"
	"meetpulse/internal/websocket"
	"meetpulse/pkg/interfaces"
	"meetpulse/pkg/types"
)

// fallbackCallerName is shown in push notifications when the caller's
// profile name was not supplied with the event.
const fallbackCallerName = "Someone"

// Coordinator brokers call setup between two users. It holds no state
// between events: a call_user and its eventual call_response are routed
// independently, each from registry/room state at the moment it arrives.
type Coordinator struct {
	registry *websocket.Registry
	rooms    *room.Manager
	notifier interfaces.Notifier
	log      *zap.Logger
}

// NewCoordinator creates a call signaling coordinator.
func NewCoordinator(registry *websocket.Registry, rooms *room.Manager, notifier interfaces.Notifier, log *zap.Logger) *Coordinator {
	return &Coordinator{
		registry: registry,
		rooms:    rooms,
		notifier: notifier,
		log:      log.Named("call"),
	}
}

// CallUser routes a call offer. A callee with a live member in its private
// user room gets an incoming_call event with the channel credentials
// unchanged; an offline callee gets exactly one push notification. The
// caller receives no delivery acknowledgment either way, and a failed push
// is logged, not retried.
func (c *Coordinator) CallUser(ctx context.Context, caller interfaces.Connection, p *types.CallUserPayload) error {
	userRoom := types.UserRoom(p.ToUserID)

	if c.rooms.Count(userRoom) > 0 {
		delivered := c.rooms.Broadcast(userRoom, types.Envelope{
			Event: types.NameIncomingCall,
			Data: types.IncomingCallPayload{
				FromUserID:   p.FromUserID,
				CallType:     p.CallType,
				ChannelName:  p.ChannelName,
				AgoraToken:   p.AgoraToken,
				CallerName:   p.CallerName,
				CallerAvatar: p.CallerAvatar,
			},
		}, nil)
		c.log.Info("call delivered live",
			zap.String("from", p.FromUserID),
			zap.String("to", p.ToUserID),
			zap.String("call_type", p.CallType),
			zap.Int("devices", delivered))
		return nil
	}

	callerName := p.CallerName
	if callerName == "" {
		callerName = fallbackCallerName
	}

	// Suspend point: runs on the caller's goroutine, other connections keep
	// processing while the push is in flight.
	err := c.notifier.SendCallNotification(ctx, types.CallNotification{
		RecipientID:  p.ToUserID,
		CallerName:   callerName,
		CallType:     p.CallType,
		ChannelName:  p.ChannelName,
		CallerAvatar: p.CallerAvatar,
		CallerID:     p.FromUserID,
	})
	if err != nil {
		c.log.Error("offline call notification failed",
			zap.String("from", p.FromUserID),
			zap.String("to", p.ToUserID),
			zap.Error(err))
		return nil
	}

	c.log.Info("call delivered offline",
		zap.String("from", p.FromUserID),
		zap.String("to", p.ToUserID),
		zap.String("call_type", p.CallType))
	return nil
}

// CallResponse forwards a callee's answer to the original caller's exact
// connection, verbatim. ToUserID names the original caller from the
// responder's perspective. A caller that has since disconnected means the
// response is silently dropped; responses get no offline fallback.
func (c *Coordinator) CallResponse(ctx context.Context, responder interfaces.Connection, ev *types.InboundEvent) error {
	p := ev.CallResponse

	target, online := c.registry.Lookup(p.ToUserID)
	if !online {
		c.log.Info("call response dropped, caller offline",
			zap.String("responder", responder.GetUserID()),
			zap.String("caller", p.ToUserID))
		return nil
	}

	if err := target.WriteJSON(types.Envelope{Event: types.NameCallResponse, Data: ev.Raw}); err != nil {
		c.log.Warn("call response delivery failed",
			zap.String("responder", responder.GetUserID()),
			zap.String("caller", p.ToUserID),
			zap.Error(err))
	}
	return nil
}
