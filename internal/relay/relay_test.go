package relay

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meetpulse/internal/call"
	"meetpulse/internal/room"
	"meetpulse/internal/websocket"
	"meetpulse/pkg/types"
)

type fakeConn struct {
	id     string
	userID string

	mu     sync.Mutex
	writes []any
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeConn) Close() error      { return nil }
func (f *fakeConn) GetID() string     { return f.id }
func (f *fakeConn) GetUserID() string { return f.userID }

func (f *fakeConn) received() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.writes...)
}

type nopNotifier struct{}

func (nopNotifier) SendCallNotification(context.Context, types.CallNotification) error {
	return nil
}

func newTestRelay(limiter *RateLimiter) (*Relay, *room.Manager, *websocket.Registry) {
	log := zap.NewNop()
	registry := websocket.NewRegistry(log)
	rooms := room.NewManager(log)
	calls := call.NewCoordinator(registry, rooms, nopNotifier{}, log)
	return NewRelay(rooms, calls, limiter, log), rooms, registry
}

func event(t *testing.T, frame string) *types.InboundEvent {
	t.Helper()
	ev, err := types.DecodeInbound([]byte(frame))
	require.NoError(t, err)
	return ev
}

func TestDispatch_PingAnsweredImmediately(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRelay(nil)
	conn := newFakeConn("c1", "alice")

	req.NoError(r.Dispatch(context.Background(), conn, event(t, `{"event":"ping"}`)))

	writes := conn.received()
	req.Len(writes, 1)
	req.Equal(types.Pong(), writes[0])
}

func TestDispatch_JoinAndLeaveChat(t *testing.T) {
	req := require.New(t)
	r, rooms, _ := newTestRelay(nil)
	conn := newFakeConn("c1", "alice")

	req.NoError(r.Dispatch(context.Background(), conn, event(t, `{"event":"join_chat","data":"42"}`)))
	req.Equal(1, rooms.Count(types.ChatRoom("42")))

	req.NoError(r.Dispatch(context.Background(), conn, event(t, `{"event":"leave_chat","data":"42"}`)))
	req.Zero(rooms.Count(types.ChatRoom("42")))

	// Leaving a chat never joined is a no-op, not an error.
	req.NoError(r.Dispatch(context.Background(), conn, event(t, `{"event":"leave_chat","data":"99"}`)))
}

func TestDispatch_JoinUserRoomOwnIdentityOnly(t *testing.T) {
	req := require.New(t)
	r, rooms, _ := newTestRelay(nil)
	conn := newFakeConn("c1", "alice")

	req.NoError(r.Dispatch(context.Background(), conn, event(t, `{"event":"join_user_room","data":"alice"}`)))
	req.Equal(1, rooms.Count(types.UserRoom("alice")))

	err := r.Dispatch(context.Background(), conn, event(t, `{"event":"join_user_room","data":"bob"}`))
	req.ErrorIs(err, ErrIdentityMismatch)
	req.Zero(rooms.Count(types.UserRoom("bob")))
}

func TestDispatch_TypingFanOutExcludesSender(t *testing.T) {
	req := require.New(t)
	r, rooms, _ := newTestRelay(nil)

	a := newFakeConn("c1", "alice")
	b := newFakeConn("c2", "bob")
	rooms.Join(types.ChatRoom("42"), a)
	rooms.Join(types.ChatRoom("42"), b)

	req.NoError(r.Dispatch(context.Background(), a, event(t, `{"event":"typing_start","data":{"chatId":"42"}}`)))

	req.Empty(a.received())
	writes := b.received()
	req.Len(writes, 1)
	env := writes[0].(types.Envelope)
	req.Equal(types.NameUserTyping, env.Event)
	req.Equal(types.UserTypingPayload{UserID: "alice", ChatID: "42", IsTyping: true}, env.Data)

	req.NoError(r.Dispatch(context.Background(), a, event(t, `{"event":"typing_stop","data":{"chatId":"42"}}`)))

	writes = b.received()
	req.Len(writes, 2)
	env = writes[1].(types.Envelope)
	req.Equal(types.UserTypingPayload{UserID: "alice", ChatID: "42", IsTyping: false}, env.Data)
}

func TestDispatch_TypingOrderPreservedPerSender(t *testing.T) {
	req := require.New(t)
	r, rooms, _ := newTestRelay(nil)

	a := newFakeConn("c1", "alice")
	b := newFakeConn("c2", "bob")
	rooms.Join(types.ChatRoom("42"), a)
	rooms.Join(types.ChatRoom("42"), b)

	req.NoError(r.Dispatch(context.Background(), a, event(t, `{"event":"typing_start","data":{"chatId":"42"}}`)))
	req.NoError(r.Dispatch(context.Background(), a, event(t, `{"event":"typing_stop","data":{"chatId":"42"}}`)))

	writes := b.received()
	req.Len(writes, 2)
	req.True(writes[0].(types.Envelope).Data.(types.UserTypingPayload).IsTyping)
	req.False(writes[1].(types.Envelope).Data.(types.UserTypingPayload).IsTyping)
}

func TestDispatch_CallEventsReachCoordinator(t *testing.T) {
	req := require.New(t)
	r, rooms, registry := newTestRelay(nil)

	caller := newFakeConn("c1", "alice")
	callee := newFakeConn("c2", "bob")
	req.NoError(registry.Register(caller))
	rooms.Join(types.UserRoom("bob"), callee)

	frame := `{"event":"call_user","data":{"toUserId":"bob","fromUserId":"alice","callType":"audio","channelName":"ch","agoraToken":"tok"}}`
	req.NoError(r.Dispatch(context.Background(), caller, event(t, frame)))

	writes := callee.received()
	req.Len(writes, 1)
	req.Equal(types.NameIncomingCall, writes[0].(types.Envelope).Event)

	respFrame := `{"event":"call_response","data":{"toUserId":"alice","response":"accepted"}}`
	req.NoError(r.Dispatch(context.Background(), callee, event(t, respFrame)))

	callerWrites := caller.received()
	req.Len(callerWrites, 1)
	req.Equal(types.NameCallResponse, callerWrites[0].(types.Envelope).Event)
}

func TestDispatch_RateLimit(t *testing.T) {
	req := require.New(t)
	r, rooms, _ := newTestRelay(NewRateLimiter(2))
	conn := newFakeConn("c1", "alice")
	rooms.Join(types.ChatRoom("42"), conn)

	typing := `{"event":"typing_start","data":{"chatId":"42"}}`
	req.NoError(r.Dispatch(context.Background(), conn, event(t, typing)))
	req.NoError(r.Dispatch(context.Background(), conn, event(t, typing)))
	req.ErrorIs(r.Dispatch(context.Background(), conn, event(t, typing)), ErrRateLimited)

	// The heartbeat is exempt: a throttled client can still probe liveness.
	req.NoError(r.Dispatch(context.Background(), conn, event(t, `{"event":"ping"}`)))
}
