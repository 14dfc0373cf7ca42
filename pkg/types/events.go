package types

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// EventKind identifies one of the wire events understood by the relay.
// The set is closed: decoding an unlisted event name fails instead of
// falling through to a dynamic lookup.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventJoinUserRoom
	EventJoinChat
	EventLeaveChat
	EventTypingStart
	EventTypingStop
	EventPing
	EventCallUser
	EventCallResponse
)

// Wire names. Inbound names are accepted from clients, outbound names are
// emitted by the server.
const (
	NameJoinUserRoom = "join_user_room"
	NameJoinChat     = "join_chat"
	NameLeaveChat    = "leave_chat"
	NameTypingStart  = "typing_start"
	NameTypingStop   = "typing_stop"
	NamePing         = "ping"
	NameCallUser     = "call_user"
	NameCallResponse = "call_response"

	NamePong         = "pong"
	NameUserTyping   = "user_typing"
	NameIncomingCall = "incoming_call"
)

func (k EventKind) String() string {
	switch k {
	case EventJoinUserRoom:
		return NameJoinUserRoom
	case EventJoinChat:
		return NameJoinChat
	case EventLeaveChat:
		return NameLeaveChat
	case EventTypingStart:
		return NameTypingStart
	case EventTypingStop:
		return NameTypingStop
	case EventPing:
		return NamePing
	case EventCallUser:
		return NameCallUser
	case EventCallResponse:
		return NameCallResponse
	default:
		return "unknown"
	}
}

// Envelope is the outbound wire frame: {"event": "...", "data": ...}.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// frame is the inbound counterpart of Envelope. Data stays raw so payloads
// can be decoded per event kind and, for call responses, forwarded verbatim.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// TypingPayload carries the chat a client is typing in.
type TypingPayload struct {
	ChatID string `json:"chatId" validate:"required"`
}

// CallUserPayload initiates call setup toward another user. ChannelName and
// AgoraToken are opaque to the server and forwarded unchanged.
type CallUserPayload struct {
	ToUserID     string `json:"toUserId" validate:"required"`
	FromUserID   string `json:"fromUserId" validate:"required"`
	CallType     string `json:"callType" validate:"required"`
	ChannelName  string `json:"channelName" validate:"required"`
	AgoraToken   string `json:"agoraToken"`
	CallerName   string `json:"callerName"`
	CallerAvatar string `json:"callerAvatar"`
}

// CallResponsePayload answers a call. The full inbound data is forwarded to
// the original caller verbatim, so only the addressing field is decoded.
type CallResponsePayload struct {
	ToUserID string          `json:"toUserId" validate:"required"`
	Response json.RawMessage `json:"response"`
}

// UserTypingPayload is the outbound typing indicator fan-out.
type UserTypingPayload struct {
	UserID   string `json:"userId"`
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// IncomingCallPayload is the outbound call offer delivered to a live callee.
type IncomingCallPayload struct {
	FromUserID   string `json:"fromUserId"`
	CallType     string `json:"callType"`
	ChannelName  string `json:"channelName"`
	AgoraToken   string `json:"agoraToken"`
	CallerName   string `json:"callerName,omitempty"`
	CallerAvatar string `json:"callerAvatar,omitempty"`
}

// CallNotification is the contract into the push-notification collaborator
// for callees with no live connection.
type CallNotification struct {
	RecipientID  string `json:"recipientId"`
	CallerName   string `json:"callerName"`
	CallType     string `json:"callType"`
	ChannelName  string `json:"channelName"`
	CallerAvatar string `json:"callerAvatar,omitempty"`
	CallerID     string `json:"callerId"`
}

// InboundEvent is a decoded client event. Kind selects which payload field
// is populated; Raw preserves the payload exactly as received.
type InboundEvent struct {
	Kind EventKind
	Raw  json.RawMessage

	RoomUserID   string // join_user_room
	ChatID       string // join_chat, leave_chat
	Typing       *TypingPayload
	CallUser     *CallUserPayload
	CallResponse *CallResponsePayload
}

var validate = validator.New()

// DecodeInbound parses a wire frame into a typed event. Payloads are
// validated here so downstream handlers never see a half-formed event.
func DecodeInbound(raw []byte) (*InboundEvent, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	ev := &InboundEvent{Raw: f.Data}

	switch f.Event {
	case NameJoinUserRoom:
		ev.Kind = EventJoinUserRoom
		userID, err := decodeStringData(f.Data)
		if err != nil {
			return nil, err
		}
		ev.RoomUserID = userID

	case NameJoinChat, NameLeaveChat:
		if f.Event == NameJoinChat {
			ev.Kind = EventJoinChat
		} else {
			ev.Kind = EventLeaveChat
		}
		chatID, err := decodeStringData(f.Data)
		if err != nil {
			return nil, err
		}
		ev.ChatID = chatID

	case NameTypingStart, NameTypingStop:
		if f.Event == NameTypingStart {
			ev.Kind = EventTypingStart
		} else {
			ev.Kind = EventTypingStop
		}
		var p TypingPayload
		if err := decodeStructData(f.Data, &p); err != nil {
			return nil, err
		}
		ev.Typing = &p

	case NamePing:
		ev.Kind = EventPing

	case NameCallUser:
		ev.Kind = EventCallUser
		var p CallUserPayload
		if err := decodeStructData(f.Data, &p); err != nil {
			return nil, err
		}
		ev.CallUser = &p

	case NameCallResponse:
		ev.Kind = EventCallResponse
		var p CallResponsePayload
		if err := decodeStructData(f.Data, &p); err != nil {
			return nil, err
		}
		ev.CallResponse = &p

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}

	return ev, nil
}

// decodeStringData handles events whose data is a bare JSON string, the
// format mobile clients use for room identifiers.
func decodeStringData(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%w: expected string data: %v", ErrInvalidPayload, err)
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrInvalidPayload)
	}
	return s, nil
}

func decodeStructData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// Pong is the reply to an application-level ping. It carries no payload.
func Pong() Envelope {
	return Envelope{Event: NamePong}
}
