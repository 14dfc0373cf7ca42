package types

// Room name construction. Every user gets a private room for direct
// delivery (incoming calls may fan out to all of a user's devices); chat
// rooms are keyed by conversation.
const (
	userRoomPrefix = "user_"
	chatRoomPrefix = "chat_"
)

// UserRoom returns the private per-user room name for an identity.
func UserRoom(userID string) string {
	return userRoomPrefix + userID
}

// ChatRoom returns the room name for a chat conversation.
func ChatRoom(chatID string) string {
	return chatRoomPrefix + chatID
}
