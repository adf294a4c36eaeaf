package live

import "context"

// TopicUsers changes whenever a user record is created or its profile changes.
const TopicUsers = "users"

// MessagesTopic changes whenever a message in chatID is appended, edited, or deleted.
func MessagesTopic(chatID string) string {
	return "messages:" + chatID
}

// ChatsTopic changes whenever a chat that includes uid is created.
func ChatsTopic(uid string) string {
	return "chats:" + uid
}

// Publisher announces changes. *Hub implements it.
type Publisher interface {
	Publish(ctx context.Context, topics ...string) error
}
