/*
Package message contains the message stream, composer, and editor.

Messages belong to a chat and are ordered solely by the store-assigned creation time, ties
broken by id. Writers go through the Composer (new messages) or the Editor (edit and delete);
readers either load a one-shot Timeline or keep a live Stream open on the active chat.
*/
package message

import (
	"context"
	"errors"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/user"
)

// ErrNotFound is returned by a Repository when the requested message does not exist.
var ErrNotFound = errors.New("message: not found")

// MaxContentBytes caps the text of a single message.
const MaxContentBytes = 5000

// Message is one stored chat message. The sender fields are a snapshot taken at send time.
type Message struct {
	ID             string     `json:"id"`
	ChatID         string     `json:"chatId"`
	Text           string     `json:"text"`
	SenderID       string     `json:"uid"`
	SenderName     string     `json:"displayName"`
	SenderPhotoURL string     `json:"photoURL,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	EditedAt       *time.Time `json:"editedAt,omitempty"`
}

// Validate checks the invariants of a record read from a store.
func (m Message) Validate() error {
	if m.ID == "" {
		return errors.New("message: empty id")
	}
	if m.ChatID == "" {
		return errors.New("message: empty chat id")
	}
	if m.SenderID == "" {
		return errors.New("message: empty sender")
	}
	return nil
}

// Draft is a message before the store assigns its id and creation time.
type Draft struct {
	Text           string
	SenderID       string
	SenderName     string
	SenderPhotoURL string
}

// draftFrom snapshots the sender fields of u.
func draftFrom(u user.User, text string) Draft {
	return Draft{
		Text:           text,
		SenderID:       u.ID,
		SenderName:     u.DisplayName,
		SenderPhotoURL: u.PhotoURL,
	}
}

// Repository is the persistence contract for messages.
type Repository interface {
	// AppendMessage stores d in chatID, assigning id and creation time.
	AppendMessage(ctx context.Context, chatID string, d Draft) (Message, error)

	// ListMessages returns the messages of chatID ordered by creation time, then id.
	ListMessages(ctx context.Context, chatID string) ([]Message, error)

	// GetMessage returns one message, or ErrNotFound.
	GetMessage(ctx context.Context, chatID, id string) (Message, error)

	// UpdateMessageText replaces the text and edit time of a message, or returns ErrNotFound.
	UpdateMessageText(ctx context.Context, chatID, id, text string, editedAt time.Time) (Message, error)

	// DeleteMessage removes a message, or returns ErrNotFound.
	DeleteMessage(ctx context.Context, chatID, id string) error
}

// Resolver authorizes access to a chat. *chat.Registry implements it.
type Resolver interface {
	Resolve(ctx context.Context, viewer user.Viewer, chatID string) (chat.Chat, error)
}
