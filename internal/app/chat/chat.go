/*
Package chat contains the channel and direct-message registry.

This file defines the chat record, its identifiers, and the repository contract. Channels are
a fixed list known to every client; direct messages are created lazily the first time one of
their members opens them, under an id derived from the member uids.
*/
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrNotFound is returned by a Repository when the requested chat does not exist.
var ErrNotFound = errors.New("chat: not found")

// Type distinguishes public channels from direct messages.
type Type string

const (
	TypeChannel Type = "channel"
	TypeDM      Type = "dm"
)

// ParseType converts a stored type string into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeChannel, TypeDM:
		return Type(s), nil
	default:
		return "", fmt.Errorf("chat: unknown type %q", s)
	}
}

const (
	// GeneralChannelID is the id of the one built-in channel.
	GeneralChannelID = "general"

	// GeneralChannelName is its display name.
	GeneralChannelName = "General"

	// SelfDMFallbackName names a self-DM when the viewer has no display name.
	SelfDMFallbackName = "Myself"
)

// Chat is a conversation container.
type Chat struct {
	ID        string
	Type      Type
	Members   []string
	CreatedAt time.Time
}

// Validate checks the invariants of a record read from a store.
func (c Chat) Validate() error {
	if c.ID == "" {
		return errors.New("chat: empty id")
	}
	if _, err := ParseType(string(c.Type)); err != nil {
		return err
	}
	if c.Type == TypeDM {
		if n := len(c.Members); n < 1 || n > 2 {
			return fmt.Errorf("chat: dm %s has %d members", c.ID, n)
		}
		if want := c.expectedDMID(); want != c.ID {
			return fmt.Errorf("chat: dm id %s does not match members (want %s)", c.ID, want)
		}
	}
	return nil
}

func (c Chat) expectedDMID() string {
	if len(c.Members) == 1 {
		return DirectMessageID(c.Members[0], c.Members[0])
	}
	return DirectMessageID(c.Members[0], c.Members[1])
}

// HasMember reports whether uid belongs to the chat. Channels admit everyone.
func (c Chat) HasMember(uid string) bool {
	if c.Type == TypeChannel {
		return true
	}
	return slices.Contains(c.Members, uid)
}

// Counterpart returns the other member of a two-party DM, or "" for a self-DM.
func (c Chat) Counterpart(self string) string {
	for _, m := range c.Members {
		if m != self {
			return m
		}
	}
	return ""
}

// Descriptor is what clients list and select.
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Channels returns the static channel list.
func Channels() []Descriptor {
	return []Descriptor{
		{ID: GeneralChannelID, Name: GeneralChannelName, Type: TypeChannel},
	}
}

// IsChannel reports whether id names one of the static channels.
func IsChannel(id string) bool {
	for _, c := range Channels() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// DirectMessageID derives the id of the DM between a and b: the greater uid, an underscore,
// then the lesser uid. It is commutative, and DirectMessageID(a, a) names a's self-DM.
func DirectMessageID(a, b string) string {
	if a < b {
		a, b = b, a
	}
	return a + "_" + b
}

// directMessageMembers returns the member set of the DM between a and b.
func directMessageMembers(a, b string) []string {
	if a == b {
		return []string{a}
	}
	return []string{a, b}
}

// Repository is the persistence contract for chat records.
type Repository interface {
	// GetChat returns the chat with the given id, or ErrNotFound.
	GetChat(ctx context.Context, id string) (Chat, error)

	// CreateChatIfAbsent inserts c unless a chat with c.ID exists.
	// It reports whether this call created the record.
	CreateChatIfAbsent(ctx context.Context, c Chat) (bool, error)

	// ListDirectMessages returns the DMs memberID belongs to, oldest first.
	ListDirectMessages(ctx context.Context, memberID string) ([]Chat, error)
}
