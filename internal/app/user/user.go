/*
Package user contains the user directory: the public profile of every registered identity.

It defines the User record shared with clients, the repository contract that backs it,
one-shot directory reads with client-side name filtering, and idempotent registration.
*/
package user

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by a Repository when the requested user does not exist.
var ErrNotFound = errors.New("user: not found")

// User represents the public profile of a chat participant.
// Fields use JSON tags for serialization in HTTP responses and WebSocket messages.
type User struct {
	// ID is the identity provider's uid.
	ID string `json:"uid"`

	// DisplayName is the name shown next to messages and in DM lists.
	DisplayName string `json:"displayName"`

	// Email of the account. The directory lists it next to the display name.
	Email string `json:"email"`

	// PhotoURL is the avatar URL, if any.
	PhotoURL string `json:"photoURL,omitempty"`
}

// Validate checks the invariants of a record read from a store.
func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user: empty uid")
	}
	return nil
}

// Profile is the mutable part of a user record.
type Profile struct {
	DisplayName string
	PhotoURL    string
}

// Repository is the persistence contract for user records.
type Repository interface {
	// GetUser returns the user with the given uid, or ErrNotFound.
	GetUser(ctx context.Context, uid string) (User, error)

	// ListUsers returns every user record.
	ListUsers(ctx context.Context) ([]User, error)

	// CreateUserIfAbsent inserts u unless a record with u.ID exists.
	// It reports whether this call created the record.
	CreateUserIfAbsent(ctx context.Context, u User) (bool, error)

	// UpdateUserProfile replaces the mutable fields of an existing user, or returns ErrNotFound.
	UpdateUserProfile(ctx context.Context, uid string, p Profile) (User, error)
}
