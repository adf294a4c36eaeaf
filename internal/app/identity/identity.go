/*
Package identity is the identity provider: email and password accounts, signed session
tokens, and password reset by email.

Accounts are private to this package. The public profile of each account lives in the
user directory, which is populated on every successful sign-up or sign-in.
*/
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAccountNotFound is returned by an AccountRepository for an unknown account.
	ErrAccountNotFound = errors.New("identity: account not found")

	// ErrEmailTaken is returned by CreateAccount when the email is bound to another account.
	ErrEmailTaken = errors.New("identity: email already in use")

	// ErrResetNotFound is returned by RedeemResetToken for an unknown, used, or expired token.
	ErrResetNotFound = errors.New("identity: reset token not found")
)

// Account is the credential record of one identity.
type Account struct {
	UserID       string
	Email        string
	DisplayName  string
	PhotoURL     string
	PasswordHash string
	CreatedAt    time.Time
}

// PasswordReset is a pending reset. Only the hash of the emailed token is stored.
type PasswordReset struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// AccountRepository is the persistence contract for accounts and reset tokens.
type AccountRepository interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, uid string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	UpdateAccountProfile(ctx context.Context, uid, displayName, photoURL string) error

	SaveResetToken(ctx context.Context, r PasswordReset) error

	// RedeemResetToken atomically deletes the reset with tokenHash and sets the password of its
	// account, returning the user id. Unknown or expired tokens yield ErrResetNotFound and leave
	// the password unchanged; a failed password write leaves the token in place.
	RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)
}
