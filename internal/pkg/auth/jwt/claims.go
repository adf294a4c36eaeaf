package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for relaychat sessions.
// It includes standard claims required by the JWT specification and the identifiers
// needed to look the session up in the session registry.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the user id (uid) of the token holder.
	ID string `json:"id"`

	// SessionID ties the token to one live session. Signing out ends the session,
	// which invalidates the token even before it expires.
	SessionID string `json:"sid"`

	// Email is informational only; authorization never relies on it.
	Email string `json:"email,omitempty"`
}
