package jwt

import (
	"net/http"
	"strings"
)

// TokenQueryParam is the query parameter browsers use to pass the token on WebSocket upgrades,
// where custom headers cannot be set.
const TokenQueryParam = "token"

// ExtractToken returns the bearer token from the Authorization header, falling back to
// the token query parameter. It returns an empty string when neither is present or well-formed.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}

	return strings.TrimSpace(r.URL.Query().Get(TokenQueryParam))
}
