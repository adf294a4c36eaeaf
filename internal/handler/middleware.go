package handler

import (
	"net/http"

	"relaychat/internal/app/identity"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/resp"
)

// RequireSession rejects requests without a live session and stores the session in the
// request context. The token comes from the Authorization header or the token query parameter.
func RequireSession(provider *identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := provider.Authenticate(jwt.ExtractToken(r))
			if err != nil {
				resp.RespondError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithSession(r.Context(), session)))
		})
	}
}

// sessionFrom returns the session RequireSession stored, writing a 401 when it is missing.
func sessionFrom(w http.ResponseWriter, r *http.Request) (*identity.Session, bool) {
	session, ok := identity.SessionFrom(r.Context())
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return nil, false
	}
	return session, true
}
