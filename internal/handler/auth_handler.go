/*
Package handler provides the HTTP handlers and routing setup for the relaychat server.

Handlers are built from AppDeps and translate between the JSON envelope of the resp package
and the identity, directory, chat, and message services. Authenticated routes read the
caller's session from the request context, where RequireSession put it.
*/
package handler

import (
	"net/http"

	"relaychat/internal/app/identity"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

// HandleSignUp creates an account and returns its first session token.
func HandleSignUp(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input identity.SignUpInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		result, err := deps.Provider.SignUp(r.Context(), input)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}

// HandleSignIn verifies credentials and issues a session token.
func HandleSignIn(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input identity.SignInInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		result, err := deps.Provider.SignIn(r.Context(), input)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}

// HandleSignOut ends the caller's session. Its token and WebSocket connections stop working.
func HandleSignOut(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		deps.Provider.SignOut(session.ID)
		resp.RespondSuccess(w, r, nil)
	}
}

type PasswordResetInput struct {
	Email string `json:"email"`
}

// HandlePasswordReset emails a reset link. The response is the same whether or not the
// address belongs to an account.
func HandlePasswordReset(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PasswordResetInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := deps.Provider.SendPasswordReset(r.Context(), input.Email); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

type PasswordResetConfirmInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandlePasswordResetConfirm sets a new password from an emailed token.
func HandlePasswordResetConfirm(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PasswordResetConfirmInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := deps.Provider.ResetPassword(r.Context(), input.Token, input.NewPassword); err != nil {
			logx.Warn("password reset confirm failed", "error", err)
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
