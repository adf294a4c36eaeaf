package handler

import (
	"net/http"

	"relaychat/internal/app/chat"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

// HandleListChannels returns the static channel list.
func HandleListChannels(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"channels": chat.Channels(),
		})
	}
}

// HandleListDirectMessages returns the caller's direct messages once. Live updates are
// delivered over the WebSocket as DM_LIST frames.
func HandleListDirectMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		dms, err := deps.Registry.ListDirectMessages(r.Context(), session)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"dms": dms,
		})
	}
}

type OpenDirectMessageInput struct {
	TargetID string `json:"targetId" validate:"required"`
}

// HandleOpenDirectMessage returns the DM between the caller and targetId, creating it on first
// use. A target equal to the caller opens the self DM.
func HandleOpenDirectMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		var input OpenDirectMessageInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}
		if err := req.Validate(&input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		dm, err := deps.Registry.OpenOrCreateDirectMessage(r.Context(), session, input.TargetID)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, dm)
	}
}

// respondMissingParam reports an empty path parameter.
func respondMissingParam(w http.ResponseWriter, r *http.Request) {
	resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
}
