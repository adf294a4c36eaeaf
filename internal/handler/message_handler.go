package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

// HandleListMessages returns the timeline of a chat once, with day separators computed in the
// zone named by ?tz=.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		chatID := chi.URLParam(r, "chatID")
		if chatID == "" {
			respondMissingParam(w, r)
			return
		}

		entries, err := deps.Feed.Load(r.Context(), session, chatID, deps.location(r))
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"chatId":  chatID,
			"entries": entries,
		})
	}
}

type MessageTextInput struct {
	Text string `json:"text"`
}

// HandleSendMessage submits text to a chat through the moderation gate.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		chatID := chi.URLParam(r, "chatID")
		if chatID == "" {
			respondMissingParam(w, r)
			return
		}

		var input MessageTextInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		msg, err := deps.Composer.Submit(r.Context(), session, chatID, input.Text)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, msg)
	}
}

// HandleEditMessage replaces the text of one of the caller's messages.
func HandleEditMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		chatID, messageID := chi.URLParam(r, "chatID"), chi.URLParam(r, "messageID")
		if chatID == "" || messageID == "" {
			respondMissingParam(w, r)
			return
		}

		var input MessageTextInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		msg, err := deps.Editor.Edit(r.Context(), session, chatID, messageID, input.Text)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, msg)
	}
}

// HandleDeleteMessage removes one of the caller's messages.
func HandleDeleteMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		chatID, messageID := chi.URLParam(r, "chatID"), chi.URLParam(r, "messageID")
		if chatID == "" || messageID == "" {
			respondMissingParam(w, r)
			return
		}

		if err := deps.Editor.Delete(r.Context(), session, chatID, messageID); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"id": messageID,
		})
	}
}
