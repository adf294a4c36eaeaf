package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"relaychat/internal/pkg/logx"
)

// HandleWebSocket upgrades an authenticated request and hands the connection to the realtime
// gateway for the lifetime of the caller's session.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		loc := deps.location(r)
		uid := session.CurrentUser().ID

		logx.Info("Attempting to upgrade connection", "user_id", uid, "tz", loc.String())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "user_id", uid)
			return
		}

		deps.Gateway.Serve(r.Context(), conn, session, loc)
	}
}
