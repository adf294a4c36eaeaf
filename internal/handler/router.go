package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"relaychat/internal/pkg/limiter"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

const (
	AuthRate  = 0.2
	AuthBurst = 5
	WSRate    = 0.5
	WSBurst   = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
// The returned stop function releases the limiters' cleanup goroutines.
func Router(deps *AppDeps) (http.Handler, func()) {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(WSRate), WSBurst)

	stop := func() {
		authLimiter.Stop()
		wsLimiter.Stop()
	}

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Info("Health check endpoint hit")

		data := map[string]string{
			"status":  "ok",
			"service": "relaychat",
		}
		resp.RespondSuccess(w, r, data)
	})

	requireSession := RequireSession(deps.Provider)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.With(authLimiter.Middleware).Post("/signup", HandleSignUp(deps))
			auth.With(authLimiter.Middleware).Post("/signin", HandleSignIn(deps))
			auth.With(authLimiter.Middleware).Post("/password-reset", HandlePasswordReset(deps))
			auth.With(authLimiter.Middleware).Post("/password-reset/confirm", HandlePasswordResetConfirm(deps))
			auth.With(requireSession).Post("/signout", HandleSignOut(deps))
		})

		api.Group(func(private chi.Router) {
			private.Use(requireSession)

			private.Route("/user", func(user chi.Router) {
				user.Get("/profile", HandleGetUserProfile(deps))
				user.Post("/profile", HandleUpdateUserProfile(deps))
				user.Post("/avatar/presign", HandlePresignAvatarURL(deps))
				user.Post("/avatar", HandleUploadAvatar(deps))
			})

			private.Get("/users", HandleListUsers(deps))

			private.Route("/chats", func(chats chi.Router) {
				chats.Get("/channels", HandleListChannels(deps))
				chats.Get("/dms", HandleListDirectMessages(deps))
				chats.Post("/dms", HandleOpenDirectMessage(deps))

				chats.Route("/{chatID}/messages", func(messages chi.Router) {
					messages.Get("/", HandleListMessages(deps))
					messages.Post("/", HandleSendMessage(deps))
					messages.Patch("/{messageID}", HandleEditMessage(deps))
					messages.Delete("/{messageID}", HandleDeleteMessage(deps))
				})
			})
		})
	})

	r.With(wsLimiter.Middleware, requireSession).Get("/ws", HandleWebSocket(deps, wsUpgrader))

	return r, stop
}
