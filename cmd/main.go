/*
Package main is the entry point for the relaychat server.

It is responsible for loading configuration, initializing the global logging system,
opening the message store and the change bus, wiring the identity, chat, message, and
realtime services into the HTTP router, and gracefully handling operating system interrupt
signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/db"
	"relaychat/internal/app/identity"
	"relaychat/internal/app/live"
	"relaychat/internal/app/memdb"
	"relaychat/internal/app/message"
	"relaychat/internal/app/moderation"
	"relaychat/internal/app/realtime"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/user"
	"relaychat/internal/configs"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/logx"
)

const sessionSweepInterval = time.Minute

// repositories is what a store backend provides.
type repositories interface {
	user.Repository
	chat.Repository
	message.Repository
	identity.AccountRepository
}

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Bool("redis", cfg.RedisURL != "").
		Bool("moderation", cfg.ModerationEnabled()).
		Bool("storage", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	bus := openBus(cfg)
	hub := live.NewHub(bus)
	if err := hub.Start(ctx); err != nil {
		logx.Fatal(err, "Failed to start live hub")
	}

	var gate moderation.Gate
	if cfg.ModerationEnabled() {
		llmGate, err := moderation.NewLLMGate(moderation.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize moderation gate")
		}
		gate = llmGate
	} else {
		logx.Warn("LLM_API_KEY is not set; messages are not moderated.")
	}

	var storageService storage.StorageService
	if cfg.StorageEnabled() {
		storageService, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3Region:          cfg.S3Region,
			PublicURL:         cfg.PublicAssetURL,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage service")
		}
	}

	defaultLocation, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		logx.Fatal(err, "Failed to load default timezone", "tz", cfg.DefaultTimezone)
	}

	sessions := identity.NewSessions()
	go sessions.RunJanitor(ctx, sessionSweepInterval)

	provider := identity.NewProvider(store, user.NewRegistrar(store, hub), sessions, identity.NewLogMailer(), identity.Config{
		JWTSecret:  cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
		ResetTTL:   cfg.PasswordResetTTL,
		ResetURL:   cfg.PasswordResetURL,
	})

	registry := chat.NewRegistry(store, store, hub)
	feed := message.NewFeed(registry, store, hub)
	composer := message.NewComposer(registry, store, gate, hub)
	editor := message.NewEditor(registry, store, gate, hub)

	deps := &handler.AppDeps{
		Config:          cfg,
		Provider:        provider,
		Directory:       user.NewDirectory(store),
		Registry:        registry,
		Feed:            feed,
		Composer:        composer,
		Editor:          editor,
		Gateway:         realtime.NewGateway(registry, feed, composer, editor),
		StorageService:  storageService,
		DefaultLocation: defaultLocation,
	}

	// Setup HTTP server and routes
	router, stopLimiters := handler.Router(deps)
	defer stopLimiters()

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("relaychat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	hub.Shutdown()
	if err := bus.Close(); err != nil {
		logx.Error(err, "Failed to close live bus")
	}

	logx.Info("Server gracefully stopped.", "open_sessions", sessions.Count())
}

// openStore returns the configured repositories and a function that releases them.
func openStore(ctx context.Context, cfg *configs.AppConfig) (repositories, func()) {
	if cfg.StoreDriver == configs.StoreDriverMemory {
		logx.Warn("Using the in-memory store; data is lost on restart.")
		return memdb.New(), func() {}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}

	store := db.NewStore(pool)
	if err := store.EnsureChannels(ctx); err != nil {
		pool.Close()
		logx.Fatal(err, "Failed to seed channels")
	}

	return store, pool.Close
}

// openBus connects to Redis when configured, so several instances share change notes.
func openBus(cfg *configs.AppConfig) live.Bus {
	if cfg.RedisURL == "" {
		return live.NewLocalBus()
	}

	bus, err := live.NewRedisBus(cfg.RedisURL, cfg.RedisChannel)
	if err != nil {
		logx.Fatal(err, "Failed to connect to Redis")
	}
	return bus
}
