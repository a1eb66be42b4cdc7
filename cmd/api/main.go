// Package main is the entrypoint for the Gatepass API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/config"
	"github.com/gatepass/gatepass/internal/handler"
	"github.com/gatepass/gatepass/internal/metrics"
	"github.com/gatepass/gatepass/internal/middleware"
	"github.com/gatepass/gatepass/internal/server"
	"github.com/gatepass/gatepass/internal/service"
	"github.com/gatepass/gatepass/internal/session"
	"github.com/gatepass/gatepass/internal/store"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize storage backend
	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		os.Exit(1)
	}
	defer st.Close()

	// Initialize session backend
	sessions, err := newSessions(ctx, cfg, logger)
	if err != nil {
		os.Exit(1)
	}
	defer sessions.Close()

	// Initialize services
	metricsRecorder := metrics.NewNoop()
	locks := service.NewLocks()
	inviteService := service.NewInviteService(st, locks, metricsRecorder)
	claimService := service.NewClaimService(st, st, inviteService, locks, metricsRecorder)

	// Initialize OAuth client
	twitter := auth.NewTwitterClient(
		cfg.TwitterClientID,
		cfg.TwitterClientSecret,
		cfg.TwitterRedirectURL,
	)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"store":    st,
		"sessions": sessions,
	}, logger)
	authHandler := handler.NewAuthHandler(handler.AuthHandlerConfig{
		Twitter:    twitter,
		Users:      st,
		Invites:    inviteService,
		Sessions:   sessions,
		Metrics:    metricsRecorder,
		Logger:     logger,
		AppURL:     cfg.AppURL,
		SessionTTL: cfg.SessionTTL,
		Secure:     cfg.IsProduction(),
	})
	meHandler := handler.NewMeHandler(st, claimService, logger)
	claimHandler := handler.NewClaimHandler(claimService, logger)
	inviteHandler := handler.NewInviteHandler(inviteService, logger)

	// Setup router
	r := setupRouter(h, healthHandler, authHandler, meHandler, claimHandler, inviteHandler, sessions, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"app_url", cfg.AppURL,
		"env", cfg.AppEnv,
		"store_backend", cfg.StoreBackend,
		"session_backend", cfg.SessionBackend,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newStore selects and connects the configured storage backend.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Info("using in-memory store")
		return store.NewMemory(), nil
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, err
	}
	logger.Info("connected to database")
	return pg, nil
}

// newSessions selects and connects the configured session backend.
func newSessions(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.SessionBackend == config.BackendMemory {
		logger.Info("using in-memory sessions")
		return session.NewMemory(), nil
	}

	rd, err := session.NewRedis(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return nil, err
	}
	logger.Info("connected to Redis")
	return rd, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	meHandler *handler.MeHandler,
	claimHandler *handler.ClaimHandler,
	inviteHandler *handler.InviteHandler,
	sessions session.Store,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// OAuth flow (no auth required)
	r.Get("/auth/twitter/login", authHandler.Login)
	r.Get("/auth/twitter/callback", authHandler.Callback)
	r.Post("/auth/logout", authHandler.Logout)

	// Session middleware configuration
	sessionCfg := middleware.SessionConfig{
		Logger:   logger,
		Sessions: sessions,
	}

	// API routes (require a session)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(sessionCfg))

		r.Get("/me", meHandler.Me)
		r.Post("/claim", claimHandler.Claim)

		r.Route("/invites", func(r chi.Router) {
			r.Get("/", inviteHandler.List)
			r.Post("/{category}/regenerate", inviteHandler.Regenerate)
			r.Post("/use", inviteHandler.Use)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
