package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/metrics"
	"github.com/gatepass/gatepass/internal/middleware"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/service"
	"github.com/gatepass/gatepass/internal/session"
	"github.com/gatepass/gatepass/internal/store"
)

// AuthHandler drives the Twitter login flow and session lifecycle.
type AuthHandler struct {
	twitter    *auth.TwitterClient
	users      store.UserStore
	invites    *service.InviteService
	sessions   session.Store
	metrics    metrics.Recorder
	logger     *slog.Logger
	appURL     string
	sessionTTL time.Duration
	secure     bool
	now        func() time.Time
}

// AuthHandlerConfig holds dependencies for the AuthHandler.
type AuthHandlerConfig struct {
	Twitter    *auth.TwitterClient
	Users      store.UserStore
	Invites    *service.InviteService
	Sessions   session.Store
	Metrics    metrics.Recorder
	Logger     *slog.Logger
	AppURL     string
	SessionTTL time.Duration
	// Secure marks the session cookie Secure; true in production.
	Secure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthHandler{
		twitter:    cfg.Twitter,
		users:      cfg.Users,
		invites:    cfg.Invites,
		sessions:   cfg.Sessions,
		metrics:    recorder,
		logger:     cfg.Logger,
		appURL:     cfg.AppURL,
		sessionTTL: cfg.SessionTTL,
		secure:     cfg.Secure,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Login starts the authorization-code-with-PKCE flow.
// GET /auth/twitter/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	verifier := h.twitter.NewVerifier()

	login := &session.Login{Verifier: verifier, CreatedAt: h.now()}
	if err := h.sessions.PutLogin(r.Context(), state, login); err != nil {
		h.logger.Error("failed to store login state", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	http.Redirect(w, r, h.twitter.AuthCodeURL(state, verifier), http.StatusFound)
}

// Callback completes the OAuth flow: exchanges the code, snapshots
// the profile and eligibility, ensures the invite bundle and sets the
// session cookie.
// GET /auth/twitter/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		h.logger.Warn("oauth callback denied", "error", errCode)
		writeError(w, http.StatusBadRequest, "OAUTH_DENIED", "Authorization was denied")
		return
	}

	state := query.Get("state")
	code := query.Get("code")
	if state == "" || code == "" {
		writeError(w, http.StatusBadRequest, "INVALID_CALLBACK", "Missing state or code")
		return
	}

	login, err := h.sessions.TakeLogin(r.Context(), state)
	if err != nil {
		if errors.Is(err, session.ErrLoginNotFound) {
			writeError(w, http.StatusBadRequest, "INVALID_STATE", "Unknown or expired login state")
			return
		}
		h.logger.Error("failed to load login state", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	tokens, err := h.twitter.Exchange(r.Context(), code, login.Verifier)
	if err != nil {
		h.handleUpstreamError(w, err, "token exchange failed")
		return
	}

	identity, profile, err := h.twitter.FetchProfile(r.Context(), tokens.AccessToken)
	if err != nil {
		h.handleUpstreamError(w, err, "profile fetch failed")
		return
	}

	now := h.now()
	user := &model.User{
		Identity:  identity,
		Profile:   *profile,
		Tokens:    *tokens,
		Eligible:  auth.Eligible(profile, now),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Re-login keeps the original record id and creation time; the
	// profile, tokens and eligibility snapshot are replaced.
	if existing, err := h.users.GetUser(r.Context(), identity); err == nil {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
	} else if errors.Is(err, store.ErrUserNotFound) {
		user.ID = ulid.Make().String()
	} else {
		h.logger.Error("failed to load user", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	if err := h.users.UpsertUser(r.Context(), user); err != nil {
		h.logger.Error("failed to store user", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	if _, err := h.invites.Ensure(r.Context(), identity); err != nil {
		h.logger.Error("failed to ensure invite bundle", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	sess, err := h.sessions.Create(r.Context(), identity, h.sessionTTL)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.metrics.IncLogin()
	h.logger.Info("login_completed",
		"identity", identity,
		"username", profile.Username,
		"eligible", user.Eligible,
	)

	http.Redirect(w, r, h.appURL, http.StatusFound)
}

// Logout drops the current session.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Error("failed to delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// handleUpstreamError maps provider failures to 502 responses.
func (h *AuthHandler) handleUpstreamError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, auth.ErrUpstreamTransport) {
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_TRANSPORT_ERROR", "Authentication provider is unavailable")
		return
	}
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}
