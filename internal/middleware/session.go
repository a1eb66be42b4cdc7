package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/session"
)

// SessionCookie is the name of the session cookie set by the OAuth
// callback.
const SessionCookie = "gp_session"

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger   *slog.Logger
	Sessions session.Store
}

// Session returns a middleware that resolves the identity behind the
// session cookie and injects it into the request context. Requests
// without a resolvable identity get 401 NOT_CONNECTED.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				writeNotConnected(w)
				return
			}

			identity, err := cfg.Sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrSessionNotFound) {
					cfg.Logger.Error("session lookup failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
				writeNotConnected(w)
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeNotConnected writes the 401 error envelope.
func writeNotConnected(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "Not connected",
		"code":  "NOT_CONNECTED",
	})
}
