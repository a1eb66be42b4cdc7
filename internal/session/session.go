// Package session provides cookie session storage: a random bearer
// token mapped to an identity with a TTL. It also holds the short
// lived state of in-flight OAuth logins (state -> PKCE verifier).
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors for session operations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLoginNotFound   = errors.New("login state not found")
)

// loginTTL bounds how long an OAuth handshake may stay in flight.
const loginTTL = 10 * time.Minute

// Session is an authenticated browser session.
type Session struct {
	Token     string    `json:"token"`
	Identity  string    `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login is the server-side state of an in-flight OAuth handshake,
// keyed by the opaque state parameter.
type Login struct {
	Verifier  string    `json:"verifier"`
	CreatedAt time.Time `json:"created_at"`
}

// Store maps session tokens to identities.
type Store interface {
	// Create mints a new session token for identity.
	Create(ctx context.Context, identity string, ttl time.Duration) (*Session, error)
	// Resolve returns the identity behind token or ErrSessionNotFound.
	Resolve(ctx context.Context, token string) (string, error)
	// Delete drops a session. Unknown tokens are not an error.
	Delete(ctx context.Context, token string) error

	// PutLogin stores in-flight OAuth state.
	PutLogin(ctx context.Context, state string, login *Login) error
	// TakeLogin returns and removes the login state for state, or
	// ErrLoginNotFound. A state value cannot be replayed.
	TakeLogin(ctx context.Context, state string) (*Login, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// NewToken returns a fresh opaque session token.
func NewToken() string {
	return uuid.New().String()
}
