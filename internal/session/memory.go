package session

import (
	"context"
	"sync"
	"time"
)

// Memory is the default single-process session store.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logins   map[string]*Login
}

// NewMemory creates an empty in-memory session store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*Session),
		logins:   make(map[string]*Login),
	}
}

// Create mints a new session token for identity.
func (m *Memory) Create(ctx context.Context, identity string, ttl time.Duration) (*Session, error) {
	s := &Session{
		Token:     NewToken(),
		Identity:  identity,
		ExpiresAt: time.Now().Add(ttl),
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	return s, nil
}

// Resolve returns the identity behind token.
// Expired sessions are dropped on access.
func (m *Memory) Resolve(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return "", ErrSessionNotFound
	}
	if time.Now().After(s.ExpiresAt) {
		delete(m.sessions, token)
		return "", ErrSessionNotFound
	}

	return s.Identity, nil
}

// Delete drops a session.
func (m *Memory) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

// PutLogin stores in-flight OAuth state.
func (m *Memory) PutLogin(ctx context.Context, state string, login *Login) error {
	l := *login
	m.mu.Lock()
	m.logins[state] = &l
	m.mu.Unlock()
	return nil
}

// TakeLogin returns and removes the login state for state.
func (m *Memory) TakeLogin(ctx context.Context, state string) (*Login, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.logins[state]
	if !ok {
		return nil, ErrLoginNotFound
	}
	delete(m.logins, state)

	if time.Since(l.CreatedAt) > loginTTL {
		return nil, ErrLoginNotFound
	}

	return l, nil
}

// Ping always succeeds for the in-memory backend.
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error {
	return nil
}
