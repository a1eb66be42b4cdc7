package store

import (
	"context"
	"sync"
	"time"

	"github.com/gatepass/gatepass/internal/model"
)

// Memory is the default in-memory backend. All state lives in maps
// guarded by a single mutex; nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	claims  map[string]*model.Claim
	bundles map[string]*model.InviteBundle
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*model.User),
		claims:  make(map[string]*model.Claim),
		bundles: make(map[string]*model.InviteBundle),
	}
}

// UpsertUser creates or replaces the record for user.Identity.
func (m *Memory) UpsertUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := *user
	m.users[user.Identity] = &u
	return nil
}

// GetUser returns a copy of the record for identity.
func (m *Memory) GetUser(ctx context.Context, identity string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[identity]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// CreateClaim records a claim, failing if one already exists.
func (m *Memory) CreateClaim(ctx context.Context, claim *model.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.claims[claim.Identity]; ok {
		return ErrClaimExists
	}
	c := *claim
	m.claims[claim.Identity] = &c
	return nil
}

// GetClaim returns the claim for identity.
func (m *Memory) GetClaim(ctx context.Context, identity string) (*model.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	claim, ok := m.claims[identity]
	if !ok {
		return nil, ErrClaimNotFound
	}
	c := *claim
	return &c, nil
}

// GetBundle returns a copy of the bundle for identity.
func (m *Memory) GetBundle(ctx context.Context, identity string) (*model.InviteBundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bundle, ok := m.bundles[identity]
	if !ok {
		return nil, ErrBundleNotFound
	}
	return copyBundle(bundle), nil
}

// PutBundle creates or wholly replaces the bundle for its identity.
func (m *Memory) PutBundle(ctx context.Context, bundle *model.InviteBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bundles[bundle.Identity] = copyBundle(bundle)
	return nil
}

// CodeExists reports whether code is present in any bundle.
func (m *Memory) CodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, _, ok := m.findCode(code)
	return ok, nil
}

// RedeemCode validates and increments a code under one lock, so a
// concurrent redemption of the last use cannot overshoot the limit.
func (m *Memory) RedeemCode(ctx context.Context, code string, now time.Time) (*Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, bundle, ok := m.findCode(code)
	if !ok {
		return nil, ErrCodeNotFound
	}

	if !now.Before(c.ExpiresAt) {
		return nil, ErrCodeExpired
	}
	if c.Used >= c.Limit {
		return nil, ErrCodeExhausted
	}

	c.Used++
	bundle.UpdatedAt = now

	category := model.CategoryRestricted
	if c.Code == bundle.Open.Code {
		category = model.CategoryOpen
	}

	return &Redemption{
		Owner:    bundle.Identity,
		Category: category,
		Used:     c.Used,
		Limit:    c.Limit,
	}, nil
}

// Ping always succeeds for the in-memory backend.
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() {}

// findCode scans all bundles for an exact code match.
// Caller must hold the mutex.
func (m *Memory) findCode(code string) (*model.InviteCode, *model.InviteBundle, bool) {
	for _, bundle := range m.bundles {
		for i := range bundle.Restricted {
			if bundle.Restricted[i].Code == code {
				return &bundle.Restricted[i], bundle, true
			}
		}
		if bundle.Open.Code == code {
			return &bundle.Open, bundle, true
		}
	}
	return nil, nil, false
}

// copyBundle deep-copies a bundle so callers never alias store state.
func copyBundle(b *model.InviteBundle) *model.InviteBundle {
	out := *b
	out.Restricted = make([]model.InviteCode, len(b.Restricted))
	copy(out.Restricted, b.Restricted)
	return &out
}
