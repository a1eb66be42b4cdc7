// Package store provides the storage layer behind the invite and
// claim system. Business logic depends only on the Store interfaces;
// backends (in-memory, PostgreSQL) are selected at startup.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gatepass/gatepass/internal/model"
)

// Common errors for store operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrClaimNotFound  = errors.New("claim not found")
	ErrClaimExists    = errors.New("claim already recorded")
	ErrBundleNotFound = errors.New("invite bundle not found")
	ErrCodeNotFound   = errors.New("invite code not found")
	ErrCodeExpired    = errors.New("invite code expired")
	ErrCodeExhausted  = errors.New("invite code exhausted")
)

// Redemption is the result of successfully redeeming a code.
type Redemption struct {
	Owner    string
	Category model.InviteCategory
	Used     int
	Limit    int
}

// UserStore owns the mapping identity -> user record.
type UserStore interface {
	// UpsertUser creates or replaces the record for user.Identity.
	UpsertUser(ctx context.Context, user *model.User) error
	// GetUser returns the record for identity or ErrUserNotFound.
	GetUser(ctx context.Context, identity string) (*model.User, error)
}

// ClaimStore owns the one-time claim records.
type ClaimStore interface {
	// CreateClaim records a claim. Returns ErrClaimExists if the
	// identity already has one; claims are never updated.
	CreateClaim(ctx context.Context, claim *model.Claim) error
	// GetClaim returns the claim for identity or ErrClaimNotFound.
	GetClaim(ctx context.Context, identity string) (*model.Claim, error)
}

// InviteStore owns invite bundles and code redemption.
type InviteStore interface {
	// GetBundle returns the bundle for identity or ErrBundleNotFound.
	GetBundle(ctx context.Context, identity string) (*model.InviteBundle, error)
	// PutBundle creates or wholly replaces the bundle for
	// bundle.Identity. Codes from a replaced bundle become
	// unresolvable.
	PutBundle(ctx context.Context, bundle *model.InviteBundle) error
	// CodeExists reports whether code is present in any bundle.
	CodeExists(ctx context.Context, code string) (bool, error)
	// RedeemCode finds code across all bundles and increments its
	// usage if it is redeemable at now. The validate-and-increment
	// is atomic within the backend. Returns ErrCodeNotFound,
	// ErrCodeExpired or ErrCodeExhausted otherwise.
	RedeemCode(ctx context.Context, code string, now time.Time) (*Redemption, error)
}

// Store is the full storage surface used by the services.
type Store interface {
	UserStore
	ClaimStore
	InviteStore

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close()
}
