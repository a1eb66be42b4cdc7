// Package service provides business logic for the application.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gatepass/gatepass/internal/metrics"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/store"
)

// Service errors.
var (
	ErrInvalidCategory = errors.New("invalid invite category")
	ErrCodeNotFound    = errors.New("invite code not found")
	ErrCodeExpired     = errors.New("invite code expired")
	ErrCodeExhausted   = errors.New("invite code exhausted")
	ErrNotEligible     = errors.New("identity is not eligible")
	ErrAlreadyClaimed  = errors.New("identity has already claimed")
)

const (
	// codeByteLen yields 8 hex characters per code.
	codeByteLen    = 4
	maxCodeRetries = 3
)

// InviteService owns the invite bundle lifecycle and code redemption.
type InviteService struct {
	invites store.InviteStore
	locks   *Locks
	metrics metrics.Recorder
	now     func() time.Time
}

// NewInviteService creates a new InviteService. The lock table is
// shared with the claim service so per-identity serialization covers
// both paths.
func NewInviteService(invites store.InviteStore, locks *Locks, recorder metrics.Recorder) *InviteService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &InviteService{
		invites: invites,
		locks:   locks,
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Ensure returns the identity's bundle, lazily creating one with
// three restricted codes and one open code on first access.
func (s *InviteService) Ensure(ctx context.Context, identity string) (*model.InviteBundle, error) {
	release := s.locks.Acquire(identity)
	defer release()

	return s.ensureLocked(ctx, identity)
}

// Regenerate replaces one category of the identity's bundle with
// fresh codes: usage reset to zero, expiry reset to now plus seven
// days. Codes from the replaced category become unresolvable.
func (s *InviteService) Regenerate(ctx context.Context, identity string, category model.InviteCategory) (*model.InviteBundle, error) {
	if !category.IsValid() {
		return nil, ErrInvalidCategory
	}

	release := s.locks.Acquire(identity)
	defer release()

	bundle, err := s.ensureLocked(ctx, identity)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch category {
	case model.CategoryRestricted:
		restricted, err := s.freshRestricted(ctx, now)
		if err != nil {
			return nil, err
		}
		bundle.Restricted = restricted
	case model.CategoryOpen:
		open, err := s.freshOpen(ctx, now)
		if err != nil {
			return nil, err
		}
		bundle.Open = *open
	}
	bundle.UpdatedAt = now

	if err := s.invites.PutBundle(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to store bundle: %w", err)
	}

	s.metrics.IncBundleRegenerated(string(category))

	return bundle, nil
}

// ViewOutput is the read-only projection of a bundle.
type ViewOutput struct {
	Restricted []model.CodeView
	Open       model.CodeView
}

// View returns the identity's bundle as a read-only projection,
// creating the bundle first if absent.
func (s *InviteService) View(ctx context.Context, identity string) (*ViewOutput, error) {
	bundle, err := s.Ensure(ctx, identity)
	if err != nil {
		return nil, err
	}

	restricted, open := bundle.View(s.now())
	return &ViewOutput{Restricted: restricted, Open: open}, nil
}

// RedeemOutput describes a successful redemption.
type RedeemOutput struct {
	Owner     string
	Category  model.InviteCategory
	Remaining *int // open category only
}

// Redeem locates a code across all bundles and consumes one use.
// The code does not carry its owner; any caller may present it.
func (s *InviteService) Redeem(ctx context.Context, code string) (*RedeemOutput, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRedeemDuration(time.Since(start))
	}()

	redemption, err := s.invites.RedeemCode(ctx, code, s.now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCodeNotFound):
			s.metrics.IncRedemption("not_found")
			return nil, ErrCodeNotFound
		case errors.Is(err, store.ErrCodeExpired):
			s.metrics.IncRedemption("expired")
			return nil, ErrCodeExpired
		case errors.Is(err, store.ErrCodeExhausted):
			s.metrics.IncRedemption("exhausted")
			return nil, ErrCodeExhausted
		default:
			return nil, fmt.Errorf("failed to redeem code: %w", err)
		}
	}

	s.metrics.IncRedemption("success")

	out := &RedeemOutput{
		Owner:    redemption.Owner,
		Category: redemption.Category,
	}
	if redemption.Category == model.CategoryOpen {
		remaining := redemption.Limit - redemption.Used
		if remaining < 0 {
			remaining = 0
		}
		out.Remaining = &remaining
	}

	return out, nil
}

// ensureLocked returns the existing bundle or creates a fresh one.
// Caller must hold the identity lock.
func (s *InviteService) ensureLocked(ctx context.Context, identity string) (*model.InviteBundle, error) {
	bundle, err := s.invites.GetBundle(ctx, identity)
	if err == nil {
		return bundle, nil
	}
	if !errors.Is(err, store.ErrBundleNotFound) {
		return nil, fmt.Errorf("failed to get bundle: %w", err)
	}

	return s.resetLocked(ctx, identity)
}

// resetLocked writes a completely fresh bundle for identity.
// Caller must hold the identity lock.
func (s *InviteService) resetLocked(ctx context.Context, identity string) (*model.InviteBundle, error) {
	now := s.now()

	restricted, err := s.freshRestricted(ctx, now)
	if err != nil {
		return nil, err
	}
	open, err := s.freshOpen(ctx, now)
	if err != nil {
		return nil, err
	}

	bundle := &model.InviteBundle{
		Identity:   identity,
		Restricted: restricted,
		Open:       *open,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.invites.PutBundle(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to store bundle: %w", err)
	}

	s.metrics.IncBundleCreated()

	return bundle, nil
}

// freshRestricted generates the restricted code set.
func (s *InviteService) freshRestricted(ctx context.Context, now time.Time) ([]model.InviteCode, error) {
	codes := make([]model.InviteCode, 0, model.RestrictedPerBundle)
	for i := 0; i < model.RestrictedPerBundle; i++ {
		code, err := s.generateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		codes = append(codes, model.InviteCode{
			Code:      code,
			Used:      0,
			Limit:     model.RestrictedUseLimit,
			ExpiresAt: now.Add(model.BundleTTL),
		})
	}
	return codes, nil
}

// freshOpen generates the single open code.
func (s *InviteService) freshOpen(ctx context.Context, now time.Time) (*model.InviteCode, error) {
	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	return &model.InviteCode{
		Code:      code,
		Used:      0,
		Limit:     model.OpenUseLimit,
		ExpiresAt: now.Add(model.BundleTTL),
	}, nil
}

// generateUniqueCode generates a code with collision retry.
func (s *InviteService) generateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeRetries; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		exists, err := s.invites.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("failed to generate unique code after retries")
}

// generateCode returns 8 hex characters from crypto/rand.
func generateCode() (string, error) {
	b := make([]byte, codeByteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return hex.EncodeToString(b), nil
}
