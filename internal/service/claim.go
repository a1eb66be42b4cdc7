package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatepass/gatepass/internal/metrics"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/store"
)

// ClaimService gates the one-time claim behind the eligibility
// snapshot taken at login.
type ClaimService struct {
	users   store.UserStore
	claims  store.ClaimStore
	invites *InviteService
	locks   *Locks
	metrics metrics.Recorder
	now     func() time.Time
}

// NewClaimService creates a new ClaimService. locks must be the same
// table the invite service uses.
func NewClaimService(users store.UserStore, claims store.ClaimStore, invites *InviteService, locks *Locks, recorder metrics.Recorder) *ClaimService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ClaimService{
		users:   users,
		claims:  claims,
		invites: invites,
		locks:   locks,
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ClaimOutput confirms a successful claim.
type ClaimOutput struct {
	Identity  string
	ClaimedAt time.Time
	Bundle    *model.InviteBundle
}

// Claim performs the one-time claim for an identity: it records the
// claim and replaces the whole invite bundle in one serialized step.
// A repeat call fails with ErrAlreadyClaimed regardless of
// eligibility; an ineligible identity fails with ErrNotEligible and
// leaves no side effects.
func (s *ClaimService) Claim(ctx context.Context, identity string) (*ClaimOutput, error) {
	release := s.locks.Acquire(identity)
	defer release()

	// Prior claim wins over every other outcome.
	if _, err := s.claims.GetClaim(ctx, identity); err == nil {
		s.metrics.IncClaim("already_claimed")
		return nil, ErrAlreadyClaimed
	} else if !errors.Is(err, store.ErrClaimNotFound) {
		return nil, fmt.Errorf("failed to check claim: %w", err)
	}

	user, err := s.users.GetUser(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.metrics.IncClaim("not_eligible")
			return nil, ErrNotEligible
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.Eligible {
		s.metrics.IncClaim("not_eligible")
		return nil, ErrNotEligible
	}

	claim := &model.Claim{Identity: identity, ClaimedAt: s.now()}
	if err := s.claims.CreateClaim(ctx, claim); err != nil {
		if errors.Is(err, store.ErrClaimExists) {
			s.metrics.IncClaim("already_claimed")
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to record claim: %w", err)
	}

	// Full bundle replacement, both categories together. The claim
	// path is the only one that does this; Regenerate is per
	// category. resetLocked is safe here because the invite service
	// shares this identity's lock.
	bundle, err := s.invites.resetLocked(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to reset bundle: %w", err)
	}

	s.metrics.IncClaim("success")

	return &ClaimOutput{
		Identity:  identity,
		ClaimedAt: claim.ClaimedAt,
		Bundle:    bundle,
	}, nil
}

// Status reports whether the identity has claimed and when.
func (s *ClaimService) Status(ctx context.Context, identity string) (bool, *time.Time, error) {
	claim, err := s.claims.GetClaim(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrClaimNotFound) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return true, &claim.ClaimedAt, nil
}
