package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gatepass/gatepass/internal/model"
)

func testBundle(identity string, now time.Time) *model.InviteBundle {
	return &model.InviteBundle{
		Identity: identity,
		Restricted: []model.InviteCode{
			{Code: "aaaa0001", Used: 0, Limit: 1, ExpiresAt: now.Add(model.BundleTTL)},
			{Code: "aaaa0002", Used: 0, Limit: 1, ExpiresAt: now.Add(model.BundleTTL)},
			{Code: "aaaa0003", Used: 0, Limit: 1, ExpiresAt: now.Add(model.BundleTTL)},
		},
		Open:      model.InviteCode{Code: "bbbb0001", Used: 0, Limit: 100, ExpiresAt: now.Add(model.BundleTTL)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.GetUser(ctx, "12345"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	user := &model.User{
		ID:       "01HQ0000000000000000000000",
		Identity: "12345",
		Profile:  model.Profile{Username: "alice", Followers: 250},
		Eligible: true,
	}
	if err := m.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	got, err := m.GetUser(ctx, "12345")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Profile.Username != "alice" || !got.Eligible {
		t.Fatalf("unexpected user: %+v", got)
	}

	// Mutating the returned copy must not touch store state.
	got.Eligible = false
	again, _ := m.GetUser(ctx, "12345")
	if !again.Eligible {
		t.Error("store state aliased by returned copy")
	}
}

func TestMemoryClaimWriteOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	if _, err := m.GetClaim(ctx, "12345"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}

	claim := &model.Claim{Identity: "12345", ClaimedAt: now}
	if err := m.CreateClaim(ctx, claim); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	if err := m.CreateClaim(ctx, claim); !errors.Is(err, ErrClaimExists) {
		t.Fatalf("expected ErrClaimExists, got %v", err)
	}

	got, err := m.GetClaim(ctx, "12345")
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if !got.ClaimedAt.Equal(now) {
		t.Fatalf("claimed_at = %v, want %v", got.ClaimedAt, now)
	}
}

func TestMemoryBundleReplacementInvalidatesOldCodes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	if err := m.PutBundle(ctx, testBundle("12345", now)); err != nil {
		t.Fatalf("PutBundle: %v", err)
	}

	replacement := testBundle("12345", now)
	replacement.Restricted[0].Code = "cccc0001"
	replacement.Restricted[1].Code = "cccc0002"
	replacement.Restricted[2].Code = "cccc0003"
	replacement.Open.Code = "dddd0001"
	if err := m.PutBundle(ctx, replacement); err != nil {
		t.Fatalf("PutBundle replacement: %v", err)
	}

	for _, old := range []string{"aaaa0001", "aaaa0002", "aaaa0003", "bbbb0001"} {
		if _, err := m.RedeemCode(ctx, old, now); !errors.Is(err, ErrCodeNotFound) {
			t.Errorf("old code %s: expected ErrCodeNotFound, got %v", old, err)
		}
	}

	if _, err := m.RedeemCode(ctx, "cccc0001", now); err != nil {
		t.Errorf("new code should redeem: %v", err)
	}
}

func TestMemoryRedeemCode(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("not_found", func(t *testing.T) {
		m := NewMemory()
		if _, err := m.RedeemCode(ctx, "nope", now); !errors.Is(err, ErrCodeNotFound) {
			t.Fatalf("expected ErrCodeNotFound, got %v", err)
		}
	})

	t.Run("restricted_single_use", func(t *testing.T) {
		m := NewMemory()
		if err := m.PutBundle(ctx, testBundle("12345", now)); err != nil {
			t.Fatal(err)
		}

		red, err := m.RedeemCode(ctx, "aaaa0001", now)
		if err != nil {
			t.Fatalf("first redeem: %v", err)
		}
		if red.Owner != "12345" || red.Category != model.CategoryRestricted {
			t.Fatalf("unexpected redemption: %+v", red)
		}
		if red.Used != 1 || red.Limit != 1 {
			t.Fatalf("used/limit = %d/%d, want 1/1", red.Used, red.Limit)
		}

		if _, err := m.RedeemCode(ctx, "aaaa0001", now); !errors.Is(err, ErrCodeExhausted) {
			t.Fatalf("second redeem: expected ErrCodeExhausted, got %v", err)
		}
	})

	t.Run("open_multi_use", func(t *testing.T) {
		m := NewMemory()
		if err := m.PutBundle(ctx, testBundle("12345", now)); err != nil {
			t.Fatal(err)
		}

		for i := 1; i <= 3; i++ {
			red, err := m.RedeemCode(ctx, "bbbb0001", now)
			if err != nil {
				t.Fatalf("redeem %d: %v", i, err)
			}
			if red.Category != model.CategoryOpen || red.Used != i {
				t.Fatalf("redeem %d: %+v", i, red)
			}
		}

		bundle, err := m.GetBundle(ctx, "12345")
		if err != nil {
			t.Fatal(err)
		}
		if bundle.Open.Used != 3 {
			t.Fatalf("open used = %d, want 3", bundle.Open.Used)
		}
	})

	t.Run("expired", func(t *testing.T) {
		m := NewMemory()
		bundle := testBundle("12345", now)
		bundle.Restricted[0].ExpiresAt = now.Add(-time.Minute)
		if err := m.PutBundle(ctx, bundle); err != nil {
			t.Fatal(err)
		}

		if _, err := m.RedeemCode(ctx, "aaaa0001", now); !errors.Is(err, ErrCodeExpired) {
			t.Fatalf("expected ErrCodeExpired, got %v", err)
		}

		got, _ := m.GetBundle(ctx, "12345")
		if got.Restricted[0].Used != 0 {
			t.Error("failed redeem must not change used")
		}
	})
}

func TestMemoryRedeemNeverExceedsLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	bundle := testBundle("12345", now)
	bundle.Open.Limit = 5
	if err := m.PutBundle(ctx, bundle); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	successes := make(chan struct{}, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.RedeemCode(ctx, "bbbb0001", now); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 5 {
		t.Fatalf("successful redemptions = %d, want 5", count)
	}

	got, _ := m.GetBundle(ctx, "12345")
	if got.Open.Used != 5 {
		t.Fatalf("open used = %d, want 5", got.Open.Used)
	}
}

func TestMemoryCodeExists(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	if err := m.PutBundle(ctx, testBundle("12345", now)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		code string
		want bool
	}{
		{"aaaa0002", true},
		{"bbbb0001", true},
		{"ffff9999", false},
	}
	for _, test := range tests {
		got, err := m.CodeExists(ctx, test.code)
		if err != nil {
			t.Fatalf("CodeExists(%s): %v", test.code, err)
		}
		if got != test.want {
			t.Errorf("CodeExists(%s) = %v, want %v", test.code, got, test.want)
		}
	}
}
