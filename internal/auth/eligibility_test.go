package auth

import (
	"context"
	"testing"
	"time"

	"github.com/gatepass/gatepass/internal/model"
)

func TestEligible(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		createdAt time.Time
		followers int
		want      bool
	}{
		{
			name:      "old_account_many_followers",
			createdAt: now.Add(-365 * 24 * time.Hour),
			followers: 5000,
			want:      true,
		},
		{
			name:      "exactly_30_days",
			createdAt: now.Add(-30 * 24 * time.Hour),
			followers: 101,
			want:      true,
		},
		{
			name:      "too_young",
			createdAt: now.Add(-29 * 24 * time.Hour),
			followers: 5000,
			want:      false,
		},
		{
			name:      "exactly_100_followers",
			createdAt: now.Add(-365 * 24 * time.Hour),
			followers: 100,
			want:      false,
		},
		{
			name:      "101_followers",
			createdAt: now.Add(-365 * 24 * time.Hour),
			followers: 101,
			want:      true,
		},
		{
			name:      "both_below_threshold",
			createdAt: now.Add(-time.Hour),
			followers: 3,
			want:      false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			profile := &model.Profile{
				CreatedAt: test.createdAt,
				Followers: test.followers,
			}
			if got := Eligible(profile, now); got != test.want {
				t.Fatalf("Eligible = %v, want %v", got, test.want)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := ContextWithIdentity(context.Background(), "12345")
	if got := IdentityFromContext(ctx); got != "12345" {
		t.Fatalf("identity = %q, want 12345", got)
	}
	if got := IdentityFromContext(context.Background()); got != "" {
		t.Fatalf("identity on empty context = %q, want empty", got)
	}
}
