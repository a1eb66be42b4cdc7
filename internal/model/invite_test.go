package model

import (
	"testing"
	"time"
)

func TestInviteCodeValidAt(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		code InviteCode
		want bool
	}{
		{
			name: "fresh",
			code: InviteCode{Code: "ab12cd34", Used: 0, Limit: 1, ExpiresAt: now.Add(time.Hour)},
			want: true,
		},
		{
			name: "expired",
			code: InviteCode{Code: "ab12cd34", Used: 0, Limit: 1, ExpiresAt: now.Add(-time.Minute)},
			want: false,
		},
		{
			name: "exhausted",
			code: InviteCode{Code: "ab12cd34", Used: 1, Limit: 1, ExpiresAt: now.Add(time.Hour)},
			want: false,
		},
		{
			name: "partially_used_open",
			code: InviteCode{Code: "ab12cd34", Used: 42, Limit: 100, ExpiresAt: now.Add(time.Hour)},
			want: true,
		},
		{
			name: "expires_exactly_now",
			code: InviteCode{Code: "ab12cd34", Used: 0, Limit: 1, ExpiresAt: now},
			want: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.code.ValidAt(now); got != test.want {
				t.Fatalf("ValidAt = %v, want %v", got, test.want)
			}
		})
	}
}

func TestInviteCodeRemaining(t *testing.T) {
	tests := []struct {
		name string
		code InviteCode
		want int
	}{
		{"unused", InviteCode{Used: 0, Limit: 100}, 100},
		{"partial", InviteCode{Used: 30, Limit: 100}, 70},
		{"exhausted", InviteCode{Used: 100, Limit: 100}, 0},
		{"over_limit_clamped", InviteCode{Used: 101, Limit: 100}, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.code.Remaining(); got != test.want {
				t.Fatalf("Remaining = %d, want %d", got, test.want)
			}
		})
	}
}

func TestBundleView(t *testing.T) {
	now := time.Now().UTC()
	bundle := InviteBundle{
		Identity: "12345",
		Restricted: []InviteCode{
			{Code: "aaaa1111", Used: 0, Limit: 1, ExpiresAt: now.Add(time.Hour)},
			{Code: "bbbb2222", Used: 1, Limit: 1, ExpiresAt: now.Add(time.Hour)},
			{Code: "cccc3333", Used: 0, Limit: 1, ExpiresAt: now.Add(-time.Hour)},
		},
		Open: InviteCode{Code: "dddd4444", Used: 25, Limit: 100, ExpiresAt: now.Add(time.Hour)},
	}

	restricted, open := bundle.View(now)

	if len(restricted) != 3 {
		t.Fatalf("expected 3 restricted views, got %d", len(restricted))
	}
	if !restricted[0].Valid {
		t.Error("fresh restricted code should be valid")
	}
	if restricted[1].Valid {
		t.Error("used restricted code should be invalid")
	}
	if restricted[2].Valid {
		t.Error("expired restricted code should be invalid")
	}
	for i, v := range restricted {
		if v.Remaining != nil {
			t.Errorf("restricted[%d] should not report remaining", i)
		}
	}

	if !open.Valid {
		t.Error("open code should be valid")
	}
	if open.Remaining == nil || *open.Remaining != 75 {
		t.Errorf("open remaining = %v, want 75", open.Remaining)
	}
}

func TestInviteCategoryIsValid(t *testing.T) {
	if !CategoryRestricted.IsValid() || !CategoryOpen.IsValid() {
		t.Error("known categories should be valid")
	}
	if InviteCategory("vip").IsValid() {
		t.Error("unknown category should be invalid")
	}
	if InviteCategory("").IsValid() {
		t.Error("empty category should be invalid")
	}
}
