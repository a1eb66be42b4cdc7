package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemorySessionLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s, err := m.Create(ctx, "12345", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Token == "" {
		t.Fatal("expected non-empty token")
	}

	identity, err := m.Resolve(ctx, s.Token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if identity != "12345" {
		t.Fatalf("identity = %q, want 12345", identity)
	}

	if err := m.Delete(ctx, s.Token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Resolve(ctx, s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestMemorySessionExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s, err := m.Create(ctx, "12345", -time.Second)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := m.Resolve(ctx, s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for expired session, got %v", err)
	}
}

func TestMemoryResolveUnknownToken(t *testing.T) {
	m := NewMemory()
	if _, err := m.Resolve(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryLoginStateOneShot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	login := &Login{Verifier: "ver-abc", CreatedAt: time.Now()}
	if err := m.PutLogin(ctx, "state-1", login); err != nil {
		t.Fatalf("PutLogin: %v", err)
	}

	got, err := m.TakeLogin(ctx, "state-1")
	if err != nil {
		t.Fatalf("TakeLogin: %v", err)
	}
	if got.Verifier != "ver-abc" {
		t.Fatalf("verifier = %q", got.Verifier)
	}

	// Second take must fail: state values cannot be replayed.
	if _, err := m.TakeLogin(ctx, "state-1"); !errors.Is(err, ErrLoginNotFound) {
		t.Fatalf("expected ErrLoginNotFound on replay, got %v", err)
	}
}

func TestMemoryLoginStateExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	stale := &Login{Verifier: "ver-old", CreatedAt: time.Now().Add(-loginTTL - time.Minute)}
	if err := m.PutLogin(ctx, "state-2", stale); err != nil {
		t.Fatalf("PutLogin: %v", err)
	}

	if _, err := m.TakeLogin(ctx, "state-2"); !errors.Is(err, ErrLoginNotFound) {
		t.Fatalf("expected ErrLoginNotFound for stale login, got %v", err)
	}
}
