package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatepass/gatepass/internal/handler/dto"
	"github.com/gatepass/gatepass/internal/metrics"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/service"
	"github.com/gatepass/gatepass/internal/store"
)

func newClaimFixture(t *testing.T) (*ClaimHandler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	locks := service.NewLocks()
	invites := service.NewInviteService(mem, locks, metrics.NewNoop())
	claims := service.NewClaimService(mem, mem, invites, locks, metrics.NewNoop())
	return NewClaimHandler(claims, testLogger()), mem
}

func seedUser(t *testing.T, mem *store.Memory, identity string, eligible bool) {
	t.Helper()
	now := time.Now().UTC()
	err := mem.UpsertUser(context.Background(), &model.User{
		ID:        "01HV0000000000000000000000",
		Identity:  identity,
		Eligible:  eligible,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestClaimHandler_Claim(t *testing.T) {
	h, mem := newClaimFixture(t)
	seedUser(t, mem, "user-1", true)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/claim", nil), "user-1")
	rec := httptest.NewRecorder()

	h.Claim(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response dto.ClaimResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Claimed {
		t.Error("claimed = false, want true")
	}
	if response.ClaimedAt.IsZero() {
		t.Error("claimed_at is zero")
	}
	if len(response.Invites.Restricted) != 3 {
		t.Errorf("expected 3 restricted codes, got %d", len(response.Invites.Restricted))
	}
	if response.Invites.Open.Code == "" {
		t.Error("open code is empty")
	}
}

func TestClaimHandler_Claim_NotEligible(t *testing.T) {
	h, mem := newClaimFixture(t)
	seedUser(t, mem, "user-1", false)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/claim", nil), "user-1")
	rec := httptest.NewRecorder()

	h.Claim(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}

	var response dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != "NOT_ELIGIBLE" {
		t.Errorf("error code = %q, want NOT_ELIGIBLE", response.Code)
	}
}

func TestClaimHandler_Claim_AlreadyClaimed(t *testing.T) {
	h, mem := newClaimFixture(t)
	seedUser(t, mem, "user-1", true)

	first := httptest.NewRecorder()
	h.Claim(first, authed(httptest.NewRequest(http.MethodPost, "/api/claim", nil), "user-1"))
	if first.Code != http.StatusOK {
		t.Fatalf("first claim: expected status 200, got %d", first.Code)
	}

	rec := httptest.NewRecorder()
	h.Claim(rec, authed(httptest.NewRequest(http.MethodPost, "/api/claim", nil), "user-1"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	var response dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != "ALREADY_CLAIMED" {
		t.Errorf("error code = %q, want ALREADY_CLAIMED", response.Code)
	}
}

func TestClaimHandler_Claim_NotConnected(t *testing.T) {
	h, _ := newClaimFixture(t)

	rec := httptest.NewRecorder()
	h.Claim(rec, httptest.NewRequest(http.MethodPost, "/api/claim", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}
