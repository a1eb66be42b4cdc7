package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/handler/dto"
	"github.com/gatepass/gatepass/internal/service"
)

// ClaimHandler exposes the one-time claim operation.
type ClaimHandler struct {
	claims *service.ClaimService
	logger *slog.Logger
	now    func() time.Time
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(claims *service.ClaimService, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{
		claims: claims,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Claim performs the caller's one-time claim and returns the fresh
// invite bundle.
// POST /api/claim
func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "NOT_CONNECTED", "Not connected")
		return
	}

	out, err := h.claims.Claim(r.Context(), identity)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	restricted, open := out.Bundle.View(h.now())
	writeJSON(w, http.StatusOK, dto.ClaimResponse{
		Claimed:   true,
		ClaimedAt: out.ClaimedAt,
		Invites: dto.ToInvitesResponse(&service.ViewOutput{
			Restricted: restricted,
			Open:       open,
		}),
	})
}

func (h *ClaimHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotEligible):
		writeError(w, http.StatusForbidden, "NOT_ELIGIBLE", "Account does not meet the claim requirements")
	case errors.Is(err, service.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "ALREADY_CLAIMED", "Claim has already been performed")
	default:
		h.logger.Error("claim failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
