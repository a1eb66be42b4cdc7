package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/handler/dto"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/service"
)

// InviteHandler exposes invite bundle reads, per-category
// regeneration and code redemption.
type InviteHandler struct {
	invites *service.InviteService
	logger  *slog.Logger
	now     func() time.Time
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(invites *service.InviteService, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{
		invites: invites,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns the caller's bundle, creating it if absent.
// GET /api/invites
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "NOT_CONNECTED", "Not connected")
		return
	}

	view, err := h.invites.View(r.Context(), identity)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToInvitesResponse(view))
}

// Regenerate replaces the named category's codes with fresh ones.
// POST /api/invites/{category}/regenerate
func (h *InviteHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "NOT_CONNECTED", "Not connected")
		return
	}

	category := model.InviteCategory(chi.URLParam(r, "category"))
	bundle, err := h.invites.Regenerate(r.Context(), identity, category)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	restricted, open := bundle.View(h.now())
	writeJSON(w, http.StatusOK, dto.ToInvitesResponse(&service.ViewOutput{
		Restricted: restricted,
		Open:       open,
	}))
}

// Use consumes one use of an invite code presented by the caller.
// POST /api/invites/use
func (h *InviteHandler) Use(w http.ResponseWriter, r *http.Request) {
	var req dto.UseInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON")
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Code is required")
		return
	}

	out, err := h.invites.Redeem(r.Context(), code)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UseInviteResponse{
		Owner:     out.Owner,
		Category:  string(out.Category),
		Remaining: out.Remaining,
	})
}

func (h *InviteHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "INVALID_CATEGORY", "Unknown invite category")
	case errors.Is(err, service.ErrCodeNotFound):
		writeError(w, http.StatusNotFound, "CODE_NOT_FOUND", "Invite code not found")
	case errors.Is(err, service.ErrCodeExpired):
		writeError(w, http.StatusGone, "CODE_EXPIRED", "Invite code has expired")
	case errors.Is(err, service.ErrCodeExhausted):
		writeError(w, http.StatusConflict, "CODE_EXHAUSTED", "Invite code has no uses left")
	default:
		h.logger.Error("invite operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
