package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/handler/dto"
	"github.com/gatepass/gatepass/internal/service"
	"github.com/gatepass/gatepass/internal/store"
)

// MeHandler serves the authenticated user's own profile.
type MeHandler struct {
	users  store.UserStore
	claims *service.ClaimService
	logger *slog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(users store.UserStore, claims *service.ClaimService, logger *slog.Logger) *MeHandler {
	return &MeHandler{users: users, claims: claims, logger: logger}
}

// Me returns the profile snapshot, eligibility and claim status for
// the session's identity.
// GET /api/me
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "NOT_CONNECTED", "Not connected")
		return
	}

	user, err := h.users.GetUser(r.Context(), identity)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Session outlived the user record.
			writeError(w, http.StatusUnauthorized, "NOT_CONNECTED", "Not connected")
			return
		}
		h.logger.Error("failed to load user", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	claimed, claimedAt, err := h.claims.Status(r.Context(), identity)
	if err != nil {
		h.logger.Error("failed to load claim status", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMeResponse(user, claimed, claimedAt))
}
