// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/service"
)

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CodeResponse represents one invite code in API responses.
// Remaining is only present for the open category.
type CodeResponse struct {
	Code      string    `json:"code"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	ExpiresAt time.Time `json:"expires_at"`
	Valid     bool      `json:"valid"`
	Remaining *int      `json:"remaining,omitempty"`
}

// InvitesResponse represents the caller's invite bundle.
type InvitesResponse struct {
	Restricted []CodeResponse `json:"restricted"`
	Open       CodeResponse   `json:"open"`
}

// ToInvitesResponse converts a bundle projection to its API shape.
func ToInvitesResponse(view *service.ViewOutput) InvitesResponse {
	restricted := make([]CodeResponse, 0, len(view.Restricted))
	for _, v := range view.Restricted {
		restricted = append(restricted, toCodeResponse(v))
	}
	return InvitesResponse{
		Restricted: restricted,
		Open:       toCodeResponse(view.Open),
	}
}

func toCodeResponse(v model.CodeView) CodeResponse {
	return CodeResponse{
		Code:      v.Code,
		Used:      v.Used,
		Limit:     v.Limit,
		ExpiresAt: v.ExpiresAt,
		Valid:     v.Valid,
		Remaining: v.Remaining,
	}
}

// UseInviteRequest is the request body for redeeming a code.
type UseInviteRequest struct {
	Code string `json:"code"`
}

// UseInviteResponse confirms a redemption.
type UseInviteResponse struct {
	Owner     string `json:"owner"`
	Category  string `json:"category"`
	Remaining *int   `json:"remaining,omitempty"`
}

// ClaimResponse confirms a claim and carries the freshly reset
// bundle.
type ClaimResponse struct {
	Claimed   bool            `json:"claimed"`
	ClaimedAt time.Time       `json:"claimed_at"`
	Invites   InvitesResponse `json:"invites"`
}

// MeResponse describes the authenticated user.
type MeResponse struct {
	Identity  string     `json:"identity"`
	Name      string     `json:"name"`
	Username  string     `json:"username"`
	AvatarURL string     `json:"profile_image_url"`
	Followers int        `json:"followers_count"`
	Verified  bool       `json:"verified"`
	Eligible  bool       `json:"eligible"`
	Claimed   bool       `json:"claimed"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// ToMeResponse builds the /api/me payload.
func ToMeResponse(user *model.User, claimed bool, claimedAt *time.Time) MeResponse {
	return MeResponse{
		Identity:  user.Identity,
		Name:      user.Profile.Name,
		Username:  user.Profile.Username,
		AvatarURL: user.Profile.AvatarURL,
		Followers: user.Profile.Followers,
		Verified:  user.Profile.Verified,
		Eligible:  user.Eligible,
		Claimed:   claimed,
		ClaimedAt: claimedAt,
	}
}
