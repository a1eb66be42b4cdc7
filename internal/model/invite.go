package model

import "time"

// InviteCategory distinguishes the two kinds of codes in a bundle.
type InviteCategory string

const (
	// CategoryRestricted codes are single-use; three per bundle.
	CategoryRestricted InviteCategory = "restricted"
	// CategoryOpen codes are shared multi-use; one per bundle.
	CategoryOpen InviteCategory = "open"
)

// IsValid checks if the category is one of the known values.
func (c InviteCategory) IsValid() bool {
	return c == CategoryRestricted || c == CategoryOpen
}

// Bundle shape constants.
const (
	RestrictedPerBundle = 3
	RestrictedUseLimit  = 1
	OpenUseLimit        = 100
	BundleTTL           = 7 * 24 * time.Hour
)

// InviteCode is one redeemable code. Invariant: Used <= Limit.
type InviteCode struct {
	Code      string    `json:"code"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether the code is redeemable at the given time.
func (c *InviteCode) ValidAt(now time.Time) bool {
	return now.Before(c.ExpiresAt) && c.Used < c.Limit
}

// Remaining returns how many redemptions are left, never negative.
func (c *InviteCode) Remaining() int {
	if c.Used >= c.Limit {
		return 0
	}
	return c.Limit - c.Used
}

// InviteBundle is the set of codes owned by one identity:
// three restricted codes plus exactly one open code.
type InviteBundle struct {
	Identity   string       `json:"identity"`
	Restricted []InviteCode `json:"restricted"`
	Open       InviteCode   `json:"open"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// CodeView is the read-only projection of a code exposed by the API.
// Remaining is reported for the open category only.
type CodeView struct {
	Code      string    `json:"code"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	ExpiresAt time.Time `json:"expires_at"`
	Valid     bool      `json:"valid"`
	Remaining *int      `json:"remaining,omitempty"`
}

// View projects the bundle into its API shape at the given time.
func (b *InviteBundle) View(now time.Time) ([]CodeView, CodeView) {
	restricted := make([]CodeView, 0, len(b.Restricted))
	for i := range b.Restricted {
		c := &b.Restricted[i]
		restricted = append(restricted, CodeView{
			Code:      c.Code,
			Used:      c.Used,
			Limit:     c.Limit,
			ExpiresAt: c.ExpiresAt,
			Valid:     c.ValidAt(now),
		})
	}

	remaining := b.Open.Remaining()
	open := CodeView{
		Code:      b.Open.Code,
		Used:      b.Open.Used,
		Limit:     b.Open.Limit,
		ExpiresAt: b.Open.ExpiresAt,
		Valid:     b.Open.ValidAt(now),
		Remaining: &remaining,
	}

	return restricted, open
}
