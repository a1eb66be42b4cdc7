package auth

import (
	"time"

	"github.com/gatepass/gatepass/internal/model"
)

// Eligibility thresholds.
const (
	minAccountAge = 30 * 24 * time.Hour
	minFollowers  = 100 // strictly greater than
)

// Eligible applies the snapshot eligibility rule to a profile:
// account at least 30 days old AND more than 100 followers. The
// result is stored on the user record at login and never recomputed,
// even if the account's stats change later.
func Eligible(profile *model.Profile, now time.Time) bool {
	return now.Sub(profile.CreatedAt) >= minAccountAge && profile.Followers > minFollowers
}
