// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Login flow
	IncLogin()

	// Claim flow
	IncClaim(status string) // status: "success", "not_eligible", "already_claimed"

	// Invite lifecycle
	IncBundleCreated()
	IncBundleRegenerated(category string) // category: "restricted" or "open"
	IncRedemption(status string)          // status: "success", "not_found", "expired", "exhausted"
	ObserveRedeemDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
