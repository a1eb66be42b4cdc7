package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin() {}

// IncClaim is a no-op.
func (n *NoopRecorder) IncClaim(status string) {}

// IncBundleCreated is a no-op.
func (n *NoopRecorder) IncBundleCreated() {}

// IncBundleRegenerated is a no-op.
func (n *NoopRecorder) IncBundleRegenerated(category string) {}

// IncRedemption is a no-op.
func (n *NoopRecorder) IncRedemption(status string) {}

// ObserveRedeemDuration is a no-op.
func (n *NoopRecorder) ObserveRedeemDuration(duration time.Duration) {}
