package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Logins                uint64
	Claims                map[string]uint64
	BundlesCreated        uint64
	BundlesRegenerated    map[string]uint64
	Redemptions           map[string]uint64
	RedeemDurationCount   uint64
	RedeemDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	logins                uint64
	bundlesCreated        uint64
	redeemDurationCount   uint64
	redeemDurationTotalNs int64

	mu                 sync.Mutex
	claims             map[string]uint64
	bundlesRegenerated map[string]uint64
	redemptions        map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		claims:             make(map[string]uint64),
		bundlesRegenerated: make(map[string]uint64),
		redemptions:        make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Logins:                atomic.LoadUint64(&m.logins),
		Claims:                copyCounters(m.claims),
		BundlesCreated:        atomic.LoadUint64(&m.bundlesCreated),
		BundlesRegenerated:    copyCounters(m.bundlesRegenerated),
		Redemptions:           copyCounters(m.redemptions),
		RedeemDurationCount:   atomic.LoadUint64(&m.redeemDurationCount),
		RedeemDurationTotalNs: atomic.LoadInt64(&m.redeemDurationTotalNs),
	}
}

// IncLogin increments the login counter.
func (m *InMemoryRecorder) IncLogin() {
	atomic.AddUint64(&m.logins, 1)
}

// IncClaim increments the claim counter for a status.
func (m *InMemoryRecorder) IncClaim(status string) {
	m.mu.Lock()
	m.claims[status]++
	m.mu.Unlock()
}

// IncBundleCreated increments the bundle creation counter.
func (m *InMemoryRecorder) IncBundleCreated() {
	atomic.AddUint64(&m.bundlesCreated, 1)
}

// IncBundleRegenerated increments the regeneration counter for a category.
func (m *InMemoryRecorder) IncBundleRegenerated(category string) {
	m.mu.Lock()
	m.bundlesRegenerated[category]++
	m.mu.Unlock()
}

// IncRedemption increments the redemption counter for a status.
func (m *InMemoryRecorder) IncRedemption(status string) {
	m.mu.Lock()
	m.redemptions[status]++
	m.mu.Unlock()
}

// ObserveRedeemDuration records redemption duration.
func (m *InMemoryRecorder) ObserveRedeemDuration(duration time.Duration) {
	atomic.AddUint64(&m.redeemDurationCount, 1)
	atomic.AddInt64(&m.redeemDurationTotalNs, duration.Nanoseconds())
}

func copyCounters(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
