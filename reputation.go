package aegis

import "sync"

// ReputationStore tracks failed-attempt counts per source IP and flags IPs
// that cross the threshold. The default implementation is process-local by
// design of the original system: counts are not shared across instances,
// and that limitation is documented rather than papered over. Deployments
// needing shared reputation can inject their own implementation.
type ReputationStore interface {
	// RecordFailure increments the IP's counter and reports whether this
	// call crossed the threshold (true exactly once per IP).
	RecordFailure(ip string) bool
	IsSuspicious(ip string) bool
	// Reset clears the counter and flag for an IP.
	Reset(ip string)
}

type memoryReputation struct {
	threshold int

	mu         sync.Mutex
	failures   map[string]int
	suspicious map[string]struct{}
}

// NewMemoryReputation returns the default mutex-guarded, process-local
// [ReputationStore] with the given flag threshold.
func NewMemoryReputation(threshold int) ReputationStore {
	if threshold <= 0 {
		threshold = 10
	}
	return &memoryReputation{
		threshold:  threshold,
		failures:   make(map[string]int),
		suspicious: make(map[string]struct{}),
	}
}

func (r *memoryReputation) RecordFailure(ip string) bool {
	if ip == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[ip]++
	if r.failures[ip] == r.threshold {
		r.suspicious[ip] = struct{}{}
		return true
	}
	return false
}

func (r *memoryReputation) IsSuspicious(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.suspicious[ip]
	return ok
}

func (r *memoryReputation) Reset(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.failures, ip)
	delete(r.suspicious, ip)
}
