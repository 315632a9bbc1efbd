package aegis

import "sync/atomic"

// MetricID defines a public type used by aegis APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the authentication engine.
	MetricLoginFailure
	// MetricLoginLocked is an exported constant or variable used by the authentication engine.
	MetricLoginLocked
	// MetricLoginRateLimited is an exported constant or variable used by the authentication engine.
	MetricLoginRateLimited
	// MetricMFARequired is an exported constant or variable used by the authentication engine.
	MetricMFARequired
	// MetricMFASuccess is an exported constant or variable used by the authentication engine.
	MetricMFASuccess
	// MetricMFAFailure is an exported constant or variable used by the authentication engine.
	MetricMFAFailure
	// MetricBackupCodeUsed is an exported constant or variable used by the authentication engine.
	MetricBackupCodeUsed
	// MetricRegisterSuccess is an exported constant or variable used by the authentication engine.
	MetricRegisterSuccess
	// MetricRegisterFailure is an exported constant or variable used by the authentication engine.
	MetricRegisterFailure
	// MetricEmailVerified is an exported constant or variable used by the authentication engine.
	MetricEmailVerified
	// MetricResetRequested is an exported constant or variable used by the authentication engine.
	MetricResetRequested
	// MetricResetCompleted is an exported constant or variable used by the authentication engine.
	MetricResetCompleted
	// MetricResetRejected is an exported constant or variable used by the authentication engine.
	MetricResetRejected
	// MetricTokenIssued is an exported constant or variable used by the authentication engine.
	MetricTokenIssued
	// MetricTokenRejected is an exported constant or variable used by the authentication engine.
	MetricTokenRejected
	// MetricTokenBlacklisted is an exported constant or variable used by the authentication engine.
	MetricTokenBlacklisted
	// MetricSuspiciousIPFlagged is an exported constant or variable used by the authentication engine.
	MetricSuspiciousIPFlagged
	// MetricBackendError is an exported constant or variable used by the authentication engine.
	MetricBackendError

	metricCount
)

var metricNames = map[MetricID]string{
	MetricLoginSuccess:        "login_success",
	MetricLoginFailure:        "login_failure",
	MetricLoginLocked:         "login_locked",
	MetricLoginRateLimited:    "login_rate_limited",
	MetricMFARequired:         "mfa_required",
	MetricMFASuccess:          "mfa_success",
	MetricMFAFailure:          "mfa_failure",
	MetricBackupCodeUsed:      "backup_code_used",
	MetricRegisterSuccess:     "register_success",
	MetricRegisterFailure:     "register_failure",
	MetricEmailVerified:       "email_verified",
	MetricResetRequested:      "reset_requested",
	MetricResetCompleted:      "reset_completed",
	MetricResetRejected:       "reset_rejected",
	MetricTokenIssued:         "token_issued",
	MetricTokenRejected:       "token_rejected",
	MetricTokenBlacklisted:    "token_blacklisted",
	MetricSuspiciousIPFlagged: "suspicious_ip_flagged",
	MetricBackendError:        "backend_error",
}

// Name returns the stable snake_case identifier for exporters.
func (id MetricID) Name() string {
	return metricNames[id]
}

// MetricIDs lists every defined metric, for exporter registration.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, int(metricCount))
	for id := MetricID(0); id < metricCount; id++ {
		out = append(out, id)
	}
	return out
}

// Metrics is the lock-free counter table kept by the engine.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

// Inc describes the inc operation and its observable behavior.
//
// Inc may return an error when input validation, dependency calls, or security checks fail.
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot may return an error when input validation, dependency calls, or security checks fail.
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	out := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricCount))}
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricCount; id++ {
		out.Counters[id] = m.counters[id].Load()
	}
	return out
}
