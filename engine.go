package aegis

import (
	"context"
	"time"

	"github.com/aegisauth/aegis/lock"
	"github.com/aegisauth/aegis/mfa"
	"github.com/aegisauth/aegis/password"
	"github.com/aegisauth/aegis/permission"
	"github.com/aegisauth/aegis/ratelimit"
	"github.com/aegisauth/aegis/session"
	"github.com/aegisauth/aegis/token"
)

// Engine defines a public type used by aegis APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config   Config
	registry *permission.Registry

	hasher    *password.Hasher
	tokens    *token.Manager
	blacklist token.Blacklist
	totp      *mfa.Manager
	limiter   *ratelimit.Limiter
	sessions  *session.Store
	locks     *lock.Manager

	users      UserRepository
	attempts   AttemptStore
	reputation ReputationStore
	email      EmailSender

	audit       *auditDispatcher
	metrics     *Metrics
	metricsSink MetricsSink
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) sinkEvent(name string, tags map[string]string) {
	if e == nil || e.metricsSink == nil {
		return
	}
	e.metricsSink.RecordEvent(name, tags)
}

func (e *Engine) sinkError(kind, component string) {
	if e == nil || e.metricsSink == nil {
		return
	}
	e.metricsSink.RecordError(kind, component)
}

// emitAudit stamps id and timestamp and hands the event to the dispatcher.
// For failed logins with a source IP it also feeds the reputation tracker.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, ip string, details map[string]string) {
	if e == nil {
		return
	}

	if eventType == EventLoginFailure && ip != "" && e.reputation != nil {
		if e.reputation.RecordFailure(ip) {
			e.metricInc(MetricSuspiciousIPFlagged)
			e.dispatch(ctx, SecurityEvent{
				EventType: EventSuspiciousIP,
				IP:        ip,
			})
		}
	}

	e.dispatch(ctx, SecurityEvent{
		EventType: eventType,
		Success:   success,
		UserID:    userID,
		IP:        ip,
		Details:   details,
	})
}

func (e *Engine) dispatch(ctx context.Context, event SecurityEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.ID = newEventID(event.Timestamp)
	e.audit.Emit(ctx, event)
}

// IsSuspiciousIP reports whether the process-local reputation tracker has
// flagged the IP. See [ReputationStore] for the sharing caveat.
func (e *Engine) IsSuspiciousIP(ip string) bool {
	if e == nil || e.reputation == nil {
		return false
	}
	return e.reputation.IsSuspicious(ip)
}

// HasPermission is pure membership against the user's permission snapshot.
func (e *Engine) HasPermission(user *User, p permission.Permission) bool {
	if user == nil {
		return false
	}
	return user.PermissionSet().Has(p)
}

// HasRoleLevel compares registered role ranks; unknown roles deny.
func (e *Engine) HasRoleLevel(role, required permission.Role) bool {
	if e == nil || e.registry == nil {
		return permission.HasRoleLevel(role, required)
	}
	return e.registry.HasLevel(role, required)
}

// RecomputePermissions is the explicit path around snapshot semantics: it
// re-derives the user's permission set from the current role table and
// persists it. Role reassignment alone never does this.
func (e *Engine) RecomputePermissions(ctx context.Context, userID string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	user.Permissions = e.registry.Grants(user.Role)
	return e.users.Update(ctx, user)
}

// Deactivate soft-disables an account. Accounts are never hard-deleted.
func (e *Engine) Deactivate(ctx context.Context, userID string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	user.Active = false
	if err := e.users.Update(ctx, user); err != nil {
		return err
	}
	e.emitAudit(ctx, EventAccountDeactivated, true, userID, "", nil)
	return nil
}

// Sessions returns the session store, or nil when no Redis backend was
// configured.
func (e *Engine) Sessions() *session.Store {
	if e == nil {
		return nil
	}
	return e.sessions
}

// Locks returns the distributed lock manager, or nil when no Redis backend
// was configured.
func (e *Engine) Locks() *lock.Manager {
	if e == nil {
		return nil
	}
	return e.locks
}

// Limiter returns the rate limiter wrapping engine call boundaries.
func (e *Engine) Limiter() *ratelimit.Limiter {
	if e == nil {
		return nil
	}
	return e.limiter
}
