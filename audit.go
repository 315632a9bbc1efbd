package aegis

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Security event types emitted by the engine.
const (
	// EventLoginSuccess is an exported constant or variable used by the authentication engine.
	EventLoginSuccess = "login_success"
	// EventLoginFailure is an exported constant or variable used by the authentication engine.
	EventLoginFailure = "failed_login"
	// EventLoginLocked is an exported constant or variable used by the authentication engine.
	EventLoginLocked = "login_locked"
	// EventLoginRateLimited is an exported constant or variable used by the authentication engine.
	EventLoginRateLimited = "login_rate_limited"
	// EventLoginNewIP is an exported constant or variable used by the authentication engine.
	EventLoginNewIP = "login_new_ip"
	// EventMFARequired is an exported constant or variable used by the authentication engine.
	EventMFARequired = "mfa_required"
	// EventMFAFailure is an exported constant or variable used by the authentication engine.
	EventMFAFailure = "mfa_failure"
	// EventMFAEnabled is an exported constant or variable used by the authentication engine.
	EventMFAEnabled = "mfa_enabled"
	// EventBackupCodeUsed is an exported constant or variable used by the authentication engine.
	EventBackupCodeUsed = "backup_code_used"
	// EventRegister is an exported constant or variable used by the authentication engine.
	EventRegister = "account_registered"
	// EventEmailVerified is an exported constant or variable used by the authentication engine.
	EventEmailVerified = "email_verified"
	// EventResetRequested is an exported constant or variable used by the authentication engine.
	EventResetRequested = "password_reset_requested"
	// EventResetCompleted is an exported constant or variable used by the authentication engine.
	EventResetCompleted = "password_reset_completed"
	// EventResetRejected is an exported constant or variable used by the authentication engine.
	EventResetRejected = "password_reset_rejected"
	// EventPasswordChanged is an exported constant or variable used by the authentication engine.
	EventPasswordChanged = "password_changed"
	// EventTokenRejected is an exported constant or variable used by the authentication engine.
	EventTokenRejected = "token_rejected"
	// EventTokenBlacklisted is an exported constant or variable used by the authentication engine.
	EventTokenBlacklisted = "token_blacklisted"
	// EventSuspiciousIP is an exported constant or variable used by the authentication engine.
	EventSuspiciousIP = "suspicious_ip_flagged"
	// EventAccountDeactivated is an exported constant or variable used by the authentication engine.
	EventAccountDeactivated = "account_deactivated"
)

// SecurityEvent is one append-only entry in the security log. Details carry
// the full diagnostic cause that user-facing errors deliberately omit.
type SecurityEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditSink receives dispatched events. Emit must not panic and should
// return promptly; slow sinks only delay the dispatcher goroutine, never
// the request path.
type AuditSink interface {
	Emit(ctx context.Context, event SecurityEvent)
}

// NoOpSink is an exported constant or variable used by the authentication engine.
type NoOpSink struct{}

// Emit describes the emit operation and its observable behavior.
func (NoOpSink) Emit(context.Context, SecurityEvent) {}

// ChannelSink forwards events to a buffered channel, for tests and custom
// pipelines.
type ChannelSink struct {
	events chan SecurityEvent
}

// NewChannelSink describes the newchannelsink operation and its observable behavior.
//
// NewChannelSink may return an error when input validation, dependency calls, or security checks fail.
// NewChannelSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan SecurityEvent, buffer)}
}

// Emit describes the emit operation and its observable behavior.
//
// Emit may return an error when input validation, dependency calls, or security checks fail.
// Emit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *ChannelSink) Emit(ctx context.Context, event SecurityEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events describes the events operation and its observable behavior.
//
// Events may return an error when input validation, dependency calls, or security checks fail.
// Events does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *ChannelSink) Events() <-chan SecurityEvent {
	return s.events
}

// JSONWriterSink appends one JSON line per event to a writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
//
// NewJSONWriterSink may return an error when input validation, dependency calls, or security checks fail.
// NewJSONWriterSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit describes the emit operation and its observable behavior.
//
// Emit may return an error when input validation, dependency calls, or security checks fail.
// Emit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *JSONWriterSink) Emit(ctx context.Context, event SecurityEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZapSink emits events through a zap structured logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink describes the newzapsink operation and its observable behavior.
//
// NewZapSink may return an error when input validation, dependency calls, or security checks fail.
// NewZapSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

// Emit describes the emit operation and its observable behavior.
//
// Emit may return an error when input validation, dependency calls, or security checks fail.
// Emit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *ZapSink) Emit(_ context.Context, event SecurityEvent) {
	if s == nil || s.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Time("ts", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String(k, v))
	}
	s.logger.Info(event.EventType, fields...)
}

// newEventID mints a ULID so events sort lexicographically by time.
func newEventID(ts time.Time) string {
	id, err := ulid.New(ulid.Timestamp(ts), rand.Reader)
	if err != nil {
		return ""
	}
	return id.String()
}
