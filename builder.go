package aegis

import (
	"errors"

	"github.com/aegisauth/aegis/lock"
	"github.com/aegisauth/aegis/mfa"
	"github.com/aegisauth/aegis/password"
	"github.com/aegisauth/aegis/permission"
	"github.com/aegisauth/aegis/ratelimit"
	"github.com/aegisauth/aegis/session"
	"github.com/aegisauth/aegis/token"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by aegis APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	registry   *permission.Registry
	users      UserRepository
	attempts   AttemptStore
	reputation ReputationStore
	email      EmailSender

	auditSink   AuditSink
	metricsSink MetricsSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the shared cache backend. Without it the engine runs
// with in-process fallbacks: no session store or distributed lock, a local
// rate-limit window, and an in-memory token blacklist.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRegistry describes the withregistry operation and its observable behavior.
//
// WithRegistry may return an error when input validation, dependency calls, or security checks fail.
// WithRegistry does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRegistry(r *permission.Registry) *Builder {
	b.registry = r
	return b
}

// WithUserRepository describes the withuserrepository operation and its observable behavior.
//
// WithUserRepository may return an error when input validation, dependency calls, or security checks fail.
// WithUserRepository does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserRepository(repo UserRepository) *Builder {
	b.users = repo
	return b
}

// WithAttemptStore describes the withattemptstore operation and its observable behavior.
//
// WithAttemptStore may return an error when input validation, dependency calls, or security checks fail.
// WithAttemptStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAttemptStore(store AttemptStore) *Builder {
	b.attempts = store
	return b
}

// WithReputationStore describes the withreputationstore operation and its observable behavior.
//
// WithReputationStore may return an error when input validation, dependency calls, or security checks fail.
// WithReputationStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithReputationStore(store ReputationStore) *Builder {
	b.reputation = store
	return b
}

// WithEmailSender describes the withemailsender operation and its observable behavior.
//
// WithEmailSender may return an error when input validation, dependency calls, or security checks fail.
// WithEmailSender does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEmailSender(sender EmailSender) *Builder {
	b.email = sender
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsSink describes the withmetricssink operation and its observable behavior.
//
// WithMetricsSink may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsSink(sink MetricsSink) *Builder {
	b.metricsSink = sink
	return b
}

// Build validates the configuration, constructs every subcomponent, and
// returns a ready [Engine]. Build performs no I/O; the first Redis round
// trip happens on first use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.config.Password.Cost)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		Secret: b.config.Token.Secret,
		Issuer: b.config.Token.Issuer,
		TTLs:   b.config.Token.TTLs,
		Leeway: b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	totp, err := mfa.NewManager(mfa.Config{
		Issuer: b.config.MFA.Issuer,
		Skew:   b.config.MFA.Skew,
	})
	if err != nil {
		return nil, err
	}

	limiter, err := ratelimit.New(b.redis, b.config.RateLimit)
	if err != nil {
		return nil, err
	}

	registry := b.registry
	if registry == nil {
		registry = permission.NewRegistry()
	}
	registry.Freeze()
	if !registry.Known(b.config.Account.DefaultRole) {
		return nil, ErrInvalidRole
	}

	var (
		sessions  *session.Store
		locks     *lock.Manager
		blacklist token.Blacklist
	)
	if b.redis != nil {
		if sessions, err = session.NewStore(b.redis); err != nil {
			return nil, err
		}
		if locks, err = lock.NewManager(b.redis); err != nil {
			return nil, err
		}
		blacklist = token.NewRedisBlacklist(b.redis)
	} else {
		blacklist = token.NewMemoryBlacklist()
	}

	users := b.users
	attempts := b.attempts
	if users == nil {
		mem := NewMemoryStore()
		users = mem
		if attempts == nil {
			attempts = mem
		}
	}
	if attempts == nil {
		attempts = NewMemoryStore()
	}

	reputation := b.reputation
	if reputation == nil {
		reputation = NewMemoryReputation(b.config.Reputation.FailedThreshold)
	}

	var metrics *Metrics
	if b.config.Metrics.Enabled {
		metrics = newMetrics()
	}

	b.built = true

	return &Engine{
		config:      b.config,
		registry:    registry,
		hasher:      hasher,
		tokens:      tokens,
		blacklist:   blacklist,
		totp:        totp,
		limiter:     limiter,
		sessions:    sessions,
		locks:       locks,
		users:       users,
		attempts:    attempts,
		reputation:  reputation,
		email:       b.email,
		audit:       newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:     metrics,
		metricsSink: b.metricsSink,
	}, nil
}
