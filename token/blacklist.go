package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// blacklistPrefix namespaces revocation keys in the shared cache. It must
// never overlap the ratelimit, session, or lock namespaces.
const blacklistPrefix = "blacklist:"

// ErrBlacklistUnavailable is an exported constant or variable used by the authentication engine.
//
// Callers must treat an unavailable blacklist as fail-closed: a token whose
// revocation status cannot be established is invalid.
var ErrBlacklistUnavailable = errors.New("token blacklist unavailable")

// Blacklist records the ids (jti) of revoked tokens until their natural
// expiry. Implementations must be safe for concurrent use.
type Blacklist interface {
	// Add revokes the id until expiresAt.
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	// Contains reports whether the id has been revoked. A non-nil error
	// means the status is unknown and the caller must fail closed.
	Contains(ctx context.Context, jti string) (bool, error)
	// Sweep removes entries whose token has independently expired and
	// returns the number removed. It is caller-invoked, never
	// self-scheduling.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// RedisBlacklist stores revocations as per-id keys with TTLs, so multiple
// service instances share one revocation set.
type RedisBlacklist struct {
	redis redis.UniversalClient
}

// NewRedisBlacklist describes the newredisblacklist operation and its observable behavior.
//
// NewRedisBlacklist may return an error when input validation, dependency calls, or security checks fail.
// NewRedisBlacklist does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisBlacklist(client redis.UniversalClient) *RedisBlacklist {
	return &RedisBlacklist{redis: client}
}

// Add revokes the id. Ids for already-expired tokens are dropped rather than
// stored with a non-positive TTL.
func (b *RedisBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("empty token id")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.redis.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	return nil
}

// Contains describes the contains operation and its observable behavior.
//
// Contains may return an error when input validation, dependency calls, or security checks fail.
// Contains does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	return n > 0, nil
}

// Sweep is a no-op for the Redis implementation: per-key TTLs already bound
// memory growth.
func (b *RedisBlacklist) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

// MemoryBlacklist is the process-local fallback implementation, guarded by a
// mutex. Entries persist until [MemoryBlacklist.Sweep] observes their expiry.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryBlacklist describes the newmemoryblacklist operation and its observable behavior.
//
// NewMemoryBlacklist may return an error when input validation, dependency calls, or security checks fail.
// NewMemoryBlacklist does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: make(map[string]time.Time)}
}

// Add describes the add operation and its observable behavior.
//
// Add may return an error when input validation, dependency calls, or security checks fail.
// Add does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *MemoryBlacklist) Add(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("empty token id")
	}
	b.mu.Lock()
	b.entries[jti] = expiresAt
	b.mu.Unlock()
	return nil
}

// Contains describes the contains operation and its observable behavior.
//
// Contains may return an error when input validation, dependency calls, or security checks fail.
// Contains does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *MemoryBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	b.mu.RLock()
	exp, ok := b.entries[jti]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}
	// Expired entries answer false even before a sweep removes them.
	return time.Now().Before(exp), nil
}

// Sweep removes entries whose token expired at or before now.
func (b *MemoryBlacklist) Sweep(_ context.Context, now time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for jti, exp := range b.entries {
		if !exp.After(now) {
			delete(b.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// Len reports the current entry count, for sweep bounding tests.
func (b *MemoryBlacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
