package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces limiter keys in the shared cache. It must never
// overlap the session, lock, or blacklist namespaces.
const keyPrefix = "ratelimit:"

// Category names for the built-in rule table.
const (
	// CategoryDefault is an exported constant or variable used by the authentication engine.
	CategoryDefault = "default"
	// CategoryAuth is an exported constant or variable used by the authentication engine.
	CategoryAuth = "auth"
	// CategoryDataExport is an exported constant or variable used by the authentication engine.
	CategoryDataExport = "data_export"
	// CategoryBulkCalculation is an exported constant or variable used by the authentication engine.
	CategoryBulkCalculation = "bulk_calculation"
)

// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
var ErrBackendUnavailable = errors.New("rate limit backend unavailable")

// Rule bounds one category: at most Limit requests per trailing Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Config defines a public type used by aegis APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Rules maps category names to their bounds. Unknown categories fall
	// back to the "default" rule.
	Rules map[string]Rule
	// FailOpen selects the behavior when the backend is unreachable:
	// true allows the request, false denies it. This is a deliberate
	// availability-versus-strictness choice and must be set consciously.
	FailOpen bool
}

// DefaultConfig returns the built-in category table and the fail-open
// policy.
func DefaultConfig() Config {
	return Config{
		Rules: map[string]Rule{
			CategoryDefault:         {Limit: 60, Window: time.Minute},
			CategoryAuth:            {Limit: 5, Window: 15 * time.Minute},
			CategoryDataExport:      {Limit: 10, Window: 60 * time.Minute},
			CategoryBulkCalculation: {Limit: 100, Window: time.Minute},
		},
		FailOpen: true,
	}
}

// Status reports the window state for a key without recording a request.
type Status struct {
	Limit     int
	Remaining int
	// ResetAt is when the oldest recorded request leaves the window. For an
	// empty window it is the zero time.
	ResetAt time.Time
}

// Limiter defines a public type used by aegis APIs.
//
// Limiter instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Limiter struct {
	redis    redis.UniversalClient
	config   Config
	fallback *fallbackWindows
}

// allowScript purges, counts, and conditionally appends atomically. Scores
// and ARGV timestamps are unix milliseconds.
var allowScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, cutoff)
local count = redis.call("ZCARD", KEYS[1])
if count >= tonumber(ARGV[3]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

// statusScript performs the same purge without appending and returns the
// count plus the oldest surviving score.
var statusScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, cutoff)
local count = redis.call("ZCARD", KEYS[1])
if count == 0 then
  return {0, "0"}
end
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
return {count, oldest[2]}
`)

// New creates a [Limiter]. A nil client selects the in-process fallback
// window store, which is mutex-guarded and never shared across instances.
func New(client redis.UniversalClient, cfg Config) (*Limiter, error) {
	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultConfig().Rules
	}
	if _, ok := cfg.Rules[CategoryDefault]; !ok {
		return nil, errors.New(`rule table must define a "default" category`)
	}
	for name, rule := range cfg.Rules {
		if rule.Limit <= 0 || rule.Window <= 0 {
			return nil, fmt.Errorf("invalid rule for category %q", name)
		}
	}

	return &Limiter{
		redis:    client,
		config:   cfg,
		fallback: newFallbackWindows(),
	}, nil
}

func (l *Limiter) rule(category string) Rule {
	if rule, ok := l.config.Rules[category]; ok {
		return rule
	}
	return l.config.Rules[CategoryDefault]
}

func key(category, identifier string) string {
	return keyPrefix + category + ":" + identifier
}

// Allow checks and records one request for category:identifier. A denied
// request is not recorded. The returned error is non-nil only for backend
// trouble; allowed then already reflects the configured fail-open policy.
func (l *Limiter) Allow(ctx context.Context, category, identifier string) (bool, error) {
	rule := l.rule(category)

	if l.redis == nil {
		return l.fallback.allow(key(category, identifier), rule, time.Now()), nil
	}

	now := time.Now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()
	res, err := allowScript.Run(ctx, l.redis,
		[]string{key(category, identifier)},
		now, rule.Window.Milliseconds(), rule.Limit, member,
	).Int64()
	if err != nil {
		return l.config.FailOpen, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return res == 1, nil
}

// Status performs the purge and count without recording a request.
func (l *Limiter) Status(ctx context.Context, category, identifier string) (Status, error) {
	rule := l.rule(category)
	st := Status{Limit: rule.Limit, Remaining: rule.Limit}

	if l.redis == nil {
		count, oldest := l.fallback.status(key(category, identifier), rule, time.Now())
		st.Remaining = remaining(rule.Limit, count)
		if count > 0 {
			st.ResetAt = oldest.Add(rule.Window)
		}
		return st, nil
	}

	vals, err := statusScript.Run(ctx, l.redis,
		[]string{key(category, identifier)},
		time.Now().UnixMilli(), rule.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return st, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(vals) != 2 {
		return st, fmt.Errorf("%w: malformed status reply", ErrBackendUnavailable)
	}

	count, _ := vals[0].(int64)
	st.Remaining = remaining(rule.Limit, int(count))
	if count > 0 {
		if score, ok := vals[1].(string); ok {
			if ms, perr := strconv.ParseFloat(score, 64); perr == nil {
				st.ResetAt = time.UnixMilli(int64(ms)).Add(rule.Window)
			}
		}
	}
	return st, nil
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
