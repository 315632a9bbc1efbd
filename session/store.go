package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aegisauth/aegis/internal"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys in the shared cache. It must never
// overlap the ratelimit, lock, or blacklist namespaces.
const keyPrefix = "sess:"

// DefaultTTL applies when Create is called with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

const sessionIDBytes = 16

// ErrNotFound is an exported constant or variable used by the authentication engine.
var ErrNotFound = errors.New("session not found")

// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Record is one session: an opaque id, its owner, the caller-defined field
// map, and the activity stamps maintained by the store.
type Record struct {
	ID           string                 `json:"id"`
	OwnerID      string                 `json:"owner_id"`
	Data         map[string]interface{} `json:"data"`
	CreatedAt    time.Time              `json:"created_at"`
	LastActivity time.Time              `json:"last_activity"`
}

// Store defines a public type used by aegis APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	redis redis.UniversalClient
}

// NewStore describes the newstore operation and its observable behavior.
//
// NewStore may return an error when input validation, dependency calls, or security checks fail.
// NewStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStore(client redis.UniversalClient) (*Store, error) {
	if client == nil {
		return nil, errors.New("nil redis client")
	}
	return &Store{redis: client}, nil
}

// Create stores a new record under a random id with the given TTL (default
// 24h) and returns the id.
func (s *Store) Create(ctx context.Context, ownerID string, data map[string]interface{}, ttl time.Duration) (string, error) {
	if ownerID == "" {
		return "", errors.New("empty owner id")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	id, err := internal.OpaqueID(sessionIDBytes)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	rec := Record{
		ID:           id,
		OwnerID:      ownerID,
		Data:         data,
		CreatedAt:    now,
		LastActivity: now,
	}
	if rec.Data == nil {
		rec.Data = map[string]interface{}{}
	}

	if err := s.write(ctx, rec, ttl); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the record, [ErrNotFound] for missing or expired ids, or
// [ErrBackendUnavailable] when the status cannot be established.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	raw, err := s.redis.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt session blob", ErrBackendUnavailable)
	}
	return &rec, nil
}

// updateScript swaps the stored blob only while it still matches the blob
// that was read, keeping whatever TTL the key carries. A missing key
// matches nothing, so a session that expired mid-update is never written
// back to life.
var updateScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  redis.call("SET", KEYS[1], ARGV[2], "KEEPTTL")
  return 1
end
return 0
`)

// updateAttempts bounds the compare-and-swap retry loop in Update.
const updateAttempts = 5

// Update merges patch into the record's field map and refreshes
// last-activity. The write is a compare-and-swap against the blob that was
// read: a lost swap rereads and retries, so concurrent patches compose
// instead of overwriting each other, and an expired session stays
// [ErrNotFound] instead of being recreated. The TTL is deliberately left
// where it was; extending expiry is a separate, explicit operation.
func (s *Store) Update(ctx context.Context, sessionID string, patch map[string]interface{}) error {
	key := keyPrefix + sessionID

	for attempt := 0; attempt < updateAttempts; attempt++ {
		raw, err := s.redis.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: corrupt session blob", ErrBackendUnavailable)
		}
		if rec.Data == nil {
			rec.Data = map[string]interface{}{}
		}
		for k, v := range patch {
			rec.Data[k] = v
		}
		rec.LastActivity = time.Now().UTC()

		blob, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		swapped, err := updateScript.Run(ctx, s.redis, []string{key}, raw, blob).Int()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if swapped == 1 {
			return nil
		}
		// Lost the swap: the record changed or expired underneath. Reread.
	}
	return fmt.Errorf("%w: session update contention", ErrBackendUnavailable)
}

// Extend resets the record's expiry to now+ttl.
func (s *Store) Extend(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("non-positive ttl")
	}
	ok, err := s.redis.Expire(ctx, keyPrefix+sessionID, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Destroy removes the record. Destroying a missing session is not an error.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// ListByOwner scans the full session key space and returns the owner's live
// records. O(n) in total sessions; see the package doc for the caveat.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*Record, error) {
	var out []*Record

	iter := s.redis.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.redis.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.OwnerID == ownerID {
			out = append(out, &rec)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, rec Record, ttl time.Duration) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, keyPrefix+rec.ID, blob, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
