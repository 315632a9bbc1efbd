package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := NewStore(rdb)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store, mr
}

func TestCreateGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "u1", map[string]interface{}{"theme": "dark"}, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a random session id")
	}

	rec, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.OwnerID != "u1" || rec.Data["theme"] != "dark" {
		t.Fatalf("record mismatch: %+v", rec)
	}
	if rec.CreatedAt.IsZero() || rec.LastActivity.IsZero() {
		t.Fatal("expected created/last-activity stamps")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.Get(context.Background(), "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionExpiresAtTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "u1", nil, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestUpdateMergesWithoutResettingTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "u1", map[string]interface{}{"a": "1"}, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mr.FastForward(30 * time.Minute)

	if err := store.Update(ctx, id, map[string]interface{}{"b": "2"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	rec, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Data["a"] != "1" || rec.Data["b"] != "2" {
		t.Fatalf("expected merged fields, got %+v", rec.Data)
	}

	// The update must not have reset the clock: the original hour still
	// runs out on schedule.
	mr.FastForward(31 * time.Minute)
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected session to expire at original boundary, got %v", err)
	}
}

func TestUpdateMissingSession(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Update(context.Background(), "ghost", map[string]interface{}{"a": "1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateExpiredSessionStaysGone(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "u1", map[string]interface{}{"a": "1"}, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if err := store.Update(ctx, id, map[string]interface{}{"b": "2"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of an expired session: expected ErrNotFound, got %v", err)
	}
	// The write must not have revived the key, with or without a TTL.
	if mr.Exists("sess:" + id) {
		t.Fatal("expired session reappeared after Update")
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestExtendPostponesExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "u1", nil, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Extend(ctx, id, 3*time.Hour); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, id); err != nil {
		t.Fatalf("extended session must survive original boundary: %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected extended session to expire eventually, got %v", err)
	}
}

func TestExtendMissingSession(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Extend(context.Background(), "ghost", time.Hour); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "u1", nil, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Destroy(ctx, id); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after destroy, got %v", err)
	}
	if err := store.Destroy(ctx, id); err != nil {
		t.Fatalf("second Destroy must not fail: %v", err)
	}
}

func TestListByOwner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, "alice", nil, time.Hour); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := store.Create(ctx, "bob", nil, time.Hour); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	recs, err := store.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 sessions for alice, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.OwnerID != "alice" {
			t.Fatalf("foreign session leaked into listing: %+v", rec)
		}
	}
}

func TestGetFailsClosedWhenBackendDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	if _, err := store.Get(context.Background(), "any"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
