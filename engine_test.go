package aegis

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Cost = bcrypt.MinCost
	// Keep the per-IP auth throttle out of the way unless a test lowers it.
	rule := cfg.RateLimit.Rules["auth"]
	rule.Limit = 1000
	cfg.RateLimit.Rules["auth"] = rule
	return cfg
}

// newTestEngine builds an engine on in-memory fallbacks: no Redis, shared
// MemoryStore for users and attempts.
func newTestEngine(t *testing.T, cfg Config) (*Engine, *MemoryStore) {
	t.Helper()

	store := NewMemoryStore()
	engine, err := New().
		WithConfig(cfg).
		WithUserRepository(store).
		WithAttemptStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store
}

const testPassword = "Horse&Battery9Staple"

// registerTestUser creates a standard account and returns its id.
func registerTestUser(t *testing.T, engine *Engine, username string) string {
	t.Helper()

	result, err := engine.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", username, err)
	}
	return result.UserID
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// fakeEmail records every send for assertions. Send always reports success.
type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeEmail) Send(_ context.Context, to, subject, textBody, _ string) bool {
	f.mu.Lock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: textBody})
	f.mu.Unlock()
	return true
}

func (f *fakeEmail) last(t *testing.T) sentMail {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no email was sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// extractToken pulls the raw token out of a delivery body. Both the reset
// and verification templates put it on a line ending "token: <value>".
func extractToken(t *testing.T, body string) string {
	t.Helper()

	idx := strings.Index(body, "token: ")
	if idx < 0 {
		t.Fatalf("no token in email body: %q", body)
	}
	rest := body[idx+len("token: "):]
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
