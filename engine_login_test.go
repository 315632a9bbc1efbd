package aegis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/aegisauth/aegis/ratelimit"
)

func TestAuthenticateSuccess(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")

	result, err := engine.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: testPassword,
		IP:       "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if result.UserID != userID {
		t.Fatalf("result user = %q, want %q", result.UserID, userID)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens in result")
	}
}

func TestAuthenticateUnknownUserIsGeneric(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	_, err := engine.Authenticate(context.Background(), Credentials{
		Username: "nobody",
		Password: testPassword,
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateWrongPasswordIsGeneric(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	registerTestUser(t, engine, "alice")

	_, err := engine.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: "definitely-not-it",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateLockoutAfterThreshold(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)
	registerTestUser(t, engine, "alice")

	ctx := context.Background()
	for i := 0; i < cfg.Lockout.MaxFailedAttempts; i++ {
		_, err := engine.Authenticate(ctx, Credentials{
			Username: "alice",
			Password: "wrong-password",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Even the correct password fails while the lock window is open.
	_, err := engine.Authenticate(ctx, Credentials{
		Username: "alice",
		Password: testPassword,
	})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestAuthenticateConcurrentWrongPasswordsAllCount(t *testing.T) {
	cfg := testConfig()
	engine, store := newTestEngine(t, cfg)
	userID := registerTestUser(t, engine, "alice")

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < cfg.Lockout.MaxFailedAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong-password"})
		}()
	}
	wg.Wait()

	user, err := store.GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.FailedAttempts != cfg.Lockout.MaxFailedAttempts {
		t.Fatalf("FailedAttempts = %d, want %d: simultaneous failures must each count",
			user.FailedAttempts, cfg.Lockout.MaxFailedAttempts)
	}

	_, err = engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked after concurrent strikes, got %v", err)
	}
}

func TestAuthenticateSuccessResetsStrikes(t *testing.T) {
	cfg := testConfig()
	engine, store := newTestEngine(t, cfg)
	userID := registerTestUser(t, engine, "alice")

	ctx := context.Background()
	for i := 0; i < cfg.Lockout.MaxFailedAttempts-1; i++ {
		engine.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong-password"})
	}

	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword}); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	user, err := store.GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.FailedAttempts != 0 {
		t.Fatalf("FailedAttempts = %d, want 0", user.FailedAttempts)
	}
	if user.LastLogin.IsZero() {
		t.Fatal("LastLogin was not stamped")
	}
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")

	ctx := context.Background()
	if err := engine.Deactivate(ctx, userID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	_, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword})
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestAuthenticateRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Rules["auth"] = ratelimit.Rule{Limit: 2, Window: time.Minute}

	engine, _ := newTestEngine(t, cfg)
	registerTestUser(t, engine, "alice")

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		engine.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong-password", IP: "10.0.0.9"})
	}

	_, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword, IP: "10.0.0.9"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAuthenticateRecordsOneAttemptPerCall(t *testing.T) {
	engine, store := newTestEngine(t, testConfig())
	registerTestUser(t, engine, "alice")

	ctx := context.Background()
	engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword, IP: "10.0.0.1"})
	engine.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong-password", IP: "10.0.0.2"})
	engine.Authenticate(ctx, Credentials{Username: "ghost", Password: "whatever", IP: "10.0.0.3"})

	attempts := store.Attempts()
	if len(attempts) != 3 {
		t.Fatalf("attempt count = %d, want 3", len(attempts))
	}
	if !attempts[0].Success || attempts[1].Success || attempts[2].Success {
		t.Fatalf("unexpected success flags: %+v", attempts)
	}
	if attempts[2].FailureReason != "user_not_found" {
		t.Fatalf("reason = %q, want user_not_found", attempts[2].FailureReason)
	}
}

func TestAuthenticateMFARequired(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")
	enableTestMFA(t, engine, userID)

	_, err := engine.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: testPassword,
	})
	if !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired, got %v", err)
	}
}

func TestAuthenticateWithTOTP(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")
	setup := enableTestMFA(t, engine, userID)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}

	result, err := engine.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: testPassword,
		TOTPCode: code,
	})
	if err != nil {
		t.Fatalf("Authenticate with TOTP failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access token")
	}
}

func TestAuthenticateBackupCodeIsSingleUse(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")
	setup := enableTestMFA(t, engine, userID)

	ctx := context.Background()
	code := setup.BackupCodes[0]

	if _, err := engine.Authenticate(ctx, Credentials{
		Username:   "alice",
		Password:   testPassword,
		BackupCode: code,
	}); err != nil {
		t.Fatalf("first backup-code login failed: %v", err)
	}

	_, err := engine.Authenticate(ctx, Credentials{
		Username:   "alice",
		Password:   testPassword,
		BackupCode: code,
	})
	if !errors.Is(err, ErrMFARequired) {
		t.Fatalf("reused backup code: expected ErrMFARequired, got %v", err)
	}
}

func TestAuthenticateBackupCodeConcurrentReuse(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")
	setup := enableTestMFA(t, engine, userID)

	ctx := context.Background()
	code := setup.BackupCodes[0]

	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Authenticate(ctx, Credentials{
				Username:   "alice",
				Password:   testPassword,
				BackupCode: code,
			})
			if err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("one backup code authenticated %d logins, want exactly 1", successes)
	}
}

func TestAuthenticateNewIPAlert(t *testing.T) {
	cfg := testConfig()
	store := NewMemoryStore()
	mailer := &fakeEmail{}
	engine, err := New().
		WithConfig(cfg).
		WithUserRepository(store).
		WithAttemptStore(store).
		WithEmailSender(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	registerTestUser(t, engine, "alice")
	baseline := mailer.count() // registration sends the verification mail

	ctx := context.Background()
	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword, IP: "10.0.0.1"}); err != nil {
		t.Fatalf("first login: %v", err)
	}
	// First login has no history to compare against, so no alert.
	if mailer.count() != baseline {
		t.Fatalf("unexpected alert on first login")
	}

	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword, IP: "203.0.113.7"}); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if mailer.count() != baseline+1 {
		t.Fatalf("expected one new-IP alert, sent %d extra", mailer.count()-baseline)
	}

	// Known IP stays quiet.
	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword, IP: "10.0.0.1"}); err != nil {
		t.Fatalf("third login: %v", err)
	}
	if mailer.count() != baseline+1 {
		t.Fatalf("alert sent for a known IP")
	}
}

// forgetfulAttempts keeps no history, standing in for a recent-IP window
// that has rotated past every prior login.
type forgetfulAttempts struct{}

func (forgetfulAttempts) Record(context.Context, LoginAttempt) error { return nil }

func (forgetfulAttempts) RecentSuccessIPs(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func TestAuthenticateNewIPAlertAfterHistoryRotation(t *testing.T) {
	cfg := testConfig()
	store := NewMemoryStore()
	mailer := &fakeEmail{}
	engine, err := New().
		WithConfig(cfg).
		WithUserRepository(store).
		WithAttemptStore(forgetfulAttempts{}).
		WithEmailSender(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	registerTestUser(t, engine, "alice")
	baseline := mailer.count()

	ctx := context.Background()
	// The account's first login is exempt even with no history at all.
	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword, IP: "10.0.0.1"}); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if mailer.count() != baseline {
		t.Fatalf("unexpected alert on first login")
	}

	// The history is empty, but the account has logged in before: an
	// unrecognized address must still alert.
	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword, IP: "203.0.113.7"}); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if mailer.count() != baseline+1 {
		t.Fatalf("expected a new-IP alert despite rotated history, sent %d extra", mailer.count()-baseline)
	}
}
