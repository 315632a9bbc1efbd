package aegis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/aegisauth/aegis/mfa"
)

// enableTestMFA walks the full two-phase enrollment for the user and
// returns the setup material.
func enableTestMFA(t *testing.T, engine *Engine, userID string) *MFASetup {
	t.Helper()

	ctx := context.Background()
	setup, err := engine.SetupMFA(ctx, userID)
	if err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if err := engine.EnableMFA(ctx, userID, code); err != nil {
		t.Fatalf("EnableMFA: %v", err)
	}
	return setup
}

func TestSetupMFAReturnsBackupCodes(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")

	setup, err := engine.SetupMFA(context.Background(), userID)
	if err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}
	if setup.Secret == "" || setup.URI == "" {
		t.Fatal("expected secret and provisioning URI")
	}
	if len(setup.BackupCodes) != mfa.BackupCodeCount {
		t.Fatalf("backup codes = %d, want %d", len(setup.BackupCodes), mfa.BackupCodeCount)
	}
}

func TestSetupMFADoesNotEnableWithoutConfirmation(t *testing.T) {
	engine, store := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")

	ctx := context.Background()
	if _, err := engine.SetupMFA(ctx, userID); err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}

	user, err := store.GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.MFAEnabled {
		t.Fatal("MFA enabled before confirmation")
	}
	if user.MFAPending == "" {
		t.Fatal("pending secret missing after setup")
	}

	// Login remains single-factor until confirmation.
	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: testPassword}); err != nil {
		t.Fatalf("Authenticate before confirmation: %v", err)
	}
}

func TestEnableMFARejectsBadCode(t *testing.T) {
	engine, store := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")

	ctx := context.Background()
	if _, err := engine.SetupMFA(ctx, userID); err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}

	if err := engine.EnableMFA(ctx, userID, "000000"); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired, got %v", err)
	}

	user, _ := store.GetByID(ctx, userID)
	if user.MFAEnabled {
		t.Fatal("MFA enabled despite failed confirmation")
	}
}

func TestEnableMFAWithoutSetup(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")

	err := engine.EnableMFA(context.Background(), userID, "123456")
	if !errors.Is(err, ErrMFANotConfigured) {
		t.Fatalf("expected ErrMFANotConfigured, got %v", err)
	}
}

func TestSetupMFARejectedWhenEnabled(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")
	enableTestMFA(t, engine, userID)

	_, err := engine.SetupMFA(context.Background(), userID)
	if !errors.Is(err, ErrMFAAlreadyEnabled) {
		t.Fatalf("expected ErrMFAAlreadyEnabled, got %v", err)
	}
}

func TestRegenerateBackupCodesInvalidatesOldSet(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")
	setup := enableTestMFA(t, engine, userID)

	ctx := context.Background()
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}

	fresh, err := engine.RegenerateBackupCodes(ctx, userID, code)
	if err != nil {
		t.Fatalf("RegenerateBackupCodes: %v", err)
	}
	if len(fresh) != mfa.BackupCodeCount {
		t.Fatalf("fresh codes = %d, want %d", len(fresh), mfa.BackupCodeCount)
	}

	// An old code no longer authenticates; a fresh one does.
	_, err = engine.Authenticate(ctx, Credentials{
		Username:   "alice",
		Password:   testPassword,
		BackupCode: setup.BackupCodes[0],
	})
	if !errors.Is(err, ErrMFARequired) {
		t.Fatalf("old backup code: expected ErrMFARequired, got %v", err)
	}

	if _, err := engine.Authenticate(ctx, Credentials{
		Username:   "alice",
		Password:   testPassword,
		BackupCode: fresh[0],
	}); err != nil {
		t.Fatalf("fresh backup code login failed: %v", err)
	}
}

func TestRegenerateBackupCodesRequiresTOTP(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	userID := registerTestUser(t, engine, "alice")
	enableTestMFA(t, engine, userID)

	_, err := engine.RegenerateBackupCodes(context.Background(), userID, "000000")
	if !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired, got %v", err)
	}
}
