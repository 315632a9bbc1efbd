package aegis

import (
	"context"
	"time"

	"github.com/aegisauth/aegis/permission"
)

// User is the full account record held by a [UserRepository]. The engine
// mutates it through repository methods only; accounts are deactivated,
// never hard-deleted.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string

	Role permission.Role
	// Permissions is the snapshot taken from the role table at account
	// construction. Reassigning Role does not recompute it; see
	// [Engine.RecomputePermissions] for the explicit path.
	Permissions []permission.Permission

	Active        bool
	EmailVerified bool

	FailedAttempts int
	LockUntil      time.Time
	LastLogin      time.Time

	MFAEnabled bool
	MFASecret  string
	// MFAPending holds a secret issued by SetupMFA that has not yet been
	// confirmed by EnableMFA.
	MFAPending       string
	BackupCodeHashes []string

	CreatedAt time.Time
}

// PermissionSet returns the user's snapshot as a membership set.
func (u *User) PermissionSet() permission.Set {
	return permission.NewSet(u.Permissions)
}

// Locked reports whether the account lockout window is still open.
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil.After(now)
}

// UserRepository is the injected storage interface for accounts. The engine
// owns no user state of its own; implementations must be safe for
// concurrent use. [NewMemoryStore] provides the in-memory implementation.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	// Update persists the given user wholesale. Implementations match on
	// ID. Login bookkeeping must not go through Update: a whole-record
	// write loses strikes recorded by concurrent logins, which is what the
	// three atomic methods below exist for.
	Update(ctx context.Context, user *User) error
	// RecordFailedAttempt adds one failed-login strike and returns the
	// post-increment count. When the count reaches threshold, the account
	// is locked until lockUntil in the same atomic step; a non-positive
	// threshold never locks. The increment and the lock must be a single
	// operation under the implementation's own synchronization.
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, error)
	// ConsumeBackupCode removes the exact hash from the account's
	// backup-code set and reports whether this call removed it. A false
	// return with a nil error means another caller spent the code first;
	// the check and the removal must be a single atomic operation.
	ConsumeBackupCode(ctx context.Context, id, hash string) (bool, error)
	// RecordLoginSuccess clears the strike counter and any lock, stamps
	// the last-login time, and, when newHash is non-empty, installs it as
	// the password hash, all in one atomic step.
	RecordLoginSuccess(ctx context.Context, id string, at time.Time, newHash string) error
}

// LoginAttempt is one record of the append-only authentication log: exactly
// one per Authenticate call, regardless of outcome.
type LoginAttempt struct {
	Username      string
	IP            string
	Timestamp     time.Time
	Success       bool
	FailureReason string
	UserAgent     string
}

// AttemptStore receives every [LoginAttempt]. Implementations must be safe
// for concurrent use; plain shared slices are a data race under load.
type AttemptStore interface {
	Record(ctx context.Context, attempt LoginAttempt) error
	// RecentSuccessIPs returns source IPs of recent successful logins for
	// the username, newest first, used for best-effort new-IP alerts.
	RecentSuccessIPs(ctx context.Context, username string, limit int) ([]string, error)
}

// EmailSender is the outbound mail collaborator. Sends are best-effort;
// the engine never fails a flow on a false return.
type EmailSender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) bool
}

// MetricsSink receives fire-and-forget observability events, matching the
// external metrics collaborator contract. The engine also keeps its own
// counter table; see [Engine.MetricsSnapshot].
type MetricsSink interface {
	RecordEvent(name string, tags map[string]string)
	RecordError(kind, component string)
}

// AuthResult is returned by [Engine.Authenticate] on success.
type AuthResult struct {
	UserID       string
	Role         permission.Role
	AccessToken  string
	RefreshToken string
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	// Role defaults to the configured default role when empty.
	Role permission.Role
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	UserID string
	Role   permission.Role
	// VerificationRequired is always true for new accounts: a verification
	// token has been issued and emailed. Login is not gated on completion;
	// that is the preserved, documented behavior.
	VerificationRequired bool
}

// MFASetup is returned by [Engine.SetupMFA]: the pending secret, the
// provisioning URI, and the plaintext backup codes, shown to the user
// exactly once. MFA stays disabled until [Engine.EnableMFA] confirms a code.
type MFASetup struct {
	Secret      string
	URI         string
	BackupCodes []string
}
