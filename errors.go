package aegis

import (
	"errors"

	"github.com/aegisauth/aegis/password"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials is the generic, anti-enumeration failure for
	// every credential-path problem: unknown user, wrong password, and
	// malformed input all surface this value.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is an exported constant or variable used by the authentication engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDisabled is an exported constant or variable used by the authentication engine.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrMFARequired is an exported constant or variable used by the authentication engine.
	ErrMFARequired = errors.New("mfa required")
	// ErrMFANotConfigured is an exported constant or variable used by the authentication engine.
	ErrMFANotConfigured = errors.New("mfa not configured")
	// ErrMFAAlreadyEnabled is an exported constant or variable used by the authentication engine.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrRateLimited is an exported constant or variable used by the authentication engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrAccountExists is an exported constant or variable used by the authentication engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidUsername is an exported constant or variable used by the authentication engine.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidEmail is an exported constant or variable used by the authentication engine.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidRole is an exported constant or variable used by the authentication engine.
	ErrInvalidRole = errors.New("invalid role")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrResetInvalid is an exported constant or variable used by the authentication engine.
	ErrResetInvalid = errors.New("password reset challenge invalid")
	// ErrVerificationInvalid is an exported constant or variable used by the authentication engine.
	ErrVerificationInvalid = errors.New("email verification challenge invalid")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	//
	// ErrUserNotFound is internal to repository implementations; the engine
	// collapses it to ErrInvalidCredentials before it reaches a caller.
	ErrUserNotFound = errors.New("user not found")
	// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// PolicyError carries the structured violation list from password
// validation so callers can display every failed rule at once.
type PolicyError struct {
	Violations []string
}

// Error describes the error operation and its observable behavior.
//
// Error may return an error when input validation, dependency calls, or security checks fail.
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *PolicyError) Error() string {
	return ErrPasswordPolicy.Error()
}

// Unwrap lets errors.Is match [ErrPasswordPolicy].
func (e *PolicyError) Unwrap() error {
	return ErrPasswordPolicy
}

func newPolicyError(violations []password.Violation) *PolicyError {
	out := make([]string, len(violations))
	for i, v := range violations {
		out[i] = string(v)
	}
	return &PolicyError{Violations: out}
}
