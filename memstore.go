package aegis

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory [UserRepository] and
// [AttemptStore], for tests and embedders that have not wired a database
// yet. Lookups are case-insensitive on username and email, matching common
// registration semantics.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string
	byEmail    map[string]string
	attempts   []LoginAttempt
}

// NewMemoryStore describes the newmemorystore operation and its observable behavior.
//
// NewMemoryStore may return an error when input validation, dependency calls, or security checks fail.
// NewMemoryStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func cloneUser(u *User) *User {
	out := *u
	out.Permissions = append(out.Permissions[:0:0], u.Permissions...)
	out.BackupCodeHashes = append(out.BackupCodeHashes[:0:0], u.BackupCodeHashes...)
	return &out
}

// GetByUsername describes the getbyusername operation and its observable behavior.
//
// GetByUsername may return an error when input validation, dependency calls, or security checks fail.
// GetByUsername does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(s.byID[id]), nil
}

// GetByEmail describes the getbyemail operation and its observable behavior.
//
// GetByEmail may return an error when input validation, dependency calls, or security checks fail.
// GetByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(s.byID[id]), nil
}

// GetByID describes the getbyid operation and its observable behavior.
//
// GetByID may return an error when input validation, dependency calls, or security checks fail.
// GetByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uname := strings.ToLower(user.Username)
	email := strings.ToLower(user.Email)
	if _, exists := s.byUsername[uname]; exists {
		return ErrAccountExists
	}
	if _, exists := s.byEmail[email]; exists {
		return ErrAccountExists
	}

	s.byID[user.ID] = cloneUser(user)
	s.byUsername[uname] = user.ID
	s.byEmail[email] = user.ID
	return nil
}

// Update describes the update operation and its observable behavior.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
// Update does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Update(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[user.ID]; !ok {
		return ErrUserNotFound
	}
	s.byID[user.ID] = cloneUser(user)
	return nil
}

// RecordFailedAttempt describes the recordfailedattempt operation and its observable behavior.
//
// RecordFailedAttempt may return an error when input validation, dependency calls, or security checks fail.
// RecordFailedAttempt does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) RecordFailedAttempt(_ context.Context, id string, threshold int, lockUntil time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	user.FailedAttempts++
	if threshold > 0 && user.FailedAttempts >= threshold {
		user.LockUntil = lockUntil
	}
	return user.FailedAttempts, nil
}

// ConsumeBackupCode describes the consumebackupcode operation and its observable behavior.
//
// ConsumeBackupCode may return an error when input validation, dependency calls, or security checks fail.
// ConsumeBackupCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) ConsumeBackupCode(_ context.Context, id, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return false, ErrUserNotFound
	}
	for i, candidate := range user.BackupCodeHashes {
		if candidate == hash {
			remaining := make([]string, 0, len(user.BackupCodeHashes)-1)
			remaining = append(remaining, user.BackupCodeHashes[:i]...)
			remaining = append(remaining, user.BackupCodeHashes[i+1:]...)
			user.BackupCodeHashes = remaining
			return true, nil
		}
	}
	return false, nil
}

// RecordLoginSuccess describes the recordloginsuccess operation and its observable behavior.
//
// RecordLoginSuccess may return an error when input validation, dependency calls, or security checks fail.
// RecordLoginSuccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) RecordLoginSuccess(_ context.Context, id string, at time.Time, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.FailedAttempts = 0
	user.LockUntil = time.Time{}
	user.LastLogin = at
	if newHash != "" {
		user.PasswordHash = newHash
	}
	return nil
}

// Record describes the record operation and its observable behavior.
//
// Record may return an error when input validation, dependency calls, or security checks fail.
// Record does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Record(_ context.Context, attempt LoginAttempt) error {
	s.mu.Lock()
	s.attempts = append(s.attempts, attempt)
	s.mu.Unlock()
	return nil
}

// RecentSuccessIPs describes the recentsuccessips operation and its observable behavior.
//
// RecentSuccessIPs may return an error when input validation, dependency calls, or security checks fail.
// RecentSuccessIPs does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) RecentSuccessIPs(_ context.Context, username string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uname := strings.ToLower(username)
	var out []string
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		a := s.attempts[i]
		if a.Success && strings.ToLower(a.Username) == uname {
			out = append(out, a.IP)
		}
	}
	return out, nil
}

// Attempts returns a copy of the append-only attempt log.
func (s *MemoryStore) Attempts() []LoginAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LoginAttempt(nil), s.attempts...)
}
