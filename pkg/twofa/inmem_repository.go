package twofa

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemRepository implements Repository using an in-memory map
type InMemRepository struct {
	settings map[uuid.UUID]Settings
	mu       sync.Mutex
}

// NewInMemRepository creates a new in-memory two-factor repository
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		settings: make(map[uuid.UUID]Settings),
	}
}

// GetByUserID retrieves the settings row for a user
func (r *InMemRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.settings[userID]
	if !exists {
		return Settings{}, ErrNotFound
	}
	return cloneSettings(s), nil
}

// UpsertPending inserts or overwrites a not-yet-enabled settings row
func (r *InMemRepository) UpsertPending(ctx context.Context, params UpsertPendingParams) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, exists := r.settings[params.UserID]
	if exists && existing.IsEnabled {
		return Settings{}, fmt.Errorf("two-factor already enabled for user %s", params.UserID)
	}

	s := Settings{
		UserID:        params.UserID,
		Secret:        params.Secret,
		BackupCodes:   slices.Clone(params.BackupCodes),
		RecoveryEmail: params.RecoveryEmail,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if exists {
		s.CreatedAt = existing.CreatedAt
	}
	r.settings[params.UserID] = s
	return cloneSettings(s), nil
}

// Enable marks the settings enabled and clears failure state
func (r *InMemRepository) Enable(ctx context.Context, userID uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.settings[userID]
	if !exists {
		return ErrNotFound
	}
	s.IsEnabled = true
	s.FailedAttempts = 0
	s.LockedUntil = nil
	s.LastUsedAt = &now
	s.UpdatedAt = now
	r.settings[userID] = s
	return nil
}

// MarkUsed stamps last_used_at and clears failures
func (r *InMemRepository) MarkUsed(ctx context.Context, userID uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.settings[userID]
	if !exists {
		return ErrNotFound
	}
	s.FailedAttempts = 0
	s.LastUsedAt = &now
	s.UpdatedAt = now
	r.settings[userID] = s
	return nil
}

// ConsumeBackupCode removes one backup code if still present.
// The membership check and the removal happen under the same lock, so a
// code can validate at most once even under concurrent verify calls.
func (r *InMemRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.settings[userID]
	if !exists {
		return false, ErrNotFound
	}

	idx := slices.Index(s.BackupCodes, code)
	if idx < 0 {
		return false, nil
	}
	s.BackupCodes = slices.Delete(slices.Clone(s.BackupCodes), idx, idx+1)
	s.UpdatedAt = time.Now().UTC()
	r.settings[userID] = s
	return true, nil
}

// RecordFailedAttempt increments the failure counter and locks at the threshold
func (r *InMemRepository) RecordFailedAttempt(ctx context.Context, userID uuid.UUID, maxAttempts int, lockUntil time.Time) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.settings[userID]
	if !exists {
		return 0, false, ErrNotFound
	}

	attempts := s.FailedAttempts + 1
	locked := maxAttempts > 0 && attempts >= maxAttempts
	if locked {
		until := lockUntil
		s.LockedUntil = &until
		s.FailedAttempts = 0
	} else {
		s.FailedAttempts = attempts
	}
	s.UpdatedAt = time.Now().UTC()
	r.settings[userID] = s
	return attempts, locked, nil
}

// Disable resets the security fields but retains the row
func (r *InMemRepository) Disable(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.settings[userID]
	if !exists {
		return ErrNotFound
	}
	s.IsEnabled = false
	s.Secret = ""
	s.BackupCodes = nil
	s.FailedAttempts = 0
	s.LockedUntil = nil
	s.UpdatedAt = time.Now().UTC()
	r.settings[userID] = s
	return nil
}

func cloneSettings(s Settings) Settings {
	s.BackupCodes = slices.Clone(s.BackupCodes)
	if s.LockedUntil != nil {
		until := *s.LockedUntil
		s.LockedUntil = &until
	}
	if s.LastUsedAt != nil {
		at := *s.LastUsedAt
		s.LastUsedAt = &at
	}
	return s
}
