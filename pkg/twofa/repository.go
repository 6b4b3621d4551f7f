package twofa

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no settings row exists for a user
var ErrNotFound = errors.New("two-factor settings not found")

// UpsertPendingParams holds the fields written when (re-)starting setup.
// The write must only land while the record is absent or still pending;
// an enabled record is never overwritten by setup.
type UpsertPendingParams struct {
	UserID        uuid.UUID
	Secret        string
	BackupCodes   []string
	RecoveryEmail string
}

// Repository defines the interface for two-factor settings data access.
// All mutating operations are conditional read-modify-writes so that two
// concurrent verify calls for the same user cannot double-spend a backup
// code or race the lockout counter.
type Repository interface {
	// Get the settings row for a user; ErrNotFound when absent
	GetByUserID(ctx context.Context, userID uuid.UUID) (Settings, error)

	// Insert a pending (disabled) row, or overwrite an existing row that is
	// still pending. Fails if the row is enabled.
	UpsertPending(ctx context.Context, params UpsertPendingParams) (Settings, error)

	// Mark the settings enabled, stamp last_used_at, clear failures and lock
	Enable(ctx context.Context, userID uuid.UUID, now time.Time) error

	// Stamp last_used_at and clear failures after a successful challenge
	MarkUsed(ctx context.Context, userID uuid.UUID, now time.Time) error

	// Atomically remove one backup code if it is still present.
	// Returns true only for the single call that consumed the code.
	ConsumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error)

	// Increment the failure counter; once the counter reaches maxAttempts the
	// row is locked until lockUntil and the counter restarts. Returns the
	// post-increment counter and whether this call triggered the lock.
	RecordFailedAttempt(ctx context.Context, userID uuid.UUID, maxAttempts int, lockUntil time.Time) (attempts int, locked bool, err error)

	// Reset is_enabled, failures, and lock; secret and codes are cleared but
	// the row is retained for audit continuity
	Disable(ctx context.Context, userID uuid.UUID) error
}
