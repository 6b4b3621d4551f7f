package twofa

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL two-factor repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// GetByUserID retrieves the settings row for a user
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (Settings, error) {
	query := `
		SELECT user_id, secret, is_enabled, backup_codes, failed_attempts,
			locked_until, last_used_at, recovery_email, created_at, updated_at
		FROM two_factor_settings
		WHERE user_id = $1
	`

	var s Settings
	var lockedUntil, lastUsedAt sql.NullTime

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.Secret,
		&s.IsEnabled,
		&s.BackupCodes,
		&s.FailedAttempts,
		&lockedUntil,
		&lastUsedAt,
		&s.RecoveryEmail,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to get two-factor settings: %w", err)
	}

	if lockedUntil.Valid {
		s.LockedUntil = &lockedUntil.Time
	}
	if lastUsedAt.Valid {
		s.LastUsedAt = &lastUsedAt.Time
	}
	return s, nil
}

// UpsertPending inserts or overwrites a not-yet-enabled settings row.
// The conditional DO UPDATE guarantees an enabled row is never replaced.
func (r *PostgresRepository) UpsertPending(ctx context.Context, params UpsertPendingParams) (Settings, error) {
	query := `
		INSERT INTO two_factor_settings (
			user_id, secret, is_enabled, backup_codes, failed_attempts, recovery_email
		) VALUES (
			$1, $2, false, $3, 0, $4
		)
		ON CONFLICT (user_id) DO UPDATE SET
			secret = EXCLUDED.secret,
			backup_codes = EXCLUDED.backup_codes,
			is_enabled = false,
			failed_attempts = 0,
			locked_until = NULL,
			recovery_email = EXCLUDED.recovery_email,
			updated_at = NOW()
		WHERE two_factor_settings.is_enabled = false
		RETURNING user_id, secret, is_enabled, backup_codes, failed_attempts,
			locked_until, last_used_at, recovery_email, created_at, updated_at
	`

	var s Settings
	var lockedUntil, lastUsedAt sql.NullTime

	err := r.pool.QueryRow(ctx, query,
		params.UserID,
		params.Secret,
		params.BackupCodes,
		params.RecoveryEmail,
	).Scan(
		&s.UserID,
		&s.Secret,
		&s.IsEnabled,
		&s.BackupCodes,
		&s.FailedAttempts,
		&lockedUntil,
		&lastUsedAt,
		&s.RecoveryEmail,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// conflict row was enabled, DO UPDATE was filtered out
		return Settings{}, fmt.Errorf("two-factor already enabled for user %s", params.UserID)
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to upsert pending two-factor settings: %w", err)
	}

	if lockedUntil.Valid {
		s.LockedUntil = &lockedUntil.Time
	}
	if lastUsedAt.Valid {
		s.LastUsedAt = &lastUsedAt.Time
	}
	return s, nil
}

// Enable marks the settings enabled and clears failure state
func (r *PostgresRepository) Enable(ctx context.Context, userID uuid.UUID, now time.Time) error {
	query := `
		UPDATE two_factor_settings
		SET is_enabled = true,
			failed_attempts = 0,
			locked_until = NULL,
			last_used_at = $2,
			updated_at = NOW()
		WHERE user_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID, now)
	if err != nil {
		return fmt.Errorf("failed to enable two-factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkUsed stamps last_used_at and clears failures
func (r *PostgresRepository) MarkUsed(ctx context.Context, userID uuid.UUID, now time.Time) error {
	query := `
		UPDATE two_factor_settings
		SET failed_attempts = 0,
			last_used_at = $2,
			updated_at = NOW()
		WHERE user_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID, now)
	if err != nil {
		return fmt.Errorf("failed to mark two-factor used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeBackupCode removes one backup code if still present. The removal
// and the success decision are a single conditional update, so concurrent
// calls racing on the same code see exactly one winner.
func (r *PostgresRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	query := `
		UPDATE two_factor_settings
		SET backup_codes = array_remove(backup_codes, $2),
			updated_at = NOW()
		WHERE user_id = $1 AND $2 = ANY(backup_codes)
	`

	tag, err := r.pool.Exec(ctx, query, userID, code)
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RecordFailedAttempt increments the failure counter and locks at the threshold
func (r *PostgresRepository) RecordFailedAttempt(ctx context.Context, userID uuid.UUID, maxAttempts int, lockUntil time.Time) (int, bool, error) {
	query := `
		UPDATE two_factor_settings
		SET failed_attempts = CASE WHEN failed_attempts + 1 >= $2 THEN 0 ELSE failed_attempts + 1 END,
			locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING
			CASE WHEN failed_attempts = 0 THEN $2 ELSE failed_attempts END,
			locked_until IS NOT NULL AND locked_until = $3
	`

	var attempts int
	var locked bool
	err := r.pool.QueryRow(ctx, query, userID, maxAttempts, lockUntil).Scan(&attempts, &locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to record failed attempt: %w", err)
	}
	return attempts, locked, nil
}

// Disable resets the security fields but retains the row
func (r *PostgresRepository) Disable(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE two_factor_settings
		SET is_enabled = false,
			secret = '',
			backup_codes = '{}',
			failed_attempts = 0,
			locked_until = NULL,
			updated_at = NOW()
		WHERE user_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
