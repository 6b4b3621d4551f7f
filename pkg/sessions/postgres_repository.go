package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Touch upserts a session by token. The device info column stores the
// classified device as JSON.
func (r *PostgresRepository) Touch(ctx context.Context, req TouchRequest) (*ActiveSession, error) {
	query := `
		INSERT INTO active_sessions (
			id, user_id, session_token, ip_address, user_agent, device_info,
			last_activity, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), $7
		)
		ON CONFLICT (session_token) DO UPDATE SET
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent,
			device_info = EXCLUDED.device_info,
			last_activity = NOW(),
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING id, user_id, session_token, ip_address, user_agent,
			device_info, last_activity, expires_at, created_at, updated_at
	`

	deviceInfo, err := json.Marshal(req.DeviceInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal device info: %w", err)
	}

	var session ActiveSession
	var deviceInfoRaw []byte
	err = r.pool.QueryRow(ctx, query,
		uuid.New(),
		req.UserID,
		req.SessionToken,
		req.IPAddress,
		req.UserAgent,
		deviceInfo,
		req.ExpiresAt,
	).Scan(
		&session.ID,
		&session.UserID,
		&session.SessionToken,
		&session.IPAddress,
		&session.UserAgent,
		&deviceInfoRaw,
		&session.LastActivity,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	if len(deviceInfoRaw) > 0 {
		if err := json.Unmarshal(deviceInfoRaw, &session.DeviceInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device info: %w", err)
		}
	}

	return &session, nil
}

// ListActive returns unexpired sessions for a user, most recently active first
func (r *PostgresRepository) ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]ActiveSession, error) {
	query := `
		SELECT id, user_id, session_token, ip_address, user_agent,
			device_info, last_activity, expires_at, created_at, updated_at
		FROM active_sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY last_activity DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ActiveSession
	for rows.Next() {
		var session ActiveSession
		var deviceInfoRaw []byte
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.SessionToken,
			&session.IPAddress,
			&session.UserAgent,
			&deviceInfoRaw,
			&session.LastActivity,
			&session.ExpiresAt,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if len(deviceInfoRaw) > 0 {
			if err := json.Unmarshal(deviceInfoRaw, &session.DeviceInfo); err != nil {
				return nil, fmt.Errorf("failed to unmarshal device info: %w", err)
			}
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	return sessions, nil
}

// CountActive returns the number of unexpired sessions for a user
func (r *PostgresRepository) CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM active_sessions
		WHERE user_id = $1 AND expires_at > $2
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}

// DeleteExpired removes sessions whose expiry is at or before now
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM active_sessions WHERE expires_at <= $1`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
