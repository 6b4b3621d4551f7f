package securitylog

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

// NewPostgresRepository creates a new PostgreSQL security log repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Append stores a new entry
func (r *PostgresRepository) Append(ctx context.Context, entry Entry) (Entry, error) {
	query := `
		INSERT INTO security_log (
			user_id, event_type, event_details, ip_address, user_agent
		) VALUES (
			$1, $2, $3, $4, $5
		) RETURNING id, created_at
	`

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal event details: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		entry.UserID,
		entry.EventType,
		details,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to append security log entry: %w", err)
	}

	return entry, nil
}

// ListRecentByUser returns entries for a user newer than since, most recent first
func (r *PostgresRepository) ListRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]Entry, error) {
	query := `
		SELECT id, user_id, event_type, event_details, ip_address, user_agent, created_at
		FROM security_log
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list security log entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var details []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.EventType,
			&details,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan security log entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read security log entries: %w", err)
	}

	return entries, nil
}
