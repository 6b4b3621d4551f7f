package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for session data access
type Repository interface {
	// Touch upserts a session keyed by session token, refreshing
	// last_activity and expires_at on conflict
	Touch(ctx context.Context, req TouchRequest) (*ActiveSession, error)

	// ListActive returns the user's sessions that expire after now,
	// most recently active first
	ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]ActiveSession, error)

	// CountActive returns how many unexpired sessions the user has
	CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// DeleteExpired removes sessions whose expiry is at or before now
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
