package securitylog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for security log data access
type Repository interface {
	// Append a new entry
	Append(ctx context.Context, entry Entry) (Entry, error)

	// List entries for a user newer than since, most recent first
	ListRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]Entry, error)
}
