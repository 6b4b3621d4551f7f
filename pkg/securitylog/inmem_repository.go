package securitylog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemRepository implements Repository using an in-memory slice
type InMemRepository struct {
	entries []Entry
	mu      sync.Mutex
}

// NewInMemRepository creates a new in-memory security log repository
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{}
}

// Append stores a new entry
func (r *InMemRepository) Append(ctx context.Context, entry Entry) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

// ListRecentByUser returns entries for a user newer than since, most recent first
func (r *InMemRepository) ListRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Entry
	for _, entry := range r.entries {
		if entry.UserID == userID && entry.CreatedAt.After(since) {
			result = append(result, entry)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
