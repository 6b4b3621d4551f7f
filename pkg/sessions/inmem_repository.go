package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemRepository is an in-memory implementation of Repository for
// development and testing
type InMemRepository struct {
	mu sync.Mutex
	// keyed by session token
	sessions map[string]ActiveSession
}

// NewInMemRepository creates a new in-memory session repository
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		sessions: make(map[string]ActiveSession),
	}
}

func (r *InMemRepository) Touch(ctx context.Context, req TouchRequest) (*ActiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	session, ok := r.sessions[req.SessionToken]
	if !ok {
		session = ActiveSession{
			ID:           uuid.New(),
			SessionToken: req.SessionToken,
			CreatedAt:    now,
		}
	}
	session.UserID = req.UserID
	session.IPAddress = req.IPAddress
	session.UserAgent = req.UserAgent
	session.DeviceInfo = req.DeviceInfo
	session.LastActivity = now
	session.ExpiresAt = req.ExpiresAt
	session.UpdatedAt = now

	r.sessions[req.SessionToken] = session
	result := session
	return &result, nil
}

func (r *InMemRepository) ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]ActiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var active []ActiveSession
	for _, session := range r.sessions {
		if session.UserID == userID && session.ExpiresAt.After(now) {
			active = append(active, session)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActivity.After(active[j].LastActivity)
	})
	return active, nil
}

func (r *InMemRepository) CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && session.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *InMemRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for token, session := range r.sessions {
		if !session.ExpiresAt.After(now) {
			delete(r.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}
