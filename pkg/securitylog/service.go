package securitylog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service records security events. Recording is best-effort at the call
// site only in the sense that the caller's own error is never masked;
// the entry itself is always written before the caller returns.
type Service struct {
	repo Repository
}

// NewService creates a new security log service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Record appends a security event for a user
func (s *Service) Record(ctx context.Context, userID uuid.UUID, eventType EventType, details map[string]interface{}, ipAddress, userAgent string) error {
	_, err := s.repo.Append(ctx, Entry{
		UserID:    userID,
		EventType: eventType,
		Details:   details,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		slog.Error("Failed to record security event", "userID", userID, "eventType", eventType, "error", err)
		return err
	}
	return nil
}

// RecentHistory returns the user's security events within the lookback window
func (s *Service) RecentHistory(ctx context.Context, userID uuid.UUID, lookback time.Duration, limit int) ([]Entry, error) {
	return s.repo.ListRecentByUser(ctx, userID, time.Now().UTC().Add(-lookback), limit)
}
