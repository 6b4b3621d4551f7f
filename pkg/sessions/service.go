package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tablerock/resto-secure/pkg/notice"
	"github.com/tablerock/resto-secure/pkg/notification"
	"github.com/tablerock/resto-secure/pkg/risk"
	"github.com/tablerock/resto-secure/pkg/secerrors"
	"github.com/tablerock/resto-secure/pkg/securitylog"
	"github.com/tablerock/resto-secure/pkg/twofa"
)

const (
	DEFAULT_SESSION_TTL         = 24 * time.Hour
	DEFAULT_HISTORY_LOOKBACK    = 30 * 24 * time.Hour
	DEFAULT_HISTORY_LIMIT       = 100
	DEFAULT_MAX_ACTIVE_SESSIONS = 5
)

// Service tracks per-device sessions and runs the risk check that login
// flows consult on every request.
type Service struct {
	repo              Repository
	logs              *securitylog.Service
	evaluator         *risk.Evaluator
	twoFactor         *twofa.Service
	notifications     *notification.Manager
	sessionTTL        time.Duration
	historyLookback   time.Duration
	historyLimit      int
	maxActiveSessions int
}

// Option configures the Service
type Option func(*Service)

// WithSessionTTL sets how long a touched session stays active
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

// WithNotificationManager sets the manager used for suspicious-login alerts
func WithNotificationManager(m *notification.Manager) Option {
	return func(s *Service) {
		s.notifications = m
	}
}

// WithHistoryWindow sets how much security log history feeds the evaluator
func WithHistoryWindow(lookback time.Duration, limit int) Option {
	return func(s *Service) {
		s.historyLookback = lookback
		s.historyLimit = limit
	}
}

// WithMaxActiveSessions sets the advisory active-session ceiling
func WithMaxActiveSessions(max int) Option {
	return func(s *Service) {
		s.maxActiveSessions = max
	}
}

// NewService creates a new session service
func NewService(repo Repository, logs *securitylog.Service, evaluator *risk.Evaluator, twoFactor *twofa.Service, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		logs:              logs,
		evaluator:         evaluator,
		twoFactor:         twoFactor,
		sessionTTL:        DEFAULT_SESSION_TTL,
		historyLookback:   DEFAULT_HISTORY_LOOKBACK,
		historyLimit:      DEFAULT_HISTORY_LIMIT,
		maxActiveSessions: DEFAULT_MAX_ACTIVE_SESSIONS,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckRequest carries the identity and request context for a session check
type CheckRequest struct {
	UserID       uuid.UUID
	SessionToken string
	IPAddress    string
	UserAgent    string
}

// Touch upserts the session for a token, extending its expiry by the
// configured TTL. Repeated touches of the same token refresh one row.
func (s *Service) Touch(ctx context.Context, req TouchRequest) (*ActiveSession, error) {
	if req.SessionToken == "" {
		return nil, secerrors.InvalidInput("session_token", "must not be empty")
	}
	if req.ExpiresAt.IsZero() {
		req.ExpiresAt = time.Now().UTC().Add(s.sessionTTL)
	}
	session, err := s.repo.Touch(ctx, req)
	if err != nil {
		return nil, secerrors.StoreFailure(err, "failed to record session")
	}
	return session, nil
}

// CheckSession classifies the calling device, scores the event against the
// user's recent history, refreshes the session row, and returns an advisory
// security status. It never blocks the request itself.
func (s *Service) CheckSession(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if req.SessionToken == "" {
		return nil, secerrors.InvalidInput("session_token", "must not be empty")
	}

	deviceInfo := risk.ClassifyDevice(req.UserAgent)

	history, err := s.recentHistory(ctx, req.UserID)
	if err != nil {
		slog.Error("Failed to load security history, scoring without it", "userID", req.UserID, "error", err)
		history = nil
	}

	assessment := s.evaluator.Evaluate(req.UserID, req.IPAddress, req.UserAgent, securitylog.EventLoginChecked, history)

	session, err := s.Touch(ctx, TouchRequest{
		UserID:       req.UserID,
		SessionToken: req.SessionToken,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		DeviceInfo:   deviceInfo,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	activeCount, err := s.repo.CountActive(ctx, req.UserID, now)
	if err != nil {
		return nil, secerrors.StoreFailure(err, "failed to count active sessions")
	}

	twoFactorEnabled, recoveryEmail := s.twoFactorStatus(ctx, req.UserID)

	s.recordCheck(ctx, req, deviceInfo, assessment)
	if assessment.IsSuspicious {
		s.sendSuspiciousAlert(recoveryEmail, req)
	}

	return &CheckResult{
		UserID: req.UserID,
		SecurityStatus: SecurityStatus{
			RiskScore:         assessment.RiskScore,
			IsSuspicious:      assessment.IsSuspicious,
			RequiresTwoFactor: assessment.RequiresTwoFactor,
			TwoFactorEnabled:  twoFactorEnabled,
		},
		DeviceInfo: deviceInfo,
		SessionInfo: SessionInfo{
			ActiveSessions: activeCount,
			LastActivity:   session.LastActivity,
			ExpiresAt:      session.ExpiresAt,
		},
		Recommendations: s.recommendations(assessment, twoFactorEnabled, activeCount),
	}, nil
}

// ListActive returns the user's unexpired sessions
func (s *Service) ListActive(ctx context.Context, userID uuid.UUID) ([]ActiveSession, error) {
	sessions, err := s.repo.ListActive(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, secerrors.StoreFailure(err, "failed to list active sessions")
	}
	return sessions, nil
}

// PruneExpired removes expired session rows. Intended for periodic
// maintenance alongside the backup scheduler.
func (s *Service) PruneExpired(ctx context.Context) (int, error) {
	deleted, err := s.repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, secerrors.StoreFailure(err, "failed to prune expired sessions")
	}
	if deleted > 0 {
		slog.Info("Pruned expired sessions", "deleted", deleted)
	}
	return deleted, nil
}

func (s *Service) recentHistory(ctx context.Context, userID uuid.UUID) ([]securitylog.Entry, error) {
	if s.logs == nil {
		return nil, nil
	}
	return s.logs.RecentHistory(ctx, userID, s.historyLookback, s.historyLimit)
}

func (s *Service) twoFactorStatus(ctx context.Context, userID uuid.UUID) (bool, string) {
	if s.twoFactor == nil {
		return false, ""
	}
	settings, err := s.twoFactor.Status(ctx, userID)
	if err != nil {
		// no settings row means 2FA was never configured
		if secerrors.IsCode(err, secerrors.ErrCodeNotConfigured) {
			return false, ""
		}
		slog.Error("Failed to load two-factor status", "userID", userID, "error", err)
		return false, ""
	}
	return settings.IsEnabled, settings.RecoveryEmail
}

func (s *Service) recordCheck(ctx context.Context, req CheckRequest, deviceInfo risk.DeviceInfo, assessment risk.Assessment) {
	if s.logs == nil {
		return
	}
	details := map[string]interface{}{
		"risk_score":  assessment.RiskScore,
		"device_type": string(deviceInfo.Type),
	}
	_ = s.logs.Record(ctx, req.UserID, securitylog.EventLoginChecked, details, req.IPAddress, req.UserAgent)

	if assessment.IsSuspicious {
		_ = s.logs.Record(ctx, req.UserID, securitylog.EventSuspiciousLogin, details, req.IPAddress, req.UserAgent)
	}
}

func (s *Service) sendSuspiciousAlert(email string, req CheckRequest) {
	if s.notifications == nil || email == "" {
		return
	}
	err := s.notifications.Send(notice.SuspiciousLoginNotice, notification.NotificationData{
		To: email,
		Data: map[string]string{
			"UserId":    req.UserID.String(),
			"IpAddress": req.IPAddress,
		},
	})
	if err != nil {
		slog.Error("Failed to send suspicious login alert", "userID", req.UserID, "error", err)
	}
}

func (s *Service) recommendations(assessment risk.Assessment, twoFactorEnabled bool, activeCount int) []string {
	recommendations := []string{}
	if assessment.IsSuspicious && !twoFactorEnabled {
		recommendations = append(recommendations, "Enable two-factor authentication to protect your account")
	}
	if assessment.RequiresTwoFactor {
		recommendations = append(recommendations, "Complete two-factor verification before continuing")
	}
	if activeCount > s.maxActiveSessions {
		recommendations = append(recommendations, fmt.Sprintf("You have %d active sessions; review and sign out of unused devices", activeCount))
	}
	return recommendations
}
