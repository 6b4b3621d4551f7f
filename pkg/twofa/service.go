package twofa

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tablerock/resto-secure/pkg/notice"
	"github.com/tablerock/resto-secure/pkg/notification"
	"github.com/tablerock/resto-secure/pkg/secerrors"
	"github.com/tablerock/resto-secure/pkg/securitylog"
	"github.com/tablerock/resto-secure/pkg/totp"
)

const (
	DEFAULT_ISSUER              = "resto-secure"
	DEFAULT_MAX_FAILED_ATTEMPTS = 5
	DEFAULT_LOCKOUT_DURATION    = 30 * time.Minute
)

// PasswordVerifier re-authenticates a user's password out-of-band.
// The identity store itself is an external collaborator.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error
}

// Service orchestrates the two-factor lifecycle: setup, verification,
// backup-code consumption, lockout, and disable.
type Service struct {
	repo              Repository
	logs              *securitylog.Service
	passwordVerifier  PasswordVerifier
	notifications     *notification.Manager
	issuer            string
	maxFailedAttempts int
	lockoutDuration   time.Duration
}

// Option configures the Service
type Option func(*Service)

// WithPasswordVerifier sets the password re-authentication collaborator
func WithPasswordVerifier(v PasswordVerifier) Option {
	return func(s *Service) {
		s.passwordVerifier = v
	}
}

// WithNotificationManager sets the manager used for security alert emails
func WithNotificationManager(m *notification.Manager) Option {
	return func(s *Service) {
		s.notifications = m
	}
}

// WithIssuer sets the issuer embedded in otpauth provisioning URLs
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithLockoutPolicy sets the failed-attempt threshold and lock duration
func WithLockoutPolicy(maxFailedAttempts int, lockoutDuration time.Duration) Option {
	return func(s *Service) {
		s.maxFailedAttempts = maxFailedAttempts
		s.lockoutDuration = lockoutDuration
	}
}

// NewService creates a new two-factor service
func NewService(repo Repository, logs *securitylog.Service, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		logs:              logs,
		issuer:            DEFAULT_ISSUER,
		maxFailedAttempts: DEFAULT_MAX_FAILED_ATTEMPTS,
		lockoutDuration:   DEFAULT_LOCKOUT_DURATION,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Setup begins (or restarts) two-factor enrollment for a user. A fresh
// secret and backup-code batch are generated and persisted disabled; the
// caller must confirm with Verify before the settings take effect.
// Re-invocation while still pending overwrites the pending secret.
func (s *Service) Setup(ctx context.Context, userID uuid.UUID, email string, meta RequestMeta) (SetupResult, error) {
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return SetupResult{}, secerrors.StoreFailure(err, "failed to load two-factor settings")
	}
	if err == nil && existing.IsEnabled {
		return SetupResult{}, secerrors.New(secerrors.ErrCodeAlreadyEnabled, "two-factor authentication is already enabled")
	}

	key, err := totp.GenerateSecret(s.issuer, email)
	if err != nil {
		return SetupResult{}, secerrors.Wrap(err, secerrors.ErrCodeInternal, "failed to generate secret")
	}

	backupCodes, err := totp.GenerateBackupCodes()
	if err != nil {
		return SetupResult{}, secerrors.Wrap(err, secerrors.ErrCodeInternal, "failed to generate backup codes")
	}

	_, err = s.repo.UpsertPending(ctx, UpsertPendingParams{
		UserID:        userID,
		Secret:        key.Secret,
		BackupCodes:   backupCodes,
		RecoveryEmail: email,
	})
	if err != nil {
		return SetupResult{}, secerrors.StoreFailure(err, "failed to persist pending two-factor settings")
	}

	s.record(ctx, userID, securitylog.EventSetupStarted, nil, meta)
	slog.Info("Two-factor setup started", "userID", userID)

	return SetupResult{
		Secret:      key.Secret,
		OtpauthURL:  key.OtpauthURL,
		BackupCodes: backupCodes,
	}, nil
}

// Verify checks a submitted code against the user's TOTP secret and, on a
// miss, against the single-use backup-code set. The first successful call
// after setup enables the settings; later successes gate ongoing logins
// through the same contract. Failures never reveal which check missed.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, code string, meta RequestMeta) error {
	if !isTotpCandidate(code) && !isBackupCandidate(code) {
		return secerrors.New(secerrors.ErrCodeInvalidToken, "invalid verification code")
	}

	settings, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return secerrors.New(secerrors.ErrCodeNotConfigured, "two-factor authentication is not configured")
	}
	if err != nil {
		return secerrors.StoreFailure(err, "failed to load two-factor settings")
	}

	now := time.Now().UTC()
	if settings.LockedUntil != nil && now.Before(*settings.LockedUntil) {
		s.record(ctx, userID, securitylog.EventVerificationFailed, map[string]interface{}{
			"reason":       "locked",
			"locked_until": settings.LockedUntil.Format(time.RFC3339),
		}, meta)
		slog.Warn("Two-factor verification rejected, account locked", "userID", userID, "lockedUntil", settings.LockedUntil)
		return secerrors.New(secerrors.ErrCodeLocked, "too many failed attempts, try again later")
	}

	ok, err := s.checkCode(ctx, userID, settings.Secret, code, now)
	if err != nil {
		return err
	}
	if !ok {
		attempts, locked, err := s.repo.RecordFailedAttempt(ctx, userID, s.maxFailedAttempts, now.Add(s.lockoutDuration))
		if err != nil {
			slog.Error("Failed to record failed verification attempt", "userID", userID, "error", err)
		}
		s.record(ctx, userID, securitylog.EventVerificationFailed, map[string]interface{}{
			"failed_attempts": attempts,
			"locked":          locked,
		}, meta)
		slog.Warn("Two-factor verification failed", "userID", userID, "failedAttempts", attempts, "locked", locked)
		return secerrors.New(secerrors.ErrCodeInvalidToken, "invalid verification code")
	}

	if !settings.IsEnabled {
		if err := s.repo.Enable(ctx, userID, now); err != nil {
			return secerrors.StoreFailure(err, "failed to enable two-factor settings")
		}
		s.record(ctx, userID, securitylog.EventEnabled, nil, meta)
		s.sendAlert(notice.TwoFactorEnabledNotice, settings.RecoveryEmail, userID)
		slog.Info("Two-factor authentication enabled", "userID", userID)
		return nil
	}

	if err := s.repo.MarkUsed(ctx, userID, now); err != nil {
		return secerrors.StoreFailure(err, "failed to update two-factor settings")
	}
	return nil
}

// Disable turns off two-factor authentication after re-authenticating the
// user's password. The settings row is retained with its fields reset.
func (s *Service) Disable(ctx context.Context, userID uuid.UUID, password string, meta RequestMeta) error {
	if password == "" {
		return secerrors.InvalidInput("password", "must not be empty")
	}
	if s.passwordVerifier == nil {
		return secerrors.New(secerrors.ErrCodeInternal, "password verifier not configured")
	}

	if err := s.passwordVerifier.VerifyPassword(ctx, userID, password); err != nil {
		slog.Warn("Two-factor disable rejected, password re-auth failed", "userID", userID)
		return secerrors.New(secerrors.ErrCodeInvalidCredentials, "password verification failed")
	}

	settings, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return secerrors.New(secerrors.ErrCodeNotConfigured, "two-factor authentication is not configured")
	}
	if err != nil {
		return secerrors.StoreFailure(err, "failed to load two-factor settings")
	}

	if err := s.repo.Disable(ctx, userID); err != nil {
		return secerrors.StoreFailure(err, "failed to disable two-factor settings")
	}

	s.record(ctx, userID, securitylog.EventDisabled, nil, meta)
	s.sendAlert(notice.TwoFactorDisabledNotice, settings.RecoveryEmail, userID)
	slog.Info("Two-factor authentication disabled", "userID", userID)
	return nil
}

// Status reports whether two-factor authentication is enabled for a user
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (Settings, error) {
	settings, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Settings{}, secerrors.New(secerrors.ErrCodeNotConfigured, "two-factor authentication is not configured")
	}
	if err != nil {
		return Settings{}, secerrors.StoreFailure(err, "failed to load two-factor settings")
	}
	return settings, nil
}

// checkCode tries the TOTP verifier first, then the backup-code set.
// The backup-code branch is a single conditional update in the repository,
// which is what makes the single-use contract hold under concurrency.
func (s *Service) checkCode(ctx context.Context, userID uuid.UUID, secret, code string, now time.Time) (bool, error) {
	if isTotpCandidate(code) && secret != "" {
		valid, err := totp.Verify(secret, code, now)
		if err != nil {
			return false, secerrors.Wrap(err, secerrors.ErrCodeInternal, "failed to validate passcode")
		}
		if valid {
			return true, nil
		}
	}

	if isBackupCandidate(code) {
		consumed, err := s.repo.ConsumeBackupCode(ctx, userID, code)
		if err != nil {
			return false, secerrors.StoreFailure(err, "failed to check backup code")
		}
		return consumed, nil
	}

	return false, nil
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, eventType securitylog.EventType, details map[string]interface{}, meta RequestMeta) {
	if s.logs == nil {
		return
	}
	// audit write happens before the caller sees the outcome; an audit
	// failure is logged but never masks the operation result
	_ = s.logs.Record(ctx, userID, eventType, details, meta.IPAddress, meta.UserAgent)
}

func (s *Service) sendAlert(noticeType notification.NoticeType, email string, userID uuid.UUID) {
	if s.notifications == nil || email == "" {
		return
	}
	err := s.notifications.Send(noticeType, notification.NotificationData{
		To: email,
		Data: map[string]string{
			"UserId": userID.String(),
		},
	})
	if err != nil {
		slog.Error("Failed to send security alert", "noticeType", noticeType, "userID", userID, "error", err)
	}
}

func isTotpCandidate(code string) bool {
	if len(code) != totp.DIGITS {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isBackupCandidate(code string) bool {
	if len(code) != totp.BACKUP_CODE_LENGTH {
		return false
	}
	for _, c := range code {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
