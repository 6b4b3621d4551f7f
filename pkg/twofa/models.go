package twofa

import (
	"time"

	"github.com/google/uuid"
)

// Settings is the per-user two-factor record.
// Invariant: IsEnabled implies Secret is non-empty and was confirmed by a
// completed verification. The record is retained on disable; only the
// security-relevant fields are reset.
type Settings struct {
	UserID         uuid.UUID  `json:"user_id"`
	Secret         string     `json:"-"`
	IsEnabled      bool       `json:"is_enabled"`
	BackupCodes    []string   `json:"-"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	RecoveryEmail  string     `json:"recovery_email,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SetupResult is returned from Setup for the client to finish enrollment
type SetupResult struct {
	Secret      string   `json:"secret"`
	OtpauthURL  string   `json:"qr_code"`
	BackupCodes []string `json:"backup_codes"`
}

// RequestMeta carries per-request caller details used for audit logging.
// It is passed explicitly so operations stay testable with constructed values.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
