package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/tablerock/resto-secure/pkg/risk"
)

// ActiveSession represents one live session tracked per device. Sessions
// are keyed by session_token: touching the same token refreshes the
// existing row instead of creating a new one.
type ActiveSession struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	SessionToken string          `json:"-"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	DeviceInfo   risk.DeviceInfo `json:"device_info"`
	LastActivity time.Time       `json:"last_activity"`
	ExpiresAt    time.Time       `json:"expires_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TouchRequest carries everything needed to upsert a session
type TouchRequest struct {
	UserID       uuid.UUID
	SessionToken string
	IPAddress    string
	UserAgent    string
	DeviceInfo   risk.DeviceInfo
	ExpiresAt    time.Time
}

// SecurityStatus is the advisory block of a session check response
type SecurityStatus struct {
	RiskScore         int  `json:"risk_score"`
	IsSuspicious      bool `json:"is_suspicious"`
	RequiresTwoFactor bool `json:"requires_two_factor"`
	TwoFactorEnabled  bool `json:"two_factor_enabled"`
}

// SessionInfo summarizes the touched session for the check response
type SessionInfo struct {
	ActiveSessions int       `json:"active_sessions"`
	LastActivity   time.Time `json:"last_activity"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// CheckResult is the full session check response
type CheckResult struct {
	UserID          uuid.UUID       `json:"user_id"`
	SecurityStatus  SecurityStatus  `json:"security_status"`
	DeviceInfo      risk.DeviceInfo `json:"device_info"`
	SessionInfo     SessionInfo     `json:"session_info"`
	Recommendations []string        `json:"recommendations"`
}
