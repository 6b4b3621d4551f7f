package securitylog

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a security-relevant event
type EventType string

const (
	EventSetupStarted       EventType = "setup_started"
	EventEnabled            EventType = "enabled"
	EventDisabled           EventType = "disabled"
	EventVerificationFailed EventType = "verification_failed"
	EventLoginChecked       EventType = "login_checked"
	EventSuspiciousLogin    EventType = "suspicious_login"
)

// Entry is an append-only security audit record. Entries are never mutated
// or deleted by this subsystem.
type Entry struct {
	ID        uuid.UUID              `json:"id"`
	UserID    uuid.UUID              `json:"user_id"`
	EventType EventType              `json:"event_type"`
	Details   map[string]interface{} `json:"event_details,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
