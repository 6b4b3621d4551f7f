package risk

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/tablerock/resto-secure/pkg/securitylog"
)

// Assessment is the advisory output of a risk evaluation. The evaluator
// never blocks a request itself; callers decide enforcement.
type Assessment struct {
	RiskScore         int  `json:"risk_score"`
	IsSuspicious      bool `json:"is_suspicious"`
	RequiresTwoFactor bool `json:"requires_two_factor"`
}

// Config holds the additive signal weights and decision thresholds.
// The score is monotonically non-decreasing in unfamiliarity and in the
// recent failure count.
type Config struct {
	NewIPWeight        int `json:"new_ip_weight"`
	NewDeviceWeight    int `json:"new_device_weight"`
	FailureWeight      int `json:"failure_weight"`
	MaxFailureScore    int `json:"max_failure_score"`
	RecommendThreshold int `json:"recommend_threshold"`
	RequireThreshold   int `json:"require_threshold"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		NewIPWeight:        30,
		NewDeviceWeight:    25,
		FailureWeight:      10,
		MaxFailureScore:    30,
		RecommendThreshold: 40,
		RequireThreshold:   70,
	}
}

// Evaluator scores login/session events against a user's history
type Evaluator struct {
	config Config
}

// NewEvaluator creates an evaluator with the given config
func NewEvaluator(config Config) *Evaluator {
	return &Evaluator{
		config: config,
	}
}

// Evaluate scores one event. History is the user's recent security log;
// an empty history means everything about the event is unfamiliar.
func (e *Evaluator) Evaluate(userID uuid.UUID, ipAddress, userAgent string, eventType securitylog.EventType, history []securitylog.Entry) Assessment {
	score := 0

	if !e.knownIP(ipAddress, history) {
		score += e.config.NewIPWeight
	}
	if !e.knownDevice(userAgent, history) {
		score += e.config.NewDeviceWeight
	}

	failureScore := e.recentFailures(history) * e.config.FailureWeight
	if failureScore > e.config.MaxFailureScore {
		failureScore = e.config.MaxFailureScore
	}
	score += failureScore

	assessment := Assessment{
		RiskScore:         score,
		IsSuspicious:      score >= e.config.RecommendThreshold,
		RequiresTwoFactor: score >= e.config.RequireThreshold,
	}

	if assessment.IsSuspicious {
		slog.Warn("Suspicious session event",
			"userID", userID,
			"eventType", eventType,
			"riskScore", score,
			"ipAddress", ipAddress)
	}
	return assessment
}

func (e *Evaluator) knownIP(ipAddress string, history []securitylog.Entry) bool {
	if ipAddress == "" {
		return false
	}
	for _, entry := range history {
		if entry.IPAddress == ipAddress {
			return true
		}
	}
	return false
}

func (e *Evaluator) knownDevice(userAgent string, history []securitylog.Entry) bool {
	if userAgent == "" {
		return false
	}
	signature := ClassifyDevice(userAgent).Signature()
	for _, entry := range history {
		if entry.UserAgent == "" {
			continue
		}
		if ClassifyDevice(entry.UserAgent).Signature() == signature {
			return true
		}
	}
	return false
}

func (e *Evaluator) recentFailures(history []securitylog.Entry) int {
	count := 0
	for _, entry := range history {
		if entry.EventType == securitylog.EventVerificationFailed {
			count++
		}
	}
	return count
}
