package risk

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tablerock/resto-secure/pkg/securitylog"
)

const (
	knownIP = "203.0.113.10"
	knownUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

func historyWith(entries ...securitylog.Entry) []securitylog.Entry {
	return entries
}

func knownEntry() securitylog.Entry {
	return securitylog.Entry{
		EventType: securitylog.EventLoginChecked,
		IPAddress: knownIP,
		UserAgent: knownUA,
	}
}

func TestEvaluateFamiliarContext(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	got := e.Evaluate(uuid.New(), knownIP, knownUA, securitylog.EventLoginChecked, historyWith(knownEntry()))

	assert.Equal(t, 0, got.RiskScore)
	assert.False(t, got.IsSuspicious)
	assert.False(t, got.RequiresTwoFactor)
}

func TestEvaluateEmptyHistoryIsUnfamiliar(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	got := e.Evaluate(uuid.New(), knownIP, knownUA, securitylog.EventLoginChecked, nil)

	// new IP + new device
	assert.Equal(t, 55, got.RiskScore)
	assert.True(t, got.IsSuspicious)
	assert.False(t, got.RequiresTwoFactor)
}

func TestEvaluateNewIPOnly(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	got := e.Evaluate(uuid.New(), "198.51.100.7", knownUA, securitylog.EventLoginChecked, historyWith(knownEntry()))

	assert.Equal(t, 30, got.RiskScore)
	assert.False(t, got.IsSuspicious)
}

func TestEvaluateFailureScoreIsCapped(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	history := historyWith(knownEntry())
	for i := 0; i < 10; i++ {
		history = append(history, securitylog.Entry{
			EventType: securitylog.EventVerificationFailed,
			IPAddress: knownIP,
			UserAgent: knownUA,
		})
	}

	got := e.Evaluate(uuid.New(), knownIP, knownUA, securitylog.EventLoginChecked, history)

	// 10 failures * 10 would be 100, capped at 30
	assert.Equal(t, 30, got.RiskScore)
}

func TestEvaluateRequireThreshold(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	history := historyWith(
		securitylog.Entry{EventType: securitylog.EventVerificationFailed, IPAddress: "192.0.2.1"},
		securitylog.Entry{EventType: securitylog.EventVerificationFailed, IPAddress: "192.0.2.1"},
	)

	// unfamiliar IP and device plus two recent failures
	got := e.Evaluate(uuid.New(), knownIP, knownUA, securitylog.EventLoginChecked, history)

	assert.Equal(t, 75, got.RiskScore)
	assert.True(t, got.IsSuspicious)
	assert.True(t, got.RequiresTwoFactor)
}

func TestEvaluateMonotonicInFailures(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	userID := uuid.New()

	history := historyWith(knownEntry())
	prev := e.Evaluate(userID, knownIP, knownUA, securitylog.EventLoginChecked, history).RiskScore
	for i := 0; i < 5; i++ {
		history = append(history, securitylog.Entry{
			EventType: securitylog.EventVerificationFailed,
			IPAddress: knownIP,
			UserAgent: knownUA,
		})
		score := e.Evaluate(userID, knownIP, knownUA, securitylog.EventLoginChecked, history).RiskScore
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestEvaluateDeviceFamiliarityBySignature(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// same browser/OS class as history, different minor version string
	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0 Safari/537.36"

	got := e.Evaluate(uuid.New(), knownIP, ua, securitylog.EventLoginChecked, historyWith(knownEntry()))

	assert.Equal(t, 0, got.RiskScore)
}
