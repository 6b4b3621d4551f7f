package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerock/resto-secure/pkg/risk"
	"github.com/tablerock/resto-secure/pkg/securitylog"
)

const checkUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func newTestService(t *testing.T) (*Service, *securitylog.Service) {
	t.Helper()
	logs := securitylog.NewService(securitylog.NewInMemRepository())
	evaluator := risk.NewEvaluator(risk.DefaultConfig())
	return NewService(NewInMemRepository(), logs, evaluator, nil), logs
}

func TestTouchUpsertsByToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	userID := uuid.New()

	first, err := svc.Touch(ctx, TouchRequest{
		UserID:       userID,
		SessionToken: "token-a",
		IPAddress:    "203.0.113.10",
	})
	require.NoError(t, err)

	second, err := svc.Touch(ctx, TouchRequest{
		UserID:       userID,
		SessionToken: "token-a",
		IPAddress:    "203.0.113.99",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "203.0.113.99", second.IPAddress)

	active, err := svc.ListActive(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestTouchAppliesDefaultTTL(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	session, err := svc.Touch(ctx, TouchRequest{
		UserID:       uuid.New(),
		SessionToken: "token-ttl",
	})
	require.NoError(t, err)

	expected := time.Now().UTC().Add(DEFAULT_SESSION_TTL)
	assert.WithinDuration(t, expected, session.ExpiresAt, time.Minute)
}

func TestTouchRequiresToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Touch(context.Background(), TouchRequest{UserID: uuid.New()})
	assert.Error(t, err)
}

func TestCheckSessionUnfamiliarContext(t *testing.T) {
	ctx := context.Background()
	svc, logs := newTestService(t)
	userID := uuid.New()

	result, err := svc.CheckSession(ctx, CheckRequest{
		UserID:       userID,
		SessionToken: "token-check",
		IPAddress:    "203.0.113.10",
		UserAgent:    checkUA,
	})
	require.NoError(t, err)

	assert.Equal(t, userID, result.UserID)
	assert.Equal(t, risk.DeviceMobile, result.DeviceInfo.Type)
	assert.True(t, result.DeviceInfo.IsMobile)

	// empty history: new IP + new device
	assert.Equal(t, 55, result.SecurityStatus.RiskScore)
	assert.True(t, result.SecurityStatus.IsSuspicious)
	assert.False(t, result.SecurityStatus.RequiresTwoFactor)
	assert.False(t, result.SecurityStatus.TwoFactorEnabled)

	assert.Equal(t, 1, result.SessionInfo.ActiveSessions)
	assert.Contains(t, result.Recommendations, "Enable two-factor authentication to protect your account")

	history, err := logs.RecentHistory(ctx, userID, time.Hour, 10)
	require.NoError(t, err)
	types := make([]securitylog.EventType, 0, len(history))
	for _, entry := range history {
		types = append(types, entry.EventType)
	}
	assert.Contains(t, types, securitylog.EventLoginChecked)
	assert.Contains(t, types, securitylog.EventSuspiciousLogin)
}

func TestCheckSessionFamiliarContextIsQuiet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	userID := uuid.New()

	req := CheckRequest{
		UserID:       userID,
		SessionToken: "token-repeat",
		IPAddress:    "203.0.113.10",
		UserAgent:    checkUA,
	}

	_, err := svc.CheckSession(ctx, req)
	require.NoError(t, err)

	// second check sees the first one's history
	result, err := svc.CheckSession(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 0, result.SecurityStatus.RiskScore)
	assert.False(t, result.SecurityStatus.IsSuspicious)
	assert.Empty(t, result.Recommendations)
}

func TestPruneExpired(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.Touch(ctx, TouchRequest{
		UserID:       userID,
		SessionToken: "token-old",
		ExpiresAt:    time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = svc.Touch(ctx, TouchRequest{
		UserID:       userID,
		SessionToken: "token-live",
	})
	require.NoError(t, err)

	active, err := svc.ListActive(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	deleted, err := svc.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
