package twofa

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerock/resto-secure/pkg/notice"
	"github.com/tablerock/resto-secure/pkg/notification"
	"github.com/tablerock/resto-secure/pkg/secerrors"
	"github.com/tablerock/resto-secure/pkg/securitylog"
	"github.com/tablerock/resto-secure/pkg/totp"
)

type stubPasswordVerifier struct {
	password string
}

func (v *stubPasswordVerifier) VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if password != v.password {
		return errors.New("password mismatch")
	}
	return nil
}

type testEnv struct {
	service  *Service
	repo     *InMemRepository
	notifier *notification.MockNotifier
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	repo := NewInMemRepository()
	logs := securitylog.NewService(securitylog.NewInMemRepository())
	notifier := notification.NewMockNotifier()
	manager, err := notice.NewSecurityNoticeManager(notifier)
	require.NoError(t, err)

	baseOpts := []Option{
		WithPasswordVerifier(&stubPasswordVerifier{password: "hunter2"}),
		WithNotificationManager(manager),
	}
	return &testEnv{
		service:  NewService(repo, logs, append(baseOpts, opts...)...),
		repo:     repo,
		notifier: notifier,
	}
}

func enroll(t *testing.T, env *testEnv, userID uuid.UUID) SetupResult {
	t.Helper()

	setup, err := env.service.Setup(context.Background(), userID, "owner@bistro.example", RequestMeta{})
	require.NoError(t, err)

	code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, env.service.Verify(context.Background(), userID, code, RequestMeta{}))
	return setup
}

func TestSetupAndVerifyEnables(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()

	setup, err := env.service.Setup(context.Background(), userID, "owner@bistro.example", RequestMeta{})
	require.NoError(t, err)
	assert.Len(t, setup.Secret, 32)
	assert.Len(t, setup.BackupCodes, totp.BACKUP_CODE_COUNT)
	assert.Contains(t, setup.OtpauthURL, "otpauth://totp/")

	settings, err := env.service.Status(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, settings.IsEnabled)

	code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, env.service.Verify(context.Background(), userID, code, RequestMeta{}))

	settings, err = env.service.Status(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, settings.IsEnabled)
	assert.NotNil(t, settings.LastUsedAt)

	// enabling sends the alert email
	require.Len(t, env.notifier.Sent(), 1)
}

func TestSetupWhilePendingRotatesSecret(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	ctx := context.Background()

	first, err := env.service.Setup(ctx, userID, "owner@bistro.example", RequestMeta{})
	require.NoError(t, err)

	second, err := env.service.Setup(ctx, userID, "owner@bistro.example", RequestMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)

	// only the latest pending secret verifies
	staleCode, err := totp.GenerateCode(first.Secret, time.Now().UTC())
	require.NoError(t, err)
	assert.Error(t, env.service.Verify(ctx, userID, staleCode, RequestMeta{}))
}

func TestSetupRejectedWhenEnabled(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	enroll(t, env, userID)

	before, err := env.repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)

	_, err = env.service.Setup(context.Background(), userID, "owner@bistro.example", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, secerrors.ErrCodeAlreadyEnabled, secerrors.GetCode(err))

	// the enabled secret survives the rejected setup
	after, err := env.repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, before.Secret, after.Secret)
	assert.True(t, after.IsEnabled)
}

func TestVerifyRejectsMalformedCodeBeforeLookup(t *testing.T) {
	env := newTestEnv(t)

	// no settings row exists, yet the shape check answers first
	err := env.service.Verify(context.Background(), uuid.New(), "abc", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, secerrors.ErrCodeInvalidToken, secerrors.GetCode(err))
}

func TestVerifyNotConfigured(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.Verify(context.Background(), uuid.New(), "123456", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, secerrors.ErrCodeNotConfigured, secerrors.GetCode(err))
}

func TestBackupCodeIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	ctx := context.Background()

	setup := enroll(t, env, userID)
	code := setup.BackupCodes[0]

	require.NoError(t, env.service.Verify(ctx, userID, code, RequestMeta{}))

	err := env.service.Verify(ctx, userID, code, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, secerrors.ErrCodeInvalidToken, secerrors.GetCode(err))
}

func TestConcurrentDistinctBackupCodes(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	ctx := context.Background()

	setup := enroll(t, env, userID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.service.Verify(ctx, userID, setup.BackupCodes[i], RequestMeta{})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// both codes are spent
	for i := 0; i < 2; i++ {
		err := env.service.Verify(ctx, userID, setup.BackupCodes[i], RequestMeta{})
		assert.Equal(t, secerrors.ErrCodeInvalidToken, secerrors.GetCode(err))
	}

	settings, err := env.repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, settings.BackupCodes, totp.BACKUP_CODE_COUNT-2)
}

func TestLockoutAndAutoUnlock(t *testing.T) {
	env := newTestEnv(t, WithLockoutPolicy(3, 50*time.Millisecond))
	userID := uuid.New()
	ctx := context.Background()

	setup, err := env.service.Setup(ctx, userID, "owner@bistro.example", RequestMeta{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := env.service.Verify(ctx, userID, "000000", RequestMeta{})
		require.Error(t, err)
		assert.Equal(t, secerrors.ErrCodeInvalidToken, secerrors.GetCode(err))
	}

	// locked: even a correct code is rejected with Locked
	code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
	require.NoError(t, err)
	err = env.service.Verify(ctx, userID, code, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, secerrors.ErrCodeLocked, secerrors.GetCode(err))

	// after the lock expires, the same correct code goes through
	time.Sleep(60 * time.Millisecond)
	code, err = totp.GenerateCode(setup.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, env.service.Verify(ctx, userID, code, RequestMeta{}))
}

func TestDisableRequiresPassword(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	ctx := context.Background()

	enroll(t, env, userID)

	err := env.service.Disable(ctx, userID, "wrong-password", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, secerrors.ErrCodeInvalidCredentials, secerrors.GetCode(err))

	settings, err := env.service.Status(ctx, userID)
	require.NoError(t, err)
	assert.True(t, settings.IsEnabled)

	require.NoError(t, env.service.Disable(ctx, userID, "hunter2", RequestMeta{}))

	settings, err = env.service.Status(ctx, userID)
	require.NoError(t, err)
	assert.False(t, settings.IsEnabled)
	assert.Empty(t, settings.Secret)

	// enable + disable alerts
	assert.Len(t, env.notifier.Sent(), 2)
}
