package totp

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlzd/gotp"
)

func TestGenerateSecret(t *testing.T) {
	key, err := GenerateSecret("resto-secure", "owner@bistro.example")
	require.NoError(t, err)
	assert.Len(t, key.Secret, 32)
	assert.NotContains(t, key.Secret, "=")
	assert.True(t, strings.HasPrefix(key.OtpauthURL, "otpauth://totp/"))
	assert.Contains(t, key.OtpauthURL, "issuer=resto-secure")

	// secrets must not repeat
	other, err := GenerateSecret("resto-secure", "owner@bistro.example")
	require.NoError(t, err)
	assert.NotEqual(t, key.Secret, other.Secret)
}

func TestGenerateCodeValidatesImmediately(t *testing.T) {
	key, err := GenerateSecret("resto-secure", "owner@bistro.example")
	require.NoError(t, err)

	now := time.Now().UTC()
	code, err := GenerateCode(key.Secret, now)
	require.NoError(t, err)
	require.Len(t, code, DIGITS)

	valid, err := Verify(key.Secret, code, now)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestVerifyWindow(t *testing.T) {
	key, err := GenerateSecret("resto-secure", "owner@bistro.example")
	require.NoError(t, err)

	// pin the code to a fixed counter
	base := time.Unix(1_900_000_020, 0).UTC()
	code, err := GenerateCode(key.Secret, base)
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		expects bool
	}{
		{"two counters behind", base.Add(-2 * PERIOD * time.Second), false},
		{"one counter behind", base.Add(-PERIOD * time.Second), true},
		{"same counter", base, true},
		{"one counter ahead", base.Add(PERIOD * time.Second), true},
		{"two counters ahead", base.Add(2 * PERIOD * time.Second), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			valid, err := Verify(key.Secret, code, tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.expects, valid)
		})
	}
}

// Cross-check against an independent TOTP implementation to make sure the
// derivation is the standard HMAC-SHA1 dynamic truncation.
func TestGenerateCodeMatchesReferenceImplementation(t *testing.T) {
	key, err := GenerateSecret("resto-secure", "owner@bistro.example")
	require.NoError(t, err)

	at := time.Unix(1_900_000_000, 0).UTC()
	code, err := GenerateCode(key.Secret, at)
	require.NoError(t, err)

	reference := gotp.NewDefaultTOTP(key.Secret).At(at.Unix())
	assert.Equal(t, reference, code)
}

func TestVerifyRejectsEmptySecret(t *testing.T) {
	_, err := Verify("", "123456", time.Now())
	assert.Error(t, err)
}

func TestBuildOtpauthURL(t *testing.T) {
	u := BuildOtpauthURL("JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", "resto-secure", "owner west@bistro.example")

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "otpauth", parsed.Scheme)
	assert.Equal(t, "totp", parsed.Host)
	// label is percent-encoded in the raw URI
	assert.Contains(t, u, "owner%20west@bistro.example")
	assert.Equal(t, "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", parsed.Query().Get("secret"))
	assert.Equal(t, "resto-secure", parsed.Query().Get("issuer"))
}
