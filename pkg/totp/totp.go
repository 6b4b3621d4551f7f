package totp

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// PERIOD is the TOTP time-step in seconds
	PERIOD = 30
	// SKEW is the number of adjacent counters accepted on each side
	SKEW = 1
	// SECRET_SIZE is the secret length in bytes (32 base32 characters)
	SECRET_SIZE = 20
	// DIGITS is the passcode length
	DIGITS = 6
)

// Key holds a freshly generated TOTP secret and its provisioning URL
type Key struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
}

// GenerateSecret generates a new TOTP secret for the given account.
// The secret is 32 base32 characters sourced from crypto/rand.
func GenerateSecret(issuer, accountName string) (Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		SecretSize:  SECRET_SIZE,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "accountName", accountName, "issuer", issuer, "error", err)
		return Key{}, fmt.Errorf("failed to generate totp secret: %w", err)
	}
	slog.Info("Generated new totp secret", "accountName", accountName)
	return Key{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
	}, nil
}

// BuildOtpauthURL builds the otpauth:// provisioning URI for an existing
// secret. Issuer and label are percent-encoded. No network call is made;
// QR rendering is left to the caller.
func BuildOtpauthURL(secret, issuer, accountName string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + accountName,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// GenerateCode computes the 6-digit passcode for the secret at time t.
func GenerateCode(secret string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, t.UTC(), validateOpts())
	if err != nil {
		return "", fmt.Errorf("failed to generate totp code: %w", err)
	}
	return code, nil
}

// Verify checks the passcode against the secret at time t.
// The accepted window spans the previous, current, and next 30-second
// counter to tolerate clock drift.
func Verify(secret, passcode string, t time.Time) (bool, error) {
	if secret == "" {
		return false, fmt.Errorf("totp secret is empty")
	}
	valid, err := totp.ValidateCustom(passcode, secret, t.UTC(), validateOpts())
	if err != nil {
		return false, fmt.Errorf("failed to validate totp passcode: %w", err)
	}
	return valid, nil
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    PERIOD,
		Skew:      SKEW,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
