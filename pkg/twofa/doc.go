// Package twofa manages the two-factor authentication lifecycle for
// restaurant staff accounts.
//
// # Overview
//
// The twofa package provides:
//   - TOTP (Time-based One-Time Password) enrollment with otpauth
//     provisioning URLs for authenticator apps
//   - Single-use backup codes generated at setup
//   - Verification with a failed-attempt lockout policy
//   - Disable with out-of-band password re-authentication
//   - Security audit logging and alert emails on state changes
//
// # Lifecycle
//
// Setup generates a secret and backup codes and persists them disabled.
// The first successful Verify enables the settings; later Verify calls
// gate ongoing logins through the same contract. Disable resets the
// settings while retaining the row, so re-enrollment starts from Setup.
//
// Verification failures are counted; crossing the threshold locks the
// account for the configured duration, after which it unlocks on its own.
package twofa
