package totp

import (
	"crypto/rand"
	"fmt"
)

const (
	// BACKUP_CODE_COUNT is the number of codes issued per batch
	BACKUP_CODE_COUNT = 10
	// BACKUP_CODE_LENGTH is the length of each code
	BACKUP_CODE_LENGTH = 8

	backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateBackupCodes generates a batch of single-use recovery codes.
// Each code is 8 uppercase alphanumeric characters from crypto/rand;
// codes are guaranteed distinct within the batch.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, BACKUP_CODE_COUNT)
	seen := make(map[string]bool, BACKUP_CODE_COUNT)

	for len(codes) < BACKUP_CODE_COUNT {
		code, err := generateBackupCode()
		if err != nil {
			return nil, err
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	return codes, nil
}

func generateBackupCode() (string, error) {
	buf := make([]byte, BACKUP_CODE_LENGTH)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = backupCodeAlphabet[int(b)%len(backupCodeAlphabet)]
	}
	return string(buf), nil
}
