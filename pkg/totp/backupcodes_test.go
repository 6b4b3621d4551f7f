package totp

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, codes, BACKUP_CODE_COUNT)

	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "duplicate code in batch: %s", code)
		seen[code] = true
	}
}
