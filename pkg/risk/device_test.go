package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		wantType  DeviceType
		wantMob   bool
	}{
		{
			name:      "iPhone is mobile",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			wantType:  DeviceMobile,
			wantMob:   true,
		},
		{
			name:      "iPad is tablet",
			userAgent: "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Safari/604.1",
			wantType:  DeviceTablet,
			wantMob:   false,
		},
		{
			name:      "desktop chrome",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			wantType:  DeviceDesktop,
			wantMob:   false,
		},
		{
			name:      "android phone",
			userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
			wantType:  DeviceMobile,
			wantMob:   true,
		},
		{
			name:      "empty user agent is desktop",
			userAgent: "",
			wantType:  DeviceDesktop,
			wantMob:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := ClassifyDevice(tc.userAgent)
			assert.Equal(t, tc.wantType, info.Type)
			assert.Equal(t, tc.wantMob, info.IsMobile)
		})
	}
}

func TestDetectBrowserAndOS(t *testing.T) {
	info := ClassifyDevice("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0")
	assert.Equal(t, "Edge", info.Browser)
	assert.Equal(t, "Windows", info.OS)

	info = ClassifyDevice("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	assert.Equal(t, "Safari", info.Browser)
	assert.Equal(t, "macOS", info.OS)

	info = ClassifyDevice("curl/8.4.0")
	assert.Equal(t, Unknown, info.Browser)
	assert.Equal(t, Unknown, info.OS)
}

func TestSignatureStable(t *testing.T) {
	a := ClassifyDevice("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Mobile Safari/604.1")
	b := ClassifyDevice("Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) Version/17.1 Mobile Safari/604.1")
	assert.Equal(t, a.Signature(), b.Signature())
}
