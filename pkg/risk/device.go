package risk

import (
	"strings"
)

// DeviceType buckets a user agent into a coarse device class
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"

	// Unknown is used when no browser or OS pattern matches
	Unknown = "Unknown"
)

// DeviceInfo is a best-effort classification of a user-agent string.
// It is a heuristic, not authoritative.
type DeviceInfo struct {
	Type     DeviceType `json:"type"`
	Browser  string     `json:"browser"`
	OS       string     `json:"os"`
	IsMobile bool       `json:"is_mobile"`
}

// mobile patterns take precedence over tablet, tablet over desktop
var (
	mobilePatterns = []string{"iphone", "ipod", "windows phone", "blackberry", "opera mini", "mobile"}
	tabletPatterns = []string{"ipad", "tablet", "kindle", "silk"}
)

// ClassifyDevice derives device, browser, and OS from a user-agent string
// via substring matches.
func ClassifyDevice(userAgent string) DeviceInfo {
	ua := strings.ToLower(userAgent)

	info := DeviceInfo{
		Type:    DeviceDesktop,
		Browser: detectBrowser(ua),
		OS:      detectOS(ua),
	}

	for _, pattern := range mobilePatterns {
		if strings.Contains(ua, pattern) {
			info.Type = DeviceMobile
			info.IsMobile = true
			return info
		}
	}
	for _, pattern := range tabletPatterns {
		if strings.Contains(ua, pattern) {
			info.Type = DeviceTablet
			return info
		}
	}
	return info
}

func detectBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "edg"):
		return "Edge"
	case strings.Contains(ua, "opr") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome") || strings.Contains(ua, "crios"):
		return "Chrome"
	case strings.Contains(ua, "firefox") || strings.Contains(ua, "fxios"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident"):
		return "Internet Explorer"
	default:
		return Unknown
	}
}

func detectOS(ua string) string {
	switch {
	case strings.Contains(ua, "windows phone"):
		return "Windows Phone"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return "iOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return Unknown
	}
}

// Signature returns a stable identity string for familiarity comparisons
func (d DeviceInfo) Signature() string {
	return string(d.Type) + "|" + d.Browser + "|" + d.OS
}
