// Package notice defines the security notices sent by the account-security
// subsystem and their default templates.
package notice

import (
	"github.com/tablerock/resto-secure/pkg/notification"
)

const (
	// TwoFactorEnabledNotice is sent to the recovery email when 2FA turns on
	TwoFactorEnabledNotice notification.NoticeType = "two_factor_enabled"
	// TwoFactorDisabledNotice is sent to the recovery email when 2FA turns off
	TwoFactorDisabledNotice notification.NoticeType = "two_factor_disabled"
	// SuspiciousLoginNotice is sent when a session check crosses the suspicion threshold
	SuspiciousLoginNotice notification.NoticeType = "suspicious_login"
)

// NewSecurityNoticeManager creates a notification manager with the default
// security notice templates registered.
func NewSecurityNoticeManager(notifier notification.Notifier) (*notification.Manager, error) {
	m := notification.NewManager(notifier)

	templates := map[notification.NoticeType]notification.NoticeTemplate{
		TwoFactorEnabledNotice: {
			Subject: "Two-factor authentication enabled",
			Text:    "Two-factor authentication was enabled on your account ({{.UserId}}). If this was not you, contact support immediately.",
		},
		TwoFactorDisabledNotice: {
			Subject: "Two-factor authentication disabled",
			Text:    "Two-factor authentication was disabled on your account ({{.UserId}}). If this was not you, contact support immediately.",
		},
		SuspiciousLoginNotice: {
			Subject: "Unusual sign-in detected",
			Text:    "We noticed an unusual sign-in to your account ({{.UserId}}) from {{.IpAddress}}. If this was not you, secure your account now.",
		},
	}

	for noticeType, template := range templates {
		if err := m.Register(noticeType, template); err != nil {
			return nil, err
		}
	}
	return m, nil
}
