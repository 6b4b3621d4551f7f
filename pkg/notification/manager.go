package notification

import (
	"fmt"
)

// Manager routes notices to a notifier using a template registry
type Manager struct {
	notifier Notifier
	registry map[NoticeType]NoticeTemplate
}

// NewManager creates a new notification manager
func NewManager(notifier Notifier) *Manager {
	return &Manager{
		notifier: notifier,
		registry: make(map[NoticeType]NoticeTemplate),
	}
}

// Register adds or replaces the template for a notice type
func (m *Manager) Register(noticeType NoticeType, template NoticeTemplate) error {
	if noticeType == "" {
		return fmt.Errorf("invalid input: notice type cannot be empty")
	}
	if template.Subject == "" {
		return fmt.Errorf("invalid input: template subject cannot be empty")
	}
	m.registry[noticeType] = template
	return nil
}

// Send renders and delivers a notice
func (m *Manager) Send(noticeType NoticeType, notification NotificationData) error {
	template, exists := m.registry[noticeType]
	if !exists {
		return fmt.Errorf("no template registered for notice type: %s", noticeType)
	}
	if m.notifier == nil {
		return fmt.Errorf("no notifier registered")
	}
	return m.notifier.Send(template, notification)
}
