package notification

import "sync"

// SentMessage captures one delivery through the MockNotifier
type SentMessage struct {
	Template NoticeTemplate
	Data     NotificationData
}

// MockNotifier records deliveries instead of sending them. Useful in tests.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentMessage
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send records the message
func (m *MockNotifier) Send(template NoticeTemplate, notification NotificationData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{Template: template, Data: notification})
	return nil
}

// Sent returns a copy of the recorded messages
func (m *MockNotifier) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
