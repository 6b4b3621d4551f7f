package notification

// NoticeType identifies a registered notification template
type NoticeType string

// NotificationData carries the recipient and template data for one send
type NotificationData struct {
	To   string
	Data map[string]string
}

// NoticeTemplate holds the subject and bodies for a notice type.
// Text and Html are Go text/html templates rendered against NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers a rendered notice to a recipient
type Notifier interface {
	Send(template NoticeTemplate, notification NotificationData) error
}
