// Package notification provides notification functionality.
package notification

import "time"

// Event names carried on notifications.
const (
	EventResponse          = "response"
	EventPreToolUse        = "PreToolUse"
	EventStop              = "Stop"
	EventPermissionRequest = "PermissionRequest"
)

// Notification represents a notification to be sent.
type Notification struct {
	Title   string
	Message string
	Time    time.Time
	Event   string
}

// Notifier sends notifications.
type Notifier interface {
	Send(notification Notification) error
}
