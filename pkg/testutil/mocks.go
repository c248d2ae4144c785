package testutil

import (
	"sync"
	"time"

	"github.com/Veraticus/claude-pty-notify/pkg/notification"
)

// RecordingNotifier records delivered notifications and lets a test wait
// for asynchronous deliveries.
type RecordingNotifier struct {
	mu        sync.Mutex
	sent      []notification.Notification
	failures  int
	err       error
	delivered chan notification.Notification
}

// NewRecordingNotifier creates an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{
		delivered: make(chan notification.Notification, 64),
	}
}

// Send implements notification.Notifier
func (r *RecordingNotifier) Send(n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		r.failures++
		return r.err
	}
	r.sent = append(r.sent, n)
	select {
	case r.delivered <- n:
	default:
	}
	return nil
}

// FailWith makes later sends fail with err; nil restores success.
func (r *RecordingNotifier) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Sent returns a copy of the delivered notifications.
func (r *RecordingNotifier) Sent() []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Notification(nil), r.sent...)
}

// Failures returns how many sends failed.
func (r *RecordingNotifier) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Await returns the next delivery, or false after timeout.
func (r *RecordingNotifier) Await(timeout time.Duration) (notification.Notification, bool) {
	select {
	case n := <-r.delivered:
		return n, true
	case <-time.After(timeout):
		return notification.Notification{}, false
	}
}
