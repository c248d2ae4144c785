package notification

import (
	"fmt"
	"io"
	"sync"
)

// WriterNotifier prints notifications as single lines to a writer,
// normally stderr. Lines end in CRLF because the terminal may be raw.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a new writer notifier
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Send prints the notification
func (n *WriterNotifier) Send(notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(n.w, "[notification] %s: %s (%s)\r\n",
		notification.Title,
		notification.Message,
		notification.Event)
	return err
}
