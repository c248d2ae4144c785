package notification

import (
	"os"
	"path/filepath"
)

// ContextNotifier wraps another notifier and tags titles with the project
// name, the basename of the working directory: "Claude [my-project]".
type ContextNotifier struct {
	underlying Notifier
	project    string
}

// NewContextNotifier creates a context notifier for cwd. An empty cwd
// falls back to the process working directory.
func NewContextNotifier(underlying Notifier, cwd string) *ContextNotifier {
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}

	return &ContextNotifier{
		underlying: underlying,
		project:    ProjectName(cwd),
	}
}

// ProjectName returns the last path element of cwd, or "Unknown".
func ProjectName(cwd string) string {
	if cwd == "" {
		return "Unknown"
	}
	base := filepath.Base(filepath.Clean(cwd))
	if base == "." || base == string(filepath.Separator) {
		return "Unknown"
	}
	return base
}

// Send implements the Notifier interface
func (cn *ContextNotifier) Send(notification Notification) error {
	notification.Title = notification.Title + " [" + cn.project + "]"
	return cn.underlying.Send(notification)
}
