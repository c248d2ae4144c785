package notification

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// desktopTimeout bounds a single notifier command.
const desktopTimeout = 5 * time.Second

// DesktopNotifier shows notifications on the local desktop: osascript on
// macOS, notify-send elsewhere.
type DesktopNotifier struct {
	goos string
	run  func(name string, args ...string) error
}

// NewDesktopNotifier creates a notifier for the running platform.
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{
		goos: runtime.GOOS,
		run:  runQuiet,
	}
}

// Send implements the Notifier interface
func (d *DesktopNotifier) Send(n Notification) error {
	name, args := d.command(n)
	if err := d.run(name, args...); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// command builds the platform command line for n.
func (d *DesktopNotifier) command(n Notification) (string, []string) {
	if d.goos == "darwin" {
		script := fmt.Sprintf("display notification %s with title %s",
			appleScriptString(n.Message), appleScriptString(n.Title))
		return "osascript", []string{"-e", script}
	}
	return "notify-send", []string{n.Title, n.Message}
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// runQuiet runs a command with its output discarded.
func runQuiet(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), desktopTimeout)
	defer cancel()

	// #nosec G204 -- name is one of two fixed binaries
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Run()
}
