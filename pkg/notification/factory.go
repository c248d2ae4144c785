package notification

import (
	"io"

	"github.com/Veraticus/claude-pty-notify/pkg/config"
)

// NewSink builds the transport selected by cfg.Sink. stderr receives the
// output of the log sink.
func NewSink(cfg *config.Config, stderr io.Writer) Notifier {
	switch cfg.Sink {
	case config.SinkNtfy:
		return NewNtfyClient(cfg.NtfyServer, cfg.NtfyTopic)
	case config.SinkLog:
		return NewWriterNotifier(stderr)
	default:
		return NewDesktopNotifier()
	}
}
