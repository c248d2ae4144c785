package hook

import (
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/Veraticus/claude-pty-notify/pkg/notification"
)

// UnknownTool names events that arrive without a tool.
const UnknownTool = "Unknown"

// Event is the part of a hook payload the filter uses.
type Event struct {
	Kind string
	Tool string
	Cwd  string
}

// ParseEvent extracts the event from a JSON payload. Malformed input
// yields an empty event, which the handler ignores.
func ParseEvent(data []byte) Event {
	if !gjson.ValidBytes(data) {
		return Event{}
	}
	res := gjson.GetManyBytes(data, "hook_event_name", "tool_name", "cwd")
	ev := Event{
		Kind: res[0].String(),
		Tool: res[1].String(),
		Cwd:  res[2].String(),
	}
	if ev.Tool == "" && ev.Kind != KindStop {
		ev.Tool = UnknownTool
	}
	return ev
}

// Handler turns one hook payload into at most one notification and the
// hook's stdout reply.
type Handler struct {
	rules    Rules
	notifier notification.Notifier
	title    string
	out      io.Writer
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a handler. title prefixes every notification title.
func NewHandler(rules Rules, notifier notification.Notifier, title string, out io.Writer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if title == "" {
		title = "Claude"
	}
	return &Handler{
		rules:    rules,
		notifier: notifier,
		title:    title,
		out:      out,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle processes one payload. Only writing the PreToolUse reply can
// fail; notification failures are logged and dropped.
func (h *Handler) Handle(data []byte) error {
	ev := ParseEvent(data)

	switch ev.Kind {
	case KindPreToolUse:
		if h.rules.ShouldNotify(ev.Kind, ev.Tool) {
			h.notify(ev, notification.EventPreToolUse, "Tool: "+ev.Tool)
		}
		return h.allow()
	case KindStop:
		if h.rules.ShouldNotify(ev.Kind, ev.Tool) {
			h.notify(ev, notification.EventStop, "Response complete.")
		}
	case KindPermissionRequest:
		if h.rules.ShouldNotify(ev.Kind, ev.Tool) {
			h.notify(ev, notification.EventPermissionRequest, "Permission request: "+ev.Tool)
		}
	default:
		h.logger.Debug("ignoring hook event", zap.String("kind", ev.Kind))
	}
	return nil
}

func (h *Handler) notify(ev Event, event, message string) {
	n := notification.Notification{
		Title:   fmt.Sprintf("%s [%s]", h.title, notification.ProjectName(ev.Cwd)),
		Message: message,
		Time:    h.now(),
		Event:   event,
	}
	if err := h.notifier.Send(n); err != nil {
		h.logger.Debug("notification failed", zap.String("event", event), zap.Error(err))
	}
}

// allow writes the reply that lets the tool call proceed.
func (h *Handler) allow() error {
	reply, err := sjson.SetBytes([]byte(`{}`), "allow", true)
	if err != nil {
		return fmt.Errorf("failed to build hook reply: %w", err)
	}
	reply = append(reply, '\n')
	if _, err := h.out.Write(reply); err != nil {
		return fmt.Errorf("failed to write hook reply: %w", err)
	}
	return nil
}
