package main

import (
	"io"

	"go.uber.org/zap"

	"github.com/Veraticus/claude-pty-notify/pkg/config"
	"github.com/Veraticus/claude-pty-notify/pkg/notification"
	"github.com/Veraticus/claude-pty-notify/pkg/process"
)

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config              *config.Config
	Logger              *zap.Logger
	Notifier            notification.Notifier
	NotificationManager *notification.Manager
	Debouncer           *notification.Debouncer
	ProcessManager      *process.Manager
}

// NewDependencies creates all dependencies with the given configuration.
// stderr receives the output of the log sink.
func NewDependencies(cfg *config.Config, logger *zap.Logger, stderr io.Writer, opts ...process.Option) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Create notification components
	deps.Notifier = notification.NewContextNotifier(notification.NewSink(cfg, stderr), "")
	deps.NotificationManager = notification.NewManager(deps.Notifier, logger)
	deps.Debouncer = notification.NewDebouncer(
		deps.NotificationManager,
		cfg.Cooldown,
		cfg.Notify,
		notification.WithTemplate(cfg.Title, cfg.Message),
	)

	// Create process manager
	deps.ProcessManager = process.NewManager(cfg, deps.Debouncer, logger, opts...)

	return deps, nil
}

// Close waits briefly for a pending notification and flushes logs.
func (d *Dependencies) Close() {
	if d.NotificationManager != nil {
		_ = d.NotificationManager.Close()
	}
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run wraps command until it finishes or the wrapper is signaled.
func (a *Application) Run(command []string) error {
	a.deps.Logger.Debug("starting session",
		zap.String("session", a.deps.ProcessManager.SessionID()),
		zap.Bool("notify", a.deps.Config.Notify),
		zap.String("sink", a.deps.Config.Sink),
		zap.Duration("cooldown", a.deps.Config.Cooldown))

	return a.deps.ProcessManager.Run(command)
}

// ExitCode returns the exit code of the wrapped process
func (a *Application) ExitCode() int {
	return a.deps.ProcessManager.ExitCode()
}
