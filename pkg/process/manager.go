package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Veraticus/claude-pty-notify/pkg/config"
	"github.com/Veraticus/claude-pty-notify/pkg/interfaces"
	"github.com/Veraticus/claude-pty-notify/pkg/relay"
	"github.com/Veraticus/claude-pty-notify/pkg/shutdown"
	"github.com/Veraticus/claude-pty-notify/pkg/terminal"
)

// WrappedEnv is set in the child's environment to stop the wrapper from
// wrapping itself.
const WrappedEnv = "CLAUDE_PTY_WRAPPED"

// ErrAlreadyWrapped is returned when the wrapper runs inside itself.
var ErrAlreadyWrapped = errors.New("already wrapped by claude-pty-notify")

// Manager runs one wrapped session from spawn to teardown.
type Manager struct {
	config   *config.Config
	observer Observer
	logger   *zap.Logger
	start    Starter
	stdin    *os.File
	stdout   io.Writer
	signals  []os.Signal
	script   relay.Script

	sessionID string

	mu       sync.Mutex
	exitCode int
	reason   relay.ExitReason
	bytesIn  int64
	bytesOut int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithStarter replaces how the PTY session is created.
func WithStarter(start Starter) Option {
	return func(m *Manager) { m.start = start }
}

// WithStdio replaces the real terminal streams. A nil stdin disables input
// relaying.
func WithStdio(stdin *os.File, stdout io.Writer) Option {
	return func(m *Manager) {
		m.stdin = stdin
		m.stdout = stdout
	}
}

// WithSignals replaces the termination signals.
func WithSignals(sigs ...os.Signal) Option {
	return func(m *Manager) { m.signals = sigs }
}

// WithScript replaces the scripted choreography used in demo mode.
func WithScript(s relay.Script) Option {
	return func(m *Manager) { m.script = s }
}

// NewManager creates a new process manager
func NewManager(cfg *config.Config, observer Observer, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		config:    cfg,
		observer:  observer,
		logger:    logger,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		script:    relay.DefaultScript(),
		sessionID: uuid.NewString(),
		exitCode:  -1,
	}
	m.start = func(command []string, env []string) (PTY, error) {
		return Start(command, env, cfg.DefaultTerm)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SessionID identifies this run in logs.
func (m *Manager) SessionID() string { return m.sessionID }

// Run spawns command on a PTY and relays until the child closes its
// output, exits, or a termination signal arrives. Cleanup runs exactly
// once on every path, including panics.
func (m *Manager) Run(command []string) error {
	if len(command) == 0 {
		return &ResolutionError{Reason: "empty command"}
	}

	// Check for self-wrap
	if os.Getenv(WrappedEnv) == "1" {
		return ErrAlreadyWrapped
	}
	env := append(os.Environ(), WrappedEnv+"=1")

	logger := m.logger.With(zap.String("session", m.sessionID))

	session, err := m.start(command, env)
	if err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}
	logger.Info("child started",
		zap.Strings("command", command),
		zap.Int("pid", session.Pid()),
		zap.Bool("demo", m.config.Demo))

	coord := shutdown.NewCoordinator()
	coord.Start(m.signals...)

	td := shutdown.NewTeardown(logger)
	defer td.Run()

	stdinFD := -1
	var guard *terminal.Guard
	if !m.config.Demo && m.stdin != nil {
		guard, err = terminal.Acquire(int(m.stdin.Fd()))
		if err != nil {
			logger.Warn("terminal left in cooked mode", zap.Error(err))
		}
		if guard.Active() {
			stdinFD = int(m.stdin.Fd())
			if err := session.InheritSize(m.stdin); err != nil {
				logger.Debug("failed to copy terminal size", zap.Error(err))
			}
		}
	}
	td.Add("restore terminal", guard.Restore)

	var winch chan os.Signal
	if stdinFD >= 0 {
		winch = make(chan os.Signal, 1)
		signal.Notify(winch, syscall.SIGWINCH)
	}
	td.Add("stop signal handlers", func() error {
		coord.Stop()
		if winch != nil {
			signal.Stop(winch)
		}
		return nil
	})
	td.Add("close pty master", session.CloseMaster)
	td.Add("terminate child", func() error {
		return session.Terminate(m.config.TerminateTimeout, m.config.ForceKill)
	})

	var observer interfaces.TrafficObserver
	if m.observer != nil {
		// Without a relayed terminal, demo mode included, every output
		// chunk is eligible and only the cooldown limits notifications.
		m.observer.SetInteractive(stdinFD >= 0)
		observer = m.observer
	}

	mux := relay.New(relay.Options{
		MasterFD:     session.MasterFD(),
		StdinFD:      stdinFD,
		Stdout:       m.stdout,
		Observer:     observer,
		Stop:         coord,
		Exited:       session.Exited,
		OnTick:       m.resizer(winch, session, logger),
		PollInterval: m.config.PollInterval,
		Logger:       logger,
	})

	var reason relay.ExitReason
	if m.config.Demo {
		reason = mux.RunScripted(m.script)
	} else {
		reason = mux.Run()
	}

	// The child usually exits right after closing its output.
	if reason == relay.ReasonEOF {
		session.WaitExit(m.config.PollInterval)
	}
	td.Run()

	code := session.ExitCode()
	switch {
	case reason == relay.ReasonSignal:
		code = signalExitCode(coord.Signal())
	case code < 0:
		code = 1
	}

	m.mu.Lock()
	m.exitCode = code
	m.reason = reason
	m.bytesIn = mux.BytesIn()
	m.bytesOut = mux.BytesOut()
	m.mu.Unlock()

	logger.Info("session ended",
		zap.Stringer("reason", reason),
		zap.Int("exit_code", code),
		zap.Int64("bytes_in", mux.BytesIn()),
		zap.Int64("bytes_out", mux.BytesOut()),
	)
	return nil
}

// resizer propagates SIGWINCH to the PTY between relay iterations.
func (m *Manager) resizer(winch <-chan os.Signal, session PTY, logger *zap.Logger) func() {
	if winch == nil {
		return nil
	}
	return func() {
		select {
		case <-winch:
			if err := session.InheritSize(m.stdin); err != nil {
				logger.Debug("failed to resize pty", zap.Error(err))
			}
		default:
		}
	}
}

// ExitCode returns the code the wrapper should exit with. It is -1 until
// Run returns.
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// Reason returns why the relay stopped.
func (m *Manager) Reason() relay.ExitReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Traffic returns the bytes relayed to and from the child.
func (m *Manager) Traffic() (in, out int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytesIn, m.bytesOut
}

// signalExitCode follows the shell convention of 128 plus the signal
// number, 130 when the signal is unknown.
func signalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 130
}
