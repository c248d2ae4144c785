package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// ErrTerminateTimeout is returned when the child outlives the termination
// timeout.
var ErrTerminateTimeout = errors.New("child did not exit before the termination timeout")

// Session owns one PTY pair and the child attached to its slave side.
type Session struct {
	master   *os.File
	masterFD int
	slave    *os.File

	mu     sync.Mutex
	cmd    *exec.Cmd
	closed bool

	done chan struct{}
}

// Ensure Session implements PTY
var _ PTY = (*Session)(nil)

// Open allocates a PTY pair.
func Open() (*Session, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open pty: %w", err)
	}
	return &Session{
		master:   master,
		masterFD: int(master.Fd()),
		slave:    slave,
		done:     make(chan struct{}),
	}, nil
}

// Start validates command, opens a PTY pair and spawns the child on it.
func Start(command []string, env []string, defaultTerm string) (*Session, error) {
	if len(command) == 0 {
		return nil, &ResolutionError{Reason: "empty command"}
	}

	s, err := Open()
	if err != nil {
		return nil, err
	}
	if err := s.Spawn(command, env, defaultTerm); err != nil {
		_ = s.CloseMaster()
		return nil, err
	}
	return s, nil
}

// Spawn starts command as a session leader with the slave as its
// controlling terminal and all three standard streams, then drops the
// slave.
func (s *Session) Spawn(command []string, env []string, defaultTerm string) error {
	if len(command) == 0 {
		return &ResolutionError{Reason: "empty command"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("process already started")
	}
	if s.slave == nil {
		return fmt.Errorf("pty slave already closed")
	}

	// #nosec G204 - the command is what the user asked us to wrap
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = WithDefaultTerm(env, defaultTerm)
	cmd.Stdin = s.slave
	cmd.Stdout = s.slave
	cmd.Stderr = s.slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if err := cmd.Start(); err != nil {
		_ = s.slave.Close()
		s.slave = nil
		return fmt.Errorf("failed to start %s: %w", command[0], err)
	}
	s.cmd = cmd

	_ = s.slave.Close()
	s.slave = nil

	go s.reap()
	return nil
}

// reap waits for the child; its status is read from ProcessState.
func (s *Session) reap() {
	_ = s.cmd.Wait()
	close(s.done)
}

// MasterFD returns the master descriptor.
func (s *Session) MasterFD() int { return s.masterFD }

// Pid returns the child's process id, or 0 before Spawn.
func (s *Session) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Exited reports without blocking whether the child has been reaped.
func (s *Session) Exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// WaitExit waits up to d for the child to exit.
func (s *Session) WaitExit(d time.Duration) bool {
	if s.started() == nil {
		return false
	}
	select {
	case <-s.done:
		return true
	case <-time.After(d):
		return false
	}
}

// ExitCode returns the child's exit status, or -1 while it runs or when
// it was killed by a signal.
func (s *Session) ExitCode() int {
	if !s.Exited() {
		return -1
	}
	return s.cmd.ProcessState.ExitCode()
}

// InheritSize copies the window size of from onto the PTY.
func (s *Session) InheritSize(from *os.File) error {
	return pty.InheritSize(from, s.master)
}

// CloseMaster closes the master. Only the first call closes anything.
func (s *Session) CloseMaster() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.slave != nil {
		_ = s.slave.Close()
		s.slave = nil
	}
	return s.master.Close()
}

// Terminate sends SIGTERM and waits up to timeout. When force is set and
// the child is still running, it is killed and waited for once more.
func (s *Session) Terminate(timeout time.Duration, force bool) error {
	cmd := s.started()
	if cmd == nil || s.Exited() {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to signal child: %w", err)
	}
	if s.WaitExit(timeout) {
		return nil
	}
	if !force {
		return ErrTerminateTimeout
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill child: %w", err)
	}
	if s.WaitExit(timeout) {
		return fmt.Errorf("%w: killed", ErrTerminateTimeout)
	}
	return ErrTerminateTimeout
}

func (s *Session) started() *exec.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd
}

// WithDefaultTerm returns a copy of env with TERM set to term when env has
// no TERM entry.
func WithDefaultTerm(env []string, term string) []string {
	out := make([]string, len(env), len(env)+1)
	copy(out, env)
	if term == "" {
		return out
	}
	for _, kv := range env {
		if strings.HasPrefix(kv, "TERM=") {
			return out
		}
	}
	return append(out, "TERM="+term)
}
