package process

import (
	"os"
	"time"

	"github.com/Veraticus/claude-pty-notify/pkg/interfaces"
)

// PTY is the part of a Session the manager drives.
type PTY interface {
	MasterFD() int
	Pid() int
	Exited() bool
	WaitExit(d time.Duration) bool
	ExitCode() int
	InheritSize(from *os.File) error
	CloseMaster() error
	Terminate(timeout time.Duration, force bool) error
}

// Starter creates a PTY session running command with env.
type Starter func(command []string, env []string) (PTY, error)

// Observer watches relayed traffic and learns whether stdin is relayed.
type Observer interface {
	interfaces.TrafficObserver
	SetInteractive(interactive bool)
}
