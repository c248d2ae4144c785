// Package terminal manages the mode of the real controlling terminal.
package terminal

import (
	"fmt"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// IsTerminal reports whether fd refers to a terminal device.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd)
}

// Guard holds a terminal in raw mode and restores the attributes captured
// before the change. A Guard over a non-terminal is inactive and Restore
// does nothing. A nil *Guard is valid and inactive.
type Guard struct {
	fd int

	mu    sync.Mutex
	state *term.State
}

// Acquire switches fd to raw mode if it is a terminal.
func Acquire(fd int) (*Guard, error) {
	g := &Guard{fd: fd}
	if !IsTerminal(uintptr(fd)) {
		return g, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return g, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	g.state = state
	return g, nil
}

// Active reports whether the guard changed the terminal and has not
// restored it yet.
func (g *Guard) Active() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state != nil
}

// Restore puts back the captured attributes. Only the first call after
// Acquire touches the terminal.
func (g *Guard) Restore() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == nil {
		return nil
	}
	state := g.state
	g.state = nil

	if err := term.Restore(g.fd, state); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	return nil
}
