// Package shutdown turns termination signals into a cooperative stop flag
// and runs cleanup exactly once.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Coordinator records that a termination signal arrived. The flag is the
// only state shared between signal delivery and the relay loop; it starts
// false and never resets.
type Coordinator struct {
	requested atomic.Bool
	received  atomic.Value // os.Signal

	signals  chan os.Signal
	done     chan struct{}
	stopOnce sync.Once
}

// NewCoordinator creates a coordinator; call Start to register handlers.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// Start registers for sigs, SIGINT and SIGTERM when none are given.
func (c *Coordinator) Start(sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	signal.Notify(c.signals, sigs...)
	go c.forward()
}

// forward only stores the flag; cleanup happens on the relay goroutine.
func (c *Coordinator) forward() {
	for {
		select {
		case sig := <-c.signals:
			c.received.Store(sig)
			c.requested.Store(true)
		case <-c.done:
			return
		}
	}
}

// Requested reports whether a termination signal has been received.
func (c *Coordinator) Requested() bool {
	return c.requested.Load()
}

// Signal returns the received signal, nil if none.
func (c *Coordinator) Signal() os.Signal {
	sig, _ := c.received.Load().(os.Signal)
	return sig
}

// Stop unregisters the handlers. It is safe to call more than once.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		signal.Stop(c.signals)
		close(c.done)
	})
}
