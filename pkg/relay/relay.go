// Package relay moves bytes between the real terminal and a PTY master.
package relay

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/Veraticus/claude-pty-notify/pkg/interfaces"
)

const (
	// OutputChunkSize is the largest read from the PTY master.
	OutputChunkSize = 4096
	// InputChunkSize is the largest read from stdin.
	InputChunkSize = 1024
	// DefaultPollInterval bounds how long the loop waits before re-checking
	// the exit conditions.
	DefaultPollInterval = 200 * time.Millisecond

	// drainLimit caps the reads done after the child exits.
	drainLimit = 64
)

// ExitReason says why a relay loop returned.
type ExitReason int

const (
	// ReasonEOF means the master reported end of output or a read failed.
	ReasonEOF ExitReason = iota
	// ReasonSignal means the termination flag was observed.
	ReasonSignal
	// ReasonChildExit means the child process exited.
	ReasonChildExit
)

func (r ExitReason) String() string {
	switch r {
	case ReasonEOF:
		return "eof"
	case ReasonSignal:
		return "signal"
	case ReasonChildExit:
		return "child-exit"
	default:
		return "unknown"
	}
}

// StopFlag is read once per iteration.
type StopFlag interface {
	Requested() bool
}

// Options configures a Multiplexer.
type Options struct {
	// MasterFD is the PTY master descriptor.
	MasterFD int
	// StdinFD is the real stdin, or negative when stdin is not relayed.
	StdinFD int
	// Stdout receives every byte read from the master.
	Stdout io.Writer
	// Observer is told about relayed traffic. May be nil.
	Observer interfaces.TrafficObserver
	// Stop ends the loop once it reports true. May be nil.
	Stop StopFlag
	// Exited reports whether the child has exited. May be nil.
	Exited func() bool
	// OnTick runs between iterations, after event handling.
	OnTick func()
	// PollInterval is the readiness wait timeout.
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Multiplexer relays between one PTY master and at most one input source
// on a single goroutine.
type Multiplexer struct {
	master   int
	stdin    int
	out      io.Writer
	observer interfaces.TrafficObserver
	stop     StopFlag
	exited   func() bool
	onTick   func()
	timeout  time.Duration
	logger   *zap.Logger

	outBuf []byte
	inBuf  []byte

	bytesOut int64
	bytesIn  int64
}

// New creates a multiplexer from opts.
func New(opts Options) *Multiplexer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Multiplexer{
		master:   opts.MasterFD,
		stdin:    opts.StdinFD,
		out:      opts.Stdout,
		observer: opts.Observer,
		stop:     opts.Stop,
		exited:   opts.Exited,
		onTick:   opts.OnTick,
		timeout:  opts.PollInterval,
		logger:   opts.Logger,
		outBuf:   make([]byte, OutputChunkSize),
		inBuf:    make([]byte, InputChunkSize),
	}
}

// BytesOut returns the number of bytes relayed from the master to stdout.
func (m *Multiplexer) BytesOut() int64 { return m.bytesOut }

// BytesIn returns the number of bytes relayed from stdin to the master.
func (m *Multiplexer) BytesIn() int64 { return m.bytesIn }

// Run relays until master EOF, the stop flag, or child exit.
func (m *Multiplexer) Run() ExitReason {
	fds := []unix.PollFd{{Fd: int32(m.master), Events: unix.POLLIN}}
	if m.stdin >= 0 {
		fds = append(fds, unix.PollFd{Fd: int32(m.stdin), Events: unix.POLLIN})
	}

	for {
		for i := range fds {
			fds[i].Revents = 0
		}

		n, err := unix.Poll(fds, pollTimeout(m.timeout))
		if err != nil && !errors.Is(err, unix.EINTR) {
			m.logger.Debug("poll failed", zap.Error(err))
			return ReasonEOF
		}

		if n > 0 {
			if readable(fds[0].Revents) && !m.relayOutput() {
				return ReasonEOF
			}
			if len(fds) > 1 && readable(fds[1].Revents) && !m.relayInput() {
				m.logger.Debug("stdin closed, relaying output only")
				fds = fds[:1]
			}
		}

		if m.onTick != nil {
			m.onTick()
		}
		if m.stop != nil && m.stop.Requested() {
			return ReasonSignal
		}
		if m.exited != nil && m.exited() {
			m.drain()
			return ReasonChildExit
		}
	}
}

// relayOutput copies one chunk from the master to stdout. It returns false
// on EOF.
func (m *Multiplexer) relayOutput() bool {
	data, eof := readChunk(m.master, m.outBuf)
	if eof {
		return false
	}
	if len(data) == 0 {
		return true
	}

	if err := m.writeOut(data); err != nil {
		m.logger.Debug("stdout write failed", zap.Error(err))
		return false
	}
	m.bytesOut += int64(len(data))

	if m.observer != nil {
		m.observer.OnOutput()
	}
	return true
}

// relayInput copies one chunk from stdin to the master. It returns false
// on stdin EOF.
func (m *Multiplexer) relayInput() bool {
	data, eof := readChunk(m.stdin, m.inBuf)
	if eof {
		return false
	}
	if len(data) == 0 {
		return true
	}

	if err := writeFD(m.master, data); err != nil {
		m.logger.Debug("master write failed", zap.Error(err))
		return true
	}
	m.bytesIn += int64(len(data))

	if m.observer != nil {
		m.observer.OnInput(data)
	}
	return true
}

// drain relays output the child left in the master before exiting.
func (m *Multiplexer) drain() {
	fds := []unix.PollFd{{Fd: int32(m.master), Events: unix.POLLIN}}
	for i := 0; i < drainLimit; i++ {
		fds[0].Revents = 0
		n, err := unix.Poll(fds, 0)
		if err != nil || n == 0 || !readable(fds[0].Revents) {
			return
		}
		if !m.relayOutput() {
			return
		}
	}
}

// waitOutput waits up to timeout for one chunk of output and relays it.
// It returns false once the master reports EOF.
func (m *Multiplexer) waitOutput(timeout time.Duration) bool {
	fds := []unix.PollFd{{Fd: int32(m.master), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, pollTimeout(timeout))
	if err != nil {
		return errors.Is(err, unix.EINTR)
	}
	if n == 0 || !readable(fds[0].Revents) {
		return true
	}
	return m.relayOutput()
}

func (m *Multiplexer) writeOut(data []byte) error {
	_, err := m.out.Write(data)
	return err
}

func readable(revents int16) bool {
	return revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
}

func pollTimeout(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := int(d / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	return ms
}

// readChunk reads once from fd. Interrupted or would-block reads return no
// data without EOF; every other error counts as EOF.
func readChunk(fd int, buf []byte) (data []byte, eof bool) {
	n, err := unix.Read(fd, buf)
	switch {
	case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
		return nil, false
	case err != nil:
		return nil, true
	case n <= 0:
		return nil, true
	}
	return buf[:n], false
}

// writeFD writes all of data to fd.
func writeFD(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
				_, _ = unix.Poll(fds, pollTimeout(DefaultPollInterval))
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}
