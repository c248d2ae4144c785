package testutil

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// FakePTY stands in for a PTY session. The master is one end of a socket
// pair; the test plays the child on the other end.
type FakePTY struct {
	mu       sync.Mutex
	master   int
	child    int
	closed   bool
	exited   bool
	exitCode int
	calls    []string

	terminateErr error
	exitOnTerm   bool
}

// NewFakePTY creates a fake session whose child never exits on its own.
func NewFakePTY() (*FakePTY, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket pair: %w", err)
	}
	return &FakePTY{
		master:     fds[0],
		child:      fds[1],
		exitCode:   -1,
		exitOnTerm: true,
	}, nil
}

// MasterFD implements process.PTY
func (f *FakePTY) MasterFD() int { return f.master }

// Pid implements process.PTY. The fake child has no process.
func (f *FakePTY) Pid() int { return 0 }

// Exited implements process.PTY
func (f *FakePTY) Exited() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exited
}

// WaitExit implements process.PTY
func (f *FakePTY) WaitExit(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if f.Exited() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// ExitCode implements process.PTY
func (f *FakePTY) ExitCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exited {
		return -1
	}
	return f.exitCode
}

// InheritSize implements process.PTY
func (f *FakePTY) InheritSize(from *os.File) error {
	f.record("inherit size")
	return nil
}

// CloseMaster implements process.PTY
func (f *FakePTY) CloseMaster() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "close master")
	if f.closed {
		return nil
	}
	f.closed = true
	return unix.Close(f.master)
}

// Terminate implements process.PTY
func (f *FakePTY) Terminate(timeout time.Duration, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "terminate")
	if f.terminateErr != nil {
		return f.terminateErr
	}
	if !f.exited && f.exitOnTerm {
		f.exited = true
		f.exitCode = -1
	}
	return nil
}

// WriteOutput writes data as the child's output.
func (f *FakePTY) WriteOutput(data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(f.child, data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// ReadInput reads what the relay forwarded to the child until want bytes
// arrive or the timeout passes.
func (f *FakePTY) ReadInput(want int, timeout time.Duration) ([]byte, error) {
	var got bytes.Buffer
	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)
	for got.Len() < want {
		if time.Now().After(deadline) {
			return got.Bytes(), fmt.Errorf("timed out after %d of %d bytes", got.Len(), want)
		}
		fds := []unix.PollFd{{Fd: int32(f.child), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 10)
		if err != nil && err != unix.EINTR {
			return got.Bytes(), err
		}
		if n == 0 {
			continue
		}
		r, err := unix.Read(f.child, buf)
		if err != nil {
			return got.Bytes(), err
		}
		if r == 0 {
			return got.Bytes(), fmt.Errorf("master closed")
		}
		got.Write(buf[:r])
	}
	return got.Bytes(), nil
}

// CloseOutput closes the child's end so the master reads EOF.
func (f *FakePTY) CloseOutput() error {
	return unix.Shutdown(f.child, unix.SHUT_WR)
}

// Exit marks the child as exited with code.
func (f *FakePTY) Exit(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exited = true
	f.exitCode = code
}

// SetTerminateError sets the error Terminate returns.
func (f *FakePTY) SetTerminateError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminateErr = err
}

// Calls returns the teardown-relevant calls in order.
func (f *FakePTY) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, len(f.calls))
	copy(result, f.calls)
	return result
}

// Close releases both descriptors.
func (f *FakePTY) Close() {
	_ = f.CloseMaster()
	_ = unix.Close(f.child)
}

func (f *FakePTY) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// MockObserver records relayed traffic.
type MockObserver struct {
	mu          sync.Mutex
	inputs      [][]byte
	outputs     int
	interactive bool
	setCalls    int
}

// NewMockObserver creates a new mock observer
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

// OnInput implements interfaces.InputObserver
func (m *MockObserver) OnInput(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, append([]byte(nil), data...))
}

// OnOutput implements interfaces.OutputObserver
func (m *MockObserver) OnOutput() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs++
	return false
}

// SetInteractive implements process.Observer
func (m *MockObserver) SetInteractive(interactive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactive = interactive
	m.setCalls++
}

// Input returns every forwarded input byte.
func (m *MockObserver) Input() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Join(m.inputs, nil)
}

// OutputCount returns how many output chunks were observed.
func (m *MockObserver) OutputCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputs
}

// Interactive returns the last value passed to SetInteractive.
func (m *MockObserver) Interactive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interactive
}
