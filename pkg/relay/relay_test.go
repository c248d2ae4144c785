package relay

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/Veraticus/claude-pty-notify/pkg/notification"
)

// pair returns a connected stream socket pair standing in for a PTY.
func pair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

// closeWrite makes the peer of fd read EOF.
func closeWrite(t *testing.T, fd int) {
	t.Helper()
	require.NoError(t, unix.Shutdown(fd, unix.SHUT_WR))
}

type recordingObserver struct {
	mu      sync.Mutex
	inputs  [][]byte
	outputs int
}

func (o *recordingObserver) OnInput(data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inputs = append(o.inputs, append([]byte(nil), data...))
}

func (o *recordingObserver) OnOutput() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outputs++
	return false
}

func (o *recordingObserver) input() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return bytes.Join(o.inputs, nil)
}

type flag struct{ v atomic.Bool }

func (f *flag) Requested() bool { return f.v.Load() }

func runAsync(m *Multiplexer) <-chan ExitReason {
	ch := make(chan ExitReason, 1)
	go func() { ch <- m.Run() }()
	return ch
}

func waitReason(t *testing.T, ch <-chan ExitReason) ExitReason {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("relay loop did not return")
		return 0
	}
}

func allBytes() []byte {
	data := make([]byte, 0, 256*20)
	for i := 0; i < 20; i++ {
		for b := 0; b < 256; b++ {
			data = append(data, byte(b))
		}
	}
	return data
}

func TestOutputIsByteTransparent(t *testing.T) {
	master, child := pair(t)
	var out bytes.Buffer
	obs := &recordingObserver{}

	m := New(Options{
		MasterFD:     master,
		StdinFD:      -1,
		Stdout:       &out,
		Observer:     obs,
		PollInterval: 20 * time.Millisecond,
	})
	done := runAsync(m)

	data := allBytes()
	require.NoError(t, writeFD(child, data))
	closeWrite(t, child)

	assert.Equal(t, ReasonEOF, waitReason(t, done))
	assert.Equal(t, data, out.Bytes())
	assert.Equal(t, int64(len(data)), m.BytesOut())
	assert.Positive(t, obs.outputs)
}

func TestInputIsByteTransparent(t *testing.T) {
	master, child := pair(t)
	stdin, keyboard := pair(t)
	obs := &recordingObserver{}

	m := New(Options{
		MasterFD:     master,
		StdinFD:      stdin,
		Observer:     obs,
		PollInterval: 20 * time.Millisecond,
	})
	done := runAsync(m)

	keys := []byte("ls -la\x03\x04\x1b[A\x7f\r\n")
	require.NoError(t, writeFD(keyboard, keys))

	got := make([]byte, 0, len(keys))
	buf := make([]byte, 64)
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < len(keys) && time.Now().Before(deadline) {
		n, err := unix.Read(child, buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, keys, got)

	closeWrite(t, child)
	assert.Equal(t, ReasonEOF, waitReason(t, done))
	assert.Equal(t, keys, obs.input())
	assert.Equal(t, int64(len(keys)), m.BytesIn())
}

func TestStdinEOFKeepsRelayingOutput(t *testing.T) {
	master, child := pair(t)
	stdin, keyboard := pair(t)
	var out bytes.Buffer

	m := New(Options{
		MasterFD:     master,
		StdinFD:      stdin,
		Stdout:       &out,
		PollInterval: 20 * time.Millisecond,
	})
	done := runAsync(m)

	closeWrite(t, keyboard)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, writeFD(child, []byte("still here\r\n")))
	time.Sleep(50 * time.Millisecond)
	closeWrite(t, child)

	assert.Equal(t, ReasonEOF, waitReason(t, done))
	assert.Equal(t, "still here\r\n", out.String())
}

func TestStopFlagEndsLoop(t *testing.T) {
	master, _ := pair(t)
	stop := &flag{}
	ticks := atomic.Int32{}

	m := New(Options{
		MasterFD:     master,
		StdinFD:      -1,
		Stop:         stop,
		OnTick:       func() { ticks.Add(1) },
		PollInterval: 10 * time.Millisecond,
	})
	done := runAsync(m)

	time.Sleep(50 * time.Millisecond)
	stop.v.Store(true)

	assert.Equal(t, ReasonSignal, waitReason(t, done))
	assert.Positive(t, ticks.Load())
}

func TestChildExitDrainsPendingOutput(t *testing.T) {
	master, child := pair(t)
	var out bytes.Buffer
	require.NoError(t, writeFD(child, []byte("goodbye\r\n")))

	m := New(Options{
		MasterFD:     master,
		StdinFD:      -1,
		Stdout:       &out,
		Exited:       func() bool { return true },
		PollInterval: 10 * time.Millisecond,
	})

	assert.Equal(t, ReasonChildExit, waitReason(t, runAsync(m)))
	assert.Equal(t, "goodbye\r\n", out.String())
}

type countingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (c *countingNotifier) Send(n notification.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestDebouncerSeesOnlySubmittedLines(t *testing.T) {
	master, child := pair(t)
	stdin, keyboard := pair(t)
	sink := &countingNotifier{}
	deb := notification.NewDebouncer(sink, time.Hour, true)
	deb.SetInteractive(true)

	m := New(Options{
		MasterFD:     master,
		StdinFD:      stdin,
		Observer:     deb,
		PollInterval: 10 * time.Millisecond,
	})
	done := runAsync(m)

	// Output before any submitted line never notifies.
	require.NoError(t, writeFD(child, []byte("welcome\r\n")))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sink.count())

	require.NoError(t, writeFD(keyboard, []byte("hi\r")))
	buf := make([]byte, 16)
	_, err := unix.Read(child, buf)
	require.NoError(t, err)

	require.NoError(t, writeFD(child, []byte("hello\r\n")))
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	closeWrite(t, child)
	assert.Equal(t, ReasonEOF, waitReason(t, done))
	assert.False(t, deb.Pending())
}

func TestRunScripted(t *testing.T) {
	master, child := pair(t)
	var out bytes.Buffer

	go func() {
		_ = writeFD(child, []byte("banner\r\n"))
		buf := make([]byte, 64)
		var seen []byte
		for {
			n, err := unix.Read(child, buf)
			if err != nil || n == 0 {
				return
			}
			seen = append(seen, buf[:n]...)
			switch {
			case bytes.HasSuffix(seen, []byte("help\n")):
				_ = writeFD(child, []byte("usage: exit\r\n"))
				seen = nil
			case bytes.HasSuffix(seen, []byte("exit\n")):
				_ = writeFD(child, []byte("bye\r\n"))
				_ = unix.Shutdown(child, unix.SHUT_WR)
				return
			}
		}
	}()

	m := New(Options{
		MasterFD:     master,
		StdinFD:      -1,
		Stdout:       &out,
		PollInterval: 10 * time.Millisecond,
	})
	script := Script{
		InitialWait:      100 * time.Millisecond,
		Command:          "help\n",
		CommandWait:      50 * time.Millisecond,
		DrainTimeout:     200 * time.Millisecond,
		Exit:             "exit\n",
		FinalPolls:       10,
		FinalPollTimeout: 50 * time.Millisecond,
	}

	reason := m.RunScripted(script)
	assert.Equal(t, ReasonEOF, reason)
	assert.Contains(t, out.String(), "banner")
	assert.Contains(t, out.String(), "usage: exit")
	assert.Contains(t, out.String(), "bye")
	assert.Equal(t, int64(len("help\nexit\n")), m.BytesIn())
}

func TestRunScriptedStopsOnSignal(t *testing.T) {
	master, _ := pair(t)
	stop := &flag{}
	stop.v.Store(true)

	m := New(Options{MasterFD: master, StdinFD: -1, Stop: stop})
	assert.Equal(t, ReasonSignal, m.RunScripted(DefaultScript()))
}

func TestExitReasonString(t *testing.T) {
	assert.Equal(t, "eof", ReasonEOF.String())
	assert.Equal(t, "signal", ReasonSignal.String())
	assert.Equal(t, "child-exit", ReasonChildExit.String())
	assert.Equal(t, "unknown", ExitReason(42).String())
}

func TestPollTimeout(t *testing.T) {
	assert.Equal(t, 0, pollTimeout(0))
	assert.Equal(t, 0, pollTimeout(-time.Second))
	assert.Equal(t, 1, pollTimeout(time.Microsecond))
	assert.Equal(t, 200, pollTimeout(DefaultPollInterval))
}
