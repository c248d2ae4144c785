package testutil

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Veraticus/claude-pty-notify/pkg/notification"
)

func TestRecordingNotifier(t *testing.T) {
	r := NewRecordingNotifier()

	if err := r.Send(notification.Notification{Title: "first"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	n, ok := r.Await(time.Second)
	if !ok || n.Title != "first" {
		t.Errorf("Await() = %+v, %v", n, ok)
	}
	if _, ok := r.Await(10 * time.Millisecond); ok {
		t.Error("Await() returned a delivery that never happened")
	}

	sinkErr := errors.New("sink down")
	r.FailWith(sinkErr)
	if err := r.Send(notification.Notification{Title: "second"}); err != sinkErr {
		t.Errorf("Send() error = %v, want %v", err, sinkErr)
	}
	if r.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", r.Failures())
	}
	if got := r.Sent(); len(got) != 1 || got[0].Title != "first" {
		t.Errorf("Sent() = %+v", got)
	}
}

func TestFakePTY(t *testing.T) {
	t.Run("output reaches master and EOF follows", func(t *testing.T) {
		f, err := NewFakePTY()
		if err != nil {
			t.Fatalf("NewFakePTY() error = %v", err)
		}
		defer f.Close()

		if err := f.WriteOutput([]byte("hi")); err != nil {
			t.Fatalf("WriteOutput() error = %v", err)
		}
		if err := f.CloseOutput(); err != nil {
			t.Fatalf("CloseOutput() error = %v", err)
		}

		buf := make([]byte, 8)
		n, err := unix.Read(f.MasterFD(), buf)
		if err != nil || string(buf[:n]) != "hi" {
			t.Errorf("Read() = %q, %v, want \"hi\"", buf[:n], err)
		}
		n, _ = unix.Read(f.MasterFD(), buf)
		if n != 0 {
			t.Errorf("Read() after CloseOutput = %d bytes, want EOF", n)
		}
	})

	t.Run("input is readable by the child", func(t *testing.T) {
		f, err := NewFakePTY()
		if err != nil {
			t.Fatalf("NewFakePTY() error = %v", err)
		}
		defer f.Close()

		if _, err := unix.Write(f.MasterFD(), []byte("ls\r")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := f.ReadInput(3, time.Second)
		if err != nil || string(got) != "ls\r" {
			t.Errorf("ReadInput() = %q, %v", got, err)
		}
	})

	t.Run("exit and teardown calls", func(t *testing.T) {
		f, err := NewFakePTY()
		if err != nil {
			t.Fatalf("NewFakePTY() error = %v", err)
		}
		defer f.Close()

		if f.Exited() || f.ExitCode() != -1 {
			t.Fatal("fresh fake should be running")
		}
		if f.WaitExit(10 * time.Millisecond) {
			t.Error("WaitExit() = true for a running child")
		}

		f.Exit(3)
		if !f.WaitExit(time.Second) || f.ExitCode() != 3 {
			t.Errorf("ExitCode() = %d, want 3", f.ExitCode())
		}

		_ = f.CloseMaster()
		_ = f.CloseMaster()
		_ = f.Terminate(time.Second, true)

		want := []string{"close master", "close master", "terminate"}
		got := f.Calls()
		if len(got) != len(want) {
			t.Fatalf("Calls() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Calls()[%d] = %s, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("terminate stops a running child", func(t *testing.T) {
		f, err := NewFakePTY()
		if err != nil {
			t.Fatalf("NewFakePTY() error = %v", err)
		}
		defer f.Close()

		if err := f.Terminate(time.Second, false); err != nil {
			t.Fatalf("Terminate() error = %v", err)
		}
		if !f.Exited() {
			t.Error("child still running after Terminate()")
		}

		g, _ := NewFakePTY()
		defer g.Close()
		termErr := errors.New("stuck")
		g.SetTerminateError(termErr)
		if err := g.Terminate(time.Second, true); err != termErr {
			t.Errorf("Terminate() error = %v, want %v", err, termErr)
		}
	})
}

func TestMockObserver(t *testing.T) {
	m := NewMockObserver()
	m.SetInteractive(true)
	m.OnInput([]byte("a"))
	m.OnInput([]byte("b\r"))
	if m.OnOutput() {
		t.Error("OnOutput() = true, want false")
	}

	if string(m.Input()) != "ab\r" {
		t.Errorf("Input() = %q, want \"ab\\r\"", m.Input())
	}
	if m.OutputCount() != 1 {
		t.Errorf("OutputCount() = %d, want 1", m.OutputCount())
	}
	if !m.Interactive() {
		t.Error("Interactive() = false, want true")
	}
}
