package relay

import (
	"time"

	"go.uber.org/zap"
)

// Script is the headless demo choreography.
type Script struct {
	InitialWait      time.Duration
	Command          string
	CommandWait      time.Duration
	DrainTimeout     time.Duration
	Exit             string
	FinalPolls       int
	FinalPollTimeout time.Duration
}

// DefaultScript drains startup output for 2s, asks for help, then exits.
func DefaultScript() Script {
	return Script{
		InitialWait:      2 * time.Second,
		Command:          "help\n",
		CommandWait:      500 * time.Millisecond,
		DrainTimeout:     500 * time.Millisecond,
		Exit:             "exit\n",
		FinalPolls:       10,
		FinalPollTimeout: 200 * time.Millisecond,
	}
}

// RunScripted drives the child with s instead of relaying stdin. Output is
// relayed and observed exactly as in Run.
func (m *Multiplexer) RunScripted(s Script) ExitReason {
	deadline := time.Now().Add(s.InitialWait)
	for time.Now().Before(deadline) {
		if reason, done := m.scriptedCheck(); done {
			return reason
		}
		if !m.waitOutput(minDuration(m.timeout, time.Until(deadline))) {
			return ReasonEOF
		}
	}

	if reason, ok := m.send(s.Command); !ok {
		return reason
	}
	time.Sleep(s.CommandWait)
	if !m.waitOutput(s.DrainTimeout) {
		return ReasonEOF
	}

	if reason, ok := m.send(s.Exit); !ok {
		return reason
	}
	for i := 0; i < s.FinalPolls; i++ {
		if !m.waitOutput(s.FinalPollTimeout) {
			return ReasonEOF
		}
		if reason, done := m.scriptedCheck(); done {
			return reason
		}
	}
	return ReasonEOF
}

func (m *Multiplexer) send(text string) (ExitReason, bool) {
	if reason, done := m.scriptedCheck(); done {
		return reason, false
	}
	if err := writeFD(m.master, []byte(text)); err != nil {
		m.logger.Debug("scripted write failed", zap.Error(err))
		return ReasonEOF, false
	}
	m.bytesIn += int64(len(text))
	return 0, true
}

func (m *Multiplexer) scriptedCheck() (ExitReason, bool) {
	if m.stop != nil && m.stop.Requested() {
		return ReasonSignal, true
	}
	if m.exited != nil && m.exited() {
		m.drain()
		return ReasonChildExit, true
	}
	return 0, false
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
