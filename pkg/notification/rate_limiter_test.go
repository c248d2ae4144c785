package notification

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("sink unavailable")

func TestCooldownLimiter_Allow(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		cooldown   time.Duration
		operations []struct {
			at        time.Duration
			wantAllow bool
		}
	}{
		{
			name:     "one per window",
			cooldown: time.Second,
			operations: []struct {
				at        time.Duration
				wantAllow bool
			}{
				{at: 0, wantAllow: true},
				{at: 10 * time.Millisecond, wantAllow: false},
				{at: 900 * time.Millisecond, wantAllow: false},
				{at: 1100 * time.Millisecond, wantAllow: true},
				{at: 1200 * time.Millisecond, wantAllow: false},
			},
		},
		{
			name:     "idle time does not bank extra tokens",
			cooldown: time.Second,
			operations: []struct {
				at        time.Duration
				wantAllow bool
			}{
				{at: 0, wantAllow: true},
				{at: 10 * time.Second, wantAllow: true},
				{at: 10*time.Second + time.Millisecond, wantAllow: false},
			},
		},
		{
			name:     "zero cooldown never limits",
			cooldown: 0,
			operations: []struct {
				at        time.Duration
				wantAllow bool
			}{
				{at: 0, wantAllow: true},
				{at: 0, wantAllow: true},
				{at: time.Millisecond, wantAllow: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := base
			l := NewCooldownLimiter(tt.cooldown, func() time.Time { return now })
			for i, op := range tt.operations {
				now = base.Add(op.at)
				if got := l.Allow(); got != op.wantAllow {
					t.Errorf("operation %d at %v: Allow = %v, want %v", i, op.at, got, op.wantAllow)
				}
			}
		})
	}
}

func TestCooldownLimiter_DefaultsToWallClock(t *testing.T) {
	l := NewCooldownLimiter(time.Hour, nil)

	if !l.Allow() {
		t.Fatal("first Allow should succeed")
	}
	if l.Allow() {
		t.Error("second Allow inside the window should fail")
	}
}
