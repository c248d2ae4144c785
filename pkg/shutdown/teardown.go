package shutdown

import (
	"sync"

	"go.uber.org/zap"
)

type step struct {
	name string
	fn   func() error
}

// Teardown runs registered cleanup steps in registration order, once.
// A failing step is logged and the remaining steps still run.
type Teardown struct {
	logger *zap.Logger

	mu    sync.Mutex
	steps []step
	once  sync.Once
	ran   bool
}

// NewTeardown creates an empty teardown.
func NewTeardown(logger *zap.Logger) *Teardown {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Teardown{logger: logger}
}

// Add appends a step. Steps added after Run are ignored.
func (t *Teardown) Add(name string, fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ran {
		return
	}
	t.steps = append(t.steps, step{name: name, fn: fn})
}

// Run executes the steps. Later calls return immediately.
func (t *Teardown) Run() {
	t.once.Do(func() {
		t.mu.Lock()
		t.ran = true
		steps := t.steps
		t.mu.Unlock()

		for _, s := range steps {
			if err := s.fn(); err != nil {
				t.logger.Warn("teardown step failed", zap.String("step", s.name), zap.Error(err))
				continue
			}
			t.logger.Debug("teardown step done", zap.String("step", s.name))
		}
	})
}
