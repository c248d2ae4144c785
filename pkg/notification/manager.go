package notification

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCloseTimeout bounds how long Close waits for an in-flight delivery.
const DefaultCloseTimeout = 3 * time.Second

// Manager delivers notifications fire-and-forget: Send never blocks the
// caller and never reports delivery failures. At most one delivery runs at
// a time; notifications arriving while one is in flight are dropped.
type Manager struct {
	notifier     Notifier
	logger       *zap.Logger
	closeTimeout time.Duration

	inflight chan struct{}
	wg       sync.WaitGroup
}

// Ensure Manager implements Notifier
var _ Notifier = (*Manager)(nil)

// NewManager creates a new notification manager
func NewManager(notifier Notifier, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		notifier:     notifier,
		logger:       logger,
		closeTimeout: DefaultCloseTimeout,
		inflight:     make(chan struct{}, 1),
	}
}

// Send dispatches n in the background and always returns nil.
func (m *Manager) Send(n Notification) error {
	if m.notifier == nil {
		return nil
	}

	select {
	case m.inflight <- struct{}{}:
	default:
		m.logger.Debug("notification dropped, previous delivery still running",
			zap.String("event", n.Event))
		return nil
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() { <-m.inflight }()

		if err := m.notifier.Send(n); err != nil {
			m.logger.Debug("notification delivery failed",
				zap.String("event", n.Event), zap.Error(err))
			return
		}
		m.logger.Debug("notification delivered",
			zap.String("event", n.Event), zap.String("title", n.Title))
	}()

	return nil
}

// Close waits, up to the close timeout, for an in-flight delivery.
func (m *Manager) Close() error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(m.closeTimeout):
		m.logger.Debug("gave up waiting for notification delivery")
	}
	return nil
}
