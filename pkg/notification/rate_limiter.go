package notification

import (
	"sync"
	"time"

	"github.com/Veraticus/claude-pty-notify/pkg/interfaces"
	"golang.org/x/time/rate"
)

// CooldownLimiter admits at most one event per cooldown window. It is a
// token bucket with a burst of one, refilled once per cooldown.
type CooldownLimiter struct {
	now func() time.Time

	mu      sync.Mutex
	limiter *rate.Limiter
}

// Ensure CooldownLimiter implements RateLimiter
var _ interfaces.RateLimiter = (*CooldownLimiter)(nil)

// NewCooldownLimiter creates a limiter reading time from now, time.Now
// when nil. A zero cooldown never limits.
func NewCooldownLimiter(cooldown time.Duration, now func() time.Time) *CooldownLimiter {
	if now == nil {
		now = time.Now
	}
	limit := rate.Every(cooldown)
	if cooldown <= 0 {
		limit = rate.Inf
	}
	return &CooldownLimiter{
		now:     now,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Allow reports whether an event may happen now and consumes the token.
func (l *CooldownLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limiter.AllowN(l.now(), 1)
}
