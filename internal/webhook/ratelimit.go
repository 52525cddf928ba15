package webhook

import (
	"sync"

	"golang.org/x/time/rate"
)

// senderLimiter rate-limits webhook processing per sender.
// rpm <= 0 disables limiting entirely.
type senderLimiter struct {
	rpm   int
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newSenderLimiter(rpm, burst int) *senderLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &senderLimiter{
		rpm:      rpm,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *senderLimiter) Enabled() bool { return l.rpm > 0 }

// Allow reports whether the sender may be processed right now.
func (l *senderLimiter) Allow(senderID string) bool {
	if !l.Enabled() {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[senderID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.rpm)/60.0), l.burst)
		l.limiters[senderID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
