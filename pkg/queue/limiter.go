package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterSweepSize is the number of tracked users after which idle buckets are dropped.
const limiterSweepSize = 4096

// userLimiter keeps one token bucket per user id.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

func newUserLimiter(r rate.Limit, b int) *userLimiter {
	if r <= 0 {
		return nil
	}
	return &userLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

// Allow reports whether userID may enqueue now. A nil limiter allows everything.
func (l *userLimiter) Allow(userID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[userID]
	if !ok {
		if len(l.limiters) >= limiterSweepSize {
			l.sweep()
		}
		limiter = rate.NewLimiter(l.r, l.b)
		l.limiters[userID] = limiter
	}
	return limiter.Allow()
}

// sweep drops buckets that refilled completely; a fresh bucket behaves the same.
func (l *userLimiter) sweep() {
	for id, lim := range l.limiters {
		if lim.Tokens() >= float64(l.b) {
			delete(l.limiters, id)
		}
	}
}
