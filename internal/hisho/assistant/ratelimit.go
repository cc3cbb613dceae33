package assistant

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimit is the number of AI turns a user may start per minute.
const DefaultRateLimit = 20

// RateLimiter is a per-user token bucket: limit turns per minute with a burst
// of limit. It is safe for concurrent use.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	limits map[string]*rate.Limiter
}

// NewRateLimiter returns a limiter allowing limit turns per user per minute.
// A non-positive limit falls back to DefaultRateLimit.
func NewRateLimiter(limit int) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	return &RateLimiter{
		limit:  limit,
		limits: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) limiter(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limits[userID]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.limit)), rl.limit)
	rl.limits[userID] = l
	return l
}

// Allow reports whether userID may start another turn now and consumes a
// token if so.
func (rl *RateLimiter) Allow(userID string) bool {
	return rl.AllowAt(userID, time.Now())
}

// AllowAt is Allow evaluated at t.
func (rl *RateLimiter) AllowAt(userID string, t time.Time) bool {
	return rl.limiter(userID).AllowN(t, 1)
}

// Forget drops the bucket of userID, e.g. when the user's session expires.
func (rl *RateLimiter) Forget(userID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limits, userID)
}
