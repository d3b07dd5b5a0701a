package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 5 * time.Minute

type visitor struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per key. Buckets idle for two cleanup intervals are
// dropped.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter allows perMinute requests per key per minute, with bursts of the same
// size. A non-positive rate disables limiting.
func NewRateLimiter(perMinute float64) *RateLimiter {
	rl := &RateLimiter{
		limit:    rate.Inf,
		visitors: make(map[string]*visitor),
		stopCh:   make(chan struct{}),
	}
	if perMinute > 0 {
		rl.limit = rate.Limit(perMinute / 60)
		rl.burst = int(math.Max(1, math.Ceil(perMinute)))
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit == rate.Inf {
		return true
	}
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastAccess = time.Now()
	rl.mu.Unlock()
	return v.limiter.Allow()
}

// RetryAfter is the time for one token to refill.
func (rl *RateLimiter) RetryAfter() time.Duration {
	if rl.limit == rate.Inf || rl.limit <= 0 {
		return time.Second
	}
	return time.Duration(math.Round(float64(time.Second) / float64(rl.limit)))
}

// Len reports how many keys are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := limiterCleanupInterval * 2
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastAccess) > ttl {
			delete(rl.visitors, key)
		}
	}
}

func writeRateLimitResponse(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "too many login attempts, please retry later")
}
