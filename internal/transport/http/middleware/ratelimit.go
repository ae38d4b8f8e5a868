package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pictogram/internal/httputil"
)

// RateLimiter tracks a token bucket per authenticated user. Entries
// idle for longer than the cleanup window are dropped to bound memory.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*userLimiter
	limit    rate.Limit
	burst    int
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second with the given burst
// per user.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[int64]*userLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) limiterFor(userID int64) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[userID]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[userID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	for range time.Tick(time.Minute) {
		rl.mu.Lock()
		for userID, entry := range rl.limiters {
			if time.Since(entry.lastSeen) > 3*time.Minute {
				delete(rl.limiters, userID)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects requests over the per-user budget with 429.
// Must run after Auth; anonymous requests pass through untouched.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if ok && !rl.limiterFor(userID).Allow() {
			httputil.WriteTooManyRequests(w, "Request rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
