package auth

import (
	"net/http"
	"sync"
	"time"
)

// --- Rate Limiter ---

// RateLimiter throttles login attempts per client address.
type RateLimiter struct {
	requests map[string]int
	limit    int
	window   time.Duration
	mutex    sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		requests: make(map[string]int),
		limit:    5,
		window:   time.Minute,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ipAddress := r.RemoteAddr

		rl.mutex.Lock()
		count, exists := rl.requests[ipAddress]
		if !exists {
			rl.requests[ipAddress] = 1
			rl.mutex.Unlock()
			go rl.resetCount(ipAddress)
			next.ServeHTTP(w, r)
			return
		}

		if count >= rl.limit {
			rl.mutex.Unlock()
			RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		rl.requests[ipAddress] = count + 1
		rl.mutex.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) resetCount(ipAddress string) {
	time.Sleep(rl.window)
	rl.mutex.Lock()
	delete(rl.requests, ipAddress)
	rl.mutex.Unlock()
}
