package handlers

import (
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/lazysauce/collector/internal/clientip"
)

// RateLimiter keeps one token bucket per client address. The least
// recently seen buckets are evicted once the cache is full.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	visitors *lru.Cache[string, *rate.Limiter]
}

func NewRateLimiter(rps float64, burst, size int) (*RateLimiter, error) {
	if burst <= 0 {
		burst = 1
	}
	c, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{rps: rate.Limit(rps), burst: burst, visitors: c}, nil
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if lim, ok := rl.visitors.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	if prev, ok, _ := rl.visitors.PeekOrAdd(key, lim); ok {
		return prev
	}
	return lim
}

// Allow spends one token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.Allow(clientip.FromRequest(r)) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", "1")
		jsonError(w, "rate limit exceeded", http.StatusTooManyRequests)
	})
}
