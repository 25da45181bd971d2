package market

import (
	"sync"

	"golang.org/x/time/rate"
)

// tradeRateBurst and tradeRatePerSecond bound how often a single market may
// accept a swap, layered above the per-trade deadline/guard checks as
// ambient throttling for a concurrent HTTP surface. Not a spec-named
// control; a natural extension of the engine's reentrancy-safe state
// transitions once many callers can reach the same market at once.
const (
	tradeRatePerSecond = 20
	tradeRateBurst     = 40
)

// tradeLimiter hands out a token-bucket limiter per market, grounded on
// nhbchain's gateway/middleware.RateLimiter (per-key limiter map behind a
// mutex), but keyed by market id instead of client identity.
type tradeLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newTradeLimiter() *tradeLimiter {
	return &tradeLimiter{limiters: make(map[string]*rate.Limiter)}
}

func (t *tradeLimiter) allow(marketID string) bool {
	t.mu.Lock()
	limiter, ok := t.limiters[marketID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(tradeRatePerSecond), tradeRateBurst)
		t.limiters[marketID] = limiter
	}
	t.mu.Unlock()
	return limiter.Allow()
}
