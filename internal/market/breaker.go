package market

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/sony/gobreaker"
)

// errProtectionTripped is fed into a gobreaker.CircuitBreaker purely to drive
// its state machine; it never escapes this package.
var errProtectionTripped = errors.New("market: lp protection condition tripped")

// breakerRegistry holds one gobreaker.CircuitBreaker per market, used only
// for its state-transition bookkeeping and logging. The actual trip
// decision stays the custom three-condition predicate computed in
// WithdrawLiquidity/PreviewWithdraw (imbalance ratio, reserve floors, rolling
// withdrawal volume) — gobreaker's own ReadyToTrip/consecutive-failure
// semantics don't fit a ratio comparison, so ReadyToTrip here fires on the
// first recorded trip rather than counting failures.
type breakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakerRegistry() *breakerRegistry {
	return &breakerRegistry{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (r *breakerRegistry) forMarket(marketID string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[marketID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: marketID,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("lp protection circuit breaker state change", "market_id", name, "from", from.String(), "to", to.String())
		},
	})
	r.breakers[marketID] = cb
	return cb
}

// recordWithdrawOutcome drives the per-market breaker's state machine to
// reflect a withdrawal's trip projection, without altering the outcome
// already decided by the caller.
func (r *breakerRegistry) recordWithdrawOutcome(marketID string, tripped bool) {
	cb := r.forMarket(marketID)
	_, _ = cb.Execute(func() (any, error) {
		if tripped {
			return nil, errProtectionTripped
		}
		return nil, nil
	})
}

// recordReset drives the breaker back towards closed after ResetCircuitBreaker
// clears the market-side flag.
func (r *breakerRegistry) recordReset(marketID string) {
	r.forMarket(marketID).Execute(func() (any, error) { return nil, nil })
}
