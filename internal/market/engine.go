package market

import (
	"context"
	"fmt"
	"time"

	"github.com/duskex/predictionmarket/internal/ledger"
)

// engineState is the small persistence interface the engine needs, mirroring
// native/lending's engineState shape: a handful of typed get/put methods a
// concrete store wires in structurally, with no import cycle back into this
// package.
type engineState interface {
	GetGlobalConfig(ctx context.Context) (*GlobalConfig, error)
	PutGlobalConfig(ctx context.Context, cfg *GlobalConfig) error
	GetMarket(ctx context.Context, marketID string) (*Market, error)
	PutMarket(ctx context.Context, m *Market) error
	GetLPPosition(ctx context.Context, marketID, user string) (*LPPosition, error)
	PutLPPosition(ctx context.Context, p *LPPosition) error
	IsWhitelisted(ctx context.Context, creator string) (bool, error)
	PutWhitelist(ctx context.Context, creator string, allowed bool) error
}

const moduleName = "market"

// MaxSingleTradeBps bounds a single swap to 10% of pool_collateral, per the
// errors.rs TradeSizeTooLarge doc comment in the original program.
const MaxSingleTradeBps = 1000

// dynamic-b multipliers (x10000 scale), resolved from calculate_effective_lmsr_b.
const (
	depthMultiplierNormal = 10_000 // 1.0x, default
	depthMultiplierMid    = 12_000 // 1.2x, inside 7 days of ending_slot
	depthMultiplierFinal  = 15_000 // 1.5x, inside 72h of ending_slot
)

const (
	midStageWindowSeconds  = 7 * 24 * 3600
	finalStageWindowSeconds = 72 * 3600
)

// Imbalance-ratio thresholds for the dynamic withdrawal cap (x100 scale, so
// 150 means a 1.5:1 ratio). The retrieved reference source's constants.rs
// was not available; these round, internally-consistent values bracket the
// confirmed circuit-breaker trigger (400, i.e. 4:1) and reset (350, i.e.
// 3.5:1) ratios and are documented as an assumption rather than a silent
// guess.
const (
	imbalanceRatioMild     = 150
	imbalanceRatioModerate = 250
	imbalanceRatioHigh     = 350
)

// withdrawalCapBps maps an imbalance ratio (x100 scale) to the fraction of
// total_lp_shares a single withdrawal may burn.
func withdrawalCapBps(ratio uint64) uint64 {
	switch {
	case ratio < imbalanceRatioMild:
		return 3000
	case ratio < imbalanceRatioModerate:
		return 2000
	case ratio < imbalanceRatioHigh:
		return 1000
	default:
		return 500
	}
}

// CircuitBreakerTriggerRatio is the imbalance ratio (x100 scale, i.e. 400 ==
// 4:1) at or above which a withdrawal trips the circuit breaker.
const CircuitBreakerTriggerRatio = 400

// CircuitBreakerResetRatio is the ratio a market must be below before an
// authority can clear a tripped breaker — confirmed canonical via the
// reset instruction's own 7/2 numerator/denominator constants (3.5:1),
// distinct from and strictly below the 4:1 trigger ratio to avoid
// hysteresis at the boundary.
const CircuitBreakerResetRatio = 350

// CircuitBreakerCooldownSeconds is the minimum dwell time after a trip
// before a reset may be attempted.
const CircuitBreakerCooldownSeconds = 24 * 3600

// earlyExitPenaltyBps maps an LP position's age (seconds since created_at)
// to the withdrawal penalty retained in the pool.
func earlyExitPenaltyBps(ageSeconds int64) uint64 {
	const day = 24 * 3600
	switch {
	case ageSeconds < 7*day:
		return 300
	case ageSeconds < 14*day:
		return 200
	case ageSeconds < 30*day:
		return 100
	default:
		return 0
	}
}

// MinLiquidity is burned to the void on a market's first liquidity add, to
// prevent first-LP share-price manipulation.
const MinLiquidity = 1000

// Engine orchestrates every state transition over Market/GlobalConfig
// records: swap, mint/redeem, LP lifecycle, resolution and insurance.
type Engine struct {
	state         engineState
	ledger        ledger.Ledger
	mintAuthority *ledger.MintAuthority
	now           func() int64
	breakers      *breakerRegistry
	tradeLimiter  *tradeLimiter
}

// NewEngine constructs an Engine. mintAuthority may be shared across engines
// driving the same ledger (it is process-wide bookkeeping, not per-market
// state that belongs in the store).
func NewEngine(state engineState, lg ledger.Ledger, mintAuthority *ledger.MintAuthority) *Engine {
	return &Engine{
		state:         state,
		ledger:        lg,
		mintAuthority: mintAuthority,
		now:           func() int64 { return time.Now().Unix() },
		breakers:      newBreakerRegistry(),
		tradeLimiter:  newTradeLimiter(),
	}
}

// SetClock overrides the engine's time source, used by tests that need
// deterministic aging (early-exit penalty tiers, circuit-breaker cooldowns).
func (e *Engine) SetClock(now func() int64) { e.now = now }

func (e *Engine) requireState() error {
	if e.state == nil {
		return fmt.Errorf("%s engine: state not configured", moduleName)
	}
	if e.ledger == nil {
		return fmt.Errorf("%s engine: ledger not configured", moduleName)
	}
	return nil
}

func (e *Engine) loadMarket(ctx context.Context, marketID string) (*Market, *GlobalConfig, error) {
	if err := e.requireState(); err != nil {
		return nil, nil, err
	}
	cfg, err := e.state.GetGlobalConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s engine: load global config: %w", moduleName, err)
	}
	if cfg == nil {
		return nil, nil, fmt.Errorf("%s engine: global config not initialised", moduleName)
	}
	m, err := e.state.GetMarket(ctx, marketID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s engine: load market %s: %w", moduleName, marketID, err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("%s engine: market %s not found", moduleName, marketID)
	}
	return m, cfg, nil
}

// effectiveFees resolves the fee schedule a trade should use: the
// market's override when present, else the global rate.
func effectiveFees(m *Market, cfg *GlobalConfig) (platformBuyBps, platformSellBps, lpBuyBps, lpSellBps uint64) {
	if m.FeeOverride != nil {
		return m.FeeOverride.PlatformBuyBps, m.FeeOverride.PlatformSellBps, m.FeeOverride.LPBuyBps, m.FeeOverride.LPSellBps
	}
	return cfg.PlatformBuyBps, cfg.PlatformSellBps, cfg.LPBuyBps, cfg.LPSellBps
}

// effectiveB derives the dynamic liquidity depth from lmsr_b and proximity
// to ending_slot, per calculate_effective_lmsr_b: full depth normally, 1.2x
// tighter inside 7 days of the end, 1.5x tighter inside the final 72h.
func effectiveB(m *Market, nowUnix int64) uint64 {
	if m.EndingSlot == nil {
		return m.LmsrB
	}
	remaining := int64(*m.EndingSlot) - nowUnix
	multiplier := uint64(depthMultiplierNormal)
	switch {
	case remaining <= finalStageWindowSeconds:
		multiplier = depthMultiplierFinal
	case remaining <= midStageWindowSeconds:
		multiplier = depthMultiplierMid
	}
	scaled := m.LmsrB * multiplier / 10_000
	if scaled == 0 {
		scaled = m.LmsrB
	}
	return scaled
}
