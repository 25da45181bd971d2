// Package events defines the typed telemetry events the market engines emit
// for every state-mutating instruction, following the EventType*/New*Event
// constructor pattern used throughout the teacher's native/* packages.
package events

import (
	"fmt"
	"strconv"
)

// Event is a typed event emitted during a state transition: a stable type
// tag plus a flat string-attribute map, suited to structured-log sinks and
// off-chain reconciliation consumers alike.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

const (
	EventTypeSwapExecuted            = "market.swap.executed"
	EventTypeCompleteSetMinted       = "market.complete_set.minted"
	EventTypeCompleteSetRedeemed     = "market.complete_set.redeemed"
	EventTypeLiquidityAdded          = "market.liquidity.added"
	EventTypeLiquidityWithdrawn      = "market.liquidity.withdrawn"
	EventTypeInternalSwap            = "market.liquidity.internal_swap"
	EventTypeLPFeesClaimed           = "market.liquidity.fees_claimed"
	EventTypeCircuitBreakerTripped   = "market.circuit_breaker.tripped"
	EventTypeCircuitBreakerReset     = "market.circuit_breaker.reset"
	EventTypeMarketResolved          = "market.resolved"
	EventTypePoolSettled             = "market.pool_settled"
	EventTypeRewardsClaimed          = "market.rewards_claimed"
	EventTypeDustReclaimed           = "market.dust_reclaimed"
	EventTypeVaultBalanceSnapshot    = "market.vault.balance_snapshot"
)

// Verbose selects between the compact production event (only fields
// required for reconciliation) and the verbose debug event (every
// intermediate quantity the engine computed). This mirrors the compile-time
// flag the spec calls for; here it's a runtime package variable set once at
// process start from configuration.
var Verbose = false

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
func i64(v int64) string  { return strconv.FormatInt(v, 10) }

// SwapResult carries the fields common to every swap outcome.
type SwapResult struct {
	MarketID      string
	Side          string
	Direction     string
	AmountIn      uint64
	TokensOut     uint64
	PlatformFee   uint64
	LPFee         uint64
	PoolCollateral uint64
	PoolYes       uint64
	PoolNo        uint64
	QYes          int64
	QNo           int64
}

// NewSwapExecutedEvent builds the swap telemetry event.
func NewSwapExecutedEvent(r SwapResult) *Event {
	attrs := map[string]string{
		"market_id":  r.MarketID,
		"side":       r.Side,
		"direction":  r.Direction,
		"amount_in":  u64(r.AmountIn),
		"tokens_out": u64(r.TokensOut),
	}
	if Verbose {
		attrs["platform_fee"] = u64(r.PlatformFee)
		attrs["lp_fee"] = u64(r.LPFee)
		attrs["pool_collateral"] = u64(r.PoolCollateral)
		attrs["pool_yes"] = u64(r.PoolYes)
		attrs["pool_no"] = u64(r.PoolNo)
		attrs["q_yes"] = i64(r.QYes)
		attrs["q_no"] = i64(r.QNo)
	}
	return &Event{Type: EventTypeSwapExecuted, Attributes: attrs}
}

// NewCompleteSetEvent builds the mint/redeem complete-set event.
func NewCompleteSetEvent(minted bool, marketID string, amount, totalLocked uint64) *Event {
	t := EventTypeCompleteSetMinted
	if !minted {
		t = EventTypeCompleteSetRedeemed
	}
	return &Event{Type: t, Attributes: map[string]string{
		"market_id":               marketID,
		"amount":                  u64(amount),
		"total_collateral_locked": u64(totalLocked),
	}}
}

// LiquidityAddedResult carries the fields for an add_liquidity event.
type LiquidityAddedResult struct {
	MarketID      string
	User          string
	UsdcIn        uint64
	SharesIssued  uint64
	CompleteSets  uint64
	DirectUsdc    uint64
	PoolCollateral uint64
	PoolYes       uint64
	PoolNo        uint64
}

// NewLiquidityAddedEvent builds the add_liquidity telemetry event.
func NewLiquidityAddedEvent(r LiquidityAddedResult) *Event {
	attrs := map[string]string{
		"market_id":     r.MarketID,
		"user":          r.User,
		"usdc_in":       u64(r.UsdcIn),
		"shares_issued": u64(r.SharesIssued),
	}
	if Verbose {
		attrs["complete_sets"] = u64(r.CompleteSets)
		attrs["direct_usdc"] = u64(r.DirectUsdc)
		attrs["pool_collateral"] = u64(r.PoolCollateral)
		attrs["pool_yes"] = u64(r.PoolYes)
		attrs["pool_no"] = u64(r.PoolNo)
	}
	return &Event{Type: EventTypeLiquidityAdded, Attributes: attrs}
}

// LiquidityWithdrawnResult carries the fields for a withdraw_liquidity event.
type LiquidityWithdrawnResult struct {
	MarketID       string
	User           string
	SharesBurned   uint64
	Gross          uint64
	PenaltyBps     uint64
	Compensation   uint64
	FinalOut       uint64
}

// NewLiquidityWithdrawnEvent builds the withdraw_liquidity telemetry event.
func NewLiquidityWithdrawnEvent(r LiquidityWithdrawnResult) *Event {
	attrs := map[string]string{
		"market_id":     r.MarketID,
		"user":          r.User,
		"shares_burned": u64(r.SharesBurned),
		"final_out":     u64(r.FinalOut),
	}
	if Verbose {
		attrs["gross"] = u64(r.Gross)
		attrs["penalty_bps"] = u64(r.PenaltyBps)
		attrs["compensation"] = u64(r.Compensation)
	}
	return &Event{Type: EventTypeLiquidityWithdrawn, Attributes: attrs}
}

// NewInternalSwapEvent builds the fee-free internal-swap event executed on a
// withdrawing LP's behalf, including the slippage it incurred.
func NewInternalSwapEvent(marketID, side string, leftover, swapOut, slippageBps uint64) *Event {
	return &Event{Type: EventTypeInternalSwap, Attributes: map[string]string{
		"market_id":    marketID,
		"side":         side,
		"leftover":     u64(leftover),
		"swap_out":     u64(swapOut),
		"slippage_bps": u64(slippageBps),
	}}
}

// NewLPFeesClaimedEvent builds the claim_lp_fees event.
func NewLPFeesClaimedEvent(marketID, user string, claimable uint64) *Event {
	return &Event{Type: EventTypeLPFeesClaimed, Attributes: map[string]string{
		"market_id": marketID,
		"user":      user,
		"claimable": u64(claimable),
	}}
}

// NewCircuitBreakerTrippedEvent builds the circuit-breaker trip event.
func NewCircuitBreakerTrippedEvent(marketID string, triggeredAt int64, reason string) *Event {
	return &Event{Type: EventTypeCircuitBreakerTripped, Attributes: map[string]string{
		"market_id":    marketID,
		"triggered_at": i64(triggeredAt),
		"reason":       reason,
	}}
}

// NewCircuitBreakerResetEvent builds the circuit-breaker reset event.
func NewCircuitBreakerResetEvent(marketID string) *Event {
	return &Event{Type: EventTypeCircuitBreakerReset, Attributes: map[string]string{
		"market_id": marketID,
	}}
}

// NewMarketResolvedEvent builds the resolution event.
func NewMarketResolvedEvent(marketID string, winner int, yesBps, noBps uint64) *Event {
	return &Event{Type: EventTypeMarketResolved, Attributes: map[string]string{
		"market_id": marketID,
		"winner":    fmt.Sprintf("%d", winner),
		"yes_bps":   u64(yesBps),
		"no_bps":    u64(noBps),
	}}
}

// NewPoolSettledEvent builds the settle_pool event.
func NewPoolSettledEvent(marketID string) *Event {
	return &Event{Type: EventTypePoolSettled, Attributes: map[string]string{"market_id": marketID}}
}

// NewRewardsClaimedEvent builds the claim_rewards event.
func NewRewardsClaimedEvent(marketID, user string, yesBurned, noBurned, payout uint64) *Event {
	return &Event{Type: EventTypeRewardsClaimed, Attributes: map[string]string{
		"market_id":  marketID,
		"user":       user,
		"yes_burned": u64(yesBurned),
		"no_burned":  u64(noBurned),
		"payout":     u64(payout),
	}}
}

// NewDustReclaimedEvent builds the reclaim_dust event.
func NewDustReclaimedEvent(marketID string, amount uint64) *Event {
	return &Event{Type: EventTypeDustReclaimed, Attributes: map[string]string{
		"market_id": marketID,
		"amount":    u64(amount),
	}}
}

// NewVaultBalanceSnapshotEvent builds the cross-cutting invariant-I1
// telemetry event: the three ledger components and the signed discrepancy
// against the observed vault balance.
func NewVaultBalanceSnapshotEvent(marketID string, vaultBalance, poolCollateral, totalLocked, accumulatedFees uint64, discrepancy int64) *Event {
	return &Event{Type: EventTypeVaultBalanceSnapshot, Attributes: map[string]string{
		"market_id":       marketID,
		"vault_balance":   u64(vaultBalance),
		"pool_collateral": u64(poolCollateral),
		"total_locked":    u64(totalLocked),
		"accumulated_fees": u64(accumulatedFees),
		"discrepancy":     i64(discrepancy),
	}}
}
