package market

import (
	"context"
	"errors"
	"testing"

	"github.com/duskex/predictionmarket/internal/ledger"
	"github.com/duskex/predictionmarket/internal/market/events"
)

func TestAddLiquiditySeedsPoolAndIssuesShares(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)

	lg.Credit("lp-1", ledger.Collateral, 50_000)
	if _, err := e.AddLiquidity(ctx, AddLiquidityInput{MarketID: m.ID, User: "lp-1", UsdcAmount: 50_000}); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	reloaded, _, err := e.loadMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.TotalLPShares == 0 {
		t.Fatalf("expected LP shares to be issued")
	}
	if reloaded.PoolYes == 0 || reloaded.PoolNo == 0 {
		t.Fatalf("expected both pool legs seeded, got yes=%d no=%d", reloaded.PoolYes, reloaded.PoolNo)
	}

	pos, err := e.state.GetLPPosition(ctx, m.ID, "lp-1")
	if err != nil {
		t.Fatalf("load lp position: %v", err)
	}
	if pos == nil || pos.LPShares != reloaded.TotalLPShares {
		t.Fatalf("expected lp-1 to hold all issued shares, got %+v", pos)
	}
	// The minimum-liquidity burn keeps first-LP shares strictly below the
	// gross deposit, preventing first-depositor share-price manipulation.
	if pos.LPShares >= 50_000 {
		t.Fatalf("expected MinLiquidity burn to reduce issued shares below deposit, got %d", pos.LPShares)
	}
}

func TestAddLiquidityRejectsBelowMinLPLiquidity(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	lg.Credit("lp-1", ledger.Collateral, 5_000)

	_, err := e.AddLiquidity(context.Background(), AddLiquidityInput{MarketID: m.ID, User: "lp-1", UsdcAmount: 5_000})
	if !errors.Is(err, ErrValueTooSmall) {
		t.Fatalf("expected ErrValueTooSmall below min_lp_liquidity, got %v", err)
	}
}

func TestAddLiquidityRequiresMintAuthorityTransferred(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()

	m, err := e.CreateMarket(ctx, CreateMarketInput{
		Creator: "authority", YesMint: "y2", NoMint: "n2",
		DisplayName: "No handoff yet", InitialYesProbBps: 5000,
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	lg.Credit("lp-1", ledger.Collateral, 50_000)

	_, err = e.AddLiquidity(ctx, AddLiquidityInput{MarketID: m.ID, User: "lp-1", UsdcAmount: 50_000})
	if !errors.Is(err, ErrMintAuthorityNotTransferred) {
		t.Fatalf("expected ErrMintAuthorityNotTransferred, got %v", err)
	}
}

func TestWithdrawLiquidityBurnsSharesAndPaysOut(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 100_000)

	pos, err := e.state.GetLPPosition(ctx, m.ID, "lp-1")
	if err != nil {
		t.Fatalf("load lp position: %v", err)
	}

	// Age the position well past every early-exit penalty tier so the
	// withdrawal test isolates the payout math from the penalty schedule.
	pos.CreatedAt -= 31 * 24 * 3600
	if err := e.state.PutLPPosition(ctx, pos); err != nil {
		t.Fatalf("persist aged position: %v", err)
	}

	halfShares := pos.LPShares / 2
	_, err = e.WithdrawLiquidity(ctx, WithdrawLiquidityInput{
		MarketID: m.ID, User: "lp-1", LPShares: halfShares, MinUsdcOut: 0,
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	after, err := e.state.GetLPPosition(ctx, m.ID, "lp-1")
	if err != nil {
		t.Fatalf("reload position: %v", err)
	}
	if after.LPShares != pos.LPShares-halfShares {
		t.Fatalf("expected %d shares remaining, got %d", pos.LPShares-halfShares, after.LPShares)
	}

	balance, err := lg.BalanceOf(ctx, "lp-1", ledger.Collateral)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance == 0 {
		t.Fatalf("expected lp-1 to receive a positive collateral payout")
	}
}

func TestWithdrawLiquidityEmitsInternalSwapEventAlongsideWithdrawnEvent(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	// Skew the pool so the LP's pro-rata YES/NO legs come out unequal,
	// forcing WithdrawLiquidity onto the leftover-leg internal-swap path.
	lg.Credit("trader", ledger.Collateral, 100_000)
	if _, err := e.Swap(ctx, SwapInput{
		MarketID: m.ID, User: "trader", Amount: 100_000, Direction: DirectionBuy, Side: SideYes,
	}); err != nil {
		t.Fatalf("skew swap: %v", err)
	}

	pos, err := e.state.GetLPPosition(ctx, m.ID, "lp-1")
	if err != nil {
		t.Fatalf("load lp position: %v", err)
	}
	pos.CreatedAt -= 31 * 24 * 3600
	if err := e.state.PutLPPosition(ctx, pos); err != nil {
		t.Fatalf("age lp position: %v", err)
	}

	evts, err := e.WithdrawLiquidity(ctx, WithdrawLiquidityInput{MarketID: m.ID, User: "lp-1", LPShares: pos.LPShares})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if len(evts) != 2 {
		t.Fatalf("expected an internal-swap event plus the withdrawn event, got %d events", len(evts))
	}
	if evts[0].Type != events.EventTypeInternalSwap {
		t.Fatalf("expected the first event to be %s, got %s", events.EventTypeInternalSwap, evts[0].Type)
	}
	if evts[1].Type != events.EventTypeLiquidityWithdrawn {
		t.Fatalf("expected the last event to be %s, got %s", events.EventTypeLiquidityWithdrawn, evts[1].Type)
	}
}

func TestWithdrawLiquidityRejectsMoreSharesThanHeld(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 100_000)

	pos, err := e.state.GetLPPosition(ctx, m.ID, "lp-1")
	if err != nil {
		t.Fatalf("load lp position: %v", err)
	}

	_, err = e.WithdrawLiquidity(ctx, WithdrawLiquidityInput{
		MarketID: m.ID, User: "lp-1", LPShares: pos.LPShares + 1, MinUsdcOut: 0,
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestWithdrawLiquidityBlockedWhileCircuitBreakerActive(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 100_000)

	reloaded, _, err := e.loadMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	reloaded.CircuitBreakerActive = true
	if err := e.state.PutMarket(ctx, reloaded); err != nil {
		t.Fatalf("persist: %v", err)
	}

	pos, err := e.state.GetLPPosition(ctx, m.ID, "lp-1")
	if err != nil {
		t.Fatalf("load lp position: %v", err)
	}
	_, err = e.WithdrawLiquidity(ctx, WithdrawLiquidityInput{MarketID: m.ID, User: "lp-1", LPShares: pos.LPShares, MinUsdcOut: 0})
	if !errors.Is(err, ErrCircuitBreakerTriggered) {
		t.Fatalf("expected ErrCircuitBreakerTriggered, got %v", err)
	}
}

func TestRepeatedWithdrawalsLatchCircuitBreakerOpen(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	var tripped bool
	for i := 0; i < 20 && !tripped; i++ {
		pos, err := e.state.GetLPPosition(ctx, m.ID, "lp-1")
		if err != nil {
			t.Fatalf("load lp position: %v", err)
		}
		if pos.LPShares == 0 {
			t.Fatalf("lp position exhausted before the breaker tripped")
		}
		burn := pos.LPShares * 3000 / 10_000
		if burn == 0 {
			burn = pos.LPShares
		}
		_, err = e.WithdrawLiquidity(ctx, WithdrawLiquidityInput{MarketID: m.ID, User: "lp-1", LPShares: burn, MinUsdcOut: 0})
		if errors.Is(err, ErrWouldTriggerCircuitBreaker) {
			tripped = true
			continue
		}
		if err != nil {
			t.Fatalf("withdraw liquidity (iteration %d): %v", i, err)
		}
	}
	if !tripped {
		t.Fatalf("expected repeated large withdrawals to eventually trip the circuit breaker")
	}

	reloaded, _, err := e.loadMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.CircuitBreakerActive {
		t.Fatalf("expected the circuit breaker to latch open in market state, not just reject the tripping call")
	}

	_, err = e.WithdrawLiquidity(ctx, WithdrawLiquidityInput{MarketID: m.ID, User: "lp-1", LPShares: 1, MinUsdcOut: 0})
	if !errors.Is(err, ErrCircuitBreakerTriggered) {
		t.Fatalf("expected a subsequent withdrawal to be rejected by the now-latched breaker, got %v", err)
	}
}

func TestResetCircuitBreakerRequiresCooldownElapsed(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)

	reloaded, _, err := e.loadMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	reloaded.CircuitBreakerActive = true
	reloaded.CircuitBreakerTriggeredAt = 1_700_000_000 // same instant as the fixed test clock
	if err := e.state.PutMarket(ctx, reloaded); err != nil {
		t.Fatalf("persist: %v", err)
	}

	_, err = e.ResetCircuitBreaker(ctx, m.ID)
	if !errors.Is(err, ErrCircuitBreakerCooldownNotElapsed) {
		t.Fatalf("expected ErrCircuitBreakerCooldownNotElapsed, got %v", err)
	}
}

func TestClaimLPFeesPaysAccruedShare(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 200_000)

	lg.Credit("trader", ledger.Collateral, 10_000)
	if _, err := e.Swap(ctx, SwapInput{MarketID: m.ID, User: "trader", Amount: 5_000, Direction: DirectionBuy, Side: SideYes}); err != nil {
		t.Fatalf("swap: %v", err)
	}

	claimed, _, err := e.ClaimLPFees(ctx, m.ID, "lp-1")
	if err != nil {
		t.Fatalf("claim lp fees: %v", err)
	}
	if claimed == 0 {
		t.Fatalf("expected a positive LP fee claim after a fee-bearing swap")
	}

	// A second immediate claim yields nothing further.
	claimedAgain, _, err := e.ClaimLPFees(ctx, m.ID, "lp-1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimedAgain != 0 {
		t.Fatalf("expected zero on repeat claim with no new fees, got %d", claimedAgain)
	}
}
