package market

import (
	"context"
	"errors"
	"testing"

	"github.com/duskex/predictionmarket/internal/ledger"
)

func TestSwapBuyThenSellRoundTripsThroughFees(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 200_000)

	lg.Credit("trader", ledger.Collateral, 10_000)

	buyResult, err := e.Swap(ctx, SwapInput{
		MarketID: m.ID, User: "trader", Amount: 1_000,
		Direction: DirectionBuy, Side: SideYes, MinOut: 0,
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if buyResult.TokensOut == 0 {
		t.Fatalf("expected a positive number of YES tokens out")
	}
	yesBalance, err := lg.BalanceOf(ctx, "trader", ledger.YesAsset(m.ID))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if yesBalance != buyResult.TokensOut {
		t.Fatalf("expected trader YES balance %d, got %d", buyResult.TokensOut, yesBalance)
	}

	sellResult, err := e.Swap(ctx, SwapInput{
		MarketID: m.ID, User: "trader", Amount: yesBalance,
		Direction: DirectionSell, Side: SideYes, MinOut: 0,
	})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if sellResult.TokensOut == 0 {
		t.Fatalf("expected positive collateral proceeds from sell")
	}

	remainingYes, _ := lg.BalanceOf(ctx, "trader", ledger.YesAsset(m.ID))
	if remainingYes != 0 {
		t.Fatalf("expected all YES tokens sold back, got %d remaining", remainingYes)
	}

	// A round trip through the pool must net the trader out less collateral
	// than they put in: fees are extracted, never invented.
	collateralBack, _ := lg.BalanceOf(ctx, "trader", ledger.Collateral)
	if collateralBack >= 10_000 {
		t.Fatalf("expected fees to leave the trader with less than the original 10000, got %d", collateralBack)
	}
}

func TestSwapRejectsZeroAmount(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 50_000)

	_, err := e.Swap(context.Background(), SwapInput{
		MarketID: m.ID, User: "trader", Amount: 0, Direction: DirectionBuy, Side: SideYes,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSwapBlockedWhenContractPaused(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 50_000)
	lg.Credit("trader", ledger.Collateral, 1_000)

	if err := e.Pause(ctx, "", "incident"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, err := e.Swap(ctx, SwapInput{MarketID: m.ID, User: "trader", Amount: 100, Direction: DirectionBuy, Side: SideYes})
	if !errors.Is(err, ErrContractPaused) {
		t.Fatalf("expected ErrContractPaused, got %v", err)
	}
}

func TestSwapBlockedWhenMarketPaused(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 50_000)
	lg.Credit("trader", ledger.Collateral, 1_000)

	if err := e.Pause(ctx, m.ID, "incident"); err != nil {
		t.Fatalf("pause market: %v", err)
	}
	_, err := e.Swap(ctx, SwapInput{MarketID: m.ID, User: "trader", Amount: 100, Direction: DirectionBuy, Side: SideYes})
	if !errors.Is(err, ErrMarketPaused) {
		t.Fatalf("expected ErrMarketPaused, got %v", err)
	}
}

func TestSwapEnforcesSlippageFloor(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 50_000)
	lg.Credit("trader", ledger.Collateral, 1_000)

	_, err := e.Swap(ctx, SwapInput{
		MarketID: m.ID, User: "trader", Amount: 100,
		Direction: DirectionBuy, Side: SideYes, MinOut: 1_000_000,
	})
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
}

func TestSwapRejectsTradeAboveMaxSingleTradeBps(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 50_000)

	reloaded, _, err := e.loadMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	tooBig := reloaded.PoolCollateral*MaxSingleTradeBps/10_000 + 1
	lg.Credit("whale", ledger.Collateral, tooBig)

	_, err = e.Swap(ctx, SwapInput{MarketID: m.ID, User: "whale", Amount: tooBig, Direction: DirectionBuy, Side: SideYes})
	if !errors.Is(err, ErrTradeSizeTooLarge) {
		t.Fatalf("expected ErrTradeSizeTooLarge, got %v", err)
	}
}

func TestSwapRejectsOnceTradeRateLimitExhausted(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 10_000_000)
	lg.Credit("trader", ledger.Collateral, uint64(tradeRateBurst+1))

	var limited bool
	for i := 0; i < tradeRateBurst+1; i++ {
		_, err := e.Swap(ctx, SwapInput{MarketID: m.ID, User: "trader", Amount: 1, Direction: DirectionBuy, Side: SideYes})
		if errors.Is(err, ErrTradeRateLimited) {
			limited = true
			break
		}
		if err != nil {
			t.Fatalf("swap (iteration %d): %v", i, err)
		}
	}
	if !limited {
		t.Fatalf("expected the trade rate limiter to eventually reject a swap within the burst+1 loop")
	}
}

func TestSwapRejectsTransactionPastDeadline(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 50_000)
	lg.Credit("trader", ledger.Collateral, 1_000)

	_, err := e.Swap(ctx, SwapInput{
		MarketID: m.ID, User: "trader", Amount: 100,
		Direction: DirectionBuy, Side: SideYes, Deadline: 1, // long past the fixed test clock
	})
	if !errors.Is(err, ErrTransactionExpired) {
		t.Fatalf("expected ErrTransactionExpired, got %v", err)
	}
}
