package market

import (
	"context"
	"errors"
	"testing"

	"github.com/duskex/predictionmarket/internal/ledger"
)

func TestMintCompleteSetIsOneToOne(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)

	lg.Credit("alice", ledger.Collateral, 1000)
	if _, err := e.MintCompleteSet(ctx, m.ID, "alice", 500); err != nil {
		t.Fatalf("mint: %v", err)
	}

	yes, _ := lg.BalanceOf(ctx, "alice", ledger.YesAsset(m.ID))
	no, _ := lg.BalanceOf(ctx, "alice", ledger.NoAsset(m.ID))
	collateral, _ := lg.BalanceOf(ctx, "alice", ledger.Collateral)
	if yes != 500 || no != 500 {
		t.Fatalf("expected 500 YES and 500 NO minted, got yes=%d no=%d", yes, no)
	}
	if collateral != 500 {
		t.Fatalf("expected 500 collateral remaining after mint, got %d", collateral)
	}

	reloaded, _, err := e.loadMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.TotalCollateralLocked != 500 || reloaded.TotalYesMinted != 500 || reloaded.TotalNoMinted != 500 {
		t.Fatalf("expected settlement counters to track minted amount, got %+v", reloaded)
	}
}

func TestMintCompleteSetRejectsZeroAmount(t *testing.T) {
	e, _ := newTestEngine(t)
	m := createTestMarket(t, e)
	_, err := e.MintCompleteSet(context.Background(), m.ID, "alice", 0)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRedeemCompleteSetRoundTrips(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)

	lg.Credit("alice", ledger.Collateral, 1000)
	if _, err := e.MintCompleteSet(ctx, m.ID, "alice", 400); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := e.RedeemCompleteSet(ctx, m.ID, "alice", 400); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	yes, _ := lg.BalanceOf(ctx, "alice", ledger.YesAsset(m.ID))
	no, _ := lg.BalanceOf(ctx, "alice", ledger.NoAsset(m.ID))
	collateral, _ := lg.BalanceOf(ctx, "alice", ledger.Collateral)
	if yes != 0 || no != 0 {
		t.Fatalf("expected YES/NO burned back to zero, got yes=%d no=%d", yes, no)
	}
	if collateral != 1000 {
		t.Fatalf("expected full collateral returned, got %d", collateral)
	}

	reloaded, _, err := e.loadMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.TotalCollateralLocked != 0 {
		t.Fatalf("expected settlement counters back to zero, got %+v", reloaded)
	}
}

func TestRedeemCompleteSetRequiresSufficientLockedCollateral(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)

	lg.Credit("alice", ledger.Collateral, 1000)
	if _, err := e.MintCompleteSet(ctx, m.ID, "alice", 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err := e.RedeemCompleteSet(ctx, m.ID, "alice", 200)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestMintRedeemBlockedAfterResolution(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 50_000)

	if _, err := e.Resolve(ctx, ResolveInput{MarketID: m.ID, Winner: WinnerYes, YesRatioBps: 10_000, NoRatioBps: 0}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	lg.Credit("alice", ledger.Collateral, 1000)
	if _, err := e.MintCompleteSet(ctx, m.ID, "alice", 100); !errors.Is(err, ErrCurveAlreadyCompleted) {
		t.Fatalf("expected ErrCurveAlreadyCompleted for mint after resolve, got %v", err)
	}
	if _, err := e.RedeemCompleteSet(ctx, m.ID, "alice", 100); !errors.Is(err, ErrCurveAlreadyCompleted) {
		t.Fatalf("expected ErrCurveAlreadyCompleted for redeem after resolve, got %v", err)
	}
}
