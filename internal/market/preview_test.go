package market

import (
	"context"
	"strconv"
	"testing"

	"github.com/duskex/predictionmarket/internal/ledger"
)

func TestPreviewSellMatchesActualSellProceeds(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	lg.Credit(ledger.Account("trader"), ledger.YesAsset(m.ID), 1_000)

	preview, err := e.PreviewSell(context.Background(), m.ID, SideYes, 500)
	if err != nil {
		t.Fatalf("preview sell: %v", err)
	}

	result, err := e.Swap(context.Background(), SwapInput{
		MarketID: m.ID, User: "trader", Amount: 500, Direction: DirectionSell, Side: SideYes,
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if preview.NetOut != result.TokensOut {
		t.Fatalf("expected the preview's net_out (%d) to match the actual swap's proceeds (%d)", preview.NetOut, result.TokensOut)
	}
	if preview.PlatformFee != result.PlatformFee || preview.LPFee != result.LPFee {
		t.Fatalf("expected the preview's fee split to match the actual swap's, got platform=%d lp=%d vs actual platform=%d lp=%d",
			preview.PlatformFee, preview.LPFee, result.PlatformFee, result.LPFee)
	}
}

func TestPreviewSellRejectsZeroAmount(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	if _, err := e.PreviewSell(context.Background(), m.ID, SideYes, 0); err == nil {
		t.Fatalf("expected an error previewing a zero-amount sell")
	}
}

func TestPreviewClaimMatchesActualClaimPayout(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	lg.Credit(ledger.Account("trader"), ledger.Collateral, 10_000)
	if _, err := e.Swap(context.Background(), SwapInput{
		MarketID: m.ID, User: "trader", Amount: 10_000, Direction: DirectionBuy, Side: SideYes,
	}); err != nil {
		t.Fatalf("swap: %v", err)
	}

	if _, err := e.Resolve(context.Background(), ResolveInput{MarketID: m.ID, Winner: WinnerYes, YesRatioBps: 10_000, NoRatioBps: 0}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	previewed, err := e.PreviewClaim(context.Background(), m.ID, "trader")
	if err != nil {
		t.Fatalf("preview claim: %v", err)
	}

	actual, _, err := e.ClaimRewards(context.Background(), m.ID, "trader")
	if err != nil {
		t.Fatalf("claim rewards: %v", err)
	}
	if previewed != actual {
		t.Fatalf("expected preview (%d) to match actual claim payout (%d)", previewed, actual)
	}
}

func TestPreviewClaimRejectsBeforeResolution(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	if _, err := e.PreviewClaim(context.Background(), m.ID, "trader"); err == nil {
		t.Fatalf("expected preview claim to reject an unresolved market")
	}
}

func TestPreviewClaimFeesMatchesActualClaim(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	lg.Credit(ledger.Account("trader"), ledger.Collateral, 100_000)
	if _, err := e.Swap(context.Background(), SwapInput{
		MarketID: m.ID, User: "trader", Amount: 100_000, Direction: DirectionBuy, Side: SideYes,
	}); err != nil {
		t.Fatalf("swap: %v", err)
	}

	preview, err := e.PreviewClaimFees(context.Background(), m.ID, "lp-1")
	if err != nil {
		t.Fatalf("preview claim fees: %v", err)
	}
	if preview.Claimable == 0 {
		t.Fatalf("expected some accrued LP fee after a buy against the pool")
	}

	actual, _, err := e.ClaimLPFees(context.Background(), m.ID, "lp-1")
	if err != nil {
		t.Fatalf("claim lp fees: %v", err)
	}
	if preview.Claimable != actual {
		t.Fatalf("expected preview (%d) to match actual claim (%d)", preview.Claimable, actual)
	}
}

func TestPreviewWithdrawMatchesActualWithdrawPayout(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	pos, err := e.state.GetLPPosition(context.Background(), m.ID, "lp-1")
	if err != nil {
		t.Fatalf("load lp position: %v", err)
	}
	pos.CreatedAt -= 31 * 24 * 3600
	if err := e.state.PutLPPosition(context.Background(), pos); err != nil {
		t.Fatalf("age lp position: %v", err)
	}

	preview, err := e.PreviewWithdraw(context.Background(), m.ID, "lp-1", pos.LPShares/4)
	if err != nil {
		t.Fatalf("preview withdraw: %v", err)
	}

	evts, err := e.WithdrawLiquidity(context.Background(), WithdrawLiquidityInput{
		MarketID: m.ID, User: "lp-1", LPShares: pos.LPShares / 4,
	})
	if err != nil {
		t.Fatalf("withdraw liquidity: %v", err)
	}
	evt := evts[len(evts)-1]
	if actualOut := evt.Attributes["final_out"]; actualOut != strconv.FormatUint(preview.FinalOut, 10) {
		t.Fatalf("expected preview final_out (%d) to match the event's final_out (%s)", preview.FinalOut, actualOut)
	}
}

func TestPreviewWithdrawRejectsMoreSharesThanHeld(t *testing.T) {
	e, lg := newTestEngine(t)
	m := createTestMarket(t, e)
	seedTestPool(t, e, lg, m.ID, 1_000_000)

	pos, err := e.state.GetLPPosition(context.Background(), m.ID, "lp-1")
	if err != nil {
		t.Fatalf("load lp position: %v", err)
	}

	if _, err := e.PreviewWithdraw(context.Background(), m.ID, "lp-1", pos.LPShares+1); err == nil {
		t.Fatalf("expected an error previewing a withdrawal larger than the held position")
	}
}
