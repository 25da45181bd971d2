package market

import (
	"context"
	"testing"

	"github.com/duskex/predictionmarket/internal/ledger"
	"github.com/duskex/predictionmarket/internal/store/memstore"
)

// newTestEngine builds an Engine over a fresh memstore and MemLedger with a
// configured GlobalConfig, a fixed clock, and no markets yet.
func newTestEngine(t *testing.T) (*Engine, *ledger.MemLedger) {
	t.Helper()
	store := memstore.New()
	lg := ledger.NewMemLedger()
	e := NewEngine(store, lg, ledger.NewMintAuthority())
	e.SetClock(func() int64 { return 1_700_000_000 })

	cfg := GlobalConfig{
		Authority: "authority", TeamWallet: "team", CollateralMint: "usdc-mint",
		PlatformBuyBps: 100, PlatformSellBps: 100, LPBuyBps: 50, LPSellBps: 50,
		InitialReservesB:    1_000_000,
		TokenDecimals:       6,
		MinTradingLiquidity: 100,
		MinLPLiquidity:      10_000,
		VaultMinBalance:     0,
	}
	if err := e.Configure(context.Background(), "authority", cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}
	return e, lg
}

// createTestMarket creates a 50/50 market and completes the mint-authority
// handoff so AddLiquidity is immediately usable.
func createTestMarket(t *testing.T, e *Engine) *Market {
	t.Helper()
	m, err := e.CreateMarket(context.Background(), CreateMarketInput{
		Creator: "authority", YesMint: "yes-mint", NoMint: "no-mint",
		DisplayName: "Will it rain tomorrow", InitialYesProbBps: 5000,
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	if err := e.SetMintAuthority(context.Background(), m.ID); err != nil {
		t.Fatalf("set mint authority: %v", err)
	}
	return m
}

// seedTestPool seeds the pool via AddLiquidity from a funded LP user.
func seedTestPool(t *testing.T, e *Engine, lg *ledger.MemLedger, marketID string, amount uint64) {
	t.Helper()
	lg.Credit(ledger.Account("lp-1"), ledger.Collateral, amount)
	if _, err := e.AddLiquidity(context.Background(), AddLiquidityInput{
		MarketID: marketID, User: "lp-1", UsdcAmount: amount,
	}); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
}
