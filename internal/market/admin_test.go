package market

import (
	"context"
	"errors"
	"testing"

	"github.com/duskex/predictionmarket/internal/ledger"
)

func TestConfigureRequiresCallerMatchesAuthority(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	err := e.Configure(ctx, "impostor", GlobalConfig{
		Authority: "authority", TokenDecimals: 6, InitialReservesB: 1,
	})
	if !errors.Is(err, ErrIncorrectAuthority) {
		t.Fatalf("expected ErrIncorrectAuthority, got %v", err)
	}
}

func TestConfigureRejectsInvalidFeeSchedule(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	err := e.Configure(ctx, "authority", GlobalConfig{
		Authority: "authority", TokenDecimals: 6, InitialReservesB: 1,
		PlatformBuyBps: 6000, LPBuyBps: 6000,
	})
	if !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected ErrValueTooLarge for buy-side bps over 10000, got %v", err)
	}
}

func TestTwoStepAuthorityHandoff(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.NominateAuthority(ctx, "authority", "successor"); err != nil {
		t.Fatalf("nominate: %v", err)
	}
	if err := e.AcceptAuthority(ctx, "eavesdropper"); !errors.Is(err, ErrIncorrectAuthority) {
		t.Fatalf("expected ErrIncorrectAuthority for wrong acceptor, got %v", err)
	}
	if err := e.AcceptAuthority(ctx, "successor"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Old authority can no longer configure.
	err := e.Configure(ctx, "authority", GlobalConfig{Authority: "authority", TokenDecimals: 6, InitialReservesB: 1})
	if !errors.Is(err, ErrIncorrectAuthority) {
		t.Fatalf("expected old authority to be rejected after handoff, got %v", err)
	}
}

func TestCreateMarketDerivesIDAndMintsSentinel(t *testing.T) {
	e, lg := newTestEngine(t)
	ctx := context.Background()

	m := createTestMarket(t, e)

	wantID := DeriveMarketID("yes-mint", "no-mint")
	if m.ID != wantID {
		t.Fatalf("expected deterministic market id %s, got %s", wantID, m.ID)
	}
	if m.SentinelNoMinted != 1 {
		t.Fatalf("expected sentinel_no_minted 1, got %d", m.SentinelNoMinted)
	}
	balance, err := lg.BalanceOf(ctx, ledger.GlobalVault, ledger.NoAsset(m.ID))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 1 {
		t.Fatalf("expected one sentinel NO token minted to the global vault, got %d", balance)
	}

	// Recreating with the same mint pair collides.
	_, err = e.CreateMarket(ctx, CreateMarketInput{
		Creator: "authority", YesMint: "yes-mint", NoMint: "no-mint",
		DisplayName: "Duplicate", InitialYesProbBps: 5000,
	})
	if !errors.Is(err, ErrTokenAlreadyInUse) {
		t.Fatalf("expected ErrTokenAlreadyInUse on id collision, got %v", err)
	}
}

func TestCreateMarketRejectsOutOfRangeInitialProbability(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateMarket(ctx, CreateMarketInput{
		Creator: "authority", YesMint: "y", NoMint: "n",
		DisplayName: "Too skewed", InitialYesProbBps: 9000,
	})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for prob outside [2000,8000], got %v", err)
	}
}

func TestCreateMarketWhitelistGate(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg, err := e.state.GetGlobalConfig(ctx)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.WhitelistEnabled = true
	if err := e.state.PutGlobalConfig(ctx, cfg); err != nil {
		t.Fatalf("persist config: %v", err)
	}

	_, err = e.CreateMarket(ctx, CreateMarketInput{
		Creator: "outsider", YesMint: "y", NoMint: "n",
		DisplayName: "Gated", InitialYesProbBps: 5000,
	})
	if !errors.Is(err, ErrCreatorNotWhitelisted) {
		t.Fatalf("expected ErrCreatorNotWhitelisted, got %v", err)
	}

	if err := e.AddToWhitelist(ctx, "outsider"); err != nil {
		t.Fatalf("add to whitelist: %v", err)
	}
	if _, err := e.CreateMarket(ctx, CreateMarketInput{
		Creator: "outsider", YesMint: "y", NoMint: "n",
		DisplayName: "Gated", InitialYesProbBps: 5000,
	}); err != nil {
		t.Fatalf("expected whitelisted creator to succeed, got %v", err)
	}

	if err := e.RemoveFromWhitelist(ctx, "outsider"); err != nil {
		t.Fatalf("remove from whitelist: %v", err)
	}
	allowed, err := e.state.IsWhitelisted(ctx, "outsider")
	if err != nil {
		t.Fatalf("whitelist lookup: %v", err)
	}
	if allowed {
		t.Fatalf("expected outsider to be removed from the whitelist")
	}
}

func TestPauseUnpauseGlobalAndPerMarket(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	m := createTestMarket(t, e)

	if err := e.Pause(ctx, "", "maintenance"); err != nil {
		t.Fatalf("global pause: %v", err)
	}
	if err := e.Pause(ctx, "", "again"); !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("expected ErrAlreadyPaused, got %v", err)
	}
	if err := e.Unpause(ctx, ""); err != nil {
		t.Fatalf("global unpause: %v", err)
	}
	if err := e.Unpause(ctx, ""); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}

	if err := e.Pause(ctx, m.ID, "incident"); err != nil {
		t.Fatalf("market pause: %v", err)
	}
	got, _, err := e.loadMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload market: %v", err)
	}
	if !got.MarketPaused || got.PauseReason != "incident" {
		t.Fatalf("expected market paused with reason recorded, got %+v", got)
	}
	if err := e.Unpause(ctx, m.ID); err != nil {
		t.Fatalf("market unpause: %v", err)
	}
}
