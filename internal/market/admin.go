package market

import (
	"context"
	"fmt"

	"github.com/duskex/predictionmarket/internal/ledger"
	"github.com/duskex/predictionmarket/internal/market/events"
)

// Configure validates and installs a new GlobalConfig. Only the current
// authority may call this once a config exists; the very first call
// initializes the singleton and requires authority == caller.
func (e *Engine) Configure(ctx context.Context, caller string, cfg GlobalConfig) error {
	existing, err := e.state.GetGlobalConfig(ctx)
	if err != nil {
		return fmt.Errorf("%s engine: load global config: %w", moduleName, err)
	}
	if existing == nil {
		if cfg.Authority != caller {
			return fmt.Errorf("%w: initial authority must be the caller", ErrIncorrectAuthority)
		}
	} else if existing.Authority != caller {
		return ErrIncorrectAuthority
	}
	if cfg.TokenDecimals != 6 {
		return fmt.Errorf("%w: token_decimals must equal 6", ErrInvalidParameter)
	}
	if cfg.PlatformBuyBps > 10_000 || cfg.LPBuyBps > 10_000 || cfg.PlatformBuyBps+cfg.LPBuyBps > 10_000 {
		return fmt.Errorf("%w: buy-side fee bps invalid", ErrValueTooLarge)
	}
	if cfg.PlatformSellBps > 10_000 || cfg.LPSellBps > 10_000 || cfg.PlatformSellBps+cfg.LPSellBps > 10_000 {
		return fmt.Errorf("%w: sell-side fee bps invalid", ErrValueTooLarge)
	}
	if cfg.InitialReservesB == 0 || cfg.InitialReservesB > 1_000_000_000_000 {
		return fmt.Errorf("%w: initial_reserves_b out of range", ErrInvalidParameter)
	}
	if cfg.InsuranceEnabled && cfg.PlatformBuyBps == 0 && cfg.PlatformSellBps == 0 {
		return ErrCannotEnableInsuranceWithoutPlatformFee
	}
	if cfg.InsuranceFeeAllocationBps > 10_000 {
		return fmt.Errorf("%w: insurance_fee_allocation_bps must be <= 10000", ErrValueTooLarge)
	}
	return e.state.PutGlobalConfig(ctx, &cfg)
}

// NominateAuthority begins a two-step authority handoff.
func (e *Engine) NominateAuthority(ctx context.Context, caller, nominee string) error {
	cfg, err := e.state.GetGlobalConfig(ctx)
	if err != nil {
		return fmt.Errorf("%s engine: load global config: %w", moduleName, err)
	}
	if cfg == nil || cfg.Authority != caller {
		return ErrIncorrectAuthority
	}
	cfg.PendingAuthority = nominee
	return e.state.PutGlobalConfig(ctx, cfg)
}

// AcceptAuthority completes a two-step authority handoff; only the
// nominated pending authority may call it.
func (e *Engine) AcceptAuthority(ctx context.Context, caller string) error {
	cfg, err := e.state.GetGlobalConfig(ctx)
	if err != nil {
		return fmt.Errorf("%s engine: load global config: %w", moduleName, err)
	}
	if cfg == nil || cfg.PendingAuthority == "" || cfg.PendingAuthority != caller {
		return ErrIncorrectAuthority
	}
	cfg.Authority = caller
	cfg.PendingAuthority = ""
	return e.state.PutGlobalConfig(ctx, cfg)
}

// CreateMarketInput carries create_market's instruction parameters.
type CreateMarketInput struct {
	Creator           string
	YesMint           string
	NoMint            string
	DisplayName       string
	StartSlot         *uint64
	EndingSlot        *uint64
	InitialYesProbBps uint64
}

// CreateMarket registers a new market, deriving its identity from the
// (yes_mint, no_mint) pair and minting the one-unit NO sentinel.
func (e *Engine) CreateMarket(ctx context.Context, in CreateMarketInput) (*Market, error) {
	cfg, err := e.state.GetGlobalConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s engine: load global config: %w", moduleName, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%s engine: global config not initialised", moduleName)
	}
	if cfg.WhitelistEnabled {
		allowed, err := e.state.IsWhitelisted(ctx, in.Creator)
		if err != nil {
			return nil, fmt.Errorf("%s engine: whitelist lookup: %w", moduleName, err)
		}
		if !allowed {
			return nil, ErrCreatorNotWhitelisted
		}
	}
	if len(in.DisplayName) == 0 || len(in.DisplayName) > 64 {
		return nil, fmt.Errorf("%w: display_name must be 1..=64 chars", ErrInvalidParameter)
	}
	if in.InitialYesProbBps < 2000 || in.InitialYesProbBps > 8000 {
		return nil, fmt.Errorf("%w: initial_yes_prob_bps must be in [2000, 8000]", ErrInvalidParameter)
	}
	now := e.now()
	if in.StartSlot != nil && in.EndingSlot != nil {
		if *in.EndingSlot <= *in.StartSlot {
			return nil, ErrInvalidEndTime
		}
		if int64(*in.StartSlot) <= now {
			return nil, ErrInvalidStartTime
		}
		if int64(*in.StartSlot) > now+30*24*3600 {
			return nil, ErrInvalidStartTime
		}
	}

	id := DeriveMarketID(in.YesMint, in.NoMint)
	existing, err := e.state.GetMarket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s engine: market lookup: %w", moduleName, err)
	}
	if existing != nil {
		return nil, ErrTokenAlreadyInUse
	}

	if err := e.ledger.MintYesNo(ctx, ledger.GlobalVault, ledger.NoAsset(id), 1); err != nil {
		return nil, fmt.Errorf("%s engine: mint sentinel: %w", moduleName, err)
	}

	m := &Market{
		ID: id, YesMint: in.YesMint, NoMint: in.NoMint, DisplayName: in.DisplayName,
		StartSlot: in.StartSlot, EndingSlot: in.EndingSlot, CreatedAt: now,
		InitialYesProbBps: in.InitialYesProbBps, LmsrB: cfg.InitialReservesB,
		SentinelNoMinted: 1,
	}
	if err := e.state.PutMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("%s engine: persist new market: %w", moduleName, err)
	}
	return m, nil
}

// SetMintAuthority completes the idempotent handoff of a market's YES/NO
// mint authority from the global vault to the market account.
func (e *Engine) SetMintAuthority(ctx context.Context, marketID string) error {
	if e.mintAuthority.Transferred(marketID) {
		return nil
	}
	e.mintAuthority.Transfer(marketID)
	return nil
}

// SeedPoolInput carries seed_pool's single parameter.
type SeedPoolInput struct {
	MarketID   string
	User       string
	UsdcAmount uint64
}

// SeedPool is the force-issue variant of the first add_liquidity call,
// usable only while the pool has never been seeded.
func (e *Engine) SeedPool(ctx context.Context, in SeedPoolInput) (*events.Event, error) {
	m, cfg, err := e.loadMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if m.TotalLPShares != 0 {
		return nil, ErrPoolAlreadySeeded
	}
	if in.UsdcAmount < cfg.MinLPLiquidity {
		return nil, fmt.Errorf("%w: usdc_amount below min_lp_liquidity", ErrValueTooSmall)
	}
	return e.AddLiquidity(ctx, AddLiquidityInput{MarketID: in.MarketID, User: in.User, UsdcAmount: in.UsdcAmount})
}

// RenameMarket updates a market's display name. It performs no caller
// check, and the gateway exposes no route for it.
func (e *Engine) RenameMarket(ctx context.Context, marketID, displayName string) error {
	if len(displayName) == 0 || len(displayName) > 64 {
		return fmt.Errorf("%w: display_name must be 1..=64 chars", ErrInvalidParameter)
	}
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return err
	}
	m.DisplayName = displayName
	return e.state.PutMarket(ctx, m)
}

// ConfigureMarketFees installs or clears a per-market fee-schedule override.
func (e *Engine) ConfigureMarketFees(ctx context.Context, marketID string, override *FeeOverride) error {
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return err
	}
	if override != nil {
		if override.PlatformBuyBps+override.LPBuyBps > 10_000 || override.PlatformSellBps+override.LPSellBps > 10_000 {
			return fmt.Errorf("%w: overridden fee bps invalid", ErrValueTooLarge)
		}
	}
	m.FeeOverride = override
	return e.state.PutMarket(ctx, m)
}

// Pause sets a market or global pause flag with an optional reason.
func (e *Engine) Pause(ctx context.Context, marketID string, reason string) error {
	if len(reason) > 200 {
		return fmt.Errorf("%w: pause reason must be <= 200 chars", ErrInvalidParameter)
	}
	if marketID == "" {
		cfg, err := e.state.GetGlobalConfig(ctx)
		if err != nil {
			return err
		}
		if cfg.IsPaused {
			return ErrAlreadyPaused
		}
		cfg.IsPaused = true
		return e.state.PutGlobalConfig(ctx, cfg)
	}
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return err
	}
	if m.MarketPaused {
		return ErrAlreadyPaused
	}
	m.MarketPaused = true
	m.PauseReason = reason
	return e.state.PutMarket(ctx, m)
}

// Unpause clears a market or global pause flag.
func (e *Engine) Unpause(ctx context.Context, marketID string) error {
	if marketID == "" {
		cfg, err := e.state.GetGlobalConfig(ctx)
		if err != nil {
			return err
		}
		if !cfg.IsPaused {
			return ErrNotPaused
		}
		cfg.IsPaused = false
		return e.state.PutGlobalConfig(ctx, cfg)
	}
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return err
	}
	if !m.MarketPaused {
		return ErrNotPaused
	}
	m.MarketPaused = false
	m.PauseReason = ""
	return e.state.PutMarket(ctx, m)
}

// AddToWhitelist grants a creator permission to call CreateMarket when
// whitelisting is enabled.
func (e *Engine) AddToWhitelist(ctx context.Context, creator string) error {
	return e.state.PutWhitelist(ctx, creator, true)
}

// RemoveFromWhitelist revokes a creator's market-creation permission.
func (e *Engine) RemoveFromWhitelist(ctx context.Context, creator string) error {
	return e.state.PutWhitelist(ctx, creator, false)
}
