package market

import (
	"context"
	"fmt"

	"github.com/duskex/predictionmarket/internal/ledger"
	"github.com/duskex/predictionmarket/internal/market/events"
)

// ResolveInput carries an authority's resolution decision.
type ResolveInput struct {
	MarketID   string
	Winner     Winner
	YesRatioBps uint64
	NoRatioBps  uint64
}

// Resolve sets the market's payoff ratios and liquidates the pool's YES/NO
// holdings back into collateral, acquiring every reentrancy flag at once
// since it touches both market-local state and the shared global vault's
// pool-side holdings.
func (e *Engine) Resolve(ctx context.Context, in ResolveInput) (*events.Event, error) {
	m, _, err := e.loadMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if m.IsCompleted {
		return nil, fmt.Errorf("%w: market already resolved", ErrCurveAlreadyCompleted)
	}
	if m.EndingSlot != nil && uint64(e.now()) < *m.EndingSlot {
		return nil, ErrMarketNotEnded
	}
	if in.YesRatioBps+in.NoRatioBps != 10_000 {
		return nil, fmt.Errorf("%w: yes_bps + no_bps must equal 10000", ErrInvalidMarketOutcome)
	}
	if in.Winner != WinnerNo && in.Winner != WinnerYes && in.Winner != WinnerDraw {
		return nil, fmt.Errorf("%w: winner must be 0, 1 or 2", ErrInvalidMarketOutcome)
	}

	release, err := acquireGuards(m, guardSwap, guardAddLiquidity, guardWithdraw, guardClaim)
	if err != nil {
		return nil, err
	}
	defer release()

	globalYesBalance, err := e.ledger.BalanceOf(ctx, ledger.GlobalVault, ledger.YesAsset(m.ID))
	if err != nil {
		return nil, err
	}
	globalNoBalance, err := e.ledger.BalanceOf(ctx, ledger.GlobalVault, ledger.NoAsset(m.ID))
	if err != nil {
		return nil, err
	}

	yesBurned := globalYesBalance
	noRedeemable := minUint64(globalNoBalance, m.TotalNoMinted)
	noBurnable := minUint64(globalNoBalance, m.TotalNoMinted+m.SentinelNoMinted)

	released := yesBurned*in.YesRatioBps/10_000 + noRedeemable*in.NoRatioBps/10_000

	if err := e.ledger.BurnYesNo(ctx, ledger.GlobalVault, ledger.YesAsset(m.ID), yesBurned); err != nil {
		return nil, err
	}
	if err := e.ledger.BurnYesNo(ctx, ledger.GlobalVault, ledger.NoAsset(m.ID), noBurnable); err != nil {
		return nil, err
	}

	m.TotalCollateralLocked -= minUint64(released, m.TotalCollateralLocked)
	m.PoolCollateral += released
	m.PoolYes = 0
	m.PoolNo = 0

	m.IsCompleted = true
	m.Winner = in.Winner
	m.ResolutionYesRatioBps = in.YesRatioBps
	m.ResolutionNoRatioBps = in.NoRatioBps

	if err := e.state.PutMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("%s engine: persist market after resolution: %w", moduleName, err)
	}
	return events.NewMarketResolvedEvent(m.ID, int(in.Winner), in.YesRatioBps, in.NoRatioBps), nil
}

// SettlePool marks a resolved market's pool as settled, which unlocks
// post-resolution LP withdrawals. It burns no tokens: Resolve has already
// burned the pool's YES/NO holdings.
func (e *Engine) SettlePool(ctx context.Context, marketID string) (*events.Event, error) {
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if !m.IsCompleted {
		return nil, ErrMarketNotCompleted
	}
	m.PoolSettled = true
	if err := e.state.PutMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("%s engine: persist market after settle: %w", moduleName, err)
	}
	return events.NewPoolSettledEvent(m.ID), nil
}

// ClaimRewards burns a user's entire YES and NO balance and pays the
// proportional collateral, drawing first from total_collateral_locked and
// then, if insufficient, from pool_collateral. Permitted even while the
// contract is globally paused, since a completed market's claims must never
// be stranded.
func (e *Engine) ClaimRewards(ctx context.Context, marketID, user string) (uint64, *events.Event, error) {
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return 0, nil, err
	}
	if !m.IsCompleted {
		return 0, nil, ErrMarketNotCompleted
	}

	release, err := acquireGuard(m, guardClaim)
	if err != nil {
		return 0, nil, err
	}
	defer release()

	yesBalance, err := e.ledger.BalanceOf(ctx, ledger.Account(user), ledger.YesAsset(m.ID))
	if err != nil {
		return 0, nil, err
	}
	noBalance, err := e.ledger.BalanceOf(ctx, ledger.Account(user), ledger.NoAsset(m.ID))
	if err != nil {
		return 0, nil, err
	}
	if yesBalance == 0 && noBalance == 0 {
		return 0, nil, ErrInsufficientBalance
	}

	payout := yesBalance*m.ResolutionYesRatioBps/10_000 + noBalance*m.ResolutionNoRatioBps/10_000

	if yesBalance > 0 {
		if err := e.ledger.BurnYesNo(ctx, ledger.Account(user), ledger.YesAsset(m.ID), yesBalance); err != nil {
			return 0, nil, err
		}
	}
	if noBalance > 0 {
		if err := e.ledger.BurnYesNo(ctx, ledger.Account(user), ledger.NoAsset(m.ID), noBalance); err != nil {
			return 0, nil, err
		}
	}

	fromLocked := minUint64(payout, m.TotalCollateralLocked)
	fromPool := payout - fromLocked
	m.TotalCollateralLocked -= fromLocked
	if fromPool > 0 {
		m.PoolCollateral -= minUint64(fromPool, m.PoolCollateral)
	}
	m.TotalYesMinted -= minUint64(yesBalance, m.TotalYesMinted)
	m.TotalNoMinted -= minUint64(noBalance, m.TotalNoMinted)

	if payout > 0 {
		if err := e.ledger.Transfer(ctx, ledger.MarketVaultAccount(m.ID), ledger.Account(user), ledger.Collateral, payout); err != nil {
			return 0, nil, err
		}
	}

	if err := e.state.PutMarket(ctx, m); err != nil {
		return 0, nil, fmt.Errorf("%s engine: persist market after claim: %w", moduleName, err)
	}
	return payout, events.NewRewardsClaimedEvent(m.ID, user, yesBalance, noBalance, payout), nil
}

// ReclaimDust sweeps the remainder of a fully drained, settled market's
// vault to the team wallet.
func (e *Engine) ReclaimDust(ctx context.Context, marketID string) (uint64, *events.Event, error) {
	m, cfg, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return 0, nil, err
	}
	if !m.PoolSettled {
		return 0, nil, ErrPoolNotSettled
	}
	if m.TotalCollateralLocked != 0 {
		return 0, nil, ErrCollateralStillLocked
	}
	if m.TotalLPShares != 0 {
		return 0, nil, ErrLPSharesStillExist
	}
	if m.PoolCollateral != 0 || m.AccumulatedLPFees != 0 {
		return 0, nil, fmt.Errorf("%w: pool ledger not fully drained", ErrInvalidParameter)
	}

	dust, err := e.ledger.BalanceOf(ctx, ledger.MarketVaultAccount(m.ID), ledger.Collateral)
	if err != nil {
		return 0, nil, err
	}
	if dust == 0 {
		return 0, events.NewDustReclaimedEvent(m.ID, 0), nil
	}
	if err := e.ledger.Transfer(ctx, ledger.MarketVaultAccount(m.ID), ledger.Account(cfg.TeamWallet), ledger.Collateral, dust); err != nil {
		return 0, nil, err
	}
	return dust, events.NewDustReclaimedEvent(m.ID, dust), nil
}
