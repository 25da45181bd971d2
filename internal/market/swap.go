package market

import (
	"context"
	"fmt"

	"github.com/duskex/predictionmarket/internal/ledger"
	"github.com/duskex/predictionmarket/internal/lmsr"
	"github.com/duskex/predictionmarket/internal/market/events"
)

// Direction selects whether a swap buys or sells the chosen side.
type Direction int

const (
	DirectionBuy Direction = iota
	DirectionSell
)

// Side mirrors lmsr.Side at the instruction boundary so callers outside
// internal/lmsr never need to import it directly.
type Side int

const (
	SideYes Side = iota
	SideNo
)

func (s Side) lmsrSide() lmsr.Side {
	if s == SideYes {
		return lmsr.SideYes
	}
	return lmsr.SideNo
}

func (s Side) asset(marketID string) ledger.Asset {
	if s == SideYes {
		return ledger.YesAsset(marketID)
	}
	return ledger.NoAsset(marketID)
}

func (s Side) String() string {
	if s == SideYes {
		return "yes"
	}
	return "no"
}

// SwapInput carries the user-supplied parameters for a swap instruction.
type SwapInput struct {
	MarketID  string
	User      string
	Amount    uint64
	Direction Direction
	Side      Side
	MinOut    uint64
	Deadline  int64 // 0 disables the deadline check
}

// SwapResult is returned on a successful swap.
type SwapResult struct {
	TokensOut   uint64
	PlatformFee uint64
	LPFee       uint64
	Event       *events.Event
}

// Swap executes a buy or sell against the single-sided LMSR pool.
func (e *Engine) Swap(ctx context.Context, in SwapInput) (*SwapResult, error) {
	if in.Amount == 0 {
		return nil, fmt.Errorf("%w: swap amount must be positive", ErrInvalidAmount)
	}
	m, cfg, err := e.loadMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if cfg.IsPaused {
		return nil, ErrContractPaused
	}
	if m.MarketPaused {
		return nil, ErrMarketPaused
	}
	if m.IsCompleted {
		return nil, ErrCurveAlreadyCompleted
	}
	now := e.now()
	if in.Deadline != 0 && now > in.Deadline {
		return nil, ErrTransactionExpired
	}
	if m.StartSlot != nil && uint64(now) < *m.StartSlot {
		return nil, ErrMarketNotStarted
	}
	if m.EndingSlot != nil && uint64(now) >= *m.EndingSlot {
		return nil, ErrMarketEnded
	}
	if m.PoolCollateral < cfg.MinTradingLiquidity {
		return nil, ErrMarketBelowMinLiquidity
	}
	maxTrade := m.PoolCollateral * MaxSingleTradeBps / 10_000
	if in.Amount > maxTrade {
		return nil, fmt.Errorf("%w: amount %d exceeds max trade %d", ErrTradeSizeTooLarge, in.Amount, maxTrade)
	}
	if !e.tradeLimiter.allow(in.MarketID) {
		return nil, ErrTradeRateLimited
	}

	release, err := acquireGuard(m, guardSwap)
	if err != nil {
		return nil, err
	}
	defer release()

	if in.Direction == DirectionBuy && lmsr.HardCapExceeded(m.LmsrB, m.LmsrQYes, m.LmsrQNo, in.Side.lmsrSide()) {
		return nil, ErrPoolTooImbalanced
	}

	var result *SwapResult
	err = withEffectiveB(m, effectiveB(m, now), func() error {
		var innerErr error
		result, innerErr = e.executeSwap(ctx, m, cfg, in)
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	if err := e.state.PutMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("%s engine: persist market after swap: %w", moduleName, err)
	}
	return result, nil
}

func (e *Engine) executeSwap(ctx context.Context, m *Market, cfg *GlobalConfig, in SwapInput) (*SwapResult, error) {
	platformBuyBps, platformSellBps, lpBuyBps, lpSellBps := effectiveFees(m, cfg)

	if in.Direction == DirectionBuy {
		platformFee := in.Amount * platformBuyBps / 10_000
		lpFee := in.Amount * lpBuyBps / 10_000
		net := in.Amount - platformFee - lpFee

		tokensOut, err := lmsr.Inverse(m.LmsrB, m.LmsrQYes, m.LmsrQNo, in.Side.lmsrSide(), net)
		if err != nil {
			return nil, fmt.Errorf("%s engine: swap inverse: %w", moduleName, err)
		}
		if tokensOut < in.MinOut {
			return nil, fmt.Errorf("%w: tokens_out %d below min_out %d", ErrSlippageExceeded, tokensOut, in.MinOut)
		}
		poolSide := m.PoolYes
		if in.Side == SideNo {
			poolSide = m.PoolNo
		}
		if tokensOut > poolSide {
			return nil, fmt.Errorf("%w: pool holds %d, trade needs %d", ErrInsufficientLiquidity, poolSide, tokensOut)
		}

		if err := e.ledger.Transfer(ctx, ledger.Account(in.User), ledger.MarketVaultAccount(m.ID), ledger.Collateral, in.Amount); err != nil {
			return nil, err
		}
		if err := e.ledger.Transfer(ctx, ledger.GlobalVault, ledger.Account(in.User), in.Side.asset(m.ID), tokensOut); err != nil {
			return nil, err
		}

		if err := e.applyPlatformFeeSplit(ctx, m, cfg, platformFee); err != nil {
			return nil, err
		}
		e.accrueLPFee(m, lpFee)

		m.PoolCollateral += net
		if in.Side == SideYes {
			m.PoolYes -= tokensOut
		} else {
			m.PoolNo -= tokensOut
		}
		m.LmsrQYes, m.LmsrQNo = lmsr.NewPositionsAfterBuy(m.LmsrQYes, m.LmsrQNo, in.Side.lmsrSide(), tokensOut)
		if !lmsr.WithinDefenseInDepthBound(m.LmsrB, m.LmsrQYes, m.LmsrQNo) {
			return nil, ErrPoolTooImbalanced
		}

		evt := events.NewSwapExecutedEvent(events.SwapResult{
			MarketID: m.ID, Side: in.Side.String(), Direction: "buy",
			AmountIn: in.Amount, TokensOut: tokensOut, PlatformFee: platformFee, LPFee: lpFee,
			PoolCollateral: m.PoolCollateral, PoolYes: m.PoolYes, PoolNo: m.PoolNo,
			QYes: m.LmsrQYes, QNo: m.LmsrQNo,
		})
		return &SwapResult{TokensOut: tokensOut, PlatformFee: platformFee, LPFee: lpFee, Event: evt}, nil
	}

	// Sell path.
	grossProceeds, err := lmsr.SellProceeds(m.LmsrB, m.LmsrQYes, m.LmsrQNo, in.Side.lmsrSide(), in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%s engine: sell proceeds: %w", moduleName, err)
	}
	platformFee := grossProceeds * platformSellBps / 10_000
	lpFee := grossProceeds * lpSellBps / 10_000
	if platformFee+lpFee > grossProceeds {
		return nil, fmt.Errorf("%w: fees exceed proceeds", ErrInvalidAmount)
	}
	net := grossProceeds - platformFee - lpFee
	if net < in.MinOut {
		return nil, fmt.Errorf("%w: net proceeds %d below min_out %d", ErrSlippageExceeded, net, in.MinOut)
	}
	if grossProceeds > m.PoolCollateral {
		return nil, ErrInsufficientLiquidity
	}

	if err := e.ledger.Transfer(ctx, ledger.Account(in.User), ledger.GlobalVault, in.Side.asset(m.ID), in.Amount); err != nil {
		return nil, err
	}
	teamFee, insuranceShare := splitPlatformFee(cfg, platformFee)
	vaultPostBalance, err := e.ledger.BalanceOf(ctx, ledger.MarketVaultAccount(m.ID), ledger.Collateral)
	if err != nil {
		return nil, err
	}
	if vaultPostBalance < net+teamFee+cfg.VaultMinBalance {
		return nil, fmt.Errorf("%w: vault balance would drop below minimum", ErrInsufficientLiquidity)
	}
	if err := e.ledger.Transfer(ctx, ledger.MarketVaultAccount(m.ID), ledger.Account(in.User), ledger.Collateral, net); err != nil {
		return nil, err
	}
	if teamFee > 0 {
		if err := e.ledger.Transfer(ctx, ledger.MarketVaultAccount(m.ID), ledger.Account(cfg.TeamWallet), ledger.Collateral, teamFee); err != nil {
			return nil, err
		}
	}
	if insuranceShare > 0 {
		cfg.InsurancePoolBalance += insuranceShare
		m.InsurancePoolContribution += insuranceShare
	}
	e.accrueLPFee(m, lpFee)

	m.PoolCollateral -= grossProceeds
	if in.Side == SideYes {
		m.PoolYes += in.Amount
	} else {
		m.PoolNo += in.Amount
	}
	m.LmsrQYes, m.LmsrQNo = lmsr.NewPositionsAfterSell(m.LmsrQYes, m.LmsrQNo, in.Side.lmsrSide(), in.Amount)
	if !lmsr.WithinDefenseInDepthBound(m.LmsrB, m.LmsrQYes, m.LmsrQNo) {
		return nil, ErrPoolTooImbalanced
	}

	if err := e.state.PutGlobalConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("%s engine: persist global config after sell: %w", moduleName, err)
	}

	evt := events.NewSwapExecutedEvent(events.SwapResult{
		MarketID: m.ID, Side: in.Side.String(), Direction: "sell",
		AmountIn: in.Amount, TokensOut: net, PlatformFee: platformFee, LPFee: lpFee,
		PoolCollateral: m.PoolCollateral, PoolYes: m.PoolYes, PoolNo: m.PoolNo,
		QYes: m.LmsrQYes, QNo: m.LmsrQNo,
	})
	return &SwapResult{TokensOut: net, PlatformFee: platformFee, LPFee: lpFee, Event: evt}, nil
}

// splitPlatformFee divides a platform fee between the team wallet and the
// insurance pool, only allocating to insurance when it is enabled.
func splitPlatformFee(cfg *GlobalConfig, platformFee uint64) (teamFee, insuranceShare uint64) {
	if !cfg.InsuranceEnabled {
		return platformFee, 0
	}
	insuranceShare = platformFee * cfg.InsuranceFeeAllocationBps / 10_000
	return platformFee - insuranceShare, insuranceShare
}

// applyPlatformFeeSplit transfers a buy-side platform fee out of the market
// vault: the team share to the team wallet, the insurance share retained in
// the vault but counted into both the global and per-market counters.
func (e *Engine) applyPlatformFeeSplit(ctx context.Context, m *Market, cfg *GlobalConfig, platformFee uint64) error {
	if platformFee == 0 {
		return nil
	}
	teamFee, insuranceShare := splitPlatformFee(cfg, platformFee)
	if teamFee > 0 {
		if err := e.ledger.Transfer(ctx, ledger.MarketVaultAccount(m.ID), ledger.Account(cfg.TeamWallet), ledger.Collateral, teamFee); err != nil {
			return err
		}
	}
	if insuranceShare > 0 {
		cfg.InsurancePoolBalance += insuranceShare
		m.InsurancePoolContribution += insuranceShare
	}
	return e.state.PutGlobalConfig(ctx, cfg)
}

// accrueLPFee folds a swap's LP-side fee into the market's pull-style
// fee-per-share accumulator (scaled by 1e18).
func (e *Engine) accrueLPFee(m *Market, lpFee uint64) {
	if lpFee == 0 {
		return
	}
	m.AccumulatedLPFees += lpFee
	if m.TotalLPShares > 0 {
		m.FeePerShareCumulative += lpFee * 1_000_000_000_000_000_000 / m.TotalLPShares
	}
}
