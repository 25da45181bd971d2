package market

import (
	"context"
	"fmt"

	"github.com/duskex/predictionmarket/internal/fixedpoint"
	"github.com/duskex/predictionmarket/internal/ledger"
	"github.com/duskex/predictionmarket/internal/lmsr"
)

// PreviewSellResult mirrors the fee breakdown a real sell swap would return,
// computed without touching the ledger or persisting anything.
type PreviewSellResult struct {
	GrossProceeds uint64
	PlatformFee   uint64
	LPFee         uint64
	NetOut        uint64
}

// PreviewSell runs the same LMSR sell-proceeds and fee-split math Swap uses
// for a sell, without moving any balances or acquiring the swap guard. A
// caller can quote a sell before committing to the slippage floor.
func (e *Engine) PreviewSell(ctx context.Context, marketID string, side Side, amount uint64) (*PreviewSellResult, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: preview amount must be positive", ErrInvalidAmount)
	}
	m, cfg, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if m.IsCompleted {
		return nil, ErrCurveAlreadyCompleted
	}
	_, platformSellBps, _, lpSellBps := effectiveFees(m, cfg)

	grossProceeds, err := lmsr.SellProceeds(m.LmsrB, m.LmsrQYes, m.LmsrQNo, side.lmsrSide(), amount)
	if err != nil {
		return nil, fmt.Errorf("%s engine: preview sell proceeds: %w", moduleName, err)
	}
	platformFee := grossProceeds * platformSellBps / 10_000
	lpFee := grossProceeds * lpSellBps / 10_000
	if platformFee+lpFee > grossProceeds {
		return nil, fmt.Errorf("%w: fees exceed proceeds", ErrInvalidAmount)
	}
	return &PreviewSellResult{
		GrossProceeds: grossProceeds,
		PlatformFee:   platformFee,
		LPFee:         lpFee,
		NetOut:        grossProceeds - platformFee - lpFee,
	}, nil
}

// PreviewClaim reports the collateral a user's current YES/NO balances would
// pay out against a resolved market's payoff ratios, without burning
// anything. Mirrors ClaimRewards' payout formula.
func (e *Engine) PreviewClaim(ctx context.Context, marketID, user string) (uint64, error) {
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	if !m.IsCompleted {
		return 0, ErrMarketNotCompleted
	}
	yesBalance, err := e.ledger.BalanceOf(ctx, ledger.Account(user), ledger.YesAsset(m.ID))
	if err != nil {
		return 0, err
	}
	noBalance, err := e.ledger.BalanceOf(ctx, ledger.Account(user), ledger.NoAsset(m.ID))
	if err != nil {
		return 0, err
	}
	return yesBalance*m.ResolutionYesRatioBps/10_000 + noBalance*m.ResolutionNoRatioBps/10_000, nil
}

// PreviewClaimFeesResult reports an LP's pending fee claim.
type PreviewClaimFeesResult struct {
	Claimable uint64
}

// PreviewClaimFees mirrors ClaimLPFees' fee-per-share delta without pulling
// anything out of the vault.
func (e *Engine) PreviewClaimFees(ctx context.Context, marketID, user string) (*PreviewClaimFeesResult, error) {
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	pos, err := e.state.GetLPPosition(ctx, m.ID, user)
	if err != nil {
		return nil, fmt.Errorf("%s engine: load lp position: %w", moduleName, err)
	}
	if pos == nil {
		return &PreviewClaimFeesResult{}, nil
	}
	delta := m.FeePerShareCumulative - pos.LastFeePerShare
	claimable := pos.LPShares * delta / 1_000_000_000_000_000_000
	if claimable > m.AccumulatedLPFees {
		claimable = m.AccumulatedLPFees
	}
	return &PreviewClaimFeesResult{Claimable: claimable}, nil
}

// PreviewWithdrawResult reports the projected payout of a liquidity
// withdrawal with the early-exit penalty and insurance compensation applied;
// WouldTrip reports the circuit breaker pre-flight projection, which the
// preview does not act on.
type PreviewWithdrawResult struct {
	Gross        uint64
	PenaltyBps   uint64
	Compensation uint64
	FinalOut     uint64
	WouldTrip    bool
}

// PreviewWithdraw mirrors WithdrawLiquidity's payout projection read-only:
// same pro-rata pool share, same fee-free internal swap of the leftover
// single-sided leg, same early-exit penalty schedule and insurance
// compensation clamp, same circuit-breaker trip projection — but it neither
// burns LP shares nor moves collateral.
func (e *Engine) PreviewWithdraw(ctx context.Context, marketID, user string, lpShares uint64) (*PreviewWithdrawResult, error) {
	if lpShares == 0 {
		return nil, fmt.Errorf("%w: lp_shares must be positive", ErrInvalidAmount)
	}
	m, cfg, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	pos, err := e.state.GetLPPosition(ctx, m.ID, user)
	if err != nil {
		return nil, fmt.Errorf("%s engine: load lp position: %w", moduleName, err)
	}
	if pos == nil || pos.LPShares < lpShares {
		return nil, ErrInsufficientBalance
	}
	if m.TotalLPShares == 0 {
		return nil, ErrInsufficientLiquidity
	}

	imbalanceRatio := lmsr.ImbalanceRatioBps(m.PoolYes, m.PoolNo)
	capBps := withdrawalCapBps(imbalanceRatio)
	cap := m.TotalLPShares * capBps / 10_000
	if lpShares > cap {
		return nil, fmt.Errorf("%w: %d exceeds dynamic cap %d", ErrExcessiveWithdrawal, lpShares, cap)
	}

	penaltyBps := earlyExitPenaltyBps(e.now() - pos.CreatedAt)

	shareFrac, err := fixedpoint.FromU64(lpShares).Div(fixedpoint.FromU64(m.TotalLPShares))
	if err != nil {
		return nil, err
	}
	usdcShareF, err := fixedpoint.FromU64(m.PoolCollateral).Mul(shareFrac)
	if err != nil {
		return nil, err
	}
	yesShareF, err := fixedpoint.FromU64(m.PoolYes).Mul(shareFrac)
	if err != nil {
		return nil, err
	}
	noShareF, err := fixedpoint.FromU64(m.PoolNo).Mul(shareFrac)
	if err != nil {
		return nil, err
	}
	usdcShareU, yesShare, noShare := usdcShareF.ToU64(), yesShareF.ToU64(), noShareF.ToU64()

	paired := yesShare
	leftover := noShare - yesShare
	leftoverSide := SideNo
	if yesShare > noShare {
		paired = noShare
		leftover = yesShare - noShare
		leftoverSide = SideYes
	}

	var swapOut uint64
	if leftover > 0 {
		swapOut, err = lmsr.SellProceeds(m.LmsrB, m.LmsrQYes, m.LmsrQNo, leftoverSide.lmsrSide(), leftover)
		if err != nil {
			return nil, fmt.Errorf("%s engine: preview internal swap proceeds: %w", moduleName, err)
		}
	}

	gross := usdcShareU + paired + swapOut
	penalty := gross * penaltyBps / 10_000
	afterPenalty := gross - penalty

	investedShare := uint64(0)
	if pos.InvestedCollateral > 0 {
		investedShareF, err := fixedpoint.FromU64(pos.InvestedCollateral).Mul(shareFrac)
		if err != nil {
			return nil, err
		}
		investedShare = investedShareF.ToU64()
	}

	finalOut := afterPenalty
	var compensation uint64
	if cfg.InsuranceEnabled && afterPenalty < investedShare {
		loss := investedShare - afterPenalty
		lossBps := loss * 10_000 / investedShare
		if lossBps >= cfg.InsuranceLossThresholdBps {
			compensation = loss * cfg.InsuranceMaxCompensationBps / 10_000
			if compensation > cfg.InsurancePoolBalance {
				compensation = cfg.InsurancePoolBalance
			}
			if compensation > m.InsurancePoolContribution {
				compensation = m.InsurancePoolContribution
			}
			finalOut = afterPenalty + compensation
		}
	}

	projectedYes := m.PoolYes - yesShare
	projectedNo := m.PoolNo - noShare
	if leftoverSide == SideYes {
		projectedNo += leftover
	} else {
		projectedYes += leftover
	}
	projectedCollateral := m.PoolCollateral - usdcShareU - swapOut
	projectedRatio := lmsr.ImbalanceRatioBps(projectedYes, projectedNo)

	now := e.now()
	rollingWindow := m.WithdrawLast24h
	if now-m.WithdrawTrackingStart >= CircuitBreakerCooldownSeconds {
		rollingWindow = 0
	}
	projectedRolling := rollingWindow + finalOut

	wouldTrip := projectedRatio >= CircuitBreakerTriggerRatio ||
		(m.InitialYesReserve > 0 && projectedYes*10 < m.InitialYesReserve) ||
		(m.InitialNoReserve > 0 && projectedNo*10 < m.InitialNoReserve) ||
		(projectedCollateral > 0 && projectedRolling*2 > projectedCollateral)

	return &PreviewWithdrawResult{
		Gross: gross, PenaltyBps: penaltyBps, Compensation: compensation,
		FinalOut: finalOut, WouldTrip: wouldTrip && !m.CircuitBreakerActive,
	}, nil
}
