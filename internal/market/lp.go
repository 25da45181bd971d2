package market

import (
	"context"
	"fmt"

	"github.com/duskex/predictionmarket/internal/fixedpoint"
	"github.com/duskex/predictionmarket/internal/ledger"
	"github.com/duskex/predictionmarket/internal/lmsr"
	"github.com/duskex/predictionmarket/internal/market/events"
)

// poolValue returns pool_collateral + pool_yes*p_yes + pool_no*p_no, the
// LMSR marginal-price valuation of the pool used to price LP shares.
func poolValue(m *Market) (uint64, error) {
	pYes, pNo, err := lmsr.MarginalPrice(m.LmsrB, m.LmsrQYes, m.LmsrQNo)
	if err != nil {
		return 0, err
	}
	valueYes, err := fixedpoint.FromU64(m.PoolYes).Mul(pYes)
	if err != nil {
		return 0, err
	}
	valueNo, err := fixedpoint.FromU64(m.PoolNo).Mul(pNo)
	if err != nil {
		return 0, err
	}
	return m.PoolCollateral + valueYes.ToU64() + valueNo.ToU64(), nil
}

// seedInitialPositionSkew solves q_yes (holding q_no = 0) so the LMSR
// marginal price at a freshly seeded market matches the requested
// initial_yes_prob_bps target, via the closed form q_yes = b * ln(p/(1-p)).
func seedInitialPositionSkew(b uint64, yesProbBps uint64) (int64, error) {
	if yesProbBps == 5000 {
		return 0, nil
	}
	p, err := fixedpoint.FromU64(yesProbBps).Div(fixedpoint.FromU64(10_000))
	if err != nil {
		return 0, err
	}
	oneMinusP := fixedpoint.One.Sub(p)
	odds, err := p.Div(oneMinusP)
	if err != nil {
		return 0, err
	}
	logOddsMag, negative, err := signedLn(odds)
	if err != nil {
		return 0, err
	}
	scaled, err := fixedpoint.FromU64(b).Mul(logOddsMag)
	if err != nil {
		return 0, err
	}
	q := int64(scaled.ToU64())
	if negative {
		q = -q
	}
	return q, nil
}

func signedLn(x fixedpoint.Fixed) (fixedpoint.Fixed, bool, error) {
	if x.Cmp(fixedpoint.One) >= 0 {
		v, err := fixedpoint.Ln(x)
		return v, false, err
	}
	inv, err := fixedpoint.One.Div(x)
	if err != nil {
		return fixedpoint.Fixed{}, false, err
	}
	v, err := fixedpoint.Ln(inv)
	return v, true, err
}

// AddLiquidityInput carries the single-coin deposit parameters.
type AddLiquidityInput struct {
	MarketID   string
	User       string
	UsdcAmount uint64
}

// AddLiquidity deposits collateral only; the engine internally mints the
// ratio-preserving YES/NO legs needed to seed or top up the pool.
func (e *Engine) AddLiquidity(ctx context.Context, in AddLiquidityInput) (*events.Event, error) {
	m, cfg, err := e.loadMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if in.UsdcAmount < cfg.MinLPLiquidity {
		return nil, fmt.Errorf("%w: usdc_amount below min_lp_liquidity", ErrValueTooSmall)
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
	if !e.mintAuthority.Transferred(m.ID) {
		return nil, ErrMintAuthorityNotTransferred
	}

	release, err := acquireGuard(m, guardAddLiquidity)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.ledger.Transfer(ctx, ledger.Account(in.User), ledger.MarketVaultAccount(m.ID), ledger.Collateral, in.UsdcAmount); err != nil {
		return nil, err
	}

	var completeSets, directUsdc, shares uint64
	if m.TotalLPShares == 0 {
		if in.UsdcAmount <= MinLiquidity {
			return nil, fmt.Errorf("%w: first deposit must exceed the minimum-liquidity burn", ErrValueTooSmall)
		}
		yesToMint := in.UsdcAmount * m.InitialYesProbBps / 10_000
		noToMint := in.UsdcAmount * (10_000 - m.InitialYesProbBps) / 10_000
		completeSets = yesToMint
		if noToMint < completeSets {
			completeSets = noToMint
		}
		directUsdc = in.UsdcAmount - completeSets
		shares = in.UsdcAmount - MinLiquidity

		if m.LmsrQYes == 0 && m.LmsrQNo == 0 {
			skew, err := seedInitialPositionSkew(m.LmsrB, m.InitialYesProbBps)
			if err != nil {
				return nil, fmt.Errorf("%s engine: seed initial position skew: %w", moduleName, err)
			}
			m.LmsrQYes = skew
		}
	} else {
		value, err := poolValue(m)
		if err != nil {
			return nil, fmt.Errorf("%s engine: pool valuation: %w", moduleName, err)
		}
		if value == 0 {
			return nil, fmt.Errorf("%w: pool has shares but zero value", ErrInvalidParameter)
		}
		shares = in.UsdcAmount * m.TotalLPShares / value
		neededYes := in.UsdcAmount * m.PoolYes / value
		neededNo := in.UsdcAmount * m.PoolNo / value
		completeSets = neededYes
		if neededNo > completeSets {
			completeSets = neededNo
		}
		if completeSets > in.UsdcAmount {
			completeSets = in.UsdcAmount
		}
		directUsdc = in.UsdcAmount - completeSets
	}

	if err := e.ledger.MintYesNo(ctx, ledger.GlobalVault, ledger.YesAsset(m.ID), completeSets); err != nil {
		return nil, err
	}
	if err := e.ledger.MintYesNo(ctx, ledger.GlobalVault, ledger.NoAsset(m.ID), completeSets); err != nil {
		return nil, err
	}

	m.TotalCollateralLocked += completeSets
	m.TotalYesMinted += completeSets
	m.TotalNoMinted += completeSets
	m.PoolYes += completeSets
	m.PoolNo += completeSets
	m.PoolCollateral += directUsdc
	m.TotalLPShares += shares

	now := e.now()
	pos, err := e.state.GetLPPosition(ctx, m.ID, in.User)
	if err != nil {
		return nil, fmt.Errorf("%s engine: load lp position: %w", moduleName, err)
	}
	if pos == nil {
		pos = &LPPosition{MarketID: m.ID, User: in.User, CreatedAt: now}
	}
	pos.LastAddAt = now
	pos.LastFeePerShare = m.FeePerShareCumulative
	pos.LPShares += shares
	pos.InvestedCollateral += in.UsdcAmount
	if err := e.state.PutLPPosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("%s engine: persist lp position: %w", moduleName, err)
	}

	if m.InitialYesReserve == 0 {
		m.InitialYesReserve = m.PoolYes
		m.InitialNoReserve = m.PoolNo
		m.WithdrawTrackingStart = now
	}

	if err := e.state.PutMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("%s engine: persist market after add liquidity: %w", moduleName, err)
	}

	return events.NewLiquidityAddedEvent(events.LiquidityAddedResult{
		MarketID: m.ID, User: in.User, UsdcIn: in.UsdcAmount, SharesIssued: shares,
		CompleteSets: completeSets, DirectUsdc: directUsdc,
		PoolCollateral: m.PoolCollateral, PoolYes: m.PoolYes, PoolNo: m.PoolNo,
	}), nil
}

// WithdrawLiquidityInput carries the burn amount and slippage floor.
type WithdrawLiquidityInput struct {
	MarketID   string
	User       string
	LPShares   uint64
	MinUsdcOut uint64
}

// WithdrawLiquidity burns LP shares for a proportional share of the pool,
// running the withdrawal-side protection layers (dynamic cap, early-exit
// penalty, pre-flight circuit breaker projection, which also latches the
// breaker when it trips) and the fee-free internal swap of any leftover
// single-sided leg. There is no separate post-flight breaker check.
func (e *Engine) WithdrawLiquidity(ctx context.Context, in WithdrawLiquidityInput) ([]*events.Event, error) {
	if in.LPShares == 0 {
		return nil, fmt.Errorf("%w: lp_shares must be positive", ErrInvalidAmount)
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
	if m.IsCompleted && !m.PoolSettled {
		return nil, fmt.Errorf("%w: market completed but not yet settled", ErrPoolNotSettled)
	}
	if m.CircuitBreakerActive {
		return nil, ErrCircuitBreakerTriggered
	}

	pos, err := e.state.GetLPPosition(ctx, m.ID, in.User)
	if err != nil {
		return nil, fmt.Errorf("%s engine: load lp position: %w", moduleName, err)
	}
	if pos == nil || pos.LPShares < in.LPShares {
		return nil, ErrInsufficientBalance
	}
	if m.TotalLPShares == 0 {
		return nil, ErrInsufficientLiquidity
	}

	imbalanceRatio := lmsr.ImbalanceRatioBps(m.PoolYes, m.PoolNo)
	capBps := withdrawalCapBps(imbalanceRatio)
	cap := m.TotalLPShares * capBps / 10_000
	if in.LPShares > cap {
		return nil, fmt.Errorf("%w: %d exceeds dynamic cap %d", ErrExcessiveWithdrawal, in.LPShares, cap)
	}

	now := e.now()
	penaltyBps := earlyExitPenaltyBps(now - pos.CreatedAt)

	release, err := acquireGuard(m, guardWithdraw)
	if err != nil {
		return nil, err
	}
	defer release()

	shareFrac, err := fixedpoint.FromU64(in.LPShares).Div(fixedpoint.FromU64(m.TotalLPShares))
	if err != nil {
		return nil, err
	}
	usdcShare, err := fixedpoint.FromU64(m.PoolCollateral).Mul(shareFrac)
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
	usdcShareU, yesShare, noShare := usdcShare.ToU64(), yesShareF.ToU64(), noShareF.ToU64()

	paired := yesShare
	leftover := noShare - yesShare
	leftoverSide := SideNo
	if yesShare > noShare {
		paired = noShare
		leftover = yesShare - noShare
		leftoverSide = SideYes
	}

	var swapOut uint64
	var internalSwapEvent *events.Event
	if leftover > 0 {
		swapOut, err = lmsr.SellProceeds(m.LmsrB, m.LmsrQYes, m.LmsrQNo, leftoverSide.lmsrSide(), leftover)
		if err != nil {
			return nil, fmt.Errorf("%s engine: internal swap proceeds: %w", moduleName, err)
		}
		slippageBps := uint64(0)
		if leftover > 0 && leftover > swapOut {
			slippageBps = (leftover - swapOut) * 10_000 / leftover
		}
		internalSwapEvent = events.NewInternalSwapEvent(m.ID, leftoverSide.String(), leftover, swapOut, slippageBps)
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
			cfg.InsurancePoolBalance -= compensation
			m.InsurancePoolContribution -= compensation
			finalOut = afterPenalty + compensation
		}
	}

	if finalOut < in.MinUsdcOut {
		return nil, fmt.Errorf("%w: final_out %d below min_usdc_out %d", ErrSlippageExceeded, finalOut, in.MinUsdcOut)
	}

	projectedYes := m.PoolYes - yesShare + func() uint64 {
		if leftoverSide == SideYes {
			return 0
		}
		return leftover
	}()
	projectedNo := m.PoolNo - noShare + func() uint64 {
		if leftoverSide == SideNo {
			return 0
		}
		return leftover
	}()
	projectedCollateral := m.PoolCollateral - usdcShareU - swapOut
	projectedRatio := lmsr.ImbalanceRatioBps(projectedYes, projectedNo)

	rollingWindow := m.WithdrawLast24h
	if now-m.WithdrawTrackingStart >= CircuitBreakerCooldownSeconds {
		rollingWindow = 0
	}
	projectedRolling := rollingWindow + finalOut

	wouldTrip := projectedRatio >= CircuitBreakerTriggerRatio ||
		(m.InitialYesReserve > 0 && projectedYes*10 < m.InitialYesReserve) ||
		(m.InitialNoReserve > 0 && projectedNo*10 < m.InitialNoReserve) ||
		(projectedCollateral > 0 && projectedRolling*2 > projectedCollateral)
	if wouldTrip && !m.CircuitBreakerActive {
		// Pre-flight: this specific withdrawal is rejected outright rather
		// than let through and tripped after, but the breaker still latches
		// open so every later withdrawal is blocked until an authority calls
		// ResetCircuitBreaker once the cooldown and ratio conditions clear.
		m.CircuitBreakerActive = true
		m.CircuitBreakerTriggeredAt = now
		if err := e.state.PutMarket(ctx, m); err != nil {
			return nil, fmt.Errorf("%s engine: persist market after circuit breaker trip: %w", moduleName, err)
		}
		e.breakers.recordWithdrawOutcome(m.ID, true)
		return nil, ErrWouldTriggerCircuitBreaker
	}

	if err := e.ledger.BurnYesNo(ctx, ledger.GlobalVault, ledger.YesAsset(m.ID), yesShare); err != nil {
		return nil, err
	}
	if err := e.ledger.BurnYesNo(ctx, ledger.GlobalVault, ledger.NoAsset(m.ID), noShare); err != nil {
		return nil, err
	}

	m.TotalCollateralLocked -= minUint64(paired, m.TotalCollateralLocked)
	m.TotalYesMinted -= minUint64(yesShare, m.TotalYesMinted)
	m.TotalNoMinted -= minUint64(noShare, m.TotalNoMinted)
	m.PoolYes = projectedYes
	m.PoolNo = projectedNo
	m.PoolCollateral = projectedCollateral
	if leftover > 0 {
		m.LmsrQYes, m.LmsrQNo = lmsr.NewPositionsAfterBuy(m.LmsrQYes, m.LmsrQNo, leftoverSide.lmsrSide(), leftover)
	}

	m.TotalLPShares -= in.LPShares
	pos.LPShares -= in.LPShares
	pos.InvestedCollateral -= minUint64(investedShare, pos.InvestedCollateral)

	if now-m.WithdrawTrackingStart >= CircuitBreakerCooldownSeconds {
		m.WithdrawTrackingStart = now
		m.WithdrawLast24h = finalOut
	} else {
		m.WithdrawLast24h += finalOut
	}

	e.breakers.recordWithdrawOutcome(m.ID, false)

	if err := e.ledger.Transfer(ctx, ledger.MarketVaultAccount(m.ID), ledger.Account(in.User), ledger.Collateral, finalOut); err != nil {
		return nil, err
	}

	if err := e.state.PutLPPosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("%s engine: persist lp position: %w", moduleName, err)
	}
	if err := e.state.PutGlobalConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("%s engine: persist global config: %w", moduleName, err)
	}
	if err := e.state.PutMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("%s engine: persist market after withdraw: %w", moduleName, err)
	}

	withdrawnEvent := events.NewLiquidityWithdrawnEvent(events.LiquidityWithdrawnResult{
		MarketID: m.ID, User: in.User, SharesBurned: in.LPShares,
		Gross: gross, PenaltyBps: penaltyBps, Compensation: compensation, FinalOut: finalOut,
	})
	if internalSwapEvent != nil {
		return []*events.Event{internalSwapEvent, withdrawnEvent}, nil
	}
	return []*events.Event{withdrawnEvent}, nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// ResetCircuitBreaker clears a tripped breaker. Neither the engine nor the
// gateway route checks the caller; the engine enforces only the cooldown
// and ratio conditions.
func (e *Engine) ResetCircuitBreaker(ctx context.Context, marketID string) (*events.Event, error) {
	m, _, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if !m.CircuitBreakerActive {
		return nil, ErrCircuitBreakerNotActive
	}
	now := e.now()
	if now-m.CircuitBreakerTriggeredAt < CircuitBreakerCooldownSeconds {
		return nil, ErrCircuitBreakerCooldownNotElapsed
	}
	ratio := lmsr.ImbalanceRatioBps(m.PoolYes, m.PoolNo)
	if ratio >= CircuitBreakerResetRatio {
		return nil, ErrCircuitBreakerConditionsNotMet
	}
	m.CircuitBreakerActive = false
	m.CircuitBreakerTriggeredAt = 0
	m.WithdrawLast24h = 0
	m.WithdrawTrackingStart = now

	if err := e.state.PutMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("%s engine: persist market after circuit breaker reset: %w", moduleName, err)
	}
	e.breakers.recordReset(marketID)
	return events.NewCircuitBreakerResetEvent(m.ID), nil
}

// ClaimLPFees pulls an LP's accrued share of the fee-per-share accumulator.
func (e *Engine) ClaimLPFees(ctx context.Context, marketID, user string) (uint64, *events.Event, error) {
	m, cfg, err := e.loadMarket(ctx, marketID)
	if err != nil {
		return 0, nil, err
	}
	pos, err := e.state.GetLPPosition(ctx, m.ID, user)
	if err != nil {
		return 0, nil, fmt.Errorf("%s engine: load lp position: %w", moduleName, err)
	}
	if pos == nil {
		return 0, nil, ErrInsufficientBalance
	}

	release, err := acquireGuard(m, guardClaim)
	if err != nil {
		return 0, nil, err
	}
	defer release()

	delta := m.FeePerShareCumulative - pos.LastFeePerShare
	claimable := pos.LPShares * delta / 1_000_000_000_000_000_000
	if claimable > m.AccumulatedLPFees {
		return 0, nil, ErrInsufficientLiquidity
	}
	vaultBalance, err := e.ledger.BalanceOf(ctx, ledger.MarketVaultAccount(m.ID), ledger.Collateral)
	if err != nil {
		return 0, nil, err
	}
	if vaultBalance < claimable+cfg.VaultMinBalance {
		return 0, nil, ErrInsufficientLiquidity
	}

	if claimable > 0 {
		if err := e.ledger.Transfer(ctx, ledger.MarketVaultAccount(m.ID), ledger.Account(user), ledger.Collateral, claimable); err != nil {
			return 0, nil, err
		}
	}
	m.AccumulatedLPFees -= claimable
	pos.LastFeePerShare = m.FeePerShareCumulative

	if err := e.state.PutLPPosition(ctx, pos); err != nil {
		return 0, nil, fmt.Errorf("%s engine: persist lp position: %w", moduleName, err)
	}
	if err := e.state.PutMarket(ctx, m); err != nil {
		return 0, nil, fmt.Errorf("%s engine: persist market after claim: %w", moduleName, err)
	}
	return claimable, events.NewLPFeesClaimedEvent(m.ID, user, claimable), nil
}
