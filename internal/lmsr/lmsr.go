// Package lmsr implements the Logarithmic Market Scoring Rule cost function
// and its derived price/inverse operations over a pair of signed token
// positions (q_yes, q_no) and a liquidity-depth parameter b.
package lmsr

import (
	"errors"
	"fmt"

	"github.com/duskex/predictionmarket/internal/fixedpoint"
)

// Side selects which outcome token a trade or price query targets.
type Side int

const (
	SideYes Side = iota
	SideNo
)

func (s Side) String() string {
	if s == SideYes {
		return "YES"
	}
	return "NO"
}

var (
	// ErrInvalidB is returned when the liquidity parameter is not positive.
	ErrInvalidB = errors.New("lmsr: b must be positive")
	// ErrNoConvergence is returned by Inverse when the binary search exhausts
	// its iteration budget; callers receive the lower bound, not this error,
	// per the spec's "safe under-estimate" contract — this is only surfaced
	// when the search cannot even establish a valid bracket.
	ErrNoConvergence = errors.New("lmsr: inverse search failed to bracket a root")
)

// maxSafePosition bounds |q_yes|, |q_no| per the calculator's stated domain.
const maxSafePosition = 1_000_000_000_000_000 // 10^15

// convergenceThreshold is the inverse search's target precision, expressed in
// the same smallest collateral units as amounts (1e-4 collateral == 100
// smallest-units at 6 decimals; the calculator works in raw smallest units so
// this is kept as a literal smallest-unit threshold).
const convergenceThreshold = 100

const maxInverseIterations = 50

// expOfRatio computes e^(q/b) for a signed position q and a positive depth b,
// by inverting Exp for negative q since Exp itself only accepts non-negative
// arguments.
func expOfRatio(q int64, b fixedpoint.Fixed) (fixedpoint.Fixed, error) {
	abs := q
	negative := q < 0
	if negative {
		abs = -abs
	}
	ratio, err := fixedpoint.FromU64(uint64(abs)).Div(b)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	e, err := fixedpoint.Exp(ratio)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	if !negative {
		return e, nil
	}
	return fixedpoint.One.Div(e)
}

// lnSigned computes ln(x) for any x > 0, returning a magnitude and a sign
// flag rather than requiring x >= 1 as fixedpoint.Ln does.
func lnSigned(x fixedpoint.Fixed) (mag fixedpoint.Fixed, negative bool, err error) {
	if x.Cmp(fixedpoint.One) >= 0 {
		v, err := fixedpoint.Ln(x)
		return v, false, err
	}
	inv, err := fixedpoint.One.Div(x)
	if err != nil {
		return fixedpoint.Fixed{}, false, err
	}
	v, err := fixedpoint.Ln(inv)
	if err != nil {
		return fixedpoint.Fixed{}, false, err
	}
	return v, true, nil
}

// CostFunction computes C(q) = b * ln(e^(q_yes/b) + e^(q_no/b)). The true
// value is occasionally negative (when both positions are sufficiently
// negative that the pool has net-redeemed more than it issued); since costs
// are carried as unsigned quantities at the instruction boundary, a negative
// result saturates to zero and the `saturated` flag signals callers to fall
// back to marginal-price estimation rather than trusting the cost delta.
func CostFunction(b uint64, qYes, qNo int64) (cost fixedpoint.Fixed, saturated bool, err error) {
	if b == 0 {
		return fixedpoint.Fixed{}, false, ErrInvalidB
	}
	bf := fixedpoint.FromU64(b)
	expYes, err := expOfRatio(qYes, bf)
	if err != nil {
		return fixedpoint.Fixed{}, false, fmt.Errorf("lmsr: cost function exp(yes): %w", err)
	}
	expNo, err := expOfRatio(qNo, bf)
	if err != nil {
		return fixedpoint.Fixed{}, false, fmt.Errorf("lmsr: cost function exp(no): %w", err)
	}
	sum := expYes.Add(expNo)
	lnMag, negative, err := lnSigned(sum)
	if err != nil {
		return fixedpoint.Fixed{}, false, fmt.Errorf("lmsr: cost function ln: %w", err)
	}
	mag, err := bf.Mul(lnMag)
	if err != nil {
		return fixedpoint.Fixed{}, false, fmt.Errorf("lmsr: cost function scale: %w", err)
	}
	if negative {
		return fixedpoint.Zero, true, nil
	}
	return mag, false, nil
}

// MarginalPrice returns p_yes and p_no (summing to 1) at the given state.
func MarginalPrice(b uint64, qYes, qNo int64) (pYes, pNo fixedpoint.Fixed, err error) {
	if b == 0 {
		return fixedpoint.Fixed{}, fixedpoint.Fixed{}, ErrInvalidB
	}
	bf := fixedpoint.FromU64(b)
	expYes, err := expOfRatio(qYes, bf)
	if err != nil {
		return fixedpoint.Fixed{}, fixedpoint.Fixed{}, err
	}
	expNo, err := expOfRatio(qNo, bf)
	if err != nil {
		return fixedpoint.Fixed{}, fixedpoint.Fixed{}, err
	}
	sum := expYes.Add(expNo)
	pYes, err = expYes.Div(sum)
	if err != nil {
		return fixedpoint.Fixed{}, fixedpoint.Fixed{}, err
	}
	pNo = fixedpoint.One.Sub(pYes)
	return pYes, pNo, nil
}

// priceOf returns the marginal price of the given side.
func priceOf(b uint64, qYes, qNo int64, side Side) (fixedpoint.Fixed, error) {
	pYes, pNo, err := MarginalPrice(b, qYes, qNo)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	if side == SideYes {
		return pYes, nil
	}
	return pNo, nil
}

// position returns the current signed position for a side.
func position(qYes, qNo int64, side Side) int64 {
	if side == SideYes {
		return qYes
	}
	return qNo
}

// withPosition returns a (qYes, qNo) pair with side's position replaced.
func withPosition(qYes, qNo int64, side Side, value int64) (int64, int64) {
	if side == SideYes {
		return value, qNo
	}
	return qYes, value
}

// BuyCost computes the collateral cost of buying tokensOut units of side,
// moving q_side from its current value to current+tokensOut. When the
// true cost delta would be negative due to cost-function saturation (the
// "double-negative fallback" from the design notes), it estimates
// tokensOut * marginal_price instead, clamped to at least 1 unit.
func BuyCost(b uint64, qYes, qNo int64, side Side, tokensOut uint64) (uint64, error) {
	if tokensOut == 0 {
		return 0, nil
	}
	costBefore, satBefore, err := CostFunction(b, qYes, qNo)
	if err != nil {
		return 0, err
	}
	newYes, newNo := withPosition(qYes, qNo, side, position(qYes, qNo, side)+int64(tokensOut))
	costAfter, satAfter, err := CostFunction(b, newYes, newNo)
	if err != nil {
		return 0, err
	}
	if !satBefore && !satAfter && costAfter.Cmp(costBefore) >= 0 {
		delta := costAfter.Sub(costBefore)
		return toCollateralUnits(delta), nil
	}
	p, err := priceOf(b, qYes, qNo, side)
	if err != nil {
		return 0, err
	}
	est, err := fixedpoint.FromU64(tokensOut).Mul(p)
	if err != nil {
		return 0, err
	}
	units := toCollateralUnits(est)
	if units < 1 {
		units = 1
	}
	return units, nil
}

// SellProceeds computes the gross collateral proceeds of selling `amount`
// units of side back into the pool, moving q_side from current to
// current-amount.
func SellProceeds(b uint64, qYes, qNo int64, side Side, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}
	costBefore, satBefore, err := CostFunction(b, qYes, qNo)
	if err != nil {
		return 0, err
	}
	newYes, newNo := withPosition(qYes, qNo, side, position(qYes, qNo, side)-int64(amount))
	costAfter, satAfter, err := CostFunction(b, newYes, newNo)
	if err != nil {
		return 0, err
	}
	if !satBefore && !satAfter && costBefore.Cmp(costAfter) >= 0 {
		delta := costBefore.Sub(costAfter)
		return toCollateralUnits(delta), nil
	}
	p, err := priceOf(b, qYes, qNo, side)
	if err != nil {
		return 0, err
	}
	est, err := fixedpoint.FromU64(amount).Mul(p)
	if err != nil {
		return 0, err
	}
	units := toCollateralUnits(est)
	if units < 1 {
		units = 1
	}
	return units, nil
}

// Inverse solves for the token amount whose BuyCost equals targetCollateral,
// via binary search with a dynamically estimated upper bound: starting from
// the current marginal price p, hi ~= (targetCollateral / p) * 1.5, clamped
// to MAX_SAFE_POSITION. Convergence threshold is 100 smallest-units; the
// search runs at most 50 iterations and, on non-convergence, returns the
// current lower bound — always a safe under-estimate of tokens owed to the
// caller, per the spec's stated fallback.
func Inverse(b uint64, qYes, qNo int64, side Side, targetCollateral uint64) (uint64, error) {
	if targetCollateral == 0 {
		return 0, nil
	}
	p, err := priceOf(b, qYes, qNo, side)
	if err != nil {
		return 0, err
	}
	if p.IsZero() {
		return 0, fmt.Errorf("%w: inverse called at zero marginal price", ErrNoConvergence)
	}
	estimate, err := fixedpoint.FromU64(targetCollateral).Div(p)
	if err != nil {
		return 0, err
	}
	hi := estimate.ToU64()
	hi = hi + hi/2 + 1 // * 1.5, rounded up
	if hi > maxSafePosition {
		hi = maxSafePosition
	}
	lo := uint64(0)
	for i := 0; i < maxInverseIterations; i++ {
		if hi <= lo {
			break
		}
		mid := lo + (hi-lo)/2
		cost, err := BuyCost(b, qYes, qNo, side, mid)
		if err != nil {
			return 0, err
		}
		var diff uint64
		if cost > targetCollateral {
			diff = cost - targetCollateral
		} else {
			diff = targetCollateral - cost
		}
		if diff <= convergenceThreshold {
			return mid, nil
		}
		if cost > targetCollateral {
			hi = mid
		} else {
			if mid == lo {
				break
			}
			lo = mid
		}
	}
	return lo, nil
}

// toCollateralUnits truncates a Fixed cost/proceeds value to whole
// smallest-collateral-units.
func toCollateralUnits(f fixedpoint.Fixed) uint64 {
	return f.ToU64()
}
