package lmsr

import "github.com/duskex/predictionmarket/internal/fixedpoint"

// This file is the calculator's typed boundary for callers outside the
// package: positions cross it only as int64 and amounts only as uint64.
// Conversions between the two also occur inside lmsr.go (BuyCost,
// SellProceeds) and in internal/market's first-LP position skew.

// MaxImbalanceMultiplier bounds |q_yes - q_no| relative to b as a
// defense-in-depth check applied after every position update, distinct from
// the pre-trade hard cap at 2b.
const MaxImbalanceMultiplier = 3

// HardCapExceeded reports whether side is the majority side (the side with
// the larger signed position) and the current |q_yes - q_no| is already at
// or past 2*b, which the swap engine rejects pre-trade with
// PoolTooImbalanced. The size of the pending trade is not taken into account.
func HardCapExceeded(b uint64, qYes, qNo int64, side Side) bool {
	majority := qYes >= qNo
	buyingMajority := (side == SideYes && majority) || (side == SideNo && !majority)
	if !buyingMajority {
		return false
	}
	diff := qYes - qNo
	if diff < 0 {
		diff = -diff
	}
	twoB := int64(2 * b)
	return diff >= twoB
}

// WithinDefenseInDepthBound reports whether |q_yes - q_no| <= multiplier*b,
// the looser check applied after a position update as a second line of
// defense behind the pre-trade hard cap.
func WithinDefenseInDepthBound(b uint64, qYes, qNo int64) bool {
	diff := qYes - qNo
	if diff < 0 {
		diff = -diff
	}
	bound := int64(MaxImbalanceMultiplier) * int64(b)
	return diff <= bound
}

// NewPositionsAfterBuy returns the updated (q_yes, q_no) after buying
// tokensOut units of side.
func NewPositionsAfterBuy(qYes, qNo int64, side Side, tokensOut uint64) (int64, int64) {
	return withPosition(qYes, qNo, side, position(qYes, qNo, side)+int64(tokensOut))
}

// NewPositionsAfterSell returns the updated (q_yes, q_no) after selling
// amount units of side back to the pool.
func NewPositionsAfterSell(qYes, qNo int64, side Side, amount uint64) (int64, int64) {
	return withPosition(qYes, qNo, side, position(qYes, qNo, side)-int64(amount))
}

// ImbalanceRatioBps returns max(pool_yes,pool_no)*100/min(pool_yes,pool_no)
// on a x100 scale (so 150 means a 1.5:1 ratio), matching the withdrawal-cap
// and circuit-breaker thresholds, which are expressed on the same scale.
// Returns 0 if either reserve is zero (undefined ratio; callers treat this
// as "no seeding yet" rather than "maximally imbalanced").
func ImbalanceRatioBps(poolYes, poolNo uint64) uint64 {
	if poolYes == 0 || poolNo == 0 {
		return 0
	}
	hi, lo := poolYes, poolNo
	if lo > hi {
		hi, lo = lo, hi
	}
	return hi * 100 / lo
}

// MarginalPriceBps exposes the marginal price of a side as a basis-point
// integer in [0, 10000] for UI/read-path parity.
func MarginalPriceBps(b uint64, qYes, qNo int64, side Side) (uint64, error) {
	p, err := priceOf(b, qYes, qNo, side)
	if err != nil {
		return 0, err
	}
	scaled, err := p.Mul(fixedpoint.FromU64(10_000))
	if err != nil {
		return 0, err
	}
	return scaled.ToU64(), nil
}
