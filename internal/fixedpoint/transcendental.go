package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
)

// lnTaylorTerms mirrors the reference implementation's 10-term Taylor
// expansion of ln(1+y) around a normalized y in [0,1).
const lnTaylorTerms = 10

// expTaylorTerms mirrors the reference implementation's 15-term Taylor
// expansion of e^r for a range-reduced r in [0, ln2).
const expTaylorTerms = 15

// expEarlyExitThreshold is the raw Q64.64 magnitude below which an
// additional exp() Taylor term is assumed negligible and series evaluation
// stops early.
var expEarlyExitThreshold = uint256.NewInt(100)

// Ln computes the natural logarithm of x. The LMSR cost function only ever
// evaluates Ln at arguments >= 1 (a log-sum-exp of exponentials each >= 1),
// so the result is always non-negative; callers passing x in [MinLnInput, 1)
// will see Sub return a result whose magnitude has wrapped, which is why Ln
// rejects anything below MinLnInput rather than silently producing a
// meaningless value.
func Ln(x Fixed) (Fixed, error) {
	if x.Cmp(MinLnInput()) < 0 {
		return Fixed{}, fmt.Errorf("%w: ln argument %s below minimum", ErrDomain, x.String())
	}

	normalized := x
	exponent := 0
	for normalized.Cmp(Two) >= 0 {
		halved, err := normalized.Div(Two)
		if err != nil {
			return Fixed{}, err
		}
		normalized = halved
		exponent++
	}
	for normalized.Cmp(One) < 0 {
		doubled, err := normalized.Mul(Two)
		if err != nil {
			return Fixed{}, err
		}
		normalized = doubled
		exponent--
	}

	y := normalized.Sub(One)
	term := y
	result := y
	negate := true
	for i := 2; i <= lnTaylorTerms; i++ {
		next, err := term.Mul(y)
		if err != nil {
			return Fixed{}, err
		}
		term = next
		contribution, err := term.Div(FromU64(uint64(i)))
		if err != nil {
			return Fixed{}, err
		}
		if negate {
			result = result.Sub(contribution)
		} else {
			result = result.Add(contribution)
		}
		negate = !negate
	}

	if exponent > 0 {
		shift, err := FromU64(uint64(exponent)).Mul(Ln2())
		if err != nil {
			return Fixed{}, err
		}
		result = result.Add(shift)
	} else if exponent < 0 {
		shift, err := FromU64(uint64(-exponent)).Mul(Ln2())
		if err != nil {
			return Fixed{}, err
		}
		result = result.Sub(shift)
	}
	return result, nil
}

// Exp computes e^x for x in [0, MaxExpInput]. Range-reduces to e^x = 2^n *
// e^r with r in [0, ln2) via n = floor(x / ln2), then evaluates the Taylor
// series for e^r and rescales by n bits.
func Exp(x Fixed) (Fixed, error) {
	if x.Cmp(MaxExpInput()) > 0 {
		return Fixed{}, fmt.Errorf("%w: exp argument %s exceeds maximum", ErrDomain, x.String())
	}
	if x.IsZero() {
		return One, nil
	}

	nFixed, err := x.Div(Ln2())
	if err != nil {
		return Fixed{}, err
	}
	n := nFixed.ToU64()

	nTimesLn2, err := FromU64(n).Mul(Ln2())
	if err != nil {
		return Fixed{}, err
	}
	r := x.Sub(nTimesLn2)

	result := One
	term := One
	for i := uint64(1); i <= expTaylorTerms; i++ {
		next, err := term.Mul(r)
		if err != nil {
			return Fixed{}, err
		}
		next, err = next.Div(FromU64(i))
		if err != nil {
			return Fixed{}, err
		}
		term = next
		result = result.Add(term)
		if term.v.Cmp(expEarlyExitThreshold) < 0 {
			break
		}
	}

	if n == 0 {
		return result, nil
	}
	var scaled uint256.Int
	scaled.Lsh(&result.v, uint(n))
	return Fixed{v: scaled}, nil
}

// LogSumExp computes ln(e^a + e^b) = max(a,b) + ln(1 + e^-|a-b|), using the
// e^-diff form (rather than e^diff) for numerical stability: when a and b
// are both large LMSR quantities, e^diff can itself overflow Exp's domain
// even though the final log-sum-exp result is well within range.
func LogSumExp(a, b Fixed) (Fixed, error) {
	maxVal := a
	if b.Cmp(a) > 0 {
		maxVal = b
	}
	diff := AbsDiff(a, b)

	if diff.Cmp(FromU64(20)) >= 0 {
		return maxVal, nil
	}

	expDiff, err := Exp(diff)
	if err != nil {
		return Fixed{}, err
	}
	expNegDiff, err := One.Div(expDiff)
	if err != nil {
		return Fixed{}, err
	}
	lnTerm, err := Ln(One.Add(expNegDiff))
	if err != nil {
		return Fixed{}, err
	}
	return maxVal.Add(lnTerm), nil
}
