// Package fixedpoint implements a Q64.64 signed-magnitude-free fixed-point
// number, the arithmetic substrate for the LMSR calculator. A Fixed value
// stores its Q64.64 bit pattern in a 256-bit word (github.com/holiman/uint256),
// which gives multiplication and division enough headroom to compute the
// exact 128x128 intermediate product without the manual hi/lo splitting an
// actual 128-bit machine word would require.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Fixed is a Q64.64 fixed-point value: the upper bits hold the integer part,
// the lower 64 bits hold the fractional part. All values are non-negative;
// the LMSR calculator never needs signed magnitudes because costs, prices and
// probabilities are all >= 0.
type Fixed struct {
	v uint256.Int
}

var (
	// ErrOverflow is returned when an operation's result would not fit in
	// the 128 meaningful bits of a Q64.64 value.
	ErrOverflow = errors.New("fixedpoint: overflow")
	// ErrDivideByZero is returned by Div when the divisor is zero.
	ErrDivideByZero = errors.New("fixedpoint: division by zero")
	// ErrDomain is returned by Ln/Exp when the input falls outside the
	// domain the Taylor-series approximations were validated over.
	ErrDomain = errors.New("fixedpoint: input outside valid domain")
)

// maxSafeInput bounds Mul's operands: a product whose operands are both at
// or above 2^127 is rejected up front. Div has no operand check; its result
// is bounded by the 128-bit check after the division.
var maxSafeInput = new(uint256.Int).Lsh(uint256.NewInt(1), 127)

// One is 1.0 in Q64.64 (2^64).
var One = Fixed{v: *new(uint256.Int).Lsh(uint256.NewInt(1), 64)}

// Two is 2.0 in Q64.64.
var Two = Fixed{v: *new(uint256.Int).Lsh(uint256.NewInt(1), 65)}

// Zero is 0.
var Zero = Fixed{}

// e is Euler's number in Q64.64 (from the reference implementation's constant
// table: 50143449209799256682).
var eConst = mustFromString("50143449209799256682")

// ln2 is ln(2) in Q64.64 (12786308645202655660).
var ln2Const = mustFromString("12786308645202655660")

// maxExpInput is the largest input Exp accepts (43.668... * 2^64).
var maxExpInput = mustFromString("805532420210748699967")

// minLnInput is the smallest input Ln accepts (~0.0001 * 2^64).
var minLnInput = mustFromString("1844674407370955")

func mustFromString(s string) uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(fmt.Sprintf("fixedpoint: bad constant %q: %v", s, err))
	}
	return *v
}

// E returns Euler's number as a Fixed.
func E() Fixed { return Fixed{v: eConst} }

// Ln2 returns ln(2) as a Fixed.
func Ln2() Fixed { return Fixed{v: ln2Const} }

// MaxExpInput returns the largest value Exp will accept.
func MaxExpInput() Fixed { return Fixed{v: maxExpInput} }

// MinLnInput returns the smallest value Ln will accept.
func MinLnInput() Fixed { return Fixed{v: minLnInput} }

// FromU64 converts an integer to Q64.64 (x << 64).
func FromU64(x uint64) Fixed {
	var f Fixed
	f.v.Lsh(uint256.NewInt(x), 64)
	return f
}

// ToU64 truncates the integer part of a Q64.64 value.
func (f Fixed) ToU64() uint64 {
	var out uint256.Int
	out.Rsh(&f.v, 64)
	return out.Uint64()
}

// FromRaw wraps an already-scaled Q64.64 bit pattern (e.g. decoded off the
// wire) without reinterpreting it.
func FromRaw(raw *uint256.Int) Fixed {
	var f Fixed
	f.v.Set(raw)
	return f
}

// Raw returns the underlying Q64.64 bit pattern.
func (f Fixed) Raw() *uint256.Int {
	var out uint256.Int
	out.Set(&f.v)
	return &out
}

// IsZero reports whether f is exactly zero.
func (f Fixed) IsZero() bool { return f.v.IsZero() }

// Cmp compares f to g: -1, 0 or 1.
func (f Fixed) Cmp(g Fixed) int { return f.v.Cmp(&g.v) }

// Add returns f + g.
func (f Fixed) Add(g Fixed) Fixed {
	var out Fixed
	out.v.Add(&f.v, &g.v)
	return out
}

// Sub returns f - g. The caller must ensure f >= g; the calculator never
// subtracts into negative territory because all its quantities are bounded
// probabilities or monotonic costs.
func (f Fixed) Sub(g Fixed) Fixed {
	var out Fixed
	out.v.Sub(&f.v, &g.v)
	return out
}

// AbsDiff returns |f - g|.
func AbsDiff(f, g Fixed) Fixed {
	if f.Cmp(g) >= 0 {
		return f.Sub(g)
	}
	return g.Sub(f)
}

// Mul returns f * g with Q64.64 rescaling, computed as (f*g)/2^64 using a
// 512-bit intermediate so the product of two 128-bit operands never
// truncates before the final shift.
func (f Fixed) Mul(g Fixed) (Fixed, error) {
	if f.v.Cmp(maxSafeInput) >= 0 && g.v.Cmp(maxSafeInput) >= 0 {
		return Fixed{}, fmt.Errorf("%w: operands too large for multiplication", ErrOverflow)
	}
	var out uint256.Int
	_, overflow := out.MulDivOverflow(&f.v, &g.v, &One.v)
	if overflow {
		return Fixed{}, fmt.Errorf("%w: multiplication result exceeds 256 bits", ErrOverflow)
	}
	if out.BitLen() > 128 {
		return Fixed{}, fmt.Errorf("%w: multiplication result exceeds 128 bits", ErrOverflow)
	}
	return Fixed{v: out}, nil
}

// Div returns f / g with Q64.64 rescaling: (f * 2^64) / g.
func (f Fixed) Div(g Fixed) (Fixed, error) {
	if g.IsZero() {
		return Fixed{}, ErrDivideByZero
	}
	var out uint256.Int
	_, overflow := out.MulDivOverflow(&f.v, &One.v, &g.v)
	if overflow {
		return Fixed{}, fmt.Errorf("%w: division intermediate exceeds 256 bits", ErrOverflow)
	}
	if out.BitLen() > 128 {
		return Fixed{}, fmt.Errorf("%w: division result exceeds 128 bits", ErrOverflow)
	}
	return Fixed{v: out}, nil
}

// String renders the value as an integer.fractional decimal approximation,
// useful for logging and error messages only.
func (f Fixed) String() string {
	whole := f.ToU64()
	var frac uint256.Int
	mask := new(uint256.Int).Sub(&One.v, uint256.NewInt(1))
	frac.And(&f.v, mask)
	var scaled uint256.Int
	scaled.Mul(&frac, uint256.NewInt(1_000_000_000))
	scaled.Rsh(&scaled, 64)
	return fmt.Sprintf("%d.%09d", whole, scaled.Uint64())
}
