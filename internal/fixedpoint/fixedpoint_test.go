package fixedpoint

import "testing"

func TestMulIdentity(t *testing.T) {
	three := FromU64(3)
	got, err := three.Mul(One)
	if err != nil {
		t.Fatalf("Mul returned error: %v", err)
	}
	if got.Cmp(three) != 0 {
		t.Fatalf("3 * 1 = %s, want 3", got)
	}
}

func TestMulCommutative(t *testing.T) {
	a := FromU64(7)
	b := FromU64(11)
	ab, err := a.Mul(b)
	if err != nil {
		t.Fatalf("a*b: %v", err)
	}
	ba, err := b.Mul(a)
	if err != nil {
		t.Fatalf("b*a: %v", err)
	}
	if ab.Cmp(ba) != 0 {
		t.Fatalf("multiplication not commutative: %s != %s", ab, ba)
	}
	if ab.ToU64() != 77 {
		t.Fatalf("7*11 = %d, want 77", ab.ToU64())
	}
}

func TestDivRoundTrip(t *testing.T) {
	a := FromU64(100)
	b := FromU64(4)
	q, err := a.Div(b)
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	if q.ToU64() != 25 {
		t.Fatalf("100/4 = %d, want 25", q.ToU64())
	}
	back, err := q.Mul(b)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	if back.Cmp(a) != 0 {
		t.Fatalf("round trip mismatch: %s != %s", back, a)
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := One.Div(Zero); err != ErrDivideByZero {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}

func TestExpZero(t *testing.T) {
	got, err := Exp(Zero)
	if err != nil {
		t.Fatalf("Exp(0): %v", err)
	}
	if got.Cmp(One) != 0 {
		t.Fatalf("exp(0) = %s, want 1", got)
	}
}

func TestExpOneApproximatesE(t *testing.T) {
	got, err := Exp(One)
	if err != nil {
		t.Fatalf("Exp(1): %v", err)
	}
	diff := AbsDiff(got, E())
	tolerance := One.Raw()
	tolerance.Rsh(tolerance, 40)
	if diff.v.Cmp(tolerance) > 0 {
		t.Fatalf("exp(1) = %s, want approximately e = %s", got, E())
	}
}

func TestLnExpRoundTrip(t *testing.T) {
	x := FromU64(5)
	ln, err := Ln(x)
	if err != nil {
		t.Fatalf("Ln(5): %v", err)
	}
	back, err := Exp(ln)
	if err != nil {
		t.Fatalf("Exp(ln(5)): %v", err)
	}
	diff := AbsDiff(back, x)
	tolerance := One.Raw()
	tolerance.Rsh(tolerance, 32)
	if diff.v.Cmp(tolerance) > 0 {
		t.Fatalf("exp(ln(5)) = %s, want approximately 5", back)
	}
}

func TestLnBelowMinimumRejected(t *testing.T) {
	tooSmall := FromRaw(MinLnInput().Raw())
	tooSmall, _ = tooSmall.Div(Two)
	if _, err := Ln(tooSmall); err == nil {
		t.Fatalf("expected Ln to reject input below minimum")
	}
}

func TestLogSumExpShortCircuitsOnLargeDiff(t *testing.T) {
	a := FromU64(1000)
	b := FromU64(1)
	got, err := LogSumExp(a, b)
	if err != nil {
		t.Fatalf("LogSumExp: %v", err)
	}
	if got.Cmp(a) != 0 {
		t.Fatalf("log_sum_exp with large diff = %s, want max = %s", got, a)
	}
}

func TestLogSumExpSymmetric(t *testing.T) {
	a := FromU64(3)
	b := FromU64(4)
	ab, err := LogSumExp(a, b)
	if err != nil {
		t.Fatalf("LogSumExp(a,b): %v", err)
	}
	ba, err := LogSumExp(b, a)
	if err != nil {
		t.Fatalf("LogSumExp(b,a): %v", err)
	}
	if ab.Cmp(ba) != 0 {
		t.Fatalf("log_sum_exp not symmetric: %s != %s", ab, ba)
	}
}

func TestExpRejectsAboveMaximum(t *testing.T) {
	tooLarge := MaxExpInput().Add(One)
	if _, err := Exp(tooLarge); err == nil {
		t.Fatalf("expected Exp to reject input above maximum")
	}
}
