package lmsr

import "testing"

func TestMarginalPriceBalancedAtFiftyFifty(t *testing.T) {
	pYesBps, err := MarginalPriceBps(1_000_000, 0, 0, SideYes)
	if err != nil {
		t.Fatalf("MarginalPriceBps: %v", err)
	}
	if pYesBps < 4900 || pYesBps > 5100 {
		t.Fatalf("balanced market p_yes = %d bps, want ~5000", pYesBps)
	}
}

func TestBuySkewsPriceTowardBoughtSide(t *testing.T) {
	before, err := MarginalPriceBps(1_000_000_000, 0, 0, SideYes)
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	qYes, qNo := NewPositionsAfterBuy(0, 0, SideYes, 9_500_000)
	after, err := MarginalPriceBps(1_000_000_000, qYes, qNo, SideYes)
	if err != nil {
		t.Fatalf("after: %v", err)
	}
	if after <= before {
		t.Fatalf("buying YES did not increase its price: before=%d after=%d", before, after)
	}
	if after <= 5000 || after > 5200 {
		t.Fatalf("scenario A expects post-trade YES price in (5000,5200], got %d", after)
	}
}

func TestHardCapRejectsMajorityBuy(t *testing.T) {
	b := uint64(1_000_000)
	qYes, qNo := int64(1_900_000), int64(0)
	if !HardCapExceeded(b, qYes, qNo, SideYes) {
		t.Fatalf("expected hard cap to reject buying the majority (YES) side")
	}
	if HardCapExceeded(b, qYes, qNo, SideNo) {
		t.Fatalf("expected hard cap to allow buying the minority (NO) side")
	}
}

func TestBuyThenSellProceedsDoNotExceedCost(t *testing.T) {
	b := uint64(1_000_000_000)
	qYes, qNo := int64(0), int64(0)
	amount := uint64(10_000_000)
	cost, err := BuyCost(b, qYes, qNo, SideYes, amount)
	if err != nil {
		t.Fatalf("BuyCost: %v", err)
	}
	newYes, newNo := NewPositionsAfterBuy(qYes, qNo, SideYes, amount)
	proceeds, err := SellProceeds(b, newYes, newNo, SideYes, amount)
	if err != nil {
		t.Fatalf("SellProceeds: %v", err)
	}
	if proceeds > cost {
		t.Fatalf("round-trip proceeds %d exceed cost %d: free liquidity", proceeds, cost)
	}
}

func TestInverseRecoversApproximateTokenAmount(t *testing.T) {
	b := uint64(1_000_000_000)
	qYes, qNo := int64(0), int64(0)
	wantTokens := uint64(9_500_000)
	cost, err := BuyCost(b, qYes, qNo, SideYes, wantTokens)
	if err != nil {
		t.Fatalf("BuyCost: %v", err)
	}
	gotTokens, err := Inverse(b, qYes, qNo, SideYes, cost)
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	var diff uint64
	if gotTokens > wantTokens {
		diff = gotTokens - wantTokens
	} else {
		diff = wantTokens - gotTokens
	}
	if diff > 1000 {
		t.Fatalf("Inverse(BuyCost(tokens)) = %d, want close to %d", gotTokens, wantTokens)
	}
}

func TestImbalanceRatioBps(t *testing.T) {
	if got := ImbalanceRatioBps(300, 100); got != 300 {
		t.Fatalf("ImbalanceRatioBps(300,100) = %d, want 300", got)
	}
	if got := ImbalanceRatioBps(100, 300); got != 300 {
		t.Fatalf("ImbalanceRatioBps(100,300) = %d, want 300 (order independent)", got)
	}
	if got := ImbalanceRatioBps(0, 300); got != 0 {
		t.Fatalf("ImbalanceRatioBps with zero reserve = %d, want 0 (undefined)", got)
	}
}
