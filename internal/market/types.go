// Package market implements the prediction-market core: global
// configuration, per-market state and invariants, and the swap, mint/redeem,
// LP, resolution and insurance state-transition engines that operate on it.
package market

import "github.com/duskex/predictionmarket/internal/lmsr"

// Winner enumerates a resolved market's outcome.
type Winner int

const (
	WinnerNo Winner = iota
	WinnerYes
	WinnerDraw
)

// GlobalConfig is the process-wide singleton configuration: fee schedule,
// liquidity policy floors, pause flags and insurance parameters.
type GlobalConfig struct {
	Authority        string
	PendingAuthority string
	TeamWallet       string
	CollateralMint   string

	PlatformBuyBps  uint64
	PlatformSellBps uint64
	LPBuyBps        uint64
	LPSellBps       uint64

	InitialReservesB   uint64
	TokenSupplyCap     uint64
	TokenDecimals      uint8
	MinTradingLiquidity uint64
	MinLPLiquidity      uint64
	VaultMinBalance     uint64

	IsPaused         bool
	WhitelistEnabled bool

	InsuranceEnabled             bool
	InsurancePoolBalance         uint64
	InsuranceFeeAllocationBps    uint64
	InsuranceLossThresholdBps    uint64
	InsuranceMaxCompensationBps  uint64
}

// FeeOverride holds a market-scoped override of the global fee schedule.
type FeeOverride struct {
	PlatformBuyBps  uint64
	PlatformSellBps uint64
	LPBuyBps        uint64
	LPSellBps       uint64
}

// Market is one prediction market's full state, partitioned into the
// settlement ledger, the pool ledger, LMSR fields, resolution fields, timing,
// LP-protection fields, reentrancy flags and overrides.
type Market struct {
	ID      string
	YesMint string
	NoMint  string

	DisplayName string

	// Settlement ledger.
	TotalCollateralLocked uint64
	TotalYesMinted        uint64
	TotalNoMinted         uint64

	// Pool ledger.
	PoolCollateral         uint64
	PoolYes                uint64
	PoolNo                 uint64
	TotalLPShares          uint64
	AccumulatedLPFees      uint64
	FeePerShareCumulative  uint64 // scaled by 1e18

	// LMSR.
	LmsrB    uint64
	LmsrQYes int64
	LmsrQNo  int64

	// Resolution.
	IsCompleted          bool
	PoolSettled          bool
	Winner               Winner
	ResolutionYesRatioBps uint64
	ResolutionNoRatioBps  uint64

	// Timing.
	StartSlot         *uint64
	EndingSlot        *uint64
	CreatedAt         int64
	InitialYesProbBps uint64

	// LP protection.
	InitialYesReserve        uint64
	InitialNoReserve         uint64
	WithdrawTrackingStart    int64
	WithdrawLast24h          uint64
	CircuitBreakerActive     bool
	CircuitBreakerTriggeredAt int64

	// Reentrancy flags.
	SwapInProgress         bool
	AddLiquidityInProgress bool
	WithdrawInProgress     bool
	ClaimInProgress        bool

	// Sentinel.
	SentinelNoMinted uint64

	// Optional overrides.
	FeeOverride   *FeeOverride
	MarketPaused  bool
	PauseReason   string

	InsurancePoolContribution uint64
}

// sideFromString returns the LMSR facade side constant matching a "yes"/"no" string.
func sideFromString(s string) lmsr.Side {
	if s == "yes" {
		return lmsr.SideYes
	}
	return lmsr.SideNo
}

// LPPosition is one liquidity provider's stake in one market.
type LPPosition struct {
	MarketID            string
	User                string
	LPShares             uint64
	InvestedCollateral   uint64
	LastFeePerShare      uint64
	CreatedAt            int64
	LastAddAt            int64
}

// WhitelistEntry marks a creator address as permitted to create markets.
type WhitelistEntry struct {
	Creator string
}
