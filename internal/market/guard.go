package market

// guard.go implements the scope-bound RAII-style locks the design notes
// call for: a reentrancy flag acquired at scope entry and released on every
// exit path (success or error) via defer, and a restorer for the dynamic
// effective-b override so a failure mid-trade can never leave lmsr_b
// overwritten.

type guardFlag int

const (
	guardSwap guardFlag = iota
	guardAddLiquidity
	guardWithdraw
	guardClaim
)

func flagSet(m *Market, flag guardFlag) bool {
	switch flag {
	case guardSwap:
		return m.SwapInProgress
	case guardAddLiquidity:
		return m.AddLiquidityInProgress
	case guardWithdraw:
		return m.WithdrawInProgress
	case guardClaim:
		return m.ClaimInProgress
	default:
		return false
	}
}

func setFlag(m *Market, flag guardFlag, value bool) {
	switch flag {
	case guardSwap:
		m.SwapInProgress = value
	case guardAddLiquidity:
		m.AddLiquidityInProgress = value
	case guardWithdraw:
		m.WithdrawInProgress = value
	case guardClaim:
		m.ClaimInProgress = value
	}
}

// acquireGuard sets flag on m, returning a release function the caller must
// defer immediately. It fails with ErrReentrancyDetected if the flag is
// already set.
func acquireGuard(m *Market, flag guardFlag) (func(), error) {
	if flagSet(m, flag) {
		return func() {}, ErrReentrancyDetected
	}
	setFlag(m, flag, true)
	return func() { setFlag(m, flag, false) }, nil
}

// acquireGuards atomically acquires every flag in flags: if any is already
// set, none are taken. Used by resolution, which touches both the market's
// own state and (conceptually) the global vault's liquidation of pool
// holdings, and therefore must exclude swap/add/withdraw/claim all at once.
func acquireGuards(m *Market, flags ...guardFlag) (func(), error) {
	for _, f := range flags {
		if flagSet(m, f) {
			return func() {}, ErrReentrancyDetected
		}
	}
	for _, f := range flags {
		setFlag(m, f, true)
	}
	return func() {
		for _, f := range flags {
			setFlag(m, f, false)
		}
	}, nil
}

// withEffectiveB temporarily overrides m.LmsrB for the duration of fn,
// restoring the original value on every exit path via defer — the "scope-
// bound restorer" the design notes require instead of a trailing
// assignment, which a mid-function error return could skip.
func withEffectiveB(m *Market, effectiveB uint64, fn func() error) error {
	original := m.LmsrB
	m.LmsrB = effectiveB
	defer func() { m.LmsrB = original }()
	return fn()
}
