// Package ledger re-expresses the token-custody side of the system — what
// the original program implements as program-derived accounts, SPL mints
// and token-program CPIs — as a small persistence-agnostic interface. The
// market engines in internal/market drive balances through this interface
// without knowing its backing. The one implementation in this module is
// MemLedger, an in-memory map.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Account identifies a balance holder: a user address, the global vault, or
// a market's collateral vault. The zero value is invalid.
type Account string

// GlobalVault is the account that starts out holding YES/NO mint authority
// for every market and custodies pool-side token reserves.
const GlobalVault Account = "global-vault"

// ErrInsufficientBalance is returned by Transfer/Burn when the source
// account does not hold enough of the asset.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// ErrUnknownAccount is returned when a lookup misses; callers generally
// treat a miss as a zero balance instead, this sentinel is reserved for
// operations that require an account to pre-exist (none currently do, kept
// for forward compatibility with a persistence backend that distinguishes
// "never seen" from "zero").
var ErrUnknownAccount = errors.New("ledger: unknown account")

// Asset identifies a fungible balance: the collateral token, or a market's
// YES/NO token pair.
type Asset struct {
	MarketID string // empty for the collateral asset
	Side     string // "collateral", "yes", or "no"
}

// Collateral is the single process-wide 6-decimal stablecoin asset.
var Collateral = Asset{Side: "collateral"}

// YesAsset returns the YES-token asset for a market.
func YesAsset(marketID string) Asset { return Asset{MarketID: marketID, Side: "yes"} }

// NoAsset returns the NO-token asset for a market.
func NoAsset(marketID string) Asset { return Asset{MarketID: marketID, Side: "no"} }

// Ledger is the balance-custody interface the market engines depend on. It
// stands in for SPL token transfer/mint/burn CPIs: Transfer moves an
// existing balance, MintYesNo/BurnYesNo create or destroy YES/NO supply
// (never collateral, which is always conserved via Transfer), and
// EnsureAccount stands in for `ensure_team_usdc_ata`-style idempotent
// associated-token-account creation — a no-op on any backend that doesn't
// need explicit account provisioning.
type Ledger interface {
	BalanceOf(ctx context.Context, account Account, asset Asset) (uint64, error)
	Transfer(ctx context.Context, from, to Account, asset Asset, amount uint64) error
	MintYesNo(ctx context.Context, to Account, asset Asset, amount uint64) error
	BurnYesNo(ctx context.Context, from Account, asset Asset, amount uint64) error
	EnsureAccount(ctx context.Context, account Account, asset Asset) error
}

// MintAuthority tracks which account may mint a market's YES/NO tokens. It
// starts at the global vault and transitions, once, to the market's own
// identity so a market can mint complete sets directly for single-coin LP
// flows without the global vault co-signing every add_liquidity call.
type MintAuthority struct {
	transferred map[string]bool
}

// NewMintAuthority returns a tracker with no markets yet transferred.
func NewMintAuthority() *MintAuthority {
	return &MintAuthority{transferred: make(map[string]bool)}
}

// CurrentAuthority returns GlobalVault until Transfer has been called for
// marketID, after which it returns the market account itself.
func (m *MintAuthority) CurrentAuthority(marketID string) Account {
	if m.transferred[marketID] {
		return Account(fmt.Sprintf("market-vault:%s", marketID))
	}
	return GlobalVault
}

// Transferred reports whether mint authority has already moved to the
// market for marketID.
func (m *MintAuthority) Transferred(marketID string) bool {
	return m.transferred[marketID]
}

// Transfer idempotently moves mint authority for marketID from the global
// vault to the market account, mirroring set_mint_authority's contract.
func (m *MintAuthority) Transfer(marketID string) {
	m.transferred[marketID] = true
}

// MarketVaultAccount returns the per-market collateral vault account.
func MarketVaultAccount(marketID string) Account {
	return Account(fmt.Sprintf("market-vault:%s", marketID))
}
