package market

import "github.com/google/uuid"

// marketNamespace roots the deterministic market-ID derivation; it has no
// meaning beyond being a fixed, never-reused UUID namespace constant.
var marketNamespace = uuid.MustParse("6f6e1c9e-9a3e-4c9d-8f2a-6d3b9f9b9c11")

// DeriveMarketID computes a market's identity deterministically from its
// YES and NO mint identifiers, mirroring the seed-tuple derivation
// ("market", yes_mint, no_mint) the account model uses on-chain — here
// expressed as a namespaced UUIDv5 instead of a PDA.
func DeriveMarketID(yesMint, noMint string) string {
	return uuid.NewSHA1(marketNamespace, []byte(yesMint+"|"+noMint)).String()
}
