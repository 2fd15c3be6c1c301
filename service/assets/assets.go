// Package assets maps human-readable token and validator names to their
// canonical on-chain addresses. The tables are fixed at compile time;
// strings that don't match any entry are passed through unchanged on the
// assumption that they are already addresses. Malformed addresses are not
// caught here; they surface when the RPC layer rejects them.
package assets

import "strings"

// Well-known mint addresses on mainnet-beta.
const (
	SolMint  = "So11111111111111111111111111111111111111112"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// tokenMints maps upper-cased token symbols to mint addresses.
var tokenMints = map[string]string{
	"SOL":  SolMint,
	"USDC": USDCMint,
	"USDT": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	"BONK": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	"JUP":  "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
	"RAY":  "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
	"WIF":  "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm",
	"MSOL": "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",
}

// validatorVotes maps lower-cased validator names to vote account addresses.
var validatorVotes = map[string]string{
	"everstake": "9QU2QSxhb24FUX3Tu2FpczXjpK3VYrvRudywSZaM29mF",
	"laine":     "GE6atKoWiQ2pt3zL7N13pjNHjdLVys8LinG8qeJLcAiL",
}

// ResolveToken returns the mint address for a known token symbol.
// Lookup is case-insensitive. Unknown strings are returned unchanged.
func ResolveToken(symbolOrMint string) string {
	if mint, ok := tokenMints[strings.ToUpper(symbolOrMint)]; ok {
		return mint
	}
	return symbolOrMint
}

// ResolveValidator returns the vote account address for a known validator name.
// Lookup is case-insensitive. Unknown strings are returned unchanged.
func ResolveValidator(nameOrVote string) string {
	if vote, ok := validatorVotes[strings.ToLower(nameOrVote)]; ok {
		return vote
	}
	return nameOrVote
}

// KnownTokens returns the token symbols present in the alias table.
func KnownTokens() []string {
	symbols := make([]string, 0, len(tokenMints))
	for symbol := range tokenMints {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// KnownValidators returns the validator names present in the alias table.
func KnownValidators() []string {
	names := make([]string, 0, len(validatorVotes))
	for name := range validatorVotes {
		names = append(names, name)
	}
	return names
}
