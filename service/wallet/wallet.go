// Package wallet manages the signing credential used by every orchestrated
// operation. A wallet is loaded once at startup and is read-only afterwards,
// so it is safe to share across concurrent requests.
package wallet

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// LamportsPerSOL is the fixed conversion factor between the native asset's
// human-readable unit and its base unit.
const LamportsPerSOL = uint64(solana.LAMPORTS_PER_SOL)

// Wallet wraps a Solana keypair.
type Wallet struct {
	key solana.PrivateKey
}

// Load reads a keypair from a Solana keygen file (a JSON array of the raw
// 64 secret-key bytes).
func Load(path string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return &Wallet{key: key}, nil
}

// FromBase58 constructs a wallet from a base58-encoded private key,
// the format produced by most wallet exports.
func FromBase58(encoded string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// Generate creates a wallet with a fresh random keypair.
func Generate() *Wallet {
	return &Wallet{key: solana.NewWallet().PrivateKey}
}

// Save writes the keypair to path in Solana keygen format with owner-only
// permissions.
func (w *Wallet) Save(path string) error {
	raw := make([]int, len(w.key))
	for i, b := range w.key {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode keypair: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keypair to %s: %w", path, err)
	}
	return nil
}

// PublicKey returns the wallet's public key.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// Address returns the wallet's base58-encoded public key.
func (w *Wallet) Address() string {
	return w.key.PublicKey().String()
}

// PrivateKey returns the wallet's private key.
func (w *Wallet) PrivateKey() solana.PrivateKey {
	return w.key
}

// Signer returns a key lookup function in the shape solana.Transaction.Sign
// expects. It answers only for this wallet's public key.
func (w *Wallet) Signer() func(key solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	}
}

// ToLamports converts a decimal SOL amount to lamports, truncating any
// fraction of a lamport. Truncation (not rounding) is deliberate: the tail
// beyond nine decimal places is below the smallest representable unit.
func ToLamports(sol float64) uint64 {
	return uint64(sol * float64(LamportsPerSOL))
}

// ToSOL converts lamports to a decimal SOL amount.
func ToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(LamportsPerSOL)
}
