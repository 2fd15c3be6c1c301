package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ConfirmationError is returned when a submitted transaction is accepted by
// the network but fails during execution. Transport and RPC failures stay
// plain wrapped errors; this class means the transaction itself was rejected.
type ConfirmationError struct {
	Signature solana.Signature
	TxErr     interface{}
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("transaction %s failed on chain: %v", e.Signature, e.TxErr)
}
