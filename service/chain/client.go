package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solagent/service/metrics"
)

// resubmitRetries is the fixed resubmission count handed to the RPC node for
// every transaction send. There is no client-side retry on top of it;
// duplicate-broadcast protection is the ledger's own signature dedup.
const resubmitRetries uint = 3

// confirmPollInterval is how often we poll signature statuses while waiting
// for a submitted transaction to confirm.
const confirmPollInterval = 2 * time.Second

// Ledger is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type Ledger interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)

	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)

	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)

	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)

	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)

	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)

	GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// NewRPCClient creates a Solana JSON-RPC client for the given endpoint.
func NewRPCClient(rpcURL string) *rpc.Client {
	return rpc.New(rpcURL)
}

// Client wraps the RPC layer with the handful of ledger operations the
// orchestrators share: submit-and-confirm, account existence, balance and
// rent queries.
type Client struct {
	rpc             Ledger
	explorerBaseURL string
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

// NewClient creates a new chain client. If m is nil, no metrics are recorded.
func NewClient(ledger Ledger, explorerBaseURL string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:             ledger,
		explorerBaseURL: explorerBaseURL,
		logger:          logger,
		metrics:         m,
	}
}

// LatestBlockhash fetches a recent blockhash for transaction construction.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	start := time.Now()
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	c.record("GetLatestBlockhash", err, start)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// SubmitAndConfirm submits a signed transaction with preflight enabled and a
// fixed node-side retry count, then blocks until the ledger reports the
// transaction as confirmed. The wait is bounded only by ctx.
func (c *Client) SubmitAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	maxRetries := resubmitRetries
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	c.record("SendTransaction", err, start)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to submit transaction: %w", err)
	}

	c.logger.DebugContext(ctx, "transaction submitted, awaiting confirmation",
		"signature", sig.String(),
	)

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// awaitConfirmation polls signature statuses until the transaction reaches
// at least confirmed commitment or ctx is done.
func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		c.record("GetSignatureStatuses", err, start)
		if err != nil {
			return fmt.Errorf("failed to get signature status for %s: %w", sig, err)
		}

		if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return &ConfirmationError{Signature: sig, TxErr: status.Err}
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				c.logger.DebugContext(ctx, "transaction confirmed",
					"signature", sig.String(),
					"status", string(status.ConfirmationStatus),
				)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation wait for %s aborted: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Exists reports whether an account exists on the ledger. A missing account
// is an answer, not an error: (false, nil). Any other RPC failure is
// returned as-is so callers never mistake an outage for a missing account.
func (c *Client) Exists(ctx context.Context, account solana.PublicKey) (bool, error) {
	start := time.Now()
	out, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			c.record("GetAccountInfo", nil, start)
			return false, nil
		}
		c.record("GetAccountInfo", err, start)
		return false, fmt.Errorf("failed to get account info for %s: %w", account, err)
	}
	c.record("GetAccountInfo", nil, start)
	return out != nil && out.Value != nil, nil
}

// Balance returns the lamport balance of an account.
func (c *Client) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	start := time.Now()
	out, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentFinalized)
	c.record("GetBalance", err, start)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", account, err)
	}
	return out.Value, nil
}

// RentExemptBalance returns the minimum lamports an account of the given
// data size must hold to be rent exempt.
func (c *Client) RentExemptBalance(ctx context.Context, dataSize uint64) (uint64, error) {
	start := time.Now()
	out, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, rpc.CommitmentFinalized)
	c.record("GetMinimumBalanceForRentExemption", err, start)
	if err != nil {
		return 0, fmt.Errorf("failed to get rent exemption for %d bytes: %w", dataSize, err)
	}
	return out, nil
}

// ProgramAccounts runs a filtered program-account scan.
func (c *Client) ProgramAccounts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	start := time.Now()
	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, program, opts)
	c.record("GetProgramAccounts", err, start)
	if err != nil {
		return nil, fmt.Errorf("failed to scan program accounts for %s: %w", program, err)
	}
	return out, nil
}

// ExplorerURL returns a human-facing explorer link for a transaction signature.
func (c *Client) ExplorerURL(sig solana.Signature) string {
	return fmt.Sprintf("%s/tx/%s", c.explorerBaseURL, sig)
}

func (c *Client) record(method string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, time.Since(start).Seconds())
}
