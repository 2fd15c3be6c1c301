// Package stake orchestrates validator staking: creating and delegating
// stake accounts, scanning the wallet's stake accounts, deactivating and
// withdrawing.
package stake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	stakeprog "github.com/gagliardetto/solana-go/programs/stake"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"solagent/service/assets"
	"solagent/service/chain"
	"solagent/service/metrics"
	"solagent/service/wallet"
)

// authorizedStakerOffset is the byte offset of the authorized staker pubkey
// inside a stake account's data (4-byte state enum + 8-byte rent reserve).
const authorizedStakerOffset = 12

// stakeAccountSize is the fixed byte size of a stake account's data.
const stakeAccountSize = 200

// Service orchestrates staking operations for a single wallet.
type Service struct {
	chain   *chain.Client
	wallet  *wallet.Wallet
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a staking service. If m is nil, no metrics are recorded.
func NewService(chainClient *chain.Client, w *wallet.Wallet, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		chain:   chainClient,
		wallet:  w,
		logger:  logger,
		metrics: m,
	}
}

// DelegateResult describes a confirmed delegation.
type DelegateResult struct {
	Signature    string  `json:"signature"`
	StakeAccount string  `json:"stake_account"`
	Validator    string  `json:"validator"`
	AmountSOL    float64 `json:"amount_sol"`
	ExplorerURL  string  `json:"explorer_url"`
}

// DeactivateResult describes a confirmed deactivation.
type DeactivateResult struct {
	Signature    string `json:"signature"`
	StakeAccount string `json:"stake_account"`
	// The stake program releases the balance only after the current epoch
	// ends; withdrawal before that boundary is rejected on chain.
	Note        string `json:"note"`
	ExplorerURL string `json:"explorer_url"`
}

// WithdrawResult describes a confirmed withdrawal.
type WithdrawResult struct {
	Signature    string  `json:"signature"`
	StakeAccount string  `json:"stake_account"`
	Lamports     uint64  `json:"lamports"`
	SOL          float64 `json:"sol"`
	ExplorerURL  string  `json:"explorer_url"`
}

// Delegate creates a new stake account funded with amountSOL plus the
// rent-exempt reserve and delegates it to the given validator. validator may
// be a name from the alias table or a vote account address. The transaction
// is signed by both the wallet and the new stake account's one-time keypair.
func (s *Service) Delegate(ctx context.Context, validator string, amountSOL float64) (*DelegateResult, error) {
	start := time.Now()
	res, err := s.delegate(ctx, validator, amountSOL)
	s.recordOp("stake_delegate", err, start)
	return res, err
}

func (s *Service) delegate(ctx context.Context, validator string, amountSOL float64) (*DelegateResult, error) {
	voteAddr := assets.ResolveValidator(validator)
	voteAccount, err := solana.PublicKeyFromBase58(voteAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid validator vote account %q: %w", voteAddr, err)
	}
	if amountSOL <= 0 {
		return nil, fmt.Errorf("stake amount must be positive, got %v", amountSOL)
	}

	// Fresh single-use keypair for the new stake account's identity.
	stakeAccount := solana.NewWallet()

	rent, err := s.chain.RentExemptBalance(ctx, stakeAccountSize)
	if err != nil {
		return nil, err
	}
	lamports := wallet.ToLamports(amountSOL) + rent

	createInst := system.NewCreateAccountInstruction(
		lamports,
		stakeAccountSize,
		solana.StakeProgramID,
		s.wallet.PublicKey(),
		stakeAccount.PublicKey(),
	).Build()

	// The wallet is both staker and withdrawer, with no lockup.
	initInst := stakeprog.NewInitializeInstruction(
		s.wallet.PublicKey(),
		s.wallet.PublicKey(),
		stakeAccount.PublicKey(),
	).Build()
	delegateInst := stakeprog.NewDelegateStakeInstruction(
		voteAccount,
		s.wallet.PublicKey(),
		stakeAccount.PublicKey(),
	).Build()

	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{createInst, initInst, delegateInst},
		blockhash,
		solana.TransactionPayer(s.wallet.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build stake transaction: %w", err)
	}

	stakeKey := stakeAccount.PrivateKey
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.wallet.PublicKey()) {
			k := s.wallet.PrivateKey()
			return &k
		}
		if key.Equals(stakeAccount.PublicKey()) {
			return &stakeKey
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to sign stake transaction: %w", err)
	}

	sig, err := s.chain.SubmitAndConfirm(ctx, tx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stake delegation confirmed",
		"signature", sig.String(),
		"stake_account", stakeAccount.PublicKey().String(),
		"validator", voteAccount.String(),
		"lamports", lamports,
	)

	return &DelegateResult{
		Signature:    sig.String(),
		StakeAccount: stakeAccount.PublicKey().String(),
		Validator:    voteAccount.String(),
		AmountSOL:    amountSOL,
		ExplorerURL:  s.chain.ExplorerURL(sig),
	}, nil
}

// Accounts scans the stake program for accounts whose authorized staker is
// this wallet and summarizes each. The scan is point-in-time; nothing is
// cached.
func (s *Service) Accounts(ctx context.Context) ([]AccountSummary, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Encoding: solana.EncodingJSONParsed,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: authorizedStakerOffset,
					Bytes:  solana.Base58(s.wallet.PublicKey().Bytes()),
				},
			},
		},
	}

	accounts, err := s.chain.ProgramAccounts(ctx, solana.StakeProgramID, opts)
	if err != nil {
		return nil, err
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, acct := range accounts {
		if acct == nil || acct.Account == nil || acct.Account.Data == nil {
			continue
		}
		summary, err := summarize(
			acct.Pubkey.String(),
			acct.Account.Lamports,
			wallet.ToSOL(acct.Account.Lamports),
			acct.Account.Data.GetRawJSON(),
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	s.logger.DebugContext(ctx, "scanned stake accounts",
		"wallet", s.wallet.Address(),
		"count", len(summaries),
	)

	return summaries, nil
}

// Deactivate begins undelegating a stake account.
func (s *Service) Deactivate(ctx context.Context, stakeAddress string) (*DeactivateResult, error) {
	start := time.Now()
	res, err := s.deactivate(ctx, stakeAddress)
	s.recordOp("stake_deactivate", err, start)
	return res, err
}

func (s *Service) deactivate(ctx context.Context, stakeAddress string) (*DeactivateResult, error) {
	stakeAccount, err := solana.PublicKeyFromBase58(stakeAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid stake account address %q: %w", stakeAddress, err)
	}

	// Undelegation takes effect at the epoch boundary; the stake program
	// enforces that timing, not us.
	inst := stakeprog.NewDeactivateInstruction(stakeAccount, s.wallet.PublicKey()).Build()

	sig, err := s.signAndSubmit(ctx, inst)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stake deactivation confirmed",
		"signature", sig.String(),
		"stake_account", stakeAccount.String(),
	)

	return &DeactivateResult{
		Signature:    sig.String(),
		StakeAccount: stakeAccount.String(),
		Note:         "stake becomes withdrawable after the current epoch ends",
		ExplorerURL:  s.chain.ExplorerURL(sig),
	}, nil
}

// Withdraw moves a stake account's entire balance back to the wallet. The
// account must already be fully deactivated; the stake program rejects
// withdrawal from a delegated account and that failure propagates as-is.
func (s *Service) Withdraw(ctx context.Context, stakeAddress string) (*WithdrawResult, error) {
	start := time.Now()
	res, err := s.withdraw(ctx, stakeAddress)
	s.recordOp("stake_withdraw", err, start)
	return res, err
}

func (s *Service) withdraw(ctx context.Context, stakeAddress string) (*WithdrawResult, error) {
	stakeAccount, err := solana.PublicKeyFromBase58(stakeAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid stake account address %q: %w", stakeAddress, err)
	}

	balance, err := s.chain.Balance(ctx, stakeAccount)
	if err != nil {
		return nil, err
	}
	if balance == 0 {
		return nil, fmt.Errorf("stake account %s has no balance to withdraw", stakeAccount)
	}

	inst := stakeprog.NewWithdrawInstruction(
		balance,
		stakeAccount,
		s.wallet.PublicKey(),
		s.wallet.PublicKey(),
	).Build()

	sig, err := s.signAndSubmit(ctx, inst)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stake withdrawal confirmed",
		"signature", sig.String(),
		"stake_account", stakeAccount.String(),
		"lamports", balance,
	)

	return &WithdrawResult{
		Signature:    sig.String(),
		StakeAccount: stakeAccount.String(),
		Lamports:     balance,
		SOL:          wallet.ToSOL(balance),
		ExplorerURL:  s.chain.ExplorerURL(sig),
	}, nil
}

// signAndSubmit wraps a single instruction in a wallet-signed transaction
// and submits it.
func (s *Service) signAndSubmit(ctx context.Context, inst solana.Instruction) (solana.Signature, error) {
	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		blockhash,
		solana.TransactionPayer(s.wallet.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build stake transaction: %w", err)
	}
	if _, err := tx.Sign(s.wallet.Signer()); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign stake transaction: %w", err)
	}

	return s.chain.SubmitAndConfirm(ctx, tx)
}

func (s *Service) recordOp(operation string, err error, start time.Time) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordOperation(operation, outcome, time.Since(start).Seconds())
}
