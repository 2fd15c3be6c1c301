// Package transfer builds and submits native SOL and SPL token transfers.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"solagent/service/assets"
	"solagent/service/chain"
	"solagent/service/metrics"
	"solagent/service/wallet"
)

// Service orchestrates transfers for a single wallet.
type Service struct {
	chain   *chain.Client
	wallet  *wallet.Wallet
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a transfer service. If m is nil, no metrics are recorded.
func NewService(chainClient *chain.Client, w *wallet.Wallet, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		chain:   chainClient,
		wallet:  w,
		logger:  logger,
		metrics: m,
	}
}

// Result describes a confirmed transfer.
type Result struct {
	Signature   string `json:"signature"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	Asset       string `json:"asset"`
	ExplorerURL string `json:"explorer_url"`
}

// SendNative transfers SOL. amountSOL is a decimal amount in whole SOL and
// is converted to lamports with truncation.
func (s *Service) SendNative(ctx context.Context, to string, amountSOL float64) (*Result, error) {
	start := time.Now()
	res, err := s.sendNative(ctx, to, amountSOL)
	s.recordOp("transfer_native", err, start)
	return res, err
}

func (s *Service) sendNative(ctx context.Context, to string, amountSOL float64) (*Result, error) {
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	if amountSOL <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %v", amountSOL)
	}

	lamports := wallet.ToLamports(amountSOL)

	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	inst := system.NewTransferInstruction(lamports, s.wallet.PublicKey(), recipient).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		blockhash,
		solana.TransactionPayer(s.wallet.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer transaction: %w", err)
	}
	if _, err := tx.Sign(s.wallet.Signer()); err != nil {
		return nil, fmt.Errorf("failed to sign transfer transaction: %w", err)
	}

	sig, err := s.chain.SubmitAndConfirm(ctx, tx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "native transfer confirmed",
		"signature", sig.String(),
		"to", recipient.String(),
		"lamports", lamports,
	)

	return &Result{
		Signature:   sig.String(),
		From:        s.wallet.Address(),
		To:          recipient.String(),
		Amount:      strconv.FormatFloat(amountSOL, 'f', -1, 64),
		Asset:       "SOL",
		ExplorerURL: s.chain.ExplorerURL(sig),
	}, nil
}

// SendToken transfers an SPL token. Unlike SendNative, amount is already in
// the token's base units; no decimal conversion is applied. If the
// recipient's associated token account does not exist it is created in the
// same transaction, so either both instructions land or neither does.
func (s *Service) SendToken(ctx context.Context, to string, amount uint64, asset string) (*Result, error) {
	start := time.Now()
	res, err := s.sendToken(ctx, to, amount, asset)
	s.recordOp("transfer_token", err, start)
	return res, err
}

func (s *Service) sendToken(ctx context.Context, to string, amount uint64, asset string) (*Result, error) {
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	if amount == 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	mintAddr := assets.ResolveToken(asset)
	mint, err := solana.PublicKeyFromBase58(mintAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint %q: %w", mintAddr, err)
	}

	senderATA, _, err := solana.FindAssociatedTokenAddress(s.wallet.PublicKey(), mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source token account: %w", err)
	}
	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive destination token account: %w", err)
	}

	// A missing destination account means we create it; any other failure
	// from the existence check aborts before anything is built.
	exists, err := s.chain.Exists(ctx, recipientATA)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	if !exists {
		s.logger.DebugContext(ctx, "destination token account missing, creating it",
			"account", recipientATA.String(),
			"owner", recipient.String(),
		)
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(s.wallet.PublicKey(), recipient, mint).Build(),
		)
	}
	instructions = append(instructions,
		token.NewTransferInstruction(amount, senderATA, recipientATA, s.wallet.PublicKey(), nil).Build(),
	)

	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(s.wallet.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token transfer transaction: %w", err)
	}
	if _, err := tx.Sign(s.wallet.Signer()); err != nil {
		return nil, fmt.Errorf("failed to sign token transfer transaction: %w", err)
	}

	sig, err := s.chain.SubmitAndConfirm(ctx, tx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "token transfer confirmed",
		"signature", sig.String(),
		"to", recipient.String(),
		"mint", mint.String(),
		"amount", amount,
	)

	return &Result{
		Signature:   sig.String(),
		From:        s.wallet.Address(),
		To:          recipient.String(),
		Amount:      strconv.FormatUint(amount, 10),
		Asset:       mint.String(),
		ExplorerURL: s.chain.ExplorerURL(sig),
	}, nil
}

func (s *Service) recordOp(operation string, err error, start time.Time) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordOperation(operation, outcome, time.Since(start).Seconds())
}
