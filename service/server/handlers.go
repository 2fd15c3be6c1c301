package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"solagent/service/chain"
	"solagent/service/portfolio"
	"solagent/service/stake"
	"solagent/service/swap"
	"solagent/service/transfer"
	"solagent/service/wallet"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for any swap or transfer request
	maxAddressLength   = 100     // Solana addresses are 44 chars, give buffer
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// Swapper handles Jupiter quote and swap execution.
type Swapper interface {
	GetQuote(ctx context.Context, inputAsset, outputAsset string, amount uint64, slippageBps int) (*swap.Quote, error)
	Swap(ctx context.Context, inputAsset, outputAsset string, amount uint64, slippageBps int) (*swap.Result, error)
	Price(ctx context.Context, asset string) (float64, error)
}

// Transferrer moves SOL and SPL tokens out of the agent wallet.
type Transferrer interface {
	SendNative(ctx context.Context, to string, amountSOL float64) (*transfer.Result, error)
	SendToken(ctx context.Context, to string, amount uint64, asset string) (*transfer.Result, error)
}

// Staker manages native stake accounts owned by the agent wallet.
type Staker interface {
	Delegate(ctx context.Context, validator string, amountSOL float64) (*stake.DelegateResult, error)
	Accounts(ctx context.Context) ([]stake.AccountSummary, error)
	Deactivate(ctx context.Context, stakeAddress string) (*stake.DeactivateResult, error)
	Withdraw(ctx context.Context, stakeAddress string) (*stake.WithdrawResult, error)
}

// handleGetBalance returns a handler that reports the agent wallet's SOL balance.
// GET /api/v1/balance
func handleGetBalance(chainClient *chain.Client, w *wallet.Wallet, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		lamports, err := chainClient.Balance(r.Context(), w.PublicKey())
		if err != nil {
			logger.Error("failed to fetch balance", "address", w.Address(), "error", err)
			writeError(rw, "failed to fetch balance", http.StatusBadGateway)
			return
		}

		writeJSON(rw, map[string]interface{}{
			"address":  w.Address(),
			"lamports": lamports,
			"sol":      wallet.ToSOL(lamports),
		}, http.StatusOK)
	})
}

// handleQuote returns a handler that fetches a swap quote without executing.
// GET /api/v1/quote?input={asset}&output={asset}&amount={base_units}&slippage_bps={bps}
func handleQuote(swaps Swapper, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		input := r.URL.Query().Get("input")
		output := r.URL.Query().Get("output")
		if input == "" || output == "" {
			writeError(w, "input and output are required", http.StatusBadRequest)
			return
		}

		amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
		if err != nil || amount == 0 {
			writeError(w, "amount must be a positive integer in base units", http.StatusBadRequest)
			return
		}

		slippageBps := 0
		if s := r.URL.Query().Get("slippage_bps"); s != "" {
			slippageBps, err = strconv.Atoi(s)
			if err != nil || slippageBps < 0 {
				writeError(w, "slippage_bps must be a non-negative integer", http.StatusBadRequest)
				return
			}
		}

		quote, err := swaps.GetQuote(r.Context(), input, output, amount, slippageBps)
		if err != nil {
			logger.Error("quote failed", "input", input, "output", output, "error", err)
			writeSwapError(w, err)
			return
		}

		writeJSON(w, quote, http.StatusOK)
	})
}

// handleSwap returns a handler that executes a token swap via Jupiter.
// POST /api/v1/swap
func handleSwap(swaps Swapper, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input       string `json:"input"`
			Output      string `json:"output"`
			Amount      uint64 `json:"amount"`
			SlippageBps int    `json:"slippage_bps"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Input == "" || req.Output == "" {
			writeError(w, "input and output are required", http.StatusBadRequest)
			return
		}
		if req.Amount == 0 {
			writeError(w, "amount must be a positive integer in base units", http.StatusBadRequest)
			return
		}
		if req.SlippageBps < 0 {
			writeError(w, "slippage_bps must be non-negative", http.StatusBadRequest)
			return
		}

		result, err := swaps.Swap(r.Context(), req.Input, req.Output, req.Amount, req.SlippageBps)
		if err != nil {
			logger.Error("swap failed", "input", req.Input, "output", req.Output, "amount", req.Amount, "error", err)
			writeSwapError(w, err)
			return
		}

		logger.Info("swap executed", "signature", result.Signature, "input", req.Input, "output", req.Output)
		writeJSON(w, result, http.StatusOK)
	})
}

// handleGetPrice returns a handler that reports an asset's indicative USDC price.
// GET /api/v1/price/{asset}
func handleGetPrice(swaps Swapper, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		asset := r.PathValue("asset")
		if asset == "" {
			writeError(w, "asset is required", http.StatusBadRequest)
			return
		}

		price, err := swaps.Price(r.Context(), asset)
		if err != nil {
			logger.Error("price lookup failed", "asset", asset, "error", err)
			writeSwapError(w, err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"asset":      asset,
			"price_usdc": price,
		}, http.StatusOK)
	})
}

// handleTransfer returns a handler that sends SOL or an SPL token from the
// agent wallet. The asset field selects the mode: absent or "SOL" sends
// native SOL with amount_sol in whole SOL; anything else sends the token with
// amount in the token's base units.
// POST /api/v1/transfer
func handleTransfer(transfers Transferrer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To        string  `json:"to"`
			Asset     string  `json:"asset"`
			AmountSOL float64 `json:"amount_sol"`
			Amount    uint64  `json:"amount"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.To); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		var result *transfer.Result
		var err error
		if req.Asset == "" || req.Asset == "SOL" || req.Asset == "sol" {
			if req.AmountSOL <= 0 {
				writeError(w, "amount_sol must be positive", http.StatusBadRequest)
				return
			}
			result, err = transfers.SendNative(r.Context(), req.To, req.AmountSOL)
		} else {
			if req.Amount == 0 {
				writeError(w, "amount must be a positive integer in base units", http.StatusBadRequest)
				return
			}
			result, err = transfers.SendToken(r.Context(), req.To, req.Amount, req.Asset)
		}
		if err != nil {
			logger.Error("transfer failed", "to", req.To, "asset", req.Asset, "error", err)
			writeError(w, fmt.Sprintf("transfer failed: %v", err), http.StatusBadGateway)
			return
		}

		logger.Info("transfer executed", "signature", result.Signature, "to", req.To, "asset", result.Asset)
		writeJSON(w, result, http.StatusOK)
	})
}

// handleStake returns a handler that delegates SOL to a validator.
// POST /api/v1/stake
func handleStake(stakes Staker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Validator string  `json:"validator"`
			AmountSOL float64 `json:"amount_sol"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Validator == "" {
			writeError(w, "validator is required", http.StatusBadRequest)
			return
		}
		if req.AmountSOL <= 0 {
			writeError(w, "amount_sol must be positive", http.StatusBadRequest)
			return
		}

		result, err := stakes.Delegate(r.Context(), req.Validator, req.AmountSOL)
		if err != nil {
			logger.Error("stake delegation failed", "validator", req.Validator, "amount_sol", req.AmountSOL, "error", err)
			writeError(w, fmt.Sprintf("stake failed: %v", err), http.StatusBadGateway)
			return
		}

		logger.Info("stake delegated", "signature", result.Signature, "stake_account", result.StakeAccount, "validator", result.Validator)
		writeJSON(w, result, http.StatusOK)
	})
}

// handleStakeAccounts returns a handler that lists the wallet's stake accounts.
// GET /api/v1/stake-accounts
func handleStakeAccounts(stakes Staker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accounts, err := stakes.Accounts(r.Context())
		if err != nil {
			logger.Error("failed to list stake accounts", "error", err)
			writeError(w, "failed to list stake accounts", http.StatusBadGateway)
			return
		}

		if accounts == nil {
			accounts = []stake.AccountSummary{}
		}
		writeJSON(w, map[string]interface{}{
			"accounts": accounts,
			"count":    len(accounts),
		}, http.StatusOK)
	})
}

// handleUnstake returns a handler that deactivates a stake account.
// POST /api/v1/unstake
func handleUnstake(stakes Staker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StakeAccount string `json:"stake_account"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.StakeAccount); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := stakes.Deactivate(r.Context(), req.StakeAccount)
		if err != nil {
			logger.Error("stake deactivation failed", "stake_account", req.StakeAccount, "error", err)
			writeError(w, fmt.Sprintf("unstake failed: %v", err), http.StatusBadGateway)
			return
		}

		logger.Info("stake deactivated", "signature", result.Signature, "stake_account", result.StakeAccount)
		writeJSON(w, result, http.StatusOK)
	})
}

// handleWithdraw returns a handler that withdraws a deactivated stake
// account's full balance back to the wallet.
// POST /api/v1/withdraw
func handleWithdraw(stakes Staker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StakeAccount string `json:"stake_account"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.StakeAccount); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := stakes.Withdraw(r.Context(), req.StakeAccount)
		if err != nil {
			logger.Error("stake withdrawal failed", "stake_account", req.StakeAccount, "error", err)
			writeError(w, fmt.Sprintf("withdraw failed: %v", err), http.StatusBadGateway)
			return
		}

		logger.Info("stake withdrawn", "signature", result.Signature, "stake_account", result.StakeAccount, "lamports", result.Lamports)
		writeJSON(w, result, http.StatusOK)
	})
}

// handlePortfolio returns a handler that proxies a portfolio lookup upstream.
// GET /api/v1/portfolio/{address}
func handlePortfolio(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := validateAddress(address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		body, err := client.Portfolio(r.Context(), address)
		if err != nil {
			logger.Error("portfolio lookup failed", "address", address, "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handlePortfolioQuote returns a handler that proxies a quote request to the
// portfolio service.
// POST /api/v1/portfolio/quote
func handlePortfolioQuote(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req portfolio.QuoteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		body, err := client.Quote(r.Context(), req)
		if err != nil {
			logger.Error("portfolio quote failed", "input_mint", req.InputMint, "output_mint", req.OutputMint, "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handlePortfolioSwap returns a handler that proxies a swap execution to the
// portfolio service.
// POST /api/v1/portfolio/swap
func handlePortfolioSwap(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req portfolio.SwapRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		body, err := client.Swap(r.Context(), req)
		if err != nil {
			logger.Error("portfolio swap failed", "input_mint", req.InputMint, "output_mint", req.OutputMint, "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handlePortfolioPrice returns a handler that proxies a single-mint price
// lookup upstream.
// GET /api/v1/portfolio/price/{mint}
func handlePortfolioPrice(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateAddress(mint); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		body, err := client.Price(r.Context(), mint)
		if err != nil {
			logger.Error("portfolio price lookup failed", "mint", mint, "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handlePortfolioPrices returns a handler that proxies a bulk price lookup
// upstream.
// POST /api/v1/portfolio/prices
func handlePortfolioPrices(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mints []string `json:"mints"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Mints) == 0 {
			writeError(w, "mints is required", http.StatusBadRequest)
			return
		}
		for _, mint := range req.Mints {
			if err := validateAddress(mint); err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		body, err := client.Prices(r.Context(), req.Mints)
		if err != nil {
			logger.Error("portfolio bulk price lookup failed", "mints", len(req.Mints), "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handleCreateLimitOrder returns a handler that places a limit order upstream.
// POST /api/v1/limit-orders
func handleCreateLimitOrder(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req portfolio.LimitOrderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		body, err := client.CreateLimitOrder(r.Context(), req)
		if err != nil {
			logger.Error("limit order creation failed", "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handleListLimitOrders returns a handler that lists the agent wallet's open
// limit orders.
// GET /api/v1/limit-orders
func handleListLimitOrders(client *portfolio.Client, wlt *wallet.Wallet, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := client.ListLimitOrders(r.Context(), wlt.Address())
		if err != nil {
			logger.Error("limit order listing failed", "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handleCancelLimitOrder returns a handler that cancels a limit order upstream.
// DELETE /api/v1/limit-orders/{id}
func handleCancelLimitOrder(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orderID := r.PathValue("id")
		if orderID == "" {
			writeError(w, "order id is required", http.StatusBadRequest)
			return
		}

		body, err := client.CancelLimitOrder(r.Context(), orderID)
		if err != nil {
			logger.Error("limit order cancellation failed", "order_id", orderID, "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handleRegisterAgent returns a handler that registers this agent with the
// portfolio service.
// POST /api/v1/agents
func handleRegisterAgent(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req portfolio.AgentRegistration
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		body, err := client.RegisterAgent(r.Context(), req)
		if err != nil {
			logger.Error("agent registration failed", "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// handleAgentInfo returns a handler that fetches an agent's upstream record.
// GET /api/v1/agents/{id}
func handleAgentInfo(client *portfolio.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentID := r.PathValue("id")
		if agentID == "" {
			writeError(w, "agent id is required", http.StatusBadRequest)
			return
		}

		body, err := client.AgentInfo(r.Context(), agentID)
		if err != nil {
			logger.Error("agent info lookup failed", "agent_id", agentID, "error", err)
			writeUpstreamError(w, err)
			return
		}

		writeRaw(w, body, http.StatusOK)
	})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeRaw forwards an upstream JSON payload verbatim.
func writeRaw(w http.ResponseWriter, body json.RawMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeSwapError maps Jupiter client errors to HTTP statuses. A 4xx from
// the quote endpoint means the request itself was bad (unknown mint, dust
// amount) and is reported as such; everything else is an upstream failure.
func writeSwapError(w http.ResponseWriter, err error) {
	var qe *swap.QuoteError
	if errors.As(err, &qe) && qe.StatusCode >= 400 && qe.StatusCode < 500 {
		writeError(w, qe.Error(), http.StatusBadRequest)
		return
	}
	writeError(w, err.Error(), http.StatusBadGateway)
}

// writeUpstreamError forwards the status code of a portfolio service error,
// falling back to 502 for transport failures.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *portfolio.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Error(), apiErr.StatusCode)
		return
	}
	writeError(w, err.Error(), http.StatusBadGateway)
}

// validateAddress validates a Solana account address.
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}
	if len(address) > maxAddressLength {
		return fmt.Errorf("address too long: maximum length is %d characters", maxAddressLength)
	}
	if !validAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid address format: must be base58")
	}
	return nil
}
