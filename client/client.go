// Package client provides a Go client for the solagent HTTP API. It mirrors
// the server's routes one-to-one so programs can drive the agent without
// handling Solana primitives themselves.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"solagent/service/stake"
	"solagent/service/swap"
	"solagent/service/transfer"
)

// Balance is the agent wallet's native balance.
type Balance struct {
	Address  string  `json:"address"`
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
}

// Price is an asset's indicative USDC price.
type Price struct {
	Asset     string  `json:"asset"`
	PriceUSDC float64 `json:"price_usdc"`
}

// StakeAccounts is the server's stake account listing.
type StakeAccounts struct {
	Accounts []stake.AccountSummary `json:"accounts"`
	Count    int                    `json:"count"`
}

// SwapRequest describes a swap to execute.
type SwapRequest struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Amount      uint64 `json:"amount"`
	SlippageBps int    `json:"slippage_bps,omitempty"`
}

// TransferRequest describes a transfer. Leave Asset empty (or "SOL") and set
// AmountSOL for a native transfer; set Asset and Amount (base units) for an
// SPL token transfer.
type TransferRequest struct {
	To        string  `json:"to"`
	Asset     string  `json:"asset,omitempty"`
	AmountSOL float64 `json:"amount_sol,omitempty"`
	Amount    uint64  `json:"amount,omitempty"`
}

// StakeRequest describes a delegation to a validator.
type StakeRequest struct {
	Validator string  `json:"validator"`
	AmountSOL float64 `json:"amount_sol"`
}

// Client is the HTTP client for the solagent service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new solagent service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 150 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Balance fetches the agent wallet's SOL balance.
func (c *Client) Balance(ctx context.Context) (*Balance, error) {
	var out Balance
	if err := c.get(ctx, "/api/v1/balance", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quote fetches a swap quote without executing it. amount is in the input
// asset's base units; a slippageBps of zero selects the server default.
func (c *Client) Quote(ctx context.Context, input, output string, amount uint64, slippageBps int) (*swap.Quote, error) {
	q := url.Values{}
	q.Set("input", input)
	q.Set("output", output)
	q.Set("amount", fmt.Sprintf("%d", amount))
	if slippageBps > 0 {
		q.Set("slippage_bps", fmt.Sprintf("%d", slippageBps))
	}

	var out swap.Quote
	if err := c.get(ctx, "/api/v1/quote?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Swap executes a token swap and blocks until on-chain confirmation.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (*swap.Result, error) {
	var out swap.Result
	if err := c.post(ctx, "/api/v1/swap", req, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("swap executed", "signature", out.Signature)
	return &out, nil
}

// Price fetches an asset's indicative USDC price.
func (c *Client) Price(ctx context.Context, asset string) (*Price, error) {
	var out Price
	if err := c.get(ctx, "/api/v1/price/"+url.PathEscape(asset), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transfer sends SOL or an SPL token from the agent wallet.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*transfer.Result, error) {
	var out transfer.Result
	if err := c.post(ctx, "/api/v1/transfer", req, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("transfer executed", "signature", out.Signature)
	return &out, nil
}

// Stake delegates SOL to a validator via a new stake account.
func (c *Client) Stake(ctx context.Context, req StakeRequest) (*stake.DelegateResult, error) {
	var out stake.DelegateResult
	if err := c.post(ctx, "/api/v1/stake", req, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("stake delegated", "signature", out.Signature, "stake_account", out.StakeAccount)
	return &out, nil
}

// StakeAccounts lists the agent wallet's stake accounts.
func (c *Client) StakeAccounts(ctx context.Context) (*StakeAccounts, error) {
	var out StakeAccounts
	if err := c.get(ctx, "/api/v1/stake-accounts", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unstake deactivates a stake account.
func (c *Client) Unstake(ctx context.Context, stakeAccount string) (*stake.DeactivateResult, error) {
	var out stake.DeactivateResult
	req := map[string]string{"stake_account": stakeAccount}
	if err := c.post(ctx, "/api/v1/unstake", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw withdraws a deactivated stake account's balance to the wallet.
func (c *Client) Withdraw(ctx context.Context, stakeAccount string) (*stake.WithdrawResult, error) {
	var out stake.WithdrawResult
	req := map[string]string{"stake_account": stakeAccount}
	if err := c.post(ctx, "/api/v1/withdraw", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Portfolio fetches the portfolio breakdown for a wallet address. Requires
// the server to have the portfolio service configured.
func (c *Client) Portfolio(ctx context.Context, address string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/api/v1/portfolio/"+url.PathEscape(address), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PortfolioQuote requests a swap quote from the portfolio service. The quote
// body is forwarded verbatim.
func (c *Client) PortfolioQuote(ctx context.Context, quote map[string]interface{}) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.post(ctx, "/api/v1/portfolio/quote", quote, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PortfolioSwap executes a swap through the portfolio service. The swap body
// is forwarded verbatim.
func (c *Client) PortfolioSwap(ctx context.Context, swapBody map[string]interface{}) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.post(ctx, "/api/v1/portfolio/swap", swapBody, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PortfolioPrice fetches the portfolio service's price for a single mint.
func (c *Client) PortfolioPrice(ctx context.Context, mint string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/api/v1/portfolio/price/"+url.PathEscape(mint), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PortfolioPrices fetches portfolio-service prices for several mints at once.
func (c *Client) PortfolioPrices(ctx context.Context, mints []string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.post(ctx, "/api/v1/portfolio/prices", map[string][]string{"mints": mints}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLimitOrders lists the agent wallet's open limit orders.
func (c *Client) ListLimitOrders(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/api/v1/limit-orders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLimitOrder places a limit order through the portfolio service.
func (c *Client) CreateLimitOrder(ctx context.Context, order map[string]interface{}) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.post(ctx, "/api/v1/limit-orders", order, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelLimitOrder cancels a limit order by id.
func (c *Client) CancelLimitOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/api/v1/limit-orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var out json.RawMessage
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseErrorResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse extracts the error message from the server's JSON error
// envelope, falling back to the status text for anything unparseable.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
}
