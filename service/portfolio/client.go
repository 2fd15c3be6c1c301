// Package portfolio is a thin client for the external portfolio/limit-order
// service. Every method is a direct HTTP passthrough: JSON in, JSON out,
// with a uniform error wrapping on non-success status. Responses are
// surfaced as raw JSON so callers relay them without reshaping.
package portfolio

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

	"solagent/service/metrics"
)

const errorBodySnippetLen = 220

// APIError is returned for any non-2xx response from the portfolio service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portfolio service returned status %d: %s", e.StatusCode, e.Body)
}

// Client is an authenticated HTTP client for the portfolio service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a portfolio service client. If httpClient is nil a
// 30-second-timeout client is used. If m is nil, no metrics are recorded.
func NewClient(baseURL, apiKey string, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
		metrics: m,
	}
}

// QuoteRequest parameters for a portfolio-service swap quote.
type QuoteRequest struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      string `json:"amount"`
	SlippageBps int    `json:"slippageBps,omitempty"`
}

// SwapRequest parameters for a portfolio-service swap execution.
type SwapRequest struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      string `json:"amount"`
	SlippageBps int    `json:"slippageBps,omitempty"`
	Wallet      string `json:"wallet"`
}

// LimitOrderRequest parameters for creating a limit order.
type LimitOrderRequest struct {
	InputMint    string `json:"inputMint"`
	OutputMint   string `json:"outputMint"`
	MakingAmount string `json:"makingAmount"`
	TakingAmount string `json:"takingAmount"`
	Wallet       string `json:"wallet"`
}

// AgentRegistration parameters for registering an agent.
type AgentRegistration struct {
	Name   string `json:"name"`
	Wallet string `json:"wallet"`
}

// Quote requests a swap quote.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/v1/quote", "quote", req)
}

// Swap executes a swap through the portfolio service.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/v1/swap", "swap", req)
}

// Portfolio fetches the holdings of a wallet.
func (c *Client) Portfolio(ctx context.Context, walletAddress string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/v1/portfolio/"+url.PathEscape(walletAddress), "portfolio", nil)
}

// Price fetches the price of a single mint.
func (c *Client) Price(ctx context.Context, mint string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/v1/price/"+url.PathEscape(mint), "price", nil)
}

// Prices fetches prices for multiple mints in one call.
func (c *Client) Prices(ctx context.Context, mints []string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/v1/prices", "prices", map[string][]string{"mints": mints})
}

// CreateLimitOrder places a limit order.
func (c *Client) CreateLimitOrder(ctx context.Context, req LimitOrderRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/v1/limit-orders", "limit_order_create", req)
}

// ListLimitOrders lists the open limit orders for a wallet.
func (c *Client) ListLimitOrders(ctx context.Context, walletAddress string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/v1/limit-orders?wallet="+url.QueryEscape(walletAddress), "limit_order_list", nil)
}

// CancelLimitOrder cancels a limit order by id.
func (c *Client) CancelLimitOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, "/v1/limit-orders/"+url.PathEscape(orderID), "limit_order_cancel", nil)
}

// RegisterAgent registers an agent with the service.
func (c *Client) RegisterAgent(ctx context.Context, req AgentRegistration) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/v1/agents", "agent_register", req)
}

// AgentInfo fetches the registration record of an agent.
func (c *Client) AgentInfo(ctx context.Context, agentID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/v1/agents/"+url.PathEscape(agentID), "agent_info", nil)
}

// do performs one authenticated request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, path, endpoint string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest("portfolio", endpoint, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamRequest("portfolio", endpoint, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordUpstreamRequest("portfolio", endpoint, "error", time.Since(start).Seconds())
		snippet := string(respBody)
		if len(snippet) > errorBodySnippetLen {
			snippet = snippet[:errorBodySnippetLen]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: snippet}
	}
	c.metrics.RecordUpstreamRequest("portfolio", endpoint, "success", time.Since(start).Seconds())

	c.logger.DebugContext(ctx, "portfolio service call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
	)

	return json.RawMessage(respBody), nil
}
