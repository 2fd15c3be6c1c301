// Package swap orchestrates token swaps through the Jupiter aggregator:
// fetch a quote, ask Jupiter to build the unsigned transaction, sign it
// with the wallet key, submit it and wait for confirmation.
package swap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"solagent/service/assets"
	"solagent/service/chain"
	"solagent/service/metrics"
	"solagent/service/wallet"
)

const (
	// Fixed decimal assumptions carried over from the upstream design:
	// nine decimals for the native asset, six for everything else. Tokens
	// with other decimal counts will price incorrectly; see DESIGN.md.
	nativeUnitFactor = 1_000_000_000
	tokenUnitFactor  = 1_000_000

	defaultSlippageBps = 50

	errorBodySnippetLen = 220
)

// Client talks to the Jupiter v6 HTTP API and the Solana ledger.
type Client struct {
	base        string
	http        *http.Client
	chain       *chain.Client
	wallet      *wallet.Wallet
	slippageBps int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewClient creates a Jupiter swap client. slippageBps is the default
// slippage applied when a caller passes zero. If httpClient is nil a
// 30-second-timeout client is used. If m is nil, no metrics are recorded.
func NewClient(baseURL string, httpClient *http.Client, chainClient *chain.Client, w *wallet.Wallet, slippageBps int, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if slippageBps <= 0 {
		slippageBps = defaultSlippageBps
	}
	return &Client{
		base:        baseURL,
		http:        httpClient,
		chain:       chainClient,
		wallet:      w,
		slippageBps: slippageBps,
		logger:      logger,
		metrics:     m,
	}
}

// Quote is a price quote from Jupiter. Raw holds the verbatim upstream
// payload, which the swap-build call requires unmodified.
type Quote struct {
	InputMint      string          `json:"inputMint"`
	OutputMint     string          `json:"outputMint"`
	InAmount       string          `json:"inAmount"`
	OutAmount      string          `json:"outAmount"`
	PriceImpactPct string          `json:"priceImpactPct"`
	RoutePlan      json.RawMessage `json:"routePlan"`

	Raw json.RawMessage `json:"-"`
}

// Result describes a completed swap.
type Result struct {
	Signature   string `json:"signature"`
	InputMint   string `json:"input_mint"`
	OutputMint  string `json:"output_mint"`
	InAmount    string `json:"in_amount"`
	OutAmount   string `json:"out_amount"`
	ExplorerURL string `json:"explorer_url"`
}

// GetQuote fetches a swap quote. Asset arguments may be symbols from the
// alias table or raw mint addresses; amount is in the input asset's base
// units. A slippageBps of zero selects the client default.
func (c *Client) GetQuote(ctx context.Context, inputAsset, outputAsset string, amount uint64, slippageBps int) (*Quote, error) {
	if slippageBps <= 0 {
		slippageBps = c.slippageBps
	}
	inputMint := assets.ResolveToken(inputAsset)
	outputMint := assets.ResolveToken(outputAsset)

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))
	u := c.base + "/v6/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest("jupiter", "quote", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamRequest("jupiter", "quote", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamRequest("jupiter", "quote", "error", time.Since(start).Seconds())
		return nil, &QuoteError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	c.metrics.RecordUpstreamRequest("jupiter", "quote", "success", time.Since(start).Seconds())

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	quote.Raw = body

	c.logger.DebugContext(ctx, "fetched quote",
		"input_mint", quote.InputMint,
		"output_mint", quote.OutputMint,
		"in_amount", quote.InAmount,
		"out_amount", quote.OutAmount,
	)

	return &quote, nil
}

// Swap quotes and executes a swap end to end. The returned result echoes
// the quoted amounts alongside the confirmed transaction signature.
func (c *Client) Swap(ctx context.Context, inputAsset, outputAsset string, amount uint64, slippageBps int) (*Result, error) {
	opStart := time.Now()
	res, err := c.swap(ctx, inputAsset, outputAsset, amount, slippageBps)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.RecordOperation("swap", outcome, time.Since(opStart).Seconds())
	return res, err
}

func (c *Client) swap(ctx context.Context, inputAsset, outputAsset string, amount uint64, slippageBps int) (*Result, error) {
	quote, err := c.GetQuote(ctx, inputAsset, outputAsset, amount, slippageBps)
	if err != nil {
		return nil, err
	}

	unsigned, err := c.buildSwapTransaction(ctx, quote)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(unsigned)
	if err != nil {
		return nil, fmt.Errorf("failed to decode swap transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize swap transaction: %w", err)
	}

	if _, err := tx.Sign(c.wallet.Signer()); err != nil {
		return nil, fmt.Errorf("failed to sign swap transaction: %w", err)
	}

	sig, err := c.chain.SubmitAndConfirm(ctx, tx)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "swap confirmed",
		"signature", sig.String(),
		"input_mint", quote.InputMint,
		"output_mint", quote.OutputMint,
	)

	return &Result{
		Signature:   sig.String(),
		InputMint:   quote.InputMint,
		OutputMint:  quote.OutputMint,
		InAmount:    quote.InAmount,
		OutAmount:   quote.OutAmount,
		ExplorerURL: c.chain.ExplorerURL(sig),
	}, nil
}

// buildSwapTransaction posts the verbatim quote payload to Jupiter's swap
// endpoint and returns the base64-encoded unsigned transaction.
func (c *Client) buildSwapTransaction(ctx context.Context, quote *Quote) (string, error) {
	payload := map[string]interface{}{
		"quoteResponse":    json.RawMessage(quote.Raw),
		"userPublicKey":    c.wallet.Address(),
		"wrapAndUnwrapSol": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v6/swap", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest("jupiter", "swap", "error", time.Since(start).Seconds())
		return "", fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamRequest("jupiter", "swap", "error", time.Since(start).Seconds())
		return "", fmt.Errorf("failed to read swap response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamRequest("jupiter", "swap", "error", time.Since(start).Seconds())
		return "", &SwapBuildError{StatusCode: resp.StatusCode, Body: snippet(respBody)}
	}
	c.metrics.RecordUpstreamRequest("jupiter", "swap", "success", time.Since(start).Seconds())

	var sr struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return "", fmt.Errorf("failed to decode swap response: %w", err)
	}
	if sr.SwapTransaction == "" {
		return "", fmt.Errorf("swap response contained no transaction")
	}
	return sr.SwapTransaction, nil
}

// Price derives the USDC price of one whole unit of the given asset by
// quoting it against USDC. The native asset is assumed to have nine
// decimals and every other token six.
func (c *Client) Price(ctx context.Context, asset string) (float64, error) {
	mint := assets.ResolveToken(asset)

	amount := uint64(tokenUnitFactor)
	if mint == assets.SolMint {
		amount = nativeUnitFactor
	}

	quote, err := c.GetQuote(ctx, mint, assets.USDCMint, amount, c.slippageBps)
	if err != nil {
		return 0, err
	}

	out, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse quoted amount %q: %w", quote.OutAmount, err)
	}
	return float64(out) / tokenUnitFactor, nil
}

func snippet(body []byte) string {
	if len(body) > errorBodySnippetLen {
		return string(body[:errorBodySnippetLen])
	}
	return string(body)
}
