package portfolio

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQuote_SendsBearerToken(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody QuoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/quote", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"outAmount":"42"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", nil, nil, discardLogger())

	raw, err := c.Quote(context.Background(), QuoteRequest{
		InputMint:   "So11111111111111111111111111111111111111112",
		OutputMint:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Amount:      "1000000000",
		SlippageBps: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "1000000000", gotBody.Amount)
	assert.JSONEq(t, `{"outAmount":"42"}`, string(raw))
}

func TestPortfolio_PathEscapesWallet(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"holdings":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", nil, nil, discardLogger())
	_, err := c.Portfolio(context.Background(), "4Nd1mY5ZyCVzBPo9cEjqe1DsXbKRVGPA5i1kXJ7YbGuq")
	require.NoError(t, err)
	assert.Equal(t, "/v1/portfolio/4Nd1mY5ZyCVzBPo9cEjqe1DsXbKRVGPA5i1kXJ7YbGuq", gotPath)
}

func TestPrices_BulkRequest(t *testing.T) {
	var gotBody map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/prices", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"prices":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", nil, nil, discardLogger())
	_, err := c.Prices(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, gotBody["mints"])
}

func TestLimitOrders_Lifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/limit-orders":
			w.Write([]byte(`{"id":"order-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/limit-orders":
			assert.Equal(t, "w1", r.URL.Query().Get("wallet"))
			w.Write([]byte(`{"orders":[{"id":"order-1"}]}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/limit-orders/order-1":
			w.Write([]byte(`{"id":"order-1","status":"cancelled"}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", nil, nil, discardLogger())
	ctx := context.Background()

	created, err := c.CreateLimitOrder(ctx, LimitOrderRequest{InputMint: "a", OutputMint: "b", MakingAmount: "1", TakingAmount: "2", Wallet: "w1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"order-1"}`, string(created))

	listed, err := c.ListLimitOrders(ctx, "w1")
	require.NoError(t, err)
	assert.Contains(t, string(listed), "order-1")

	cancelled, err := c.CancelLimitOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Contains(t, string(cancelled), "cancelled")
}

func TestAgent_RegisterAndInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/agents":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"agent-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/agents/agent-1":
			w.Write([]byte(`{"id":"agent-1","name":"bot"}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", nil, nil, discardLogger())

	created, err := c.RegisterAgent(context.Background(), AgentRegistration{Name: "bot", Wallet: "w1"})
	require.NoError(t, err)
	assert.Contains(t, string(created), "agent-1")

	info, err := c.AgentInfo(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Contains(t, string(info), "bot")
}

func TestAPIError_WrapsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "wrong-key", nil, nil, discardLogger())

	_, err := c.Portfolio(context.Background(), "w1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "unauthorized")
}
