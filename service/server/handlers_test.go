package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solagent/service/stake"
	"solagent/service/swap"
	"solagent/service/transfer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubSwapper implements Swapper with overridable funcs.
type stubSwapper struct {
	getQuote func(ctx context.Context, in, out string, amount uint64, bps int) (*swap.Quote, error)
	doSwap   func(ctx context.Context, in, out string, amount uint64, bps int) (*swap.Result, error)
	price    func(ctx context.Context, asset string) (float64, error)
}

func (s *stubSwapper) GetQuote(ctx context.Context, in, out string, amount uint64, bps int) (*swap.Quote, error) {
	return s.getQuote(ctx, in, out, amount, bps)
}

func (s *stubSwapper) Swap(ctx context.Context, in, out string, amount uint64, bps int) (*swap.Result, error) {
	return s.doSwap(ctx, in, out, amount, bps)
}

func (s *stubSwapper) Price(ctx context.Context, asset string) (float64, error) {
	return s.price(ctx, asset)
}

type stubTransferrer struct {
	sendNative func(ctx context.Context, to string, amountSOL float64) (*transfer.Result, error)
	sendToken  func(ctx context.Context, to string, amount uint64, asset string) (*transfer.Result, error)
}

func (s *stubTransferrer) SendNative(ctx context.Context, to string, amountSOL float64) (*transfer.Result, error) {
	return s.sendNative(ctx, to, amountSOL)
}

func (s *stubTransferrer) SendToken(ctx context.Context, to string, amount uint64, asset string) (*transfer.Result, error) {
	return s.sendToken(ctx, to, amount, asset)
}

type stubStaker struct {
	delegate   func(ctx context.Context, validator string, amountSOL float64) (*stake.DelegateResult, error)
	accounts   func(ctx context.Context) ([]stake.AccountSummary, error)
	deactivate func(ctx context.Context, addr string) (*stake.DeactivateResult, error)
	withdraw   func(ctx context.Context, addr string) (*stake.WithdrawResult, error)
}

func (s *stubStaker) Delegate(ctx context.Context, validator string, amountSOL float64) (*stake.DelegateResult, error) {
	return s.delegate(ctx, validator, amountSOL)
}

func (s *stubStaker) Accounts(ctx context.Context) ([]stake.AccountSummary, error) {
	return s.accounts(ctx)
}

func (s *stubStaker) Deactivate(ctx context.Context, addr string) (*stake.DeactivateResult, error) {
	return s.deactivate(ctx, addr)
}

func (s *stubStaker) Withdraw(ctx context.Context, addr string) (*stake.WithdrawResult, error) {
	return s.withdraw(ctx, addr)
}

const testRecipient = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func TestHandleSwap_ValidationAndPassthrough(t *testing.T) {
	swaps := &stubSwapper{
		doSwap: func(ctx context.Context, in, out string, amount uint64, bps int) (*swap.Result, error) {
			return &swap.Result{
				Signature:  "sig123",
				InputMint:  in,
				OutputMint: out,
				InAmount:   "1000000000",
				OutAmount:  "24500000",
			}, nil
		},
	}
	handler := handleSwap(swaps, testLogger())

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "valid swap",
			body:           `{"input":"SOL","output":"USDC","amount":1000000000}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing output",
			body:           `{"input":"SOL","amount":1000000000}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero amount",
			body:           `{"input":"SOL","output":"USDC","amount":0}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative slippage",
			body:           `{"input":"SOL","output":"USDC","amount":1,"slippage_bps":-5}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown field rejected",
			body:           `{"input":"SOL","output":"USDC","amount":1,"bogus":true}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"input":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/swap", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code, "body: %s", rec.Body.String())
		})
	}
}

func TestHandleSwap_QuoteRejectionIsBadRequest(t *testing.T) {
	swaps := &stubSwapper{
		doSwap: func(ctx context.Context, in, out string, amount uint64, bps int) (*swap.Result, error) {
			return nil, &swap.QuoteError{StatusCode: 400, Body: "no route for input mint"}
		},
	}
	handler := handleSwap(swaps, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap", strings.NewReader(`{"input":"SOL","output":"USDC","amount":1000}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no route")
}

func TestHandleSwap_UpstreamOutageIsBadGateway(t *testing.T) {
	swaps := &stubSwapper{
		doSwap: func(ctx context.Context, in, out string, amount uint64, bps int) (*swap.Result, error) {
			return nil, &swap.QuoteError{StatusCode: 503, Body: "maintenance"}
		},
	}
	handler := handleSwap(swaps, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap", strings.NewReader(`{"input":"SOL","output":"USDC","amount":1000}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleTransfer_SelectsNativeOrToken(t *testing.T) {
	var gotNative, gotToken bool
	transfers := &stubTransferrer{
		sendNative: func(ctx context.Context, to string, amountSOL float64) (*transfer.Result, error) {
			gotNative = true
			assert.Equal(t, 1.5, amountSOL)
			return &transfer.Result{Signature: "sig", To: to, Asset: "SOL"}, nil
		},
		sendToken: func(ctx context.Context, to string, amount uint64, asset string) (*transfer.Result, error) {
			gotToken = true
			assert.Equal(t, uint64(250000), amount)
			assert.Equal(t, "USDC", asset)
			return &transfer.Result{Signature: "sig", To: to, Asset: asset}, nil
		},
	}
	handler := handleTransfer(transfers, testLogger())

	body := fmt.Sprintf(`{"to":%q,"amount_sol":1.5}`, testRecipient)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, gotNative)
	assert.False(t, gotToken)

	gotNative, gotToken = false, false
	body = fmt.Sprintf(`{"to":%q,"asset":"USDC","amount":250000}`, testRecipient)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/transfer", strings.NewReader(body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, gotToken)
	assert.False(t, gotNative)
}

func TestHandleTransfer_RejectsBadAddress(t *testing.T) {
	transfers := &stubTransferrer{}
	handler := handleTransfer(transfers, testLogger())

	tests := []struct {
		name string
		to   string
	}{
		{"empty", ""},
		{"non-base58", "not_an_address!"},
		{"too long", strings.Repeat("A", 120)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{"to":%q,"amount_sol":1}`, tt.to)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transfer", strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleStake_Validation(t *testing.T) {
	stakes := &stubStaker{
		delegate: func(ctx context.Context, validator string, amountSOL float64) (*stake.DelegateResult, error) {
			return &stake.DelegateResult{Signature: "sig", StakeAccount: "acct", Validator: validator, AmountSOL: amountSOL}, nil
		},
	}
	handler := handleStake(stakes, testLogger())

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"valid", `{"validator":"everstake","amount_sol":2.5}`, http.StatusOK},
		{"missing validator", `{"amount_sol":2.5}`, http.StatusBadRequest},
		{"zero amount", `{"validator":"everstake","amount_sol":0}`, http.StatusBadRequest},
		{"negative amount", `{"validator":"everstake","amount_sol":-1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/stake", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleStakeAccounts_EmptyListIsNotNull(t *testing.T) {
	stakes := &stubStaker{
		accounts: func(ctx context.Context) ([]stake.AccountSummary, error) {
			return nil, nil
		},
	}
	handler := handleStakeAccounts(stakes, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stake-accounts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Accounts []stake.AccountSummary `json:"accounts"`
		Count    int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Accounts)
	assert.Equal(t, 0, resp.Count)
	assert.Contains(t, rec.Body.String(), `"accounts":[]`)
}

func TestHandleQuote_QueryParams(t *testing.T) {
	swaps := &stubSwapper{
		getQuote: func(ctx context.Context, in, out string, amount uint64, bps int) (*swap.Quote, error) {
			assert.Equal(t, "SOL", in)
			assert.Equal(t, "USDC", out)
			assert.Equal(t, uint64(1000000000), amount)
			assert.Equal(t, 100, bps)
			return &swap.Quote{InAmount: "1000000000", OutAmount: "24500000"}, nil
		},
	}
	handler := handleQuote(swaps, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quote?input=SOL&output=USDC&amount=1000000000&slippage_bps=100", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "24500000")
}

func TestHandleQuote_RejectsBadAmount(t *testing.T) {
	handler := handleQuote(&stubSwapper{}, testLogger())

	for _, amount := range []string{"", "0", "-5", "abc", "1.5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/quote?input=SOL&output=USDC&amount="+amount, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "amount=%q", amount)
	}
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/swap", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
