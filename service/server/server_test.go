package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solagent/service/portfolio"
)

func TestHandler_PortfolioRoutesAreConditional(t *testing.T) {
	logger := testLogger()

	without := New(":0", nil, nil, &stubSwapper{}, &stubTransferrer{}, &stubStaker{}, nil, nil, logger).Handler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/"+testRecipient, nil)
	rec := httptest.NewRecorder()
	without.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	pf := portfolio.NewClient("http://localhost:1", "key", nil, nil, logger)
	with := New(":0", nil, nil, &stubSwapper{}, &stubTransferrer{}, &stubStaker{}, pf, nil, logger).Handler()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/"+testRecipient, nil)
	rec = httptest.NewRecorder()
	with.ServeHTTP(rec, req)
	// The upstream is unreachable; the point is the route exists.
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

func TestHandler_PortfolioPassthroughRoutes(t *testing.T) {
	var upstreamCalls []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		upstreamCalls = append(upstreamCalls, r.Method+" "+r.URL.Path)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	pf := portfolio.NewClient(upstream.URL, "key", nil, nil, testLogger())
	h := New(":0", nil, nil, &stubSwapper{}, &stubTransferrer{}, &stubStaker{}, pf, nil, testLogger()).Handler()

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var rd io.Reader
		if body != "" {
			rd = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, rd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/v1/portfolio/quote",
		`{"inputMint":"`+testRecipient+`","outputMint":"`+testRecipient+`","amount":"1000000"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = do(http.MethodPost, "/api/v1/portfolio/swap",
		`{"inputMint":"`+testRecipient+`","outputMint":"`+testRecipient+`","amount":"1000000","wallet":"`+testRecipient+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/api/v1/portfolio/price/"+testRecipient, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPost, "/api/v1/portfolio/prices", `{"mints":["`+testRecipient+`"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Each route forwarded to its upstream counterpart exactly once.
	assert.Equal(t, []string{
		"POST /v1/quote",
		"POST /v1/swap",
		"GET /v1/price/" + testRecipient,
		"POST /v1/prices",
	}, upstreamCalls)
}

func TestHandler_PortfolioPassthroughValidation(t *testing.T) {
	pf := portfolio.NewClient("http://localhost:1", "key", nil, nil, testLogger())
	h := New(":0", nil, nil, &stubSwapper{}, &stubTransferrer{}, &stubStaker{}, pf, nil, testLogger()).Handler()

	t.Run("prices requires at least one mint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/prices", strings.NewReader(`{"mints":[]}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("prices rejects malformed mints", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/prices", strings.NewReader(`{"mints":["not-a-mint!"]}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("price rejects malformed mint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/price/0invalid0", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Health(t *testing.T) {
	h := New(":0", nil, nil, &stubSwapper{}, &stubTransferrer{}, &stubStaker{}, nil, nil, testLogger()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
