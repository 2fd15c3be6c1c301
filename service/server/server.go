package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solagent/service/chain"
	"solagent/service/metrics"
	"solagent/service/portfolio"
	"solagent/service/wallet"
)

// Server is the HTTP front for the agent's orchestrators. Every route is a
// 1:1 mirror of one orchestrator operation.
type Server struct {
	addr      string
	chain     *chain.Client
	wallet    *wallet.Wallet
	swaps     Swapper
	transfers Transferrer
	stakes    Staker
	portfolio *portfolio.Client
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The portfolio client is optional - if nil, portfolio passthrough routes
// won't be registered. The metrics is optional - if nil, the /metrics
// endpoint won't be available.
func New(addr string, chainClient *chain.Client, w *wallet.Wallet, swaps Swapper, transfers Transferrer, stakes Staker, pf *portfolio.Client, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:      addr,
		chain:     chainClient,
		wallet:    w,
		swaps:     swaps,
		transfers: transfers,
		stakes:    stakes,
		portfolio: pf,
		metrics:   m,
		logger:    logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // submissions block until confirmation
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Handler builds the route table. Exposed separately so tests can exercise
// routing without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	wrap := func(name string, h http.Handler) http.Handler {
		return metrics.HTTPMiddleware(s.metrics, name)(h)
	}

	// Wallet routes
	mux.Handle("GET /api/v1/balance", wrap("/api/v1/balance", handleGetBalance(s.chain, s.wallet, s.logger)))

	// Swap routes
	mux.Handle("POST /api/v1/swap", wrap("/api/v1/swap", handleSwap(s.swaps, s.logger)))
	mux.Handle("GET /api/v1/quote", wrap("/api/v1/quote", handleQuote(s.swaps, s.logger)))
	mux.Handle("GET /api/v1/price/{asset}", wrap("/api/v1/price", handleGetPrice(s.swaps, s.logger)))

	// Transfer routes
	mux.Handle("POST /api/v1/transfer", wrap("/api/v1/transfer", handleTransfer(s.transfers, s.logger)))

	// Stake routes
	mux.Handle("POST /api/v1/stake", wrap("/api/v1/stake", handleStake(s.stakes, s.logger)))
	mux.Handle("GET /api/v1/stake-accounts", wrap("/api/v1/stake-accounts", handleStakeAccounts(s.stakes, s.logger)))
	mux.Handle("POST /api/v1/unstake", wrap("/api/v1/unstake", handleUnstake(s.stakes, s.logger)))
	mux.Handle("POST /api/v1/withdraw", wrap("/api/v1/withdraw", handleWithdraw(s.stakes, s.logger)))

	// Portfolio passthrough routes (if the portfolio service is configured)
	if s.portfolio != nil {
		mux.Handle("GET /api/v1/portfolio/{address}", wrap("/api/v1/portfolio", handlePortfolio(s.portfolio, s.logger)))
		mux.Handle("POST /api/v1/portfolio/quote", wrap("/api/v1/portfolio/quote", handlePortfolioQuote(s.portfolio, s.logger)))
		mux.Handle("POST /api/v1/portfolio/swap", wrap("/api/v1/portfolio/swap", handlePortfolioSwap(s.portfolio, s.logger)))
		mux.Handle("GET /api/v1/portfolio/price/{mint}", wrap("/api/v1/portfolio/price", handlePortfolioPrice(s.portfolio, s.logger)))
		mux.Handle("POST /api/v1/portfolio/prices", wrap("/api/v1/portfolio/prices", handlePortfolioPrices(s.portfolio, s.logger)))
		mux.Handle("POST /api/v1/limit-orders", wrap("/api/v1/limit-orders", handleCreateLimitOrder(s.portfolio, s.logger)))
		mux.Handle("GET /api/v1/limit-orders", wrap("/api/v1/limit-orders", handleListLimitOrders(s.portfolio, s.wallet, s.logger)))
		mux.Handle("DELETE /api/v1/limit-orders/{id}", wrap("/api/v1/limit-orders", handleCancelLimitOrder(s.portfolio, s.logger)))
		mux.Handle("POST /api/v1/agents", wrap("/api/v1/agents", handleRegisterAgent(s.portfolio, s.logger)))
		mux.Handle("GET /api/v1/agents/{id}", wrap("/api/v1/agents", handleAgentInfo(s.portfolio, s.logger)))
		s.logger.Info("portfolio passthrough endpoints enabled")
	} else {
		s.logger.Warn("portfolio service not configured, passthrough endpoints disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
