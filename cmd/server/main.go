package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"solagent/service/chain"
	"solagent/service/config"
	"solagent/service/metrics"
	"solagent/service/portfolio"
	"solagent/service/server"
	"solagent/service/stake"
	"solagent/service/swap"
	"solagent/service/transfer"
	"solagent/service/wallet"
)

func main() {
	// Best effort; config comes from the environment in production.
	_ = godotenv.Load()

	// Load and validate configuration from environment.
	// This fails fast if any required config is missing or invalid.
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the agent wallet. Everything the server signs comes from this key.
	w, err := wallet.Load(cfg.KeypairPath)
	if err != nil {
		logger.Error("failed to load wallet keypair", "path", cfg.KeypairPath, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded agent wallet", "address", w.Address())

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Solana RPC client.
	// Note: For premium RPC endpoints, include API key in the URL
	rpcClient := chain.NewRPCClient(cfg.SolanaRPCURL)
	chainClient := chain.NewClient(rpcClient, cfg.ExplorerBaseURL, m, logger)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	swaps := swap.NewClient(cfg.JupiterBaseURL, httpClient, chainClient, w, cfg.DefaultSlippageBps, m, logger)
	transfers := transfer.NewService(chainClient, w, m, logger)
	stakes := stake.NewService(chainClient, w, m, logger)

	var pf *portfolio.Client
	if cfg.PortfolioEnabled() {
		pf = portfolio.NewClient(cfg.PortfolioBaseURL, cfg.PortfolioAPIKey, httpClient, m, logger)
		logger.Info("initialized portfolio service client", "url", cfg.PortfolioBaseURL)
	}

	httpServer := server.New(cfg.ServerAddr, chainClient, w, swaps, transfers, stakes, pf, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
