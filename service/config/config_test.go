package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSolanaRPCURL(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("JUPITER_BASE_URL", "")
	t.Setenv("EXPLORER_BASE_URL", "")
	t.Setenv("DEFAULT_SLIPPAGE_BPS", "")
	t.Setenv("PORTFOLIO_BASE_URL", "")
	t.Setenv("PORTFOLIO_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://quote-api.jup.ag", cfg.JupiterBaseURL)
	assert.Equal(t, "https://solscan.io", cfg.ExplorerBaseURL)
	assert.Equal(t, 50, cfg.DefaultSlippageBps)
	assert.NotEmpty(t, cfg.KeypairPath)
	assert.False(t, cfg.PortfolioEnabled())
}

func TestLoad_InvalidSlippage(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")

	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "fifty"},
		{"zero", "0"},
		{"negative", "-10"},
		{"over 100%", "10001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEFAULT_SLIPPAGE_BPS", tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PortfolioKeyWithoutURL(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	t.Setenv("PORTFOLIO_API_KEY", "secret")
	t.Setenv("PORTFOLIO_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORTFOLIO_BASE_URL")
}

func TestLoad_PortfolioEnabled(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	t.Setenv("PORTFOLIO_API_KEY", "secret")
	t.Setenv("PORTFOLIO_BASE_URL", "https://portfolio.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.PortfolioEnabled())
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := &Config{
		DefaultSlippageBps: 0,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SolanaRPCURL")
	assert.Contains(t, err.Error(), "KeypairPath")
	assert.Contains(t, err.Error(), "DefaultSlippageBps")
}
