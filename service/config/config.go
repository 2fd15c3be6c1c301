package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL    string
	KeypairPath     string
	ExplorerBaseURL string

	// Jupiter aggregator configuration
	JupiterBaseURL     string
	DefaultSlippageBps int

	// Portfolio/limit-order service configuration.
	// Optional: portfolio endpoints are disabled when the API key is empty.
	PortfolioBaseURL string
	PortfolioAPIKey  string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.KeypairPath = getEnvOrDefault("KEYPAIR_PATH", defaultKeypairPath())
	cfg.ExplorerBaseURL = getEnvOrDefault("EXPLORER_BASE_URL", "https://solscan.io")

	// Jupiter configuration
	cfg.JupiterBaseURL = getEnvOrDefault("JUPITER_BASE_URL", "https://quote-api.jup.ag")

	slippage, err := parseInt("DEFAULT_SLIPPAGE_BPS", 50)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DefaultSlippageBps = slippage
	}

	// Portfolio service configuration
	cfg.PortfolioBaseURL = getEnvOrDefault("PORTFOLIO_BASE_URL", "")
	cfg.PortfolioAPIKey = os.Getenv("PORTFOLIO_API_KEY")
	if cfg.PortfolioAPIKey != "" && cfg.PortfolioBaseURL == "" {
		errs = append(errs, fmt.Errorf("PORTFOLIO_BASE_URL is required when PORTFOLIO_API_KEY is set"))
	}

	if cfg.DefaultSlippageBps <= 0 || cfg.DefaultSlippageBps > 10000 {
		errs = append(errs, fmt.Errorf("DEFAULT_SLIPPAGE_BPS must be between 1 and 10000, got %d", cfg.DefaultSlippageBps))
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.KeypairPath == "" {
		errs = append(errs, fmt.Errorf("KeypairPath is required"))
	}

	if c.JupiterBaseURL == "" {
		errs = append(errs, fmt.Errorf("JupiterBaseURL is required"))
	}

	if c.DefaultSlippageBps <= 0 || c.DefaultSlippageBps > 10000 {
		errs = append(errs, fmt.Errorf("DefaultSlippageBps must be between 1 and 10000"))
	}

	if c.PortfolioAPIKey != "" && c.PortfolioBaseURL == "" {
		errs = append(errs, fmt.Errorf("PortfolioBaseURL is required when PortfolioAPIKey is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// PortfolioEnabled reports whether the portfolio service integration is configured.
func (c *Config) PortfolioEnabled() bool {
	return c.PortfolioAPIKey != "" && c.PortfolioBaseURL != ""
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
