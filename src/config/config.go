package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	defaultAdminAccount  = "0x00000000000000000000000000000000000000ad"
	defaultEscrowAccount = "0x000000000000000000000000000000000000e5c0"
)

type Config struct {
	ListenAddr  string
	Env         string
	LogLevel    string
	DatabaseURL string
	DBDriver    string
	Market      MarketConfig
	Reconcile   ReconcileConfig
	Ethereum    EthereumConfig
}

// MarketConfig holds the ledger's accounts and rate defaults.
// Accounts are normalized to EIP-55 checksum form.
type MarketConfig struct {
	AdminAccount      string
	EscrowAccount     string
	DefaultServiceFee uint32 // basis points
	RoyaltyCacheTTL   time.Duration
}

type ReconcileConfig struct {
	Schedule    string
	Concurrency int
}

type EthereumConfig struct {
	RPCURL     string
	PrivateKey string
	ChainID    int64
}

// Enabled reports whether the asset registry should be read from chain.
func (c EthereumConfig) Enabled() bool { return c.RPCURL != "" }

// UsesDatabase reports whether listings, settings and balances are kept in postgres.
func (c *Config) UsesDatabase() bool { return c.DatabaseURL != "" }

// LoadFromEnv reads configuration from environment variables with fallback defaults.
// It also loads `.env` if present (for local development).
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, relying on environment variables")
	}

	fee, err := getUint32("MARKET_DEFAULT_SERVICE_FEE", 250)
	if err != nil {
		return nil, err
	}
	if fee > 10000 {
		return nil, fmt.Errorf("MARKET_DEFAULT_SERVICE_FEE out of range: %d", fee)
	}
	ttl, err := time.ParseDuration(getEnv("ROYALTY_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROYALTY_CACHE_TTL duration: %w", err)
	}
	concurrency, err := strconv.Atoi(getEnv("RECONCILE_CONCURRENCY", "8"))
	if err != nil || concurrency < 1 {
		return nil, fmt.Errorf("invalid RECONCILE_CONCURRENCY: %q", os.Getenv("RECONCILE_CONCURRENCY"))
	}
	chainID, err := strconv.ParseInt(getEnv("ETH_CHAIN_ID", "11155111"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ETH_CHAIN_ID: %w", err)
	}
	admin, err := address("MARKET_ADMIN_ACCOUNT", defaultAdminAccount)
	if err != nil {
		return nil, err
	}
	escrow, err := address("MARKET_ESCROW_ACCOUNT", defaultEscrowAccount)
	if err != nil {
		return nil, err
	}

	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		Env:         getEnv("ENV", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		Market: MarketConfig{
			AdminAccount:      admin,
			EscrowAccount:     escrow,
			DefaultServiceFee: fee,
			RoyaltyCacheTTL:   ttl,
		},
		Reconcile: ReconcileConfig{
			Schedule:    getEnv("RECONCILE_SCHEDULE", "0 */5 * * * *"),
			Concurrency: concurrency,
		},
		Ethereum: EthereumConfig{
			RPCURL:     os.Getenv("ETH_RPC_URL"),
			PrivateKey: os.Getenv("ETH_PRIVATE_KEY"),
			ChainID:    chainID,
		},
	}, nil
}

// helper to get env with default fallback
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getUint32(key string, fallback uint32) (uint32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return uint32(v), nil
}

func address(key, fallback string) (string, error) {
	raw := getEnv(key, fallback)
	if !common.IsHexAddress(raw) {
		return "", fmt.Errorf("invalid %s: %q is not a hex address", key, raw)
	}
	return common.HexToAddress(raw).Hex(), nil
}
