// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	Uniswap   UniswapConfig   `mapstructure:"uniswap"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum JSON-RPC connection and fetcher settings.
type EthereumConfig struct {
	HTTPURL              string        `mapstructure:"http_url"`
	ChainID              uint64        `mapstructure:"chain_id"`
	FetcherConcurrency   int           `mapstructure:"fetcher_concurrency"`
	FetcherMaxRetries    int           `mapstructure:"fetcher_max_retries"`
	FetcherInitialBackoff time.Duration `mapstructure:"fetcher_initial_backoff_ms"`
	CallTimeout          time.Duration `mapstructure:"call_timeout"`
}

// BinanceConfig holds the historical-klines feed configuration backing the
// CEX side of the CexDexEvaluator.
type BinanceConfig struct {
	RESTBaseURL      string        `mapstructure:"rest_base_url"`
	Symbols          []string      `mapstructure:"symbols"`
	Interval         string        `mapstructure:"interval"`
	QuoteDecimals    uint8         `mapstructure:"quote_decimals"`
	MaxStaleSeconds  int64         `mapstructure:"max_stale_seconds"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// UniswapConfig holds the pool universe and WETH reference needed to convert
// gas costs into the pair's quote token, plus the QuoterV2 address used by
// the read-only V3 price-read proof of concept.
type UniswapConfig struct {
	WETHAddress    string   `mapstructure:"weth_address"`
	Pools          []string `mapstructure:"pools"`
	QuoterAddress  string   `mapstructure:"quoter_address"`
	DefaultFeeTier int      `mapstructure:"default_fee_tier"`
}

// WETHAddressHex returns the configured WETH address as a common.Address.
func (c *UniswapConfig) WETHAddressHex() common.Address {
	return common.HexToAddress(c.WETHAddress)
}

// QuoterAddressHex returns the configured QuoterV2 address as a common.Address.
func (c *UniswapConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// BacktestConfig holds the thresholds and block range that drive the
// solver/evaluator/engine pipeline for a given run.
type BacktestConfig struct {
	MinDiscrepancyBps  int64  `mapstructure:"min_discrepancy_bps"`
	GasUnitsEstimate    int64  `mapstructure:"gas_units_estimate"`
	IntraCandidateBps   int64  `mapstructure:"intra_candidate_bps"`
	FromBlock           uint64 `mapstructure:"from_block"`
	ToBlock             uint64 `mapstructure:"to_block"`
	IntraDumpBlock      uint64 `mapstructure:"intra_dump_block"`
	CexFeeBps           int64  `mapstructure:"cex_fee_bps"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("BACKTEST")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "BACKTEST_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "BACKTEST_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "BACKTEST_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.http_url", "BACKTEST_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "BACKTEST_ETH_CHAIN_ID", "ETH_CHAIN_ID")
	v.BindEnv("ethereum.fetcher_concurrency", "BACKTEST_FETCHER_CONCURRENCY")
	v.BindEnv("ethereum.fetcher_max_retries", "BACKTEST_FETCHER_MAX_RETRIES")

	// Binance
	v.BindEnv("binance.rest_base_url", "BACKTEST_BINANCE_REST_URL", "BINANCE_REST_URL")
	v.BindEnv("binance.symbols", "BACKTEST_BINANCE_SYMBOLS", "BINANCE_SYMBOLS")

	// Uniswap
	v.BindEnv("uniswap.weth_address", "BACKTEST_WETH_ADDRESS", "WETH_ADDRESS")
	v.BindEnv("uniswap.pools", "BACKTEST_POOLS", "POOLS")
	v.BindEnv("uniswap.quoter_address", "BACKTEST_UNISWAP_QUOTER", "UNISWAP_QUOTER")

	// Backtest
	v.BindEnv("backtest.min_discrepancy_bps", "BACKTEST_MIN_DISCREPANCY_BPS")
	v.BindEnv("backtest.from_block", "BACKTEST_FROM_BLOCK")
	v.BindEnv("backtest.to_block", "BACKTEST_TO_BLOCK")

	// Telemetry
	v.BindEnv("telemetry.enabled", "BACKTEST_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "BACKTEST_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "BACKTEST_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "mev-backtester")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.fetcher_concurrency", 10)
	v.SetDefault("ethereum.fetcher_max_retries", 3)
	v.SetDefault("ethereum.fetcher_initial_backoff_ms", "100ms")
	v.SetDefault("ethereum.call_timeout", "30s")

	// Binance defaults
	v.SetDefault("binance.rest_base_url", "https://api.binance.com")
	v.SetDefault("binance.symbols", []string{"ETHUSDC"})
	v.SetDefault("binance.interval", "1m")
	v.SetDefault("binance.quote_decimals", 8)
	v.SetDefault("binance.max_stale_seconds", 60)
	v.SetDefault("binance.request_timeout", "10s")

	// Uniswap defaults
	v.SetDefault("uniswap.weth_address", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	v.SetDefault("uniswap.pools", []string{})
	v.SetDefault("uniswap.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("uniswap.default_fee_tier", 3000)

	// Backtest defaults
	v.SetDefault("backtest.min_discrepancy_bps", 10)
	v.SetDefault("backtest.gas_units_estimate", 200_000)
	v.SetDefault("backtest.intra_candidate_bps", 30)
	v.SetDefault("backtest.cex_fee_bps", 10)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "mev-backtester")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if !common.IsHexAddress(c.Uniswap.WETHAddress) {
		return fmt.Errorf("invalid uniswap.weth_address: %s", c.Uniswap.WETHAddress)
	}
	for _, p := range c.Uniswap.Pools {
		if !common.IsHexAddress(p) {
			return fmt.Errorf("invalid pool address: %s", p)
		}
	}
	if len(c.Binance.Symbols) == 0 {
		return fmt.Errorf("binance.symbols cannot be empty")
	}
	if c.Backtest.ToBlock != 0 && c.Backtest.ToBlock < c.Backtest.FromBlock {
		return fmt.Errorf("backtest.to_block must be >= backtest.from_block")
	}
	return nil
}
