// Package config loads agent configuration from flags, environment variables and .env.
//
// Precedence: command-line flag > process environment > .env file > built-in default.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Default endpoints.
const (
	DefaultDexScreenerURL = "https://api.dexscreener.com"
	DefaultPumpFunURL     = "https://frontend-api-v3.pump.fun"
	DefaultPumpPortalURL  = "wss://pumpportal.fun/api/data"
	DefaultHTTPAddr       = ":8080"
)

// Config holds all agent settings.
type Config struct {
	// Connections
	PostgresDSN       string
	ClickhouseDSN     string
	UseMemory         bool
	SolanaRPCEndpoint string
	HTTPAddr          string
	DexScreenerURL    string
	PumpFunURL        string
	PumpPortalWSURL   string

	// Decision gates
	MinLiquidityUSD  float64
	MinVolumeUSD     float64
	SafetyThreshold  int
	AutoBuyThreshold float64
	ConfidenceMin    float64
	ConfidenceMax    float64

	// Trading
	PaperTrading      bool
	StopLossPct       float64
	TakeProfitPct     float64
	TradeSizeSOL      decimal.Decimal
	InitialBalanceSOL decimal.Decimal
	SOLUSD            float64
	PlaceholderPrice  float64
	PriceDivisor      float64

	// Loops
	MarketScanInterval  time.Duration
	BondingScanInterval time.Duration
	MonitorInterval     time.Duration
	MaxCandidateAge     time.Duration
	BondingMaxAge       time.Duration
	MinMarketCapUSD     float64
	ScanBatchSize       int
	LogRetention        int
	HTTPTimeout         time.Duration
}

// Load reads .env (if present), then parses args with environment-backed defaults.
// args excludes the program name. The result is validated.
func Load(args []string) (*Config, error) {
	// Missing .env is fine; existing env vars are never overwritten.
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{}
	var tradeSize, initialBalance string

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)

	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", env.str("POSTGRES_DSN", ""), "PostgreSQL connection string")
	fs.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", env.str("CLICKHOUSE_DSN", ""), "ClickHouse connection string (optional, PnL history)")
	fs.BoolVar(&cfg.UseMemory, "use-memory", env.boolean("USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL")
	fs.StringVar(&cfg.SolanaRPCEndpoint, "rpc-endpoint", env.str("SOLANA_RPC_ENDPOINT", ""), "Solana RPC HTTP endpoint (optional, safety and metadata)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", env.str("HTTP_ADDR", DefaultHTTPAddr), "HTTP address for API, health and metrics")
	fs.StringVar(&cfg.DexScreenerURL, "dexscreener-url", env.str("DEXSCREENER_URL", DefaultDexScreenerURL), "DexScreener API base URL")
	fs.StringVar(&cfg.PumpFunURL, "pumpfun-url", env.str("PUMPFUN_URL", DefaultPumpFunURL), "pump.fun frontend API base URL")
	fs.StringVar(&cfg.PumpPortalWSURL, "pumpportal-ws-url", env.str("PUMPPORTAL_WS_URL", DefaultPumpPortalURL), "PumpPortal WebSocket URL (empty disables the feed)")

	fs.Float64Var(&cfg.MinLiquidityUSD, "min-liquidity-usd", env.float("MIN_LIQUIDITY_USD", 10000), "Minimum liquidity in USD")
	fs.Float64Var(&cfg.MinVolumeUSD, "min-volume-usd", env.float("MIN_VOLUME_USD", 50000), "Minimum 24h volume in USD")
	fs.IntVar(&cfg.SafetyThreshold, "safety-threshold", env.integer("SAFETY_THRESHOLD", 80), "Minimum safety score (0-100)")
	fs.Float64Var(&cfg.AutoBuyThreshold, "auto-buy-threshold", env.float("AUTO_BUY_THRESHOLD", 80), "Minimum confidence for BUY")
	fs.Float64Var(&cfg.ConfidenceMin, "confidence-min", env.float("CONFIDENCE_MIN", 50), "Lower bound of the random confidence range")
	fs.Float64Var(&cfg.ConfidenceMax, "confidence-max", env.float("CONFIDENCE_MAX", 100), "Upper bound of the random confidence range")

	fs.BoolVar(&cfg.PaperTrading, "paper-trading", env.boolean("PAPER_TRADING", true), "Simulate trades against the virtual balance")
	fs.Float64Var(&cfg.StopLossPct, "stop-loss-pct", env.float("STOP_LOSS_PCT", 15), "Close when PnL% <= -value")
	fs.Float64Var(&cfg.TakeProfitPct, "take-profit-pct", env.float("TAKE_PROFIT_PCT", 30), "Close when PnL% >= value")
	fs.StringVar(&tradeSize, "trade-size-sol", env.str("TRADE_SIZE_SOL", "0.1"), "SOL spent per BUY")
	fs.StringVar(&initialBalance, "initial-balance-sol", env.str("INITIAL_BALANCE_SOL", "10"), "Virtual SOL balance on first start")
	fs.Float64Var(&cfg.SOLUSD, "sol-usd", env.float("SOL_USD", 150), "SOL to USD conversion rate")
	fs.Float64Var(&cfg.PlaceholderPrice, "placeholder-price", env.float("PLACEHOLDER_PRICE", 1e-9), "Entry price used when no price is known")
	fs.Float64Var(&cfg.PriceDivisor, "price-divisor", env.float("PRICE_DIVISOR", 1e9), "Bonding-curve token supply (market cap / divisor = price)")

	fs.DurationVar(&cfg.MarketScanInterval, "market-scan-interval", env.duration("MARKET_SCAN_INTERVAL", 60*time.Second), "General market scan interval")
	fs.DurationVar(&cfg.BondingScanInterval, "bonding-scan-interval", env.duration("BONDING_SCAN_INTERVAL", 10*time.Second), "Bonding-curve scan interval")
	fs.DurationVar(&cfg.MonitorInterval, "monitor-interval", env.duration("MONITOR_INTERVAL", 5*time.Second), "PnL monitor interval")
	fs.DurationVar(&cfg.MaxCandidateAge, "max-candidate-age", env.duration("MAX_CANDIDATE_AGE", 24*time.Hour), "Discard general market candidates listed earlier")
	fs.DurationVar(&cfg.BondingMaxAge, "bonding-max-age", env.duration("BONDING_MAX_AGE", 30*time.Minute), "Discard bonding-curve candidates created earlier")
	fs.Float64Var(&cfg.MinMarketCapUSD, "min-market-cap-usd", env.float("MIN_MARKET_CAP_USD", 5000), "Discard candidates with a known market cap below this")
	fs.IntVar(&cfg.ScanBatchSize, "scan-batch-size", env.integer("SCAN_BATCH_SIZE", 20), "Entries fetched per scan cycle")
	fs.IntVar(&cfg.LogRetention, "log-retention", env.integer("LOG_RETENTION", 500), "Ledger log entries kept")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", env.duration("HTTP_TIMEOUT", 10*time.Second), "Per-request timeout for outbound HTTP")

	if env.err != nil {
		return nil, env.err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.TradeSizeSOL, err = decimal.NewFromString(tradeSize); err != nil {
		return nil, fmt.Errorf("invalid --trade-size-sol %q: %w", tradeSize, err)
	}
	if cfg.InitialBalanceSOL, err = decimal.NewFromString(initialBalance); err != nil {
		return nil, fmt.Errorf("invalid --initial-balance-sol %q: %w", initialBalance, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	switch {
	case !c.UseMemory && c.PostgresDSN == "":
		return fmt.Errorf("%w: --postgres-dsn is required (use --use-memory for in-memory storage)", ErrInvalidConfig)
	case c.DexScreenerURL == "":
		return fmt.Errorf("%w: --dexscreener-url is required", ErrInvalidConfig)
	case c.PumpFunURL == "":
		return fmt.Errorf("%w: --pumpfun-url is required", ErrInvalidConfig)
	case c.MinLiquidityUSD < 0:
		return fmt.Errorf("%w: --min-liquidity-usd must be >= 0", ErrInvalidConfig)
	case c.MinVolumeUSD < 0:
		return fmt.Errorf("%w: --min-volume-usd must be >= 0", ErrInvalidConfig)
	case c.SafetyThreshold < 0 || c.SafetyThreshold > 100:
		return fmt.Errorf("%w: --safety-threshold must be in [0, 100]", ErrInvalidConfig)
	case c.ConfidenceMin > c.ConfidenceMax:
		return fmt.Errorf("%w: --confidence-min must be <= --confidence-max", ErrInvalidConfig)
	case c.StopLossPct <= 0:
		return fmt.Errorf("%w: --stop-loss-pct must be > 0", ErrInvalidConfig)
	case c.TakeProfitPct <= 0:
		return fmt.Errorf("%w: --take-profit-pct must be > 0", ErrInvalidConfig)
	case !c.TradeSizeSOL.IsPositive():
		return fmt.Errorf("%w: --trade-size-sol must be > 0", ErrInvalidConfig)
	case c.InitialBalanceSOL.IsNegative():
		return fmt.Errorf("%w: --initial-balance-sol must be >= 0", ErrInvalidConfig)
	case c.SOLUSD <= 0:
		return fmt.Errorf("%w: --sol-usd must be > 0", ErrInvalidConfig)
	case c.PlaceholderPrice <= 0:
		return fmt.Errorf("%w: --placeholder-price must be > 0", ErrInvalidConfig)
	case c.PriceDivisor <= 0:
		return fmt.Errorf("%w: --price-divisor must be > 0", ErrInvalidConfig)
	case c.MarketScanInterval <= 0 || c.BondingScanInterval <= 0 || c.MonitorInterval <= 0:
		return fmt.Errorf("%w: scan and monitor intervals must be > 0", ErrInvalidConfig)
	case c.ScanBatchSize <= 0:
		return fmt.Errorf("%w: --scan-batch-size must be > 0", ErrInvalidConfig)
	case c.LogRetention <= 0:
		return fmt.Errorf("%w: --log-retention must be > 0", ErrInvalidConfig)
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("%w: --http-timeout must be > 0", ErrInvalidConfig)
	}
	return nil
}

// envReader parses typed environment defaults, keeping the first error.
type envReader struct {
	err error
}

func (r *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *envReader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return f
}

func (r *envReader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return n
}

func (r *envReader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}
