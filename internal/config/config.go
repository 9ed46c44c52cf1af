// Package config defines the scanner's configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Kalshi     KalshiConfig         `toml:"kalshi"`
	Polymarket PolymarketConfig     `toml:"polymarket"`
	Database   DatabaseConfig       `toml:"database"`
	Redis      RedisConfig          `toml:"redis"`
	S3         S3Config             `toml:"s3"`
	Scanner    ScannerConfig        `toml:"scanner"`
	Matching   MatchingConfig       `toml:"matching"`
	Validation ValidationConfig     `toml:"validation"`
	Resolution ResolutionConfig     `toml:"resolution"`
	Arbitrage  ArbitrageConfig      `toml:"arbitrage"`
	Fees       map[string]FeeConfig `toml:"fees"`
	Embedding  EmbeddingConfig      `toml:"embedding"`
	Server     ServerConfig         `toml:"server"`
	Notify     NotifyConfig         `toml:"notify"`
	Pairs      []PairConfig         `toml:"pairs"`
	LogLevel   string               `toml:"log_level"`
}

// KalshiConfig holds Kalshi API access. Market data is public; the key is
// only needed for authenticated rate tiers.
type KalshiConfig struct {
	Enabled           bool     `toml:"enabled"`
	BaseURL           string   `toml:"base_url"`
	APIKeyID          string   `toml:"api_key_id"`
	RsaPrivateKeyPath string   `toml:"rsa_private_key_path"`
	RsaPrivateKey     string   `toml:"rsa_private_key"`
	Timeout           duration `toml:"timeout"`
	MaxRetries        int      `toml:"max_retries"`
}

// PolymarketConfig holds the Gamma and CLOB endpoints.
type PolymarketConfig struct {
	Enabled       bool     `toml:"enabled"`
	GammaHost     string   `toml:"gamma_host"`
	ClobHost      string   `toml:"clob_host"`
	Timeout       duration `toml:"timeout"`
	MaxRetries    int      `toml:"max_retries"`
	TokenCacheTTL duration `toml:"token_cache_ttl"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled            bool   `toml:"enabled"`
	DSN                string `toml:"dsn"`
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	Database           string `toml:"database"`
	User               string `toml:"user"`
	Password           string `toml:"password"`
	SSLMode            string `toml:"ssl_mode"`
	PoolMaxConns       int    `toml:"pool_max_conns"`
	PoolMinConns       int    `toml:"pool_min_conns"`
	RunMigrations      bool   `toml:"run_migrations"`
	AuditRetentionDays int    `toml:"audit_retention_days"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters for the scan
// report archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ScannerConfig schedules and bounds scan cycles.
type ScannerConfig struct {
	Interval          duration        `toml:"interval"`
	Cron              string          `toml:"cron"`
	RunOnStart        bool            `toml:"run_on_start"`
	Concurrency       int             `toml:"concurrency"`
	CycleTimeout      duration        `toml:"cycle_timeout"`
	MinMatchScore     float64         `toml:"min_match_score"`
	DominanceRatio    float64         `toml:"dominance_ratio"`
	DominanceMinPairs int             `toml:"dominance_min_pairs"`
	MarketCacheTTL    duration        `toml:"market_cache_ttl"`
	LockTTL           duration        `toml:"lock_ttl"`
	Discovery         DiscoveryConfig `toml:"discovery"`
	Quotes            QuotesConfig    `toml:"quotes"`
}

// DiscoveryConfig enables the live keyword matcher as a pair source.
type DiscoveryConfig struct {
	Enabled  bool     `toml:"enabled"`
	Category string   `toml:"category"`
	Limit    int      `toml:"limit"`
	Sources  []string `toml:"sources"`
}

// QuotesConfig paces quote requests per exchange.
type QuotesConfig struct {
	RatePerSecond   float64  `toml:"rate_per_second"`
	Burst           int      `toml:"burst"`
	Timeout         duration `toml:"timeout"`
	BreakerFailures uint32   `toml:"breaker_failures"`
	BreakerCooldown duration `toml:"breaker_cooldown"`
}

// MatchingConfig tunes candidate discovery and scoring.
type MatchingConfig struct {
	MinSharedKeywords int     `toml:"min_shared_keywords"`
	MinKeywordOverlap float64 `toml:"min_keyword_overlap"`
	MaxPairs          int     `toml:"max_pairs"`
	// WeightsPath points at a trained_models.json; empty uses built-in
	// weights.
	WeightsPath string `toml:"weights_path"`
}

// ValidationConfig selects the tiers run after the hard blockers.
type ValidationConfig struct {
	MaxTier           int  `toml:"max_tier"`
	SkipQuickFilter   bool `toml:"skip_quick_filter"`
	SkipEntityMatch   bool `toml:"skip_entity_match"`
	SkipSemanticFrame bool `toml:"skip_semantic_frame"`
}

// ResolutionConfig controls the resolution-alignment gate.
type ResolutionConfig struct {
	// DisableFiltering keeps misaligned pairs, marking their opportunities
	// invalid instead of dropping them.
	DisableFiltering bool `toml:"disable_filtering"`
}

// ArbitrageConfig bounds which priced pairs become opportunities.
type ArbitrageConfig struct {
	SafetyMargin     float64  `toml:"safety_margin"`
	MinProfitPercent float64  `toml:"min_profit_percent"`
	MaxPositionSize  float64  `toml:"max_position_size"`
	TTL              duration `toml:"ttl"`
}

// FeeConfig is one exchange's fee schedule. Model is one of none,
// flat_plus_percent, percent_of_payout or kalshi_quadratic.
type FeeConfig struct {
	Model   string  `toml:"model"`
	Flat    float64 `toml:"flat"`
	Percent float64 `toml:"percent"`
}

var validFeeModels = map[string]bool{
	"":                  true,
	"none":              true,
	"flat_plus_percent": true,
	"percent_of_payout": true,
	"kalshi_quadratic":  true,
}

// EmbeddingConfig enables the embedding similarity provider.
type EmbeddingConfig struct {
	Enabled  bool     `toml:"enabled"`
	APIKey   string   `toml:"api_key"`
	BaseURL  string   `toml:"base_url"`
	Model    string   `toml:"model"`
	Timeout  duration `toml:"timeout"`
	CacheTTL duration `toml:"cache_ttl"`
	MaxChars int      `toml:"max_chars"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled           bool     `toml:"enabled"`
	Port              int      `toml:"port"`
	CORSOrigins       []string `toml:"cors_origins"`
	APIKey            string   `toml:"api_key"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	SlackWebhookURL   string   `toml:"slack_webhook_url"`
	Events            []string `toml:"events"`
	MinProfitPercent  float64  `toml:"min_profit_percent"`
	DedupWindow       duration `toml:"dedup_window"`
	PerMinute         int      `toml:"per_minute"`
}

// PairConfig is one statically configured market pair:
//
//	[[pairs]]
//	exchange1 = "kalshi"
//	market_id1 = "KXFEDDECISION-26MAR-C25"
//	exchange2 = "polymarket"
//	market_id2 = "fed-cuts-rates-in-march"
type PairConfig struct {
	Exchange1 string `toml:"exchange1"`
	MarketID1 string `toml:"market_id1"`
	Exchange2 string `toml:"exchange2"`
	MarketID2 string `toml:"market_id2"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			Enabled:    true,
			BaseURL:    "https://api.elections.kalshi.com/trade-api/v2",
			Timeout:    duration{10 * time.Second},
			MaxRetries: 2,
		},
		Polymarket: PolymarketConfig{
			Enabled:       true,
			GammaHost:     "https://gamma-api.polymarket.com",
			ClobHost:      "https://clob.polymarket.com",
			Timeout:       duration{10 * time.Second},
			MaxRetries:    2,
			TokenCacheTTL: duration{time.Hour},
		},
		Database: DatabaseConfig{
			Host:               "localhost",
			Port:               5432,
			Database:           "arbscanner",
			User:               "postgres",
			SSLMode:            "disable",
			PoolMaxConns:       10,
			PoolMinConns:       2,
			RunMigrations:      true,
			AuditRetentionDays: 30,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "arbscanner",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbscanner-reports",
			ForcePathStyle: true,
			Prefix:         "scans",
		},
		Scanner: ScannerConfig{
			Interval:          duration{time.Minute},
			RunOnStart:        true,
			Concurrency:       5,
			CycleTimeout:      duration{2 * time.Minute},
			MinMatchScore:     60,
			DominanceRatio:    0.8,
			DominanceMinPairs: 5,
			MarketCacheTTL:    duration{time.Minute},
			LockTTL:           duration{5 * time.Minute},
			Discovery: DiscoveryConfig{
				Limit: 500,
			},
			Quotes: QuotesConfig{
				RatePerSecond:   10,
				Burst:           5,
				Timeout:         duration{5 * time.Second},
				BreakerFailures: 5,
				BreakerCooldown: duration{30 * time.Second},
			},
		},
		Matching: MatchingConfig{
			MinSharedKeywords: 2,
			MinKeywordOverlap: 0.3,
			MaxPairs:          200,
		},
		Validation: ValidationConfig{
			MaxTier: 3,
		},
		Arbitrage: ArbitrageConfig{
			SafetyMargin:     0.01,
			MinProfitPercent: 0.5,
			MaxPositionSize:  1000,
			TTL:              duration{30 * time.Second},
		},
		Embedding: EmbeddingConfig{
			Timeout:  duration{10 * time.Second},
			CacheTTL: duration{24 * time.Hour},
			MaxChars: 2000,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events:           []string{"opportunity_detected", "scan_failed"},
			MinProfitPercent: 2,
			DedupWindow:      duration{10 * time.Minute},
			PerMinute:        20,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validExchanges = map[string]bool{
	"kalshi":     true,
	"polymarket": true,
	"predictit":  true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if !c.Kalshi.Enabled && !c.Polymarket.Enabled {
		errs = append(errs, "at least one of kalshi or polymarket must be enabled")
	}
	if c.Kalshi.Enabled {
		if c.Kalshi.BaseURL == "" {
			errs = append(errs, "kalshi: base_url must not be empty")
		}
		hasKey := c.Kalshi.RsaPrivateKeyPath != "" || c.Kalshi.RsaPrivateKey != ""
		if (c.Kalshi.APIKeyID != "") != hasKey {
			errs = append(errs, "kalshi: api_key_id and an rsa private key must be set together")
		}
	}
	if c.Polymarket.Enabled && (c.Polymarket.GammaHost == "" || c.Polymarket.ClobHost == "") {
		errs = append(errs, "polymarket: gamma_host and clob_host must not be empty")
	}

	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 || c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	if c.Scanner.Interval.Duration <= 0 && c.Scanner.Cron == "" {
		errs = append(errs, "scanner: interval or cron must be set")
	}
	if c.Scanner.Concurrency < 1 {
		errs = append(errs, "scanner: concurrency must be >= 1")
	}
	if c.Scanner.MinMatchScore < 0 || c.Scanner.MinMatchScore > 100 {
		errs = append(errs, fmt.Sprintf("scanner: min_match_score must be 0-100, got %g", c.Scanner.MinMatchScore))
	}
	if c.Scanner.DominanceRatio <= 0 || c.Scanner.DominanceRatio > 1 {
		errs = append(errs, "scanner: dominance_ratio must be in (0, 1]")
	}
	for _, s := range c.Scanner.Discovery.Sources {
		if !validExchanges[strings.ToLower(s)] {
			errs = append(errs, fmt.Sprintf("scanner.discovery: unknown exchange %q", s))
		}
	}

	if c.Validation.MaxTier < 1 || c.Validation.MaxTier > 3 {
		errs = append(errs, fmt.Sprintf("validation: max_tier must be 1-3, got %d", c.Validation.MaxTier))
	}

	if c.Arbitrage.SafetyMargin < 0 || c.Arbitrage.SafetyMargin >= 1 {
		errs = append(errs, "arbitrage: safety_margin must be in [0, 1)")
	}
	if c.Arbitrage.MaxPositionSize < 0 {
		errs = append(errs, "arbitrage: max_position_size must be >= 0")
	}

	for name, fee := range c.Fees {
		if !validExchanges[strings.ToLower(name)] {
			errs = append(errs, fmt.Sprintf("fees: unknown exchange %q", name))
		}
		if !validFeeModels[strings.ToLower(fee.Model)] {
			errs = append(errs, fmt.Sprintf("fees.%s: unknown model %q", name, fee.Model))
		}
	}

	if c.Embedding.Enabled && c.Embedding.APIKey == "" {
		errs = append(errs, "embedding: api_key is required when enabled")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	for i, p := range c.Pairs {
		if !validExchanges[strings.ToLower(p.Exchange1)] || !validExchanges[strings.ToLower(p.Exchange2)] {
			errs = append(errs, fmt.Sprintf("pairs[%d]: unknown exchange", i))
		}
		if p.MarketID1 == "" || p.MarketID2 == "" {
			errs = append(errs, fmt.Sprintf("pairs[%d]: market_id1 and market_id2 are required", i))
		}
		if strings.EqualFold(p.Exchange1, p.Exchange2) {
			errs = append(errs, fmt.Sprintf("pairs[%d]: a pair must span two exchanges", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
