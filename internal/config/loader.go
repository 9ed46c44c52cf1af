package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBSCAN_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if cfg.Kalshi.RsaPrivateKey == "" && cfg.Kalshi.RsaPrivateKeyPath != "" {
		pem, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("config: read kalshi private key: %w", err)
		}
		cfg.Kalshi.RsaPrivateKey = string(pem)
	}

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBSCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setBool(&cfg.Kalshi.Enabled, "ARBSCAN_KALSHI_ENABLED")
	setStr(&cfg.Kalshi.BaseURL, "ARBSCAN_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.APIKeyID, "ARBSCAN_KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "ARBSCAN_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.RsaPrivateKey, "ARBSCAN_KALSHI_RSA_PRIVATE_KEY")

	// ── Polymarket ──
	setBool(&cfg.Polymarket.Enabled, "ARBSCAN_POLYMARKET_ENABLED")
	setStr(&cfg.Polymarket.GammaHost, "ARBSCAN_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "ARBSCAN_POLYMARKET_CLOB_HOST")

	// ── Database ──
	setBool(&cfg.Database.Enabled, "ARBSCAN_DATABASE_ENABLED")
	setStr(&cfg.Database.DSN, "ARBSCAN_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "ARBSCAN_DATABASE_HOST")
	setInt(&cfg.Database.Port, "ARBSCAN_DATABASE_PORT")
	setStr(&cfg.Database.Database, "ARBSCAN_DATABASE_NAME")
	setStr(&cfg.Database.User, "ARBSCAN_DATABASE_USER")
	setStr(&cfg.Database.Password, "ARBSCAN_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "ARBSCAN_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "ARBSCAN_DATABASE_POOL_MAX_CONNS")
	setBool(&cfg.Database.RunMigrations, "ARBSCAN_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBSCAN_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBSCAN_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "ARBSCAN_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "ARBSCAN_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBSCAN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBSCAN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBSCAN_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBSCAN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBSCAN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBSCAN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBSCAN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBSCAN_S3_FORCE_PATH_STYLE")

	// ── Scanner ──
	setDuration(&cfg.Scanner.Interval, "ARBSCAN_SCANNER_INTERVAL")
	setStr(&cfg.Scanner.Cron, "ARBSCAN_SCANNER_CRON")
	setInt(&cfg.Scanner.Concurrency, "ARBSCAN_SCANNER_CONCURRENCY")
	setFloat64(&cfg.Scanner.MinMatchScore, "ARBSCAN_SCANNER_MIN_MATCH_SCORE")
	setBool(&cfg.Scanner.Discovery.Enabled, "ARBSCAN_SCANNER_DISCOVERY_ENABLED")

	// ── Arbitrage ──
	setFloat64(&cfg.Arbitrage.MinProfitPercent, "ARBSCAN_ARBITRAGE_MIN_PROFIT_PERCENT")
	setFloat64(&cfg.Arbitrage.MaxPositionSize, "ARBSCAN_ARBITRAGE_MAX_POSITION_SIZE")
	setBool(&cfg.Resolution.DisableFiltering, "ARBSCAN_RESOLUTION_DISABLE_FILTERING")

	// ── Embedding ──
	setBool(&cfg.Embedding.Enabled, "ARBSCAN_EMBEDDING_ENABLED")
	setStr(&cfg.Embedding.APIKey, "ARBSCAN_EMBEDDING_API_KEY")
	setStr(&cfg.Embedding.APIKey, "OPENAI_API_KEY") // compatibility alias
	setStr(&cfg.Embedding.BaseURL, "ARBSCAN_EMBEDDING_BASE_URL")
	setStr(&cfg.Embedding.Model, "ARBSCAN_EMBEDDING_MODEL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBSCAN_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBSCAN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBSCAN_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBSCAN_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBSCAN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBSCAN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBSCAN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.SlackWebhookURL, "ARBSCAN_NOTIFY_SLACK_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBSCAN_NOTIFY_EVENTS")
	setFloat64(&cfg.Notify.MinProfitPercent, "ARBSCAN_NOTIFY_MIN_PROFIT_PERCENT")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ARBSCAN_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
