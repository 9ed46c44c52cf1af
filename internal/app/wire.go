package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/arbscanner/internal/blob/s3"
	"github.com/alanyoungcy/arbscanner/internal/cache/memory"
	"github.com/alanyoungcy/arbscanner/internal/cache/redis"
	"github.com/alanyoungcy/arbscanner/internal/config"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/embedding/openai"
	"github.com/alanyoungcy/arbscanner/internal/metrics"
	"github.com/alanyoungcy/arbscanner/internal/notify"
	"github.com/alanyoungcy/arbscanner/internal/platform/kalshi"
	"github.com/alanyoungcy/arbscanner/internal/platform/polymarket"
	"github.com/alanyoungcy/arbscanner/internal/scanner"
	"github.com/alanyoungcy/arbscanner/internal/server/handler"
	"github.com/alanyoungcy/arbscanner/internal/store/postgres"
)

const telegramAPI = "https://api.telegram.org"

// Dependencies bundles the infrastructure the modes run on. Optional
// backends are nil when disabled; caches, locks and the signal bus fall
// back to process-local implementations without Redis.
type Dependencies struct {
	Adapters []domain.ExchangeAdapter

	// Persistence, nil without a database.
	Opportunities domain.OpportunityStore
	Pairs         domain.MarketPairStore
	Audit         *postgres.AuditStore

	MarketCache domain.MarketListCache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Archiver is nil without object storage.
	Archiver *s3blob.Archiver

	// Similarity is nil unless embeddings are enabled.
	Similarity domain.SimilarityProvider

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics

	HealthChecks map[string]handler.HealthCheck
}

// Wire constructs the dependencies from cfg and returns them together with
// a cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{
		Metrics:      metrics.New(nil),
		HealthChecks: make(map[string]handler.HealthCheck),
	}

	// --- Exchanges ---
	adapters, err := wireAdapters(cfg)
	if err != nil {
		return fail(err)
	}
	deps.Adapters = adapters

	// --- PostgreSQL ---
	if cfg.Database.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)

		if cfg.Database.RunMigrations {
			n, err := pg.RunMigrations(ctx)
			if err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
			logger.Info("wire: migrations applied", slog.Int("count", n))
		}

		pool := pg.Pool()
		deps.Opportunities = postgres.NewOpportunityStore(pool)
		deps.Pairs = postgres.NewMarketPairStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.HealthChecks["postgres"] = pg.Health
	}

	// --- Redis, or process-local fallbacks ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.MarketCache = redis.NewMarketListCache(rc)
		deps.LockManager = redis.NewLockManager(rc)
		deps.SignalBus = redis.NewSignalBus(rc)
		deps.HealthChecks["redis"] = rc.Ping
	} else {
		deps.MarketCache = memory.NewMarketListCache(cfg.Scanner.MarketCacheTTL.Duration, 5*time.Minute)
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus()
	}

	// --- S3 report archive ---
	if cfg.S3.Enabled {
		s3c, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Archiver = s3blob.NewArchiver(s3c, s3c, cfg.S3.Prefix)
		deps.HealthChecks["s3"] = s3c.Health
	}

	// --- Embeddings ---
	if cfg.Embedding.Enabled {
		p, err := openai.New(openai.Config{
			APIKey:   cfg.Embedding.APIKey,
			BaseURL:  cfg.Embedding.BaseURL,
			Model:    cfg.Embedding.Model,
			Timeout:  cfg.Embedding.Timeout.Duration,
			CacheTTL: cfg.Embedding.CacheTTL.Duration,
			MaxChars: cfg.Embedding.MaxChars,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: embedding: %w", err))
		}
		deps.Similarity = p
	}

	deps.Notifier = wireNotifier(cfg.Notify, logger)

	logger.Info("wire: dependencies ready",
		slog.Int("exchanges", len(deps.Adapters)),
		slog.Bool("postgres", deps.Opportunities != nil),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.Bool("s3", deps.Archiver != nil),
		slog.Bool("embeddings", deps.Similarity != nil),
		slog.Bool("notifications", deps.Notifier.Enabled()),
	)
	return deps, cleanup, nil
}

func wireAdapters(cfg *config.Config) ([]domain.ExchangeAdapter, error) {
	var adapters []domain.ExchangeAdapter
	if cfg.Kalshi.Enabled {
		client, err := kalshi.NewClient(kalshi.ClientConfig{
			BaseURL:    cfg.Kalshi.BaseURL,
			APIKeyID:   cfg.Kalshi.APIKeyID,
			PrivateKey: []byte(cfg.Kalshi.RsaPrivateKey),
			Timeout:    cfg.Kalshi.Timeout.Duration,
			MaxRetries: cfg.Kalshi.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: kalshi: %w", err)
		}
		adapters = append(adapters, kalshi.NewAdapter(client))
	}
	if cfg.Polymarket.Enabled {
		pm := cfg.Polymarket
		adapters = append(adapters, polymarket.NewAdapter(
			polymarket.NewGammaClient(pm.GammaHost, pm.Timeout.Duration, pm.MaxRetries),
			polymarket.NewClobClient(pm.ClobHost, pm.Timeout.Duration, pm.MaxRetries),
			pm.TokenCacheTTL.Duration,
		))
	}
	return adapters, nil
}

func wireNotifier(cfg config.NotifyConfig, logger *slog.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(telegramAPI, cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	if cfg.SlackWebhookURL != "" {
		senders = append(senders, notify.NewSlackSender(cfg.SlackWebhookURL))
	}
	return notify.NewNotifier(senders, notify.Config{
		Events:      cfg.Events,
		DedupWindow: cfg.DedupWindow.Duration,
		PerMinute:   cfg.PerMinute,
	}, logger)
}

// exchangesOf returns the adapters' exchanges, restricted to names when
// names is non-empty.
func exchangesOf(adapters []domain.ExchangeAdapter, names []string) []domain.Exchange {
	want := make(map[domain.Exchange]bool, len(names))
	for _, n := range names {
		if ex, ok := domain.ParseExchange(n); ok {
			want[ex] = true
		}
	}
	var out []domain.Exchange
	for _, a := range adapters {
		if len(want) == 0 || want[a.Exchange()] {
			out = append(out, a.Exchange())
		}
	}
	return out
}

func parsePairs(pairs []config.PairConfig) ([]scanner.PairRef, error) {
	refs := make([]scanner.PairRef, 0, len(pairs))
	for i, p := range pairs {
		ex1, ok1 := domain.ParseExchange(p.Exchange1)
		ex2, ok2 := domain.ParseExchange(p.Exchange2)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("wire: pairs[%d]: unknown exchange %q/%q", i, p.Exchange1, p.Exchange2)
		}
		refs = append(refs, scanner.PairRef{
			Exchange1: ex1, MarketID1: strings.TrimSpace(p.MarketID1),
			Exchange2: ex2, MarketID2: strings.TrimSpace(p.MarketID2),
		})
	}
	return refs, nil
}
