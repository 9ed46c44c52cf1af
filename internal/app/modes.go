package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/scanner"
	"github.com/alanyoungcy/arbscanner/internal/server"
	"github.com/alanyoungcy/arbscanner/internal/server/handler"
	"github.com/alanyoungcy/arbscanner/internal/server/ws"
	"github.com/alanyoungcy/arbscanner/internal/service"
)

// Run starts the scheduled scanner and, when enabled, the HTTP and
// WebSocket API. It blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting arbscanner",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("server", a.cfg.Server.Enabled),
	)
	deps, p, err := a.setup(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.Runner.Run(ctx)
	})

	if deps.Audit != nil && a.cfg.Database.AuditRetentionDays > 0 {
		a.startAuditPrune(ctx, g, deps)
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, p)
	}

	return g.Wait()
}

// startAuditPrune deletes audit entries older than the retention window
// once a day.
func (a *App) startAuditPrune(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	retention := time.Duration(a.cfg.Database.AuditRetentionDays) * 24 * time.Hour
	c := cron.New()
	_, err := c.AddFunc("@daily", func() {
		n, err := deps.Audit.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			a.logger.Error("app: audit prune failed", slog.String("error", err.Error()))
			return
		}
		a.logger.Info("app: audit log pruned", slog.Int64("deleted", n))
	})
	if err != nil {
		a.logger.Error("app: schedule audit prune", slog.String("error", err.Error()))
		return
	}
	c.Start()
	g.Go(func() error {
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	})
}

// startHTTPServer registers the API server and the WebSocket hub on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, p *Pipeline) {
	hub := ws.NewHub(deps.SignalBus, ws.Config{
		Channels:       []string{service.OpportunityChannel},
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		Status: func() any {
			res, ok := p.Runner.Latest()
			if !ok {
				return map[string]any{"scanned": false}
			}
			return res.Summary()
		},
	}, a.logger)

	var reports handler.ReportArchive
	if deps.Archiver != nil {
		reports = deps.Archiver
	}
	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Opportunities: handler.NewOpportunityHandler(p.Opportunities, a.logger),
		Scans:         handler.NewScanHandler(p.Runner, reports, a.logger),
		Metrics:       deps.Metrics.Handler(),
	}
	if deps.Pairs != nil {
		handlers.Pairs = handler.NewPairHandler(deps.Pairs, a.logger)
	}
	if deps.Audit != nil {
		handlers.Audit = handler.NewAuditHandler(deps.Audit, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:              a.cfg.Server.Port,
		CORSOrigins:       a.cfg.Server.CORSOrigins,
		APIKey:            a.cfg.Server.APIKey,
		RequestsPerSecond: a.cfg.Server.RequestsPerSecond,
		Burst:             a.cfg.Server.Burst,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// Scan runs a single cycle and writes the result as JSON to w.
func (a *App) Scan(ctx context.Context, w io.Writer) error {
	_, p, err := a.setup(ctx)
	if err != nil {
		return err
	}
	res, err := p.Runner.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// PairFixture is an offline pair for Evaluate. Resolution rules go in each
// market's description.
type PairFixture struct {
	Market1 domain.Market `json:"market1"`
	Market2 domain.Market `json:"market2"`
	Quote1  domain.Quote  `json:"quote1"`
	Quote2  domain.Quote  `json:"quote2"`
}

// Evaluate runs the pipeline over the pair in the fixture file without
// touching any exchange and writes the evaluation as JSON to w.
func (a *App) Evaluate(ctx context.Context, fixturePath string, w io.Writer) error {
	raw, err := os.ReadFile(fixturePath)
	if err != nil {
		return fmt.Errorf("app: read fixture: %w", err)
	}
	var fx PairFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("app: decode fixture %s: %w", fixturePath, err)
	}
	if fx.Market1.Exchange == "" || fx.Market2.Exchange == "" {
		return errors.New("app: fixture markets need an exchange")
	}

	sc, err := NewScanner(a.cfg, nil, nil, nil, a.logger)
	if err != nil {
		return err
	}
	fees, err := feeStructure(a.cfg.Fees)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	ev := sc.EvaluatePair(ctx, fx.Market1, fx.Market2, withMarket(fx.Quote1, fx.Market1), withMarket(fx.Quote2, fx.Market2), fees)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ev)
}

// withMarket fills the quote's identity from its market when omitted.
func withMarket(q domain.Quote, m domain.Market) domain.Quote {
	if q.MarketID == "" {
		q.MarketID = m.ID
	}
	if q.Exchange == "" {
		q.Exchange = m.Exchange
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now()
	}
	return q
}

var _ handler.ScanRunner = (*scanner.Runner)(nil)
