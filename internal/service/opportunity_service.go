package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/scanner"
)

// OpportunityChannel is the signal bus channel detected opportunities are
// published on.
const OpportunityChannel = "opportunities"

// Notifier forwards an event to the operator's notification channels.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// CycleArchiver writes a completed cycle to long-term storage and returns
// the object path.
type CycleArchiver interface {
	ArchiveCycle(ctx context.Context, summary domain.ScanSummary, records []domain.OpportunityRecord) (string, error)
}

// OpportunityConfig tunes what the service forwards.
type OpportunityConfig struct {
	// NotifyMinProfitPercent is the profit at or above which a valid
	// opportunity is pushed to the notifier. Zero disables notifications.
	NotifyMinProfitPercent float64
}

// OpportunityService is the scan sink. It persists every cycle's
// opportunities and fans them out to the bus, the audit log, the notifier
// and the archive. Any of the collaborators may be nil.
type OpportunityService struct {
	store    domain.OpportunityStore
	bus      domain.SignalBus
	audit    domain.AuditStore
	notifier Notifier
	archiver CycleArchiver
	cfg      OpportunityConfig
	logger   *slog.Logger
}

// NewOpportunityService creates an OpportunityService.
func NewOpportunityService(
	store domain.OpportunityStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier Notifier,
	archiver CycleArchiver,
	cfg OpportunityConfig,
	logger *slog.Logger,
) *OpportunityService {
	return &OpportunityService{
		store:    store,
		bus:      bus,
		audit:    audit,
		notifier: notifier,
		archiver: archiver,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "opportunity_service")),
	}
}

var _ scanner.Sink = (*OpportunityService)(nil)

// Publish records one completed cycle. Only the store write is fatal; the
// other outputs log and continue.
func (s *OpportunityService) Publish(ctx context.Context, res scanner.ScanResult) error {
	records := make([]domain.OpportunityRecord, 0, len(res.Opportunities))
	for _, o := range res.Opportunities {
		records = append(records, o.Record(res.CycleID))
	}

	if s.store != nil && len(records) > 0 {
		if err := s.store.InsertBatch(ctx, records); err != nil {
			return fmt.Errorf("opportunity_service: insert batch: %w", err)
		}
	}

	for _, r := range records {
		s.publish(ctx, r)
		s.notify(ctx, r)
	}

	summary := res.Summary()
	if s.audit != nil {
		if err := s.audit.Log(ctx, "scan_cycle", map[string]any{
			"cycle_id":      summary.CycleID,
			"evaluated":     summary.Evaluated,
			"opportunities": summary.Opportunities,
			"failures":      summary.Failures,
			"timed_out":     summary.TimedOut,
			"duration_ms":   summary.Duration.Milliseconds(),
			"rejections":    summary.Rejections,
		}); err != nil {
			s.logger.WarnContext(ctx, "opportunity_service: audit log failed",
				slog.String("cycle_id", summary.CycleID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.archiver != nil {
		path, err := s.archiver.ArchiveCycle(ctx, summary, records)
		if err != nil {
			s.logger.WarnContext(ctx, "opportunity_service: archive cycle failed",
				slog.String("cycle_id", summary.CycleID),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.DebugContext(ctx, "opportunity_service: cycle archived",
				slog.String("cycle_id", summary.CycleID),
				slog.String("path", path),
			)
		}
	}

	s.logger.InfoContext(ctx, "opportunity_service: cycle recorded",
		slog.String("cycle_id", summary.CycleID),
		slog.Int("opportunities", len(records)),
	)
	return nil
}

func (s *OpportunityService) publish(ctx context.Context, r domain.OpportunityRecord) {
	if s.bus == nil {
		return
	}
	evt, err := json.Marshal(opportunityEvent(r))
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, OpportunityChannel, evt); err != nil {
		s.logger.WarnContext(ctx, "opportunity_service: publish event failed",
			slog.String("opp_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *OpportunityService) notify(ctx context.Context, r domain.OpportunityRecord) {
	if s.notifier == nil || s.cfg.NotifyMinProfitPercent <= 0 {
		return
	}
	if !r.Valid || r.ProfitPercent < s.cfg.NotifyMinProfitPercent {
		return
	}
	title := fmt.Sprintf("Arbitrage %.2f%%: %s", r.ProfitPercent, r.PairKey)
	msg := fmt.Sprintf("%s %s / %s %s\ndirection %s, cost %.4f, net %.4f, size %.0f (%s)",
		r.Exchange1, r.MarketID1, r.Exchange2, r.MarketID2,
		r.Direction, r.TotalCost, r.NetArbitrage, r.MaxSize, r.DepthQuality,
	)
	if err := s.notifier.Notify(ctx, "opportunity", title, msg); err != nil {
		s.logger.WarnContext(ctx, "opportunity_service: notify failed",
			slog.String("opp_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
}

// OpportunityEvent is the bus payload for one detected opportunity.
type OpportunityEvent struct {
	Event         string  `json:"event"`
	ID            string  `json:"id"`
	CycleID       string  `json:"cycle_id"`
	PairKey       string  `json:"pair_key"`
	Exchange1     string  `json:"exchange1"`
	MarketID1     string  `json:"market_id1"`
	Exchange2     string  `json:"exchange2"`
	MarketID2     string  `json:"market_id2"`
	Direction     string  `json:"direction"`
	TotalCost     float64 `json:"total_cost"`
	NetArbitrage  float64 `json:"net_arbitrage"`
	ProfitPercent float64 `json:"profit_percent"`
	MaxSize       float64 `json:"max_size"`
	Confidence    float64 `json:"confidence"`
	Valid         bool    `json:"valid"`
	ExpiresAt     int64   `json:"expires_at"`
}

func opportunityEvent(r domain.OpportunityRecord) OpportunityEvent {
	return OpportunityEvent{
		Event:         "opportunity_detected",
		ID:            r.ID,
		CycleID:       r.CycleID,
		PairKey:       r.PairKey,
		Exchange1:     string(r.Exchange1),
		MarketID1:     r.MarketID1,
		Exchange2:     string(r.Exchange2),
		MarketID2:     r.MarketID2,
		Direction:     r.Direction,
		TotalCost:     r.TotalCost,
		NetArbitrage:  r.NetArbitrage,
		ProfitPercent: r.ProfitPercent,
		MaxSize:       r.MaxSize,
		Confidence:    r.Confidence,
		Valid:         r.Valid,
		ExpiresAt:     r.ExpiresAt.UnixMilli(),
	}
}

// ListRecent returns the most recent stored opportunities.
func (s *OpportunityService) ListRecent(ctx context.Context, limit int) ([]domain.OpportunityRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	opps, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list recent: %w", err)
	}
	return opps, nil
}

// ListByPair returns the stored history of one pair.
func (s *OpportunityService) ListByPair(ctx context.Context, pairKey string, opts domain.ListOpts) ([]domain.OpportunityRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	opps, err := s.store.ListByPair(ctx, pairKey, opts)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list by pair %q: %w", pairKey, err)
	}
	return opps, nil
}
