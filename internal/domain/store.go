package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// OpportunityStore persists detected opportunities.
type OpportunityStore interface {
	InsertBatch(ctx context.Context, opps []OpportunityRecord) error
	ListRecent(ctx context.Context, limit int) ([]OpportunityRecord, error)
	ListByPair(ctx context.Context, pairKey string, opts ListOpts) ([]OpportunityRecord, error)
}

// MarketPairStore persists the curated cross-exchange market pairs the
// scanner evaluates every cycle.
type MarketPairStore interface {
	Upsert(ctx context.Context, p MarketPairRecord) error
	ListActive(ctx context.Context) ([]MarketPairRecord, error)
	Deactivate(ctx context.Context, id string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
