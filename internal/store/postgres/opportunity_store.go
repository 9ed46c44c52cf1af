package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunityCols = `id, cycle_id, pair_key,
	exchange1, market_id1, exchange2, market_id2,
	direction, total_cost, gross_arbitrage, net_arbitrage,
	profit_percent, profit_dollars, max_size, total_fees,
	confidence, validation_confidence, depth_quality,
	resolution_score, tradeable, valid, notes,
	detected_at, expires_at`

// InsertBatch stores one cycle's opportunities. Re-inserting an ID is a
// no-op.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.OpportunityRecord) error {
	if len(opps) == 0 {
		return nil
	}

	const query = `
		INSERT INTO opportunities (` + opportunityCols + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18,
			$19, $20, $21, $22,
			$23, $24
		) ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, o := range opps {
		notes, err := json.Marshal(notesOrEmpty(o.Notes))
		if err != nil {
			return fmt.Errorf("postgres: marshal notes for %s: %w", o.ID, err)
		}
		batch.Queue(query,
			o.ID, o.CycleID, o.PairKey,
			string(o.Exchange1), o.MarketID1, string(o.Exchange2), o.MarketID2,
			o.Direction, o.TotalCost, o.GrossArbitrage, o.NetArbitrage,
			o.ProfitPercent, o.ProfitDollars, o.MaxSize, o.TotalFees,
			o.Confidence, o.ValidationConfidence, o.DepthQuality,
			o.ResolutionScore, o.Tradeable, o.Valid, notes,
			o.DetectedAt, o.ExpiresAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range opps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert opportunity batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the most recently detected opportunities.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.OpportunityRecord, error) {
	query, args := newListQuery(
		`SELECT `+opportunityCols+` FROM opportunities WHERE 1=1`, "detected_at",
	).page(domain.ListOpts{Limit: limit})
	return s.query(ctx, "list recent opportunities", query, args...)
}

// ListByPair returns one pair's opportunity history, newest first.
func (s *OpportunityStore) ListByPair(ctx context.Context, pairKey string, opts domain.ListOpts) ([]domain.OpportunityRecord, error) {
	query, args := newListQuery(
		`SELECT `+opportunityCols+` FROM opportunities WHERE pair_key = $1`, "detected_at", pairKey,
	).page(opts)
	return s.query(ctx, "list opportunities by pair", query, args...)
}

func (s *OpportunityStore) query(ctx context.Context, op, query string, args ...any) ([]domain.OpportunityRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.OpportunityRecord
	for rows.Next() {
		var (
			o         domain.OpportunityRecord
			ex1, ex2  string
			notesJSON []byte
		)
		if err := rows.Scan(
			&o.ID, &o.CycleID, &o.PairKey,
			&ex1, &o.MarketID1, &ex2, &o.MarketID2,
			&o.Direction, &o.TotalCost, &o.GrossArbitrage, &o.NetArbitrage,
			&o.ProfitPercent, &o.ProfitDollars, &o.MaxSize, &o.TotalFees,
			&o.Confidence, &o.ValidationConfidence, &o.DepthQuality,
			&o.ResolutionScore, &o.Tradeable, &o.Valid, &notesJSON,
			&o.DetectedAt, &o.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		o.Exchange1 = domain.Exchange(ex1)
		o.Exchange2 = domain.Exchange(ex2)
		if len(notesJSON) > 0 {
			if err := json.Unmarshal(notesJSON, &o.Notes); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal notes for %s: %w", o.ID, err)
			}
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return out, nil
}

func notesOrEmpty(n []string) []string {
	if n == nil {
		return []string{}
	}
	return n
}
