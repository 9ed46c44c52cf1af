package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// MarketPairStore implements domain.MarketPairStore using PostgreSQL.
type MarketPairStore struct {
	pool *pgxpool.Pool
}

// NewMarketPairStore creates a new MarketPairStore.
func NewMarketPairStore(pool *pgxpool.Pool) *MarketPairStore {
	return &MarketPairStore{pool: pool}
}

// Upsert stores a pair, keyed by its order-independent pair key. Storing a
// known pair again reactivates it.
func (s *MarketPairStore) Upsert(ctx context.Context, p domain.MarketPairRecord) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Source == "" {
		p.Source = "manual"
	}
	key := domain.PairKey(p.Exchange1, p.MarketID1, p.Exchange2, p.MarketID2)

	const query = `
		INSERT INTO market_pairs (id, exchange1, market_id1, exchange2, market_id2, pair_key, source, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pair_key) DO UPDATE SET
			source     = EXCLUDED.source,
			active     = EXCLUDED.active,
			updated_at = NOW()`
	_, err := s.pool.Exec(ctx, query,
		p.ID, string(p.Exchange1), p.MarketID1, string(p.Exchange2), p.MarketID2, key, p.Source, p.Active,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market pair %s: %w", key, err)
	}
	return nil
}

// ListActive returns every active pair, oldest first.
func (s *MarketPairStore) ListActive(ctx context.Context) ([]domain.MarketPairRecord, error) {
	const query = `
		SELECT id, exchange1, market_id1, exchange2, market_id2, source, active, created_at
		FROM market_pairs WHERE active ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active pairs: %w", err)
	}
	defer rows.Close()

	var out []domain.MarketPairRecord
	for rows.Next() {
		var p domain.MarketPairRecord
		var ex1, ex2 string
		if err := rows.Scan(&p.ID, &ex1, &p.MarketID1, &ex2, &p.MarketID2, &p.Source, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan market pair: %w", err)
		}
		p.Exchange1 = domain.Exchange(ex1)
		p.Exchange2 = domain.Exchange(ex2)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Deactivate stops a pair from being scanned.
func (s *MarketPairStore) Deactivate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE market_pairs SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deactivate market pair %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
