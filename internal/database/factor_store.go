package database

import (
	"context"
	"fmt"

	"fusion-trading-bot/internal/adaptive"
)

// FactorStore persists per-symbol factor win/trigger counters in PostgreSQL.
// It satisfies the adaptive learner's Store interface so learned weights
// survive restarts.
type FactorStore struct {
	db *DB
}

// NewFactorStore creates a factor performance store over the pool
func NewFactorStore(db *DB) *FactorStore {
	return &FactorStore{db: db}
}

// Increment bumps a factor's trigger count, and its win count on a win. The
// upsert serializes concurrent increments for the same (symbol, factor) row.
func (s *FactorStore) Increment(ctx context.Context, symbol, factor string, win bool) error {
	winInc := 0
	if win {
		winInc = 1
	}

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO factor_performance (symbol, factor, wins, total, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (symbol, factor) DO UPDATE SET
			wins = factor_performance.wins + $3,
			total = factor_performance.total + 1,
			updated_at = NOW()`,
		symbol, factor, winInc,
	)
	if err != nil {
		return fmt.Errorf("incrementing factor counter: %w", err)
	}
	return nil
}

// Snapshot returns all factor counters for a symbol
func (s *FactorStore) Snapshot(ctx context.Context, symbol string) (map[string]adaptive.Counter, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT factor, wins, total FROM factor_performance WHERE symbol = $1`,
		symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("querying factor counters: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]adaptive.Counter)
	for rows.Next() {
		var factor string
		var c adaptive.Counter
		if err := rows.Scan(&factor, &c.Wins, &c.Total); err != nil {
			return nil, fmt.Errorf("scanning factor counter: %w", err)
		}
		counters[factor] = c
	}
	return counters, rows.Err()
}
