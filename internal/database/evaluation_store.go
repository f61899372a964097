package database

import (
	"context"
	"fmt"
	"time"

	"fusion-trading-bot/internal/strategy"
)

// EvaluationRecord is the stored summary of one engine evaluation
type EvaluationRecord struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Category        string    `json:"category"`
	Signal          string    `json:"signal"`
	Tier            string    `json:"tier"`
	NormalizedScore int       `json:"normalized_score"`
	TrendScore      float64   `json:"trend_score"`
	FactorScore     float64   `json:"factor_score"`
	EntryScore      float64   `json:"entry_score"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	Leverage        int       `json:"leverage"`
	Margin          float64   `json:"margin"`
	CreatedAt       time.Time `json:"created_at"`
}

// EvaluationStore persists evaluation history
type EvaluationStore struct {
	db *DB
}

func NewEvaluationStore(db *DB) *EvaluationStore {
	return &EvaluationStore{db: db}
}

// Save stores one evaluation. Error evaluations are skipped: there is nothing
// actionable to review in them later.
func (s *EvaluationStore) Save(ctx context.Context, ev *strategy.Evaluation) error {
	if ev.Decision == nil || ev.Decision.Signal == strategy.ActionError {
		return nil
	}

	var trendScore, factorScore, entryScore float64
	if ev.Trend != nil {
		trendScore = ev.Trend.Score
	}
	if ev.Factors != nil {
		factorScore = ev.Factors.Score
	}
	if ev.Entry != nil {
		entryScore = ev.Entry.Score
	}

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO evaluations (
			id, symbol, category, signal, tier, normalized_score,
			trend_score, factor_score, entry_score,
			entry_price, stop_loss, take_profit, leverage, margin, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		ev.ID, ev.Symbol, ev.Category, string(ev.Decision.Signal), ev.Decision.Tier,
		ev.Decision.NormalizedScore, trendScore, factorScore, entryScore,
		ev.Params.EntryPrice, ev.Params.StopLoss, ev.Params.TakeProfit,
		ev.Params.Leverage, ev.Params.Margin, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("saving evaluation: %w", err)
	}
	return nil
}

// Recent returns the latest evaluations for a symbol, newest first
func (s *EvaluationStore) Recent(ctx context.Context, symbol string, limit int) ([]EvaluationRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, symbol, category, signal, tier, normalized_score,
			trend_score, factor_score, entry_score,
			entry_price, stop_loss, take_profit, leverage, margin, created_at
		FROM evaluations
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying evaluations: %w", err)
	}
	defer rows.Close()

	var records []EvaluationRecord
	for rows.Next() {
		var r EvaluationRecord
		if err := rows.Scan(
			&r.ID, &r.Symbol, &r.Category, &r.Signal, &r.Tier, &r.NormalizedScore,
			&r.TrendScore, &r.FactorScore, &r.EntryScore,
			&r.EntryPrice, &r.StopLoss, &r.TakeProfit, &r.Leverage, &r.Margin, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning evaluation: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
