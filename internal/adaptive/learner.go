// Package adaptive tracks per-symbol, per-factor win rates from realized trade
// outcomes and nudges the static factor weight tables toward factors with a
// demonstrated edge.
package adaptive

import (
	"context"

	"github.com/rs/zerolog"

	"fusion-trading-bot/internal/classifier"
)

const (
	// MinSamples is the trigger count a factor needs before its win rate is
	// trusted at all. Below this the base weight is used unchanged.
	MinSamples = 10

	// DefaultAlpha bounds the weight swing: at a 100% win rate a factor's
	// weight scales by 1+0.5*alpha, at 0% by 1-0.5*alpha.
	DefaultAlpha = 0.25
)

// Counter accumulates trigger/win counts for one factor
type Counter struct {
	Wins  int `json:"wins"`
	Total int `json:"total"`
}

// WinRate returns wins/total, or 0 when the factor never triggered.
func (c Counter) WinRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Wins) / float64(c.Total)
}

// Store persists per-symbol factor counters. Implementations must serialize
// concurrent increments for the same symbol.
type Store interface {
	Increment(ctx context.Context, symbol, factor string, win bool) error
	Snapshot(ctx context.Context, symbol string) (map[string]Counter, error)
}

// Learner converts accumulated factor performance into weight adjustments
type Learner struct {
	store  Store
	alpha  float64
	logger zerolog.Logger
}

// NewLearner creates a learner over the given store
func NewLearner(store Store, logger zerolog.Logger) *Learner {
	return &Learner{
		store:  store,
		alpha:  DefaultAlpha,
		logger: logger.With().Str("component", "adaptive").Logger(),
	}
}

// RecordFactorPerformance records one realized trade outcome against every
// factor that triggered on the entry. Untriggered factors are untouched:
// absence of evidence is not evidence of absence.
func (l *Learner) RecordFactorPerformance(ctx context.Context, symbol string, triggered map[string]bool, win bool) error {
	for factor, wasTriggered := range triggered {
		if !wasTriggered {
			continue
		}
		if err := l.store.Increment(ctx, symbol, factor, win); err != nil {
			return err
		}
	}

	l.logger.Debug().Str("symbol", symbol).Bool("win", win).
		Int("factors", len(triggered)).Msg("recorded factor performance")
	return nil
}

// FactorWinRates returns win rates for factors with at least MinSamples
// triggers. Factors below the sample floor are omitted.
func (l *Learner) FactorWinRates(ctx context.Context, symbol string) (map[string]float64, error) {
	counters, err := l.store.Snapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]float64)
	for factor, c := range counters {
		if c.Total >= MinSamples {
			rates[factor] = c.WinRate()
		}
	}
	return rates, nil
}

// AdjustWeights scales each base weight by 1 + alpha*(winRate-0.5) for factors
// with a known win rate, leaves the rest alone, and renormalizes so the result
// sums to 1.
func AdjustWeights(base classifier.FactorWeights, winRates map[string]float64, alpha float64) classifier.FactorWeights {
	adjusted := make(classifier.FactorWeights, len(base))
	total := 0.0

	for factor, w := range base {
		if rate, ok := winRates[factor]; ok {
			w *= 1 + alpha*(rate-0.5)
		}
		adjusted[factor] = w
		total += w
	}

	if total <= 0 {
		return base
	}
	for factor := range adjusted {
		adjusted[factor] /= total
	}
	return adjusted
}

// AdjustedWeights returns the symbol's adjusted weight table, or the base
// table untouched when no factor has reached the sample floor yet. Cold-start
// data must not move the weights.
func (l *Learner) AdjustedWeights(ctx context.Context, symbol string, base classifier.FactorWeights) (classifier.FactorWeights, error) {
	rates, err := l.FactorWinRates(ctx, symbol)
	if err != nil {
		return base, err
	}
	if len(rates) == 0 {
		return base, nil
	}
	return AdjustWeights(base, rates, l.alpha), nil
}
