package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fusion-trading-bot/internal/adaptive"
	"fusion-trading-bot/internal/binance"
	"fusion-trading-bot/internal/classifier"
)

// MarketDataProvider supplies the raw market data one evaluation needs
type MarketDataProvider interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]binance.Kline, error)
	GetFundingRate(ctx context.Context, symbol string) (*binance.FundingRate, error)
	GetOpenInterestHistory(ctx context.Context, symbol, period string, limit int) ([]binance.OpenInterestPoint, error)
}

// Evaluation is the full output of one engine pass over a symbol
type Evaluation struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`

	Trend    *TrendScore     `json:"trend"`
	Factors  *FactorScore    `json:"factors"`
	Entry    *EntryScore     `json:"entry"`
	Decision *FusionDecision `json:"decision"`
	Params   TradeParameters `json:"params"`

	Error string `json:"error,omitempty"`
}

// Engine wires the three scorers, the fusion layer and the sizer behind one
// Evaluate call. All scoring is pure CPU work; the only blocking happens in
// the market data provider.
type Engine struct {
	provider MarketDataProvider
	learner  *adaptive.Learner
	cfg      *FusionConfig

	trendScorer  *TrendScorer
	factorScorer *FactorScorer
	entryScorer  *EntryScorer
	fuser        *Fuser
	sizer        *Sizer

	logger zerolog.Logger
}

// NewEngine builds an engine. A nil cfg uses the tuned defaults; a nil
// learner disables adaptive weighting and keeps the static tables.
func NewEngine(provider MarketDataProvider, learner *adaptive.Learner, cfg *FusionConfig, maxLoss float64, logger zerolog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultFusionConfig()
	}
	return &Engine{
		provider:     provider,
		learner:      learner,
		cfg:          cfg,
		trendScorer:  NewTrendScorer(cfg),
		factorScorer: NewFactorScorer(cfg),
		entryScorer:  NewEntryScorer(cfg),
		fuser:        NewFuser(cfg),
		sizer:        NewSizer(maxLoss),
		logger:       logger.With().Str("component", "engine").Logger(),
	}
}

// Evaluate runs the full pipeline for one symbol: fetch, score the three
// timeframes, fuse, size. Data fetch failures surface as an ERROR evaluation;
// scoring shortfalls degrade to HOLD.
func (e *Engine) Evaluate(ctx context.Context, symbol string) *Evaluation {
	ev := &Evaluation{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Category:  classifier.Classify(symbol).Name(),
		Timestamp: time.Now().UTC(),
	}

	data, err := e.fetch(ctx, symbol)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("market data fetch failed")
		ev.Error = err.Error()
		ev.Decision = &FusionDecision{Signal: ActionError, Tier: TierNone, Reason: err.Error()}
		return ev
	}

	return e.EvaluateData(ctx, ev, data)
}

// EvaluateData scores pre-fetched market data. Split from Evaluate so cached
// or streamed candles can feed the same pipeline.
func (e *Engine) EvaluateData(ctx context.Context, ev *Evaluation, data *MarketData) *Evaluation {
	trend := e.trendScorer.Score(data)
	ev.Trend = trend

	weights := e.midWeights(ctx, data.Symbol, trend.MarketType)

	// Range boundary analysis only matters in a range regime. It runs before
	// the 1H scoring because the range weight tables are keyed on its factors.
	var (
		boundary *RangeBoundary
		err      error
	)
	if trend.MarketType == classifier.MarketRange {
		boundary, err = e.factorScorer.AnalyzeRangeBoundary(data)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", data.Symbol).Msg("boundary analysis skipped")
		}
	}

	factors, err := e.factorScorer.Score(data, trend, weights, boundary)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", data.Symbol).Msg("1H scoring degraded to hold")
		ev.Error = err.Error()
		ev.Decision = &FusionDecision{Signal: ActionHold, Tier: TierNone, Reason: err.Error()}
		return ev
	}
	ev.Factors = factors

	entry, err := e.entryScorer.Score(data, trend, boundary)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", data.Symbol).Msg("15M scoring degraded to hold")
		ev.Error = err.Error()
		ev.Decision = &FusionDecision{Signal: ActionHold, Tier: TierNone, Reason: err.Error()}
		return ev
	}
	ev.Entry = entry

	dec := e.fuser.Fuse(trend, factors, entry)
	ev.Decision = dec

	if dec.Signal == ActionBuy || dec.Signal == ActionSell {
		price := lastClose(data.Klines15m)
		if dec.Tier == TierRange && entry.StopLoss > 0 {
			ev.Params = e.sizer.SizeWithLevels(data.Symbol, entry.EntryPrice, entry.StopLoss, entry.TakeProfit, trend.MarketType)
		} else {
			// Macro ATR is the stable reference; micro ATR backs it up
			atr := trend.ATR
			if atr <= 0 {
				atr = entry.ATR
			}
			ev.Params = e.sizer.Size(data.Symbol, dec.Signal, price, atr, trend.MarketType, dec.Confidence)
		}
	}

	e.logger.Info().
		Str("symbol", data.Symbol).
		Str("signal", string(dec.Signal)).
		Str("tier", dec.Tier).
		Int("normalized", dec.NormalizedScore).
		Float64("macro", trend.Score).
		Float64("mid", factors.Score).
		Float64("micro", entry.Score).
		Msg("evaluation complete")

	return ev
}

// midWeights returns the 1H factor weight table for the symbol, adjusted by
// accumulated win rates when the learner has enough samples.
func (e *Engine) midWeights(ctx context.Context, symbol string, marketType classifier.MarketType) classifier.FactorWeights {
	base := classifier.WeightsForSymbol(symbol, marketType, classifier.Timeframe1H)
	if e.learner == nil {
		return base
	}

	adjusted, err := e.learner.AdjustedWeights(ctx, symbol, base)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("adaptive weights unavailable, using base")
		return base
	}
	return adjusted
}

// AdjustedWeights exposes the learner-adjusted weight table for inspection.
// With no learner the base table comes back unchanged.
func (e *Engine) AdjustedWeights(ctx context.Context, symbol string, base classifier.FactorWeights) (classifier.FactorWeights, error) {
	if e.learner == nil {
		return base, nil
	}
	return e.learner.AdjustedWeights(ctx, symbol, base)
}

// RecordOutcome feeds a realized trade result back into the adaptive learner
func (e *Engine) RecordOutcome(ctx context.Context, symbol string, triggered map[string]bool, win bool) error {
	if e.learner == nil {
		return fmt.Errorf("adaptive learning disabled")
	}
	return e.learner.RecordFactorPerformance(ctx, symbol, triggered, win)
}

func (e *Engine) fetch(ctx context.Context, symbol string) (*MarketData, error) {
	klines4h, err := e.provider.GetKlines(ctx, symbol, "4h", 250)
	if err != nil {
		return nil, fmt.Errorf("fetching 4h klines: %w", err)
	}
	klines1h, err := e.provider.GetKlines(ctx, symbol, "1h", 120)
	if err != nil {
		return nil, fmt.Errorf("fetching 1h klines: %w", err)
	}
	klines15m, err := e.provider.GetKlines(ctx, symbol, "15m", 50)
	if err != nil {
		return nil, fmt.Errorf("fetching 15m klines: %w", err)
	}

	data := &MarketData{
		Symbol:    symbol,
		Klines4h:  klines4h,
		Klines1h:  klines1h,
		Klines15m: klines15m,
	}

	// Funding and OI are confirmations, not prerequisites: fetch failures
	// zero them out instead of failing the evaluation.
	if fr, err := e.provider.GetFundingRate(ctx, symbol); err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("funding rate unavailable")
	} else {
		data.FundingRate = fr.LastFundingRate
	}

	if oi, err := e.provider.GetOpenInterestHistory(ctx, symbol, "1h", 7); err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("open interest unavailable")
	} else {
		data.OIChange1h = CalculateOIChange(oi)
	}

	return data, nil
}

func lastClose(klines []binance.Kline) float64 {
	if len(klines) == 0 {
		return 0
	}
	return klines[len(klines)-1].Close
}
