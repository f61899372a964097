package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"fusion-trading-bot/internal/adaptive"
	"fusion-trading-bot/internal/binance"
)

type fakeProvider struct {
	klines map[string][]binance.Kline
	fr     float64
	oi     []binance.OpenInterestPoint
	err    error
}

func (f *fakeProvider) GetKlines(_ context.Context, _, interval string, _ int) ([]binance.Kline, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.klines[interval], nil
}

func (f *fakeProvider) GetFundingRate(_ context.Context, symbol string) (*binance.FundingRate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &binance.FundingRate{Symbol: symbol, LastFundingRate: f.fr}, nil
}

func (f *fakeProvider) GetOpenInterestHistory(_ context.Context, _, _ string, _ int) ([]binance.OpenInterestPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.oi, nil
}

func newTestEngine(p MarketDataProvider) *Engine {
	learner := adaptive.NewLearner(adaptive.NewMemoryStore(), zerolog.Nop())
	return NewEngine(p, learner, nil, 100, zerolog.Nop())
}

func TestEngineEvaluateUptrend(t *testing.T) {
	provider := &fakeProvider{
		klines: map[string][]binance.Kline{
			"4h":  trendingKlines(250, 100, 0.5, 0.8),
			"1h":  trendingKlines(120, 100, 0.5, 0.8),
			"15m": trendingKlines(50, 120, 0.3, 0.8),
		},
		fr: 0.0001,
		oi: []binance.OpenInterestPoint{{SumOpenInterest: 1000}, {SumOpenInterest: 1030}},
	}
	engine := newTestEngine(provider)

	ev := engine.Evaluate(context.Background(), "BTCUSDT")

	if ev.Error != "" {
		t.Fatalf("unexpected error: %s", ev.Error)
	}
	if ev.ID == "" {
		t.Error("evaluation should carry an ID")
	}
	if ev.Category != "mainstream" {
		t.Errorf("category = %s, want mainstream", ev.Category)
	}
	if ev.Trend == nil || ev.Trend.Direction != DirectionUp {
		t.Fatalf("trend = %+v, want UP", ev.Trend)
	}
	if ev.Decision.Signal != ActionBuy {
		t.Fatalf("signal = %s (%s), want BUY", ev.Decision.Signal, ev.Decision.Reason)
	}
	if ev.Params.Leverage < 1 {
		t.Errorf("accepted signal should be sized, got %+v", ev.Params)
	}
	if ev.Params.StopLoss >= ev.Params.EntryPrice {
		t.Errorf("long stop %f should sit below entry %f", ev.Params.StopLoss, ev.Params.EntryPrice)
	}
}

func TestEngineEvaluateFetchFailure(t *testing.T) {
	engine := newTestEngine(&fakeProvider{err: errors.New("connection reset")})

	ev := engine.Evaluate(context.Background(), "BTCUSDT")

	if ev.Decision.Signal != ActionError {
		t.Errorf("signal = %s, want ERROR on fetch failure", ev.Decision.Signal)
	}
	if ev.Error == "" {
		t.Error("fetch failure should surface in the evaluation")
	}
}

func TestEngineEvaluateShortMacroHistoryHolds(t *testing.T) {
	provider := &fakeProvider{
		klines: map[string][]binance.Kline{
			"4h":  trendingKlines(150, 100, 0.5, 0.8), // below the 200 minimum
			"1h":  flatKlines(120, 100),
			"15m": flatKlines(50, 100),
		},
	}
	engine := newTestEngine(provider)

	ev := engine.Evaluate(context.Background(), "BTCUSDT")

	if ev.Trend.Score != 0 {
		t.Errorf("macro score = %f, want 0 with short history", ev.Trend.Score)
	}
	if ev.Decision.Signal != ActionHold {
		t.Errorf("signal = %s, want HOLD", ev.Decision.Signal)
	}
	if ev.Params != (TradeParameters{}) {
		t.Errorf("hold must not be sized, got %+v", ev.Params)
	}
}

func TestEngineRecordOutcome(t *testing.T) {
	provider := &fakeProvider{}
	engine := newTestEngine(provider)

	err := engine.RecordOutcome(context.Background(), "BTCUSDT",
		map[string]bool{"breakout": true, "volume": true}, true)
	if err != nil {
		t.Fatalf("record outcome failed: %v", err)
	}

	engineNoLearner := NewEngine(provider, nil, nil, 100, zerolog.Nop())
	if err := engineNoLearner.RecordOutcome(context.Background(), "BTCUSDT", nil, true); err == nil {
		t.Error("expected error with learning disabled")
	}
}
