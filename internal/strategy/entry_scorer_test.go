package strategy

import (
	"math"
	"testing"

	"fusion-trading-bot/internal/classifier"
)

func TestEntryScorerInsufficientData(t *testing.T) {
	scorer := NewEntryScorer(DefaultFusionConfig())

	_, err := scorer.Score(&MarketData{
		Symbol:    "BTCUSDT",
		Klines15m: trendingKlines(10, 100, 0.3, 0.8),
	}, upTrend(), nil)

	if err == nil {
		t.Fatal("expected insufficient data error")
	}
}

func TestEntryScorerTrendLong(t *testing.T) {
	scorer := NewEntryScorer(DefaultFusionConfig())

	es, err := scorer.Score(&MarketData{
		Symbol:    "BTCUSDT",
		Klines15m: trendingKlines(50, 100, 0.3, 0.8),
	}, upTrend(), nil)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	if es.Signal != ActionBuy {
		t.Fatalf("signal = %s (%s), want BUY", es.Signal, es.Reason)
	}
	if es.RangeBreakout {
		t.Error("trend entry must not be flagged as range breakout")
	}
	if es.Score < 4 {
		t.Errorf("entry score = %f, want >= 4", es.Score)
	}
	if es.StructureScore != 2 {
		t.Errorf("structure score = %f, want 2 (HH+HL)", es.StructureScore)
	}
}

func TestEntryScorerTrendShort(t *testing.T) {
	scorer := NewEntryScorer(DefaultFusionConfig())
	downTrend := &TrendScore{Direction: DirectionDown, MarketType: classifier.MarketTrend}

	es, err := scorer.Score(&MarketData{
		Symbol:    "BTCUSDT",
		Klines15m: trendingKlines(50, 200, -0.3, 0.2),
	}, downTrend, nil)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	if es.Signal != ActionSell {
		t.Fatalf("signal = %s (%s), want SELL", es.Signal, es.Reason)
	}
	if es.StructureScore != 2 {
		t.Errorf("structure score = %f, want 2 (LL+LH)", es.StructureScore)
	}
}

func TestEntryScorerTrendAgainstDirectionHolds(t *testing.T) {
	scorer := NewEntryScorer(DefaultFusionConfig())
	downTrend := &TrendScore{Direction: DirectionDown, MarketType: classifier.MarketTrend}

	// Rising tape against a downtrend read: no short trigger
	es, err := scorer.Score(&MarketData{
		Symbol:    "BTCUSDT",
		Klines15m: trendingKlines(50, 100, 0.3, 0.8),
	}, downTrend, nil)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	if es.Signal != ActionHold {
		t.Errorf("signal = %s, want HOLD", es.Signal)
	}
}

func TestEntryScorerRangeFalseBreakoutLong(t *testing.T) {
	scorer := NewEntryScorer(DefaultFusionConfig())
	rangeTrend := &TrendScore{Direction: DirectionNeutral, MarketType: classifier.MarketRange}

	klines := flatKlines(50, 100)
	setClose(klines, 48, 98.5) // pierce below the boundary
	setClose(klines, 49, 99.5) // reclaim

	boundary := &RangeBoundary{Lower: 99.0, Upper: 101.0, LowerValid: true}

	es, err := scorer.Score(&MarketData{Symbol: "BTCUSDT", Klines15m: klines}, rangeTrend, boundary)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	if es.Signal != ActionBuy {
		t.Fatalf("signal = %s (%s), want BUY", es.Signal, es.Reason)
	}
	if !es.RangeBreakout {
		t.Error("range false breakout must be flagged")
	}
	if es.StopLoss >= boundary.Lower {
		t.Errorf("stop %f should sit below the boundary %f", es.StopLoss, boundary.Lower)
	}

	// Reward:risk holds the configured minimum
	risk := es.EntryPrice - es.StopLoss
	reward := es.TakeProfit - es.EntryPrice
	if risk <= 0 {
		t.Fatalf("non-positive risk: entry=%f stop=%f", es.EntryPrice, es.StopLoss)
	}
	if rr := reward / risk; math.Abs(rr-4.5) > 1e-9 {
		t.Errorf("reward:risk = %f, want 4.5", rr)
	}
}

func TestEntryScorerRangeWithoutValidBoundaryHolds(t *testing.T) {
	scorer := NewEntryScorer(DefaultFusionConfig())
	rangeTrend := &TrendScore{Direction: DirectionNeutral, MarketType: classifier.MarketRange}

	klines := flatKlines(50, 100)
	setClose(klines, 48, 98.5)
	setClose(klines, 49, 99.5)

	// Same shape, but the boundary never validated
	boundary := &RangeBoundary{Lower: 99.0, Upper: 101.0}

	es, err := scorer.Score(&MarketData{Symbol: "BTCUSDT", Klines15m: klines}, rangeTrend, boundary)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if es.Signal != ActionHold {
		t.Errorf("signal = %s, want HOLD without a valid boundary", es.Signal)
	}

	// And with no boundary analysis at all
	es, err = scorer.Score(&MarketData{Symbol: "BTCUSDT", Klines15m: klines}, rangeTrend, nil)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if es.Signal != ActionHold {
		t.Errorf("signal = %s, want HOLD without boundary data", es.Signal)
	}
}

func TestAnalyzeStructureNeutral(t *testing.T) {
	if got := analyzeStructure(flatKlines(50, 100), DirectionNeutral); got != 0 {
		t.Errorf("neutral structure = %f, want 0", got)
	}

	// Clear direction but flat structure earns the base half point
	if got := analyzeStructure(flatKlines(50, 100), DirectionUp); got != 0.5 {
		t.Errorf("flat structure with direction = %f, want 0.5", got)
	}
}
