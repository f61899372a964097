package strategy

import (
	"testing"

	"fusion-trading-bot/internal/classifier"
	"fusion-trading-bot/internal/duration"
)

func TestFuseStrongAgreement(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	trend := &TrendScore{Score: 9, Direction: DirectionUp, MarketType: classifier.MarketTrend}
	factor := &FactorScore{Score: 4}
	entry := &EntryScore{Signal: ActionBuy, Score: 4, StructureScore: 2}

	dec := fuser.Fuse(trend, factor, entry)

	if dec.Signal != ActionBuy {
		t.Fatalf("signal = %s (%s), want BUY", dec.Signal, dec.Reason)
	}
	if dec.Tier != TierStrong {
		t.Errorf("tier = %s, want strong", dec.Tier)
	}
	// Macro-heavy weights: 0.9*0.70 + (4/6)*0.25 + (4/5)*0.05 = 0.8367
	if dec.NormalizedScore != 84 {
		t.Errorf("normalized score = %d, want 84", dec.NormalizedScore)
	}
	if dec.Compensation != 2 {
		t.Errorf("compensation = %f, want capped at 2", dec.Compensation)
	}
	if dec.Confidence != duration.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", dec.Confidence)
	}
}

func TestFuseBalancedStrengthStrong(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	// Solid but not dominant macro with a saturated mid and micro: the
	// balanced weights push the normalized score well past the strong band,
	// and the strong macro bar must not demand a macro-heavy reading on top.
	trend := &TrendScore{Score: 7, Direction: DirectionUp, MarketType: classifier.MarketTrend}
	factor := &FactorScore{Score: 6}
	entry := &EntryScore{Signal: ActionBuy, Score: 5, StructureScore: 2}

	dec := fuser.Fuse(trend, factor, entry)

	// Balanced weights: 0.7*0.45 + (6/6)*0.35 + (5/5)*0.20 = 0.865
	if dec.NormalizedScore != 87 {
		t.Errorf("normalized score = %d, want 87", dec.NormalizedScore)
	}
	if dec.Signal != ActionBuy {
		t.Fatalf("signal = %s (%s), want BUY", dec.Signal, dec.Reason)
	}
	if dec.Tier != TierStrong {
		t.Errorf("tier = %s, want strong", dec.Tier)
	}
	if dec.Confidence != duration.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", dec.Confidence)
	}
}

func TestFuseRangeWithoutBreakoutHolds(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	trend := &TrendScore{Score: 5, Direction: DirectionNeutral, MarketType: classifier.MarketRange}
	factor := &FactorScore{Score: 5}
	entry := &EntryScore{Signal: ActionHold, Score: 4}

	dec := fuser.Fuse(trend, factor, entry)

	if dec.Signal != ActionHold {
		t.Errorf("signal = %s, want HOLD in range without breakout", dec.Signal)
	}
}

func TestFuseRangeBreakoutPassesThrough(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	trend := &TrendScore{Score: 3, Direction: DirectionNeutral, MarketType: classifier.MarketRange}
	factor := &FactorScore{Score: 2}
	entry := &EntryScore{
		Signal:        ActionSell,
		Score:         3,
		RangeBreakout: true,
		Reason:        "range false breakout short",
	}

	dec := fuser.Fuse(trend, factor, entry)

	if dec.Signal != ActionSell {
		t.Fatalf("signal = %s, want SELL from validated breakout", dec.Signal)
	}
	if dec.Tier != TierRange {
		t.Errorf("tier = %s, want range_breakout", dec.Tier)
	}
	if dec.Confidence != duration.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium", dec.Confidence)
	}
}

func TestFuseRangeIgnoresNonBreakoutSignal(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	// A directional micro signal without the breakout flag must not trade
	trend := &TrendScore{Score: 3, Direction: DirectionNeutral, MarketType: classifier.MarketRange}
	factor := &FactorScore{Score: 2}
	entry := &EntryScore{Signal: ActionBuy, Score: 3}

	dec := fuser.Fuse(trend, factor, entry)
	if dec.Signal != ActionHold {
		t.Errorf("signal = %s, want HOLD for unvalidated range signal", dec.Signal)
	}
}

func TestFuseGatedMidScoreHolds(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	// VWAP gate zeroed the mid score: even a macro 9 cannot carry the trade
	// because the threshold floor keeps mid=0 from passing.
	trend := &TrendScore{Score: 9, Direction: DirectionUp, MarketType: classifier.MarketTrend}
	factor := &FactorScore{Score: 0}
	entry := &EntryScore{Signal: ActionBuy, Score: 4}

	dec := fuser.Fuse(trend, factor, entry)

	if dec.Signal != ActionHold {
		t.Errorf("signal = %s, want HOLD with gated mid score", dec.Signal)
	}
	if dec.AppliedThresholds.Strong < 0.5 {
		t.Errorf("strong threshold %f fell below the floor", dec.AppliedThresholds.Strong)
	}
}

func TestFuseInsufficientMacroHolds(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	// The zero-score range read produced by short macro history
	trend := &TrendScore{Score: 0, Direction: DirectionNeutral, MarketType: classifier.MarketRange}
	factor := &FactorScore{Score: 5}
	entry := &EntryScore{Signal: ActionHold, Score: 4}

	dec := fuser.Fuse(trend, factor, entry)
	if dec.Signal != ActionHold {
		t.Errorf("signal = %s, want HOLD", dec.Signal)
	}
}

func TestFuseModerateTier(t *testing.T) {
	// The tier machinery with looser bands: band constants are deployment
	// configuration, so exercise the moderate path with a wider window.
	cfg := DefaultFusionConfig()
	cfg.StrongBand = 70
	cfg.ModerateBand = 45
	cfg.WeakBand = 35

	fuser := NewFuser(cfg)

	trend := &TrendScore{Score: 6, Direction: DirectionDown, MarketType: classifier.MarketTrend}
	factor := &FactorScore{Score: 4}
	entry := &EntryScore{Signal: ActionSell, Score: 2}

	dec := fuser.Fuse(trend, factor, entry)

	// Base weights: 0.6*0.55 + (4/6)*0.30 + (2/5)*0.15 = 0.59
	if dec.NormalizedScore != 59 {
		t.Errorf("normalized score = %d, want 59", dec.NormalizedScore)
	}
	if dec.Signal != ActionSell {
		t.Fatalf("signal = %s (%s), want SELL", dec.Signal, dec.Reason)
	}
	if dec.Tier != TierModerate {
		t.Errorf("tier = %s, want moderate", dec.Tier)
	}
	if dec.Confidence != duration.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium", dec.Confidence)
	}
}

func TestDynamicWeightSelection(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	cases := []struct {
		macro, mid, micro float64
		want              TimeframeWeights
	}{
		{9, 2, 1, TimeframeWeights{Macro: 0.70, Mid: 0.25, Micro: 0.05}},  // macro dominant
		{7, 4, 3, TimeframeWeights{Macro: 0.45, Mid: 0.35, Micro: 0.20}},  // balanced strength
		{5, 5, 1, TimeframeWeights{Macro: 0.50, Mid: 0.35, Micro: 0.15}},  // hot mid
		{4, 2, 1, TimeframeWeights{Macro: 0.55, Mid: 0.30, Micro: 0.15}},  // base
	}

	for _, tc := range cases {
		got := fuser.dynamicWeights(tc.macro, tc.mid, tc.micro)
		if got != tc.want {
			t.Errorf("weights(%v,%v,%v) = %+v, want %+v", tc.macro, tc.mid, tc.micro, got, tc.want)
		}
	}
}

func TestCompensationCap(t *testing.T) {
	fuser := NewFuser(DefaultFusionConfig())

	if comp := fuser.compensation(90, 10, 5, 3); comp != 2 {
		t.Errorf("compensation = %f, want capped at 2", comp)
	}
	if comp := fuser.compensation(50, 3, 1, 0); comp != 0 {
		t.Errorf("compensation = %f, want 0 with nothing exceptional", comp)
	}
	if comp := fuser.compensation(76, 7, 4, 2); comp != 2 {
		// 0.5 + 0.5 + 0.5 + 0.5
		t.Errorf("compensation = %f, want 2", comp)
	}
}
