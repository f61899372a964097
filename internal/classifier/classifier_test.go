package classifier

import (
	"math"
	"testing"
)

// TestClassifyKnownSymbols verifies every configured symbol maps back to its category
func TestClassifyKnownSymbols(t *testing.T) {
	for cat, symbols := range categorySymbols {
		for _, s := range symbols {
			if got := Classify(s); got != cat {
				t.Errorf("Classify(%s) = %s, want %s", s, got, cat)
			}
		}
	}
}

// TestClassifyUnknownSymbol verifies the documented default category
func TestClassifyUnknownSymbol(t *testing.T) {
	if got := Classify("NOSUCHUSDT"); got != Hot {
		t.Errorf("Classify(unknown) = %s, want %s", got, Hot)
	}
}

// TestWeightTablesNormalized verifies all weight tables sum to 1.0
func TestWeightTablesNormalized(t *testing.T) {
	categories := []Category{Mainstream, HighCapTrend, Hot, SmallCap}
	marketTypes := []MarketType{MarketTrend, MarketRange}
	timeframes := []Timeframe{Timeframe1H, Timeframe15M}

	for _, cat := range categories {
		for _, mt := range marketTypes {
			for _, tf := range timeframes {
				w := Weights(cat, mt, tf)
				if math.Abs(w.Sum()-1.0) > 1e-9 {
					t.Errorf("weights for %s/%s/%s sum to %f, want 1.0", cat, mt, tf, w.Sum())
				}
			}
		}
	}
}

// TestWeightsUnknownCategoryFallback verifies fallback to the Hot tables
func TestWeightsUnknownCategoryFallback(t *testing.T) {
	got := Weights(Category("BOGUS"), MarketTrend, Timeframe1H)
	want := Weights(Hot, MarketTrend, Timeframe1H)

	for k, v := range want {
		if got[k] != v {
			t.Errorf("fallback weight %s = %f, want %f", k, got[k], v)
		}
	}
}

// TestWeightedScore verifies binary factor weighting
func TestWeightedScore(t *testing.T) {
	w := Weights(Mainstream, MarketTrend, Timeframe1H)

	// All factors pass
	all := map[string]float64{
		"breakout": 1, "volume": 1, "oiChange": 1, "delta": 1, "fundingRate": 1,
	}
	if s := WeightedScore(w, all); math.Abs(s-1.0) > 1e-9 {
		t.Errorf("all factors passing should score 1.0, got %f", s)
	}

	// Only breakout passes (30% for mainstream trend 1H)
	one := map[string]float64{"breakout": 1}
	if s := WeightedScore(w, one); math.Abs(s-0.30) > 1e-9 {
		t.Errorf("breakout-only score = %f, want 0.30", s)
	}

	if s := WeightedScore(w, nil); s != 0 {
		t.Errorf("no factors should score 0, got %f", s)
	}
}

// TestWeightsReturnsCopy verifies callers cannot mutate the static tables
func TestWeightsReturnsCopy(t *testing.T) {
	w := Weights(Mainstream, MarketTrend, Timeframe1H)
	w["breakout"] = 99

	again := Weights(Mainstream, MarketTrend, Timeframe1H)
	if again["breakout"] == 99 {
		t.Error("Weights returned a reference to the shared table")
	}
}
