package strategy

import (
	"math"

	"fusion-trading-bot/internal/classifier"
)

// Candle depth the 4H analysis needs for a full MA200 read
const minMacroCandles = 200

// TrendScore is the 4H macro verdict: regime, direction, a 0-10 score and a
// 0-1 confidence, plus the raw readings the downstream layers reuse.
type TrendScore struct {
	Symbol     string                `json:"symbol"`
	MarketType classifier.MarketType `json:"market_type"`
	Direction  Direction             `json:"direction"`
	Score      float64               `json:"score"`      // 0-10
	Confidence float64               `json:"confidence"` // 0-1

	ADX         float64 `json:"adx"`
	BBWidth     float64 `json:"bb_width"`
	MACDHist    float64 `json:"macd_histogram"`
	MA20        float64 `json:"ma20"`
	MA50        float64 `json:"ma50"`
	MA200       float64 `json:"ma200"`
	ATR         float64 `json:"atr"`
	VolumeDelta float64 `json:"volume_delta"`
	FundingRate float64 `json:"funding_rate"`
}

// TrendScorer grades the 4H timeframe
type TrendScorer struct {
	cfg *FusionConfig
}

func NewTrendScorer(cfg *FusionConfig) *TrendScorer {
	return &TrendScorer{cfg: cfg}
}

// Score analyzes the 4H candles. Score components: trend stability (0-2),
// trend strength via ADX (0-2), MACD momentum (0-3), Bollinger expansion
// (0-1), volume delta (0-1) and funding anomaly (0-1), for a 10-point maximum.
//
// Too little history is not an error: the scorer degrades to a zero-score
// range read so the fusion layer holds instead of aborting the evaluation.
func (s *TrendScorer) Score(data *MarketData) *TrendScore {
	klines := data.Klines4h
	if len(klines) < minMacroCandles {
		return &TrendScore{
			Symbol:     data.Symbol,
			MarketType: classifier.MarketRange,
			Direction:  DirectionNeutral,
		}
	}

	ma20 := CalculateSMA(klines, 20)
	ma50 := CalculateSMA(klines, 50)
	ma200 := CalculateSMA(klines, 200)
	adx := CalculateADX(klines, 14)
	bb := CalculateBollingerBands(klines, 20, 2.0)
	bbw := bb.Width()
	macd := CalculateMACD(klines, 12, 26, 9)
	atr := CalculateATR(klines, 14)
	delta := CalculateDelta(klines)

	ts := &TrendScore{
		Symbol:      data.Symbol,
		ADX:         adx.ADX,
		BBWidth:     bbw,
		MACDHist:    macd.Histogram,
		MA20:        ma20,
		MA50:        ma50,
		MA200:       ma200,
		ATR:         atr,
		VolumeDelta: delta,
		FundingRate: data.FundingRate,
	}

	// Regime and direction from MA alignment. A full bullish or bearish stack
	// (price included) is a stable trend; only the short pair aligned is a
	// forming one; no alignment at all reads as a range.
	price := klines[len(klines)-1].Close
	bullStack := price > ma20 && ma20 > ma50 && ma50 > ma200
	bearStack := price < ma20 && ma20 < ma50 && ma50 < ma200
	bullForming := !bullStack && price > ma20 && ma20 > ma50
	bearForming := !bearStack && price < ma20 && ma20 < ma50

	stability := 0.0
	switch {
	case bullStack || bearStack:
		stability = 2
		if bullStack {
			ts.Direction = DirectionUp
		} else {
			ts.Direction = DirectionDown
		}
		ts.MarketType = classifier.MarketTrend
	case bullForming || bearForming:
		stability = 1
		if bullForming {
			ts.Direction = DirectionUp
		} else {
			ts.Direction = DirectionDown
		}
		// A forming stack without directional strength behind it is still
		// a range for position-policy purposes.
		if adx.ADX > s.cfg.MacroADXWeak {
			ts.MarketType = classifier.MarketTrend
		} else {
			ts.MarketType = classifier.MarketRange
		}
	default:
		ts.Direction = DirectionNeutral
		ts.MarketType = classifier.MarketRange
	}

	// In a range, direction follows the directional indicators so a fused
	// range-breakout signal still knows which side it favors.
	if ts.MarketType == classifier.MarketRange && ts.Direction == DirectionNeutral {
		if adx.PlusDI > adx.MinusDI {
			ts.Direction = DirectionUp
		} else if adx.MinusDI > adx.PlusDI {
			ts.Direction = DirectionDown
		}
	}

	// Trend strength
	strength := 0.0
	switch {
	case adx.ADX > s.cfg.MacroADXStrong:
		strength = 2
	case adx.ADX > s.cfg.MacroADXWeak:
		strength = 1
	}

	// MACD momentum: full points when the histogram agrees with the trend
	// direction, a single point for any momentum at all.
	momentum := 0.0
	trendingUp := ts.Direction == DirectionUp && macd.Histogram > 0
	trendingDown := ts.Direction == DirectionDown && macd.Histogram < 0
	switch {
	case ts.MarketType == classifier.MarketTrend && (trendingUp || trendingDown):
		momentum = 3
	case macd.Histogram != 0:
		momentum = 1
	}

	expansion := 0.0
	if bbw > s.cfg.MacroBBWExpansion {
		expansion = 1
	}

	volumeScore := 0.0
	if math.Abs(delta) > 0.1 {
		volumeScore = 1
	}

	fundingScore := 0.0
	if math.Abs(data.FundingRate) > s.cfg.FundingAnomalyRate {
		fundingScore = 1
	}

	ts.Score = stability + strength + momentum + expansion + volumeScore + fundingScore

	// Confidence: ADX conviction and band width move a 0.5 baseline
	confidence := 0.5
	switch {
	case adx.ADX > 25:
		confidence += 0.3
	case adx.ADX > 20:
		confidence += 0.2
	case adx.ADX < 15:
		confidence -= 0.2
	}
	switch {
	case bbw < 0.05:
		confidence += 0.2
	case bbw > 0.15:
		confidence -= 0.1
	}
	ts.Confidence = clamp01(confidence)

	return ts
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
