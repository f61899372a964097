package strategy

import (
	"fmt"
	"math"

	"fusion-trading-bot/internal/binance"
	"fusion-trading-bot/internal/classifier"
)

// Candle depth the 1H analysis needs
const minMidCandles = 50

// FactorScore is the 1H verdict: a 0-6 raw score over six confirmation
// factors plus a 0-1 category-weighted score. The VWAP side test is a hard
// gate: when it fails, both scores collapse to zero regardless of the rest.
type FactorScore struct {
	Symbol        string          `json:"symbol"`
	Score         float64         `json:"score"`          // 0-6
	WeightedScore float64         `json:"weighted_score"` // 0-1
	Factors       map[string]bool `json:"factors"`
	VWAPGate      bool            `json:"vwap_gate"`

	VWAP        float64 `json:"vwap"`
	EMA20       float64 `json:"ema20"`
	EMA50       float64 `json:"ema50"`
	OIChange    float64 `json:"oi_change"`
	Delta       float64 `json:"delta"`
	FundingRate float64 `json:"funding_rate"`
	ATR         float64 `json:"atr"`
}

// FactorScorer grades the 1H timeframe against the 4H trend direction
type FactorScorer struct {
	cfg *FusionConfig
}

func NewFactorScorer(cfg *FusionConfig) *FactorScorer {
	return &FactorScorer{cfg: cfg}
}

// Score evaluates the six 1H confirmation factors. In a trending market each
// factor confirms the trend direction; in a range the thresholds relax to
// reward prices orbiting their averages instead. The weights table comes from
// the caller so adaptive adjustments can flow through. In a range regime the
// weighted score is computed over the boundary-analysis factors, which is what
// the range weight tables are keyed on; boundary may be nil outside a range.
func (s *FactorScorer) Score(data *MarketData, trend *TrendScore, weights classifier.FactorWeights, boundary *RangeBoundary) (*FactorScore, error) {
	klines := data.Klines1h
	if len(klines) < minMidCandles {
		return nil, fmt.Errorf("insufficient 1H data for %s: have %d candles, need %d",
			data.Symbol, len(klines), minMidCandles)
	}

	price := klines[len(klines)-1].Close
	ema20 := CalculateEMA(klines, 20)
	ema50 := CalculateEMA(klines, 50)
	vwap := CalculateVWAP(klines)
	delta := CalculateDelta(klines)
	atr := CalculateATR(klines, 14)

	fs := &FactorScore{
		Symbol:      data.Symbol,
		Factors:     make(map[string]bool),
		VWAP:        vwap,
		EMA20:       ema20,
		EMA50:       ema50,
		OIChange:    data.OIChange1h,
		Delta:       delta,
		FundingRate: data.FundingRate,
		ATR:         atr,
	}

	inRange := trend.MarketType == classifier.MarketRange
	up := trend.Direction == DirectionUp
	down := trend.Direction == DirectionDown

	// 1. VWAP side, the hard gate. Trending: price must sit on the trend side
	// of VWAP. Range: price within 1% of VWAP counts instead.
	switch {
	case !inRange && up && price > vwap:
		fs.VWAPGate = true
	case !inRange && down && price < vwap:
		fs.VWAPGate = true
	case inRange && vwap > 0 && math.Abs(price-vwap)/vwap < s.cfg.RangeVWAPDeviation:
		fs.VWAPGate = true
	}
	fs.Factors["vwap"] = fs.VWAPGate

	if !fs.VWAPGate {
		return fs, nil
	}

	// 2. Breakout confirmation: EMA alignment in the trend direction, or
	// price hugging EMA20 in a range.
	switch {
	case !inRange && up && price > ema20 && ema20 > ema50:
		fs.Factors["breakout"] = true
	case !inRange && down && price < ema20 && ema20 < ema50:
		fs.Factors["breakout"] = true
	case inRange && ema20 > 0 && math.Abs(price-ema20)/ema20 < s.cfg.RangeEMADeviation:
		fs.Factors["breakout"] = true
	}

	// 3. Volume confirmation: meaningful taker imbalance either way
	fs.Factors["volume"] = math.Abs(delta) > 0.1

	// 4. Open interest: longs build OI, shorts unwind it. Asymmetric by
	// design: shorts need a deeper drawdown to confirm.
	switch {
	case !inRange && up && data.OIChange1h > s.cfg.OIChangeLong:
		fs.Factors["oiChange"] = true
	case !inRange && down && data.OIChange1h < s.cfg.OIChangeShort:
		fs.Factors["oiChange"] = true
	case inRange && math.Abs(data.OIChange1h) > 0.01:
		fs.Factors["oiChange"] = true
	}

	// 5. Funding sanity: extreme funding means a crowded trade
	fs.Factors["fundingRate"] = math.Abs(data.FundingRate) <= s.cfg.FundingAnomalyRate

	// 6. Delta imbalance aligned with direction
	switch {
	case !inRange && up && delta > 0.1:
		fs.Factors["delta"] = true
	case !inRange && down && delta < -0.1:
		fs.Factors["delta"] = true
	case inRange && math.Abs(delta) > 0.05:
		fs.Factors["delta"] = true
	}

	hits := make(map[string]float64, len(fs.Factors))
	for factor, hit := range fs.Factors {
		if hit {
			fs.Score++
			hits[factor] = 1
		}
	}
	if inRange {
		hits = rangeHits(boundary)
	}
	fs.WeightedScore = classifier.WeightedScore(weights, hits)

	return fs, nil
}

// rangeHits maps the boundary analysis onto the factor names the range weight
// tables are keyed on. The vwap hit is implied: this only runs after the VWAP
// gate passed. A nil boundary leaves everything but the gate unconfirmed.
func rangeHits(rb *RangeBoundary) map[string]float64 {
	hits := map[string]float64{"vwap": 1}
	if rb == nil {
		return hits
	}
	if rb.LowerTouches >= 2 || rb.UpperTouches >= 2 {
		hits["touch"] = 1
	}
	if rb.QuietVolume {
		hits["volume"] = 1
	}
	if rb.FlatDelta {
		hits["delta"] = 1
	}
	if rb.FlatOI {
		hits["oi"] = 1
	}
	if rb.NoBreakout {
		hits["noBreakout"] = 1
	}
	return hits
}

// RangeBoundary reports whether the 1H Bollinger band edges are tradeable
// boundaries: repeatedly touched, with the tape quiet enough that a fade or
// false-breakout entry has an edge.
type RangeBoundary struct {
	LowerValid   bool    `json:"lower_valid"`
	UpperValid   bool    `json:"upper_valid"`
	Upper        float64 `json:"upper"`
	Lower        float64 `json:"lower"`
	Middle       float64 `json:"middle"`
	FactorScore  int     `json:"factor_score"` // 0-5
	LowerTouches int     `json:"lower_touches"`
	UpperTouches int     `json:"upper_touches"`

	// The individual quiet-tape reads behind FactorScore
	QuietVolume bool `json:"quiet_volume"`
	FlatDelta   bool `json:"flat_delta"`
	FlatOI      bool `json:"flat_oi"`
	NoBreakout  bool `json:"no_breakout"`
	NearVWAP    bool `json:"near_vwap"`
}

// AnalyzeRangeBoundary validates the 1H range edges. A boundary is valid when
// the last six closes touched it at least twice and at least three of five
// quiet-tape factors hold: subdued volume, flat delta, flat open interest, no
// fresh 20-bar extreme, and price near VWAP.
func (s *FactorScorer) AnalyzeRangeBoundary(data *MarketData) (*RangeBoundary, error) {
	klines := data.Klines1h
	if len(klines) < minMidCandles {
		return nil, fmt.Errorf("insufficient 1H data for range boundary: have %d candles, need %d",
			len(klines), minMidCandles)
	}

	bb := CalculateBollingerBands(klines, 20, 2.0)
	rb := &RangeBoundary{
		Upper:  bb.Upper,
		Lower:  bb.Lower,
		Middle: bb.Middle,
	}

	// Touch counting over the last six closes. The tolerance is price
	// relative but capped at an eighth of the band width, otherwise a tight
	// band lets mid-range closes count as touching both edges at once.
	tol := math.Min(bb.Lower*s.cfg.BoundaryTouchTolerance, (bb.Upper-bb.Lower)/8)
	for _, k := range klines[len(klines)-6:] {
		if k.Close-bb.Lower <= tol {
			rb.LowerTouches++
		}
		if bb.Upper-k.Close <= tol {
			rb.UpperTouches++
		}
	}

	// Quiet-tape factors
	rb.QuietVolume = CalculateVolumeRatio(klines, 20) <= s.cfg.BoundaryVolumeRatio
	rb.FlatDelta = math.Abs(CalculateDelta(klines)) <= 0.02
	rb.FlatOI = math.Abs(data.OIChange1h) <= 0.02
	rb.NoBreakout = noFreshExtreme(klines, 20)
	vwap := CalculateVWAP(klines)
	price := klines[len(klines)-1].Close
	rb.NearVWAP = vwap > 0 && math.Abs(price-vwap)/vwap < 0.02

	for _, hit := range []bool{rb.QuietVolume, rb.FlatDelta, rb.FlatOI, rb.NoBreakout, rb.NearVWAP} {
		if hit {
			rb.FactorScore++
		}
	}

	valid := rb.FactorScore >= s.cfg.BoundaryScoreThreshold
	rb.LowerValid = rb.LowerTouches >= 2 && valid
	rb.UpperValid = rb.UpperTouches >= 2 && valid

	return rb, nil
}

// noFreshExtreme is true when the last candle set neither a new high nor a
// new low over the lookback window.
func noFreshExtreme(klines []binance.Kline, lookback int) bool {
	if len(klines) < lookback {
		return false
	}
	window := klines[len(klines)-lookback:]
	last := window[len(window)-1]

	high, low := window[0].High, window[0].Low
	for _, k := range window[:len(window)-1] {
		if k.High > high {
			high = k.High
		}
		if k.Low < low {
			low = k.Low
		}
	}
	return last.High < high && last.Low > low
}
