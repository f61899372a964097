package strategy

import (
	"fmt"
	"math"

	"fusion-trading-bot/internal/binance"
	"fusion-trading-bot/internal/classifier"
)

// Candle depth the 15M analysis needs
const minMicroCandles = 15

// EntryScore is the 15M verdict: an execution signal with its trigger levels,
// a 0-5 quality score, and a 0-2 market structure score.
type EntryScore struct {
	Symbol         string  `json:"symbol"`
	Signal         Action  `json:"signal"`
	Reason         string  `json:"reason"`
	Score          float64 `json:"score"`           // 0-5
	StructureScore float64 `json:"structure_score"` // 0-2
	RangeBreakout  bool    `json:"range_breakout"`

	// Stop/target computed only for range false-breakout entries; trend
	// entries leave risk placement to the position sizer.
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`

	EMA20 float64 `json:"ema20"`
	ADX   float64 `json:"adx"`
	BBW   float64 `json:"bbw"`
	VWAP  float64 `json:"vwap"`
	Delta float64 `json:"delta"`
	ATR   float64 `json:"atr"`
}

// EntryScorer grades the 15M execution timeframe
type EntryScorer struct {
	cfg *FusionConfig
}

func NewEntryScorer(cfg *FusionConfig) *EntryScorer {
	return &EntryScorer{cfg: cfg}
}

// Score analyzes the 15M candles. In a trending market it looks for a
// momentum entry in the trend direction; in a range it looks for a validated
// false breakout through a confirmed boundary. The boundary may be nil in
// trending markets.
func (s *EntryScorer) Score(data *MarketData, trend *TrendScore, boundary *RangeBoundary) (*EntryScore, error) {
	klines := data.Klines15m
	if len(klines) < minMicroCandles {
		return nil, fmt.Errorf("insufficient 15M data for %s: have %d candles, need %d",
			data.Symbol, len(klines), minMicroCandles)
	}

	price := klines[len(klines)-1].Close
	ema20 := CalculateEMA(klines, 20)
	adx := CalculateADX(klines, 14)
	bb := CalculateBollingerBands(klines, 20, 2.0)
	bbw := bb.Width()
	vwap := CalculateVWAP(klines)
	delta := CalculateDelta(klines)

	atr := CalculateATR(klines, 14)
	if atr <= 0 {
		// Thin data fallback so risk placement never divides by zero
		atr = price * 0.01
	}

	es := &EntryScore{
		Symbol: data.Symbol,
		Signal: ActionHold,
		EMA20:  ema20,
		ADX:    adx.ADX,
		BBW:    bbw,
		VWAP:   vwap,
		Delta:  delta,
		ATR:    atr,
	}

	if trend.MarketType == classifier.MarketRange {
		s.scoreRangeEntry(es, klines[len(klines)-2].Close, price, boundary)
	} else {
		s.scoreTrendEntry(es, price, trend.Direction)
	}

	// Execution quality, one point per factor
	if ema20 > 0 {
		es.Score++
	}
	if adx.ADX > 20 {
		es.Score++
	}
	if bbw > 0 && bbw < 0.1 {
		es.Score++
	}
	if vwap > 0 {
		es.Score++
	}
	if math.Abs(delta) > 0.1 {
		es.Score++
	}

	es.StructureScore = analyzeStructure(data.Klines15m, trend.Direction)

	return es, nil
}

// scoreTrendEntry fires when momentum, volatility, VWAP side and taker flow
// all line up with the 4H direction.
func (s *EntryScorer) scoreTrendEntry(es *EntryScore, price float64, dir Direction) {
	trending := es.ADX > s.cfg.MicroADXTrigger
	volatile := es.BBW > s.cfg.MacroBBWExpansion

	switch {
	case dir == DirectionUp && trending && volatile && price > es.VWAP && es.Delta > 0.1:
		es.Signal = ActionBuy
		es.Reason = "trend long"
		es.EntryPrice = price
	case dir == DirectionDown && trending && volatile && price < es.VWAP && es.Delta < -0.1:
		es.Signal = ActionSell
		es.Reason = "trend short"
		es.EntryPrice = price
	default:
		es.Reason = "no trend trigger"
	}
}

// scoreRangeEntry fires on a false breakout: the previous close pierced a
// validated boundary and the last close came back inside. Stop goes one ATR
// beyond the boundary; target is the configured reward multiple of the risk.
func (s *EntryScorer) scoreRangeEntry(es *EntryScore, prevClose, lastClose float64, boundary *RangeBoundary) {
	if es.BBW >= s.cfg.RangeBBWCompression {
		es.Reason = "bands not compressed"
		return
	}
	if boundary == nil || (!boundary.LowerValid && !boundary.UpperValid) {
		es.Reason = "no valid boundary"
		return
	}

	rr := s.cfg.RangeBreakoutRR

	if boundary.LowerValid && prevClose < boundary.Lower && lastClose > boundary.Lower {
		stop := boundary.Lower - es.ATR
		es.Signal = ActionBuy
		es.Reason = "range false breakout long"
		es.RangeBreakout = true
		es.EntryPrice = lastClose
		es.StopLoss = stop
		es.TakeProfit = lastClose + rr*(lastClose-stop)
		return
	}

	if boundary.UpperValid && prevClose > boundary.Upper && lastClose < boundary.Upper {
		stop := boundary.Upper + es.ATR
		es.Signal = ActionSell
		es.Reason = "range false breakout short"
		es.RangeBreakout = true
		es.EntryPrice = lastClose
		es.StopLoss = stop
		es.TakeProfit = lastClose - rr*(stop-lastClose)
		return
	}

	es.Reason = "no false breakout"
}

// analyzeStructure compares the last 12 candles against the 12 before them
// looking for higher highs / higher lows (uptrend) or lower lows / lower
// highs (downtrend). One point per confirmed swing, a half point when the
// trend is clear but the structure is not, zero in a range.
func analyzeStructure(klines []binance.Kline, dir Direction) float64 {
	if len(klines) < 24 || dir == DirectionNeutral {
		return 0
	}

	recent := klines[len(klines)-12:]
	prev := klines[len(klines)-24 : len(klines)-12]

	recentHigh, recentLow := extremes(recent)
	prevHigh, prevLow := extremes(prev)
	if prevHigh == 0 || prevLow == 0 {
		return 0
	}

	const minChange = 0.001
	highChange := math.Abs(recentHigh-prevHigh) / prevHigh
	lowChange := math.Abs(recentLow-prevLow) / prevLow

	score := 0.0
	if dir == DirectionUp {
		if recentHigh > prevHigh && highChange >= minChange {
			score++
		}
		if recentLow > prevLow && lowChange >= minChange {
			score++
		}
	} else {
		if recentLow < prevLow && lowChange >= minChange {
			score++
		}
		if recentHigh < prevHigh && highChange >= minChange {
			score++
		}
	}

	if score == 0 {
		// Clear trend without clean swings still earns a base credit
		score = 0.5
	}
	return score
}

func extremes(klines []binance.Kline) (high, low float64) {
	for i, k := range klines {
		if i == 0 || k.High > high {
			high = k.High
		}
		if i == 0 || k.Low < low {
			low = k.Low
		}
	}
	return high, low
}
