package strategy

import (
	"math"

	"fusion-trading-bot/internal/binance"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// CalculateSMA calculates Simple Moving Average
func CalculateSMA(klines []binance.Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}

	sum := 0.0
	startIdx := len(klines) - period

	for i := startIdx; i < len(klines); i++ {
		sum += klines[i].Close
	}

	return sum / float64(period)
}

// CalculateEMA calculates Exponential Moving Average
func CalculateEMA(klines []binance.Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}

	// Seed with the SMA of the first window, then roll forward
	sma := CalculateSMA(klines[:period], period)
	multiplier := 2.0 / float64(period+1)

	ema := sma
	for i := period; i < len(klines); i++ {
		ema = (klines[i].Close * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// emaSeries computes an EMA over a raw value series, SMA-seeded
func emaSeries(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out = append(out, ema)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i] * multiplier) + (ema * (1 - multiplier))
		out = append(out, ema)
	}
	return out
}

// ============================================================================
// MACD
// ============================================================================

// MACDResult holds MACD line, signal line and histogram values
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// CalculateMACD calculates MACD with a real signal line: the MACD series is
// built candle by candle and the signal is its EMA.
func CalculateMACD(klines []binance.Kline, fastPeriod, slowPeriod, signalPeriod int) *MACDResult {
	if len(klines) < slowPeriod+signalPeriod {
		return &MACDResult{}
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	fastSeries := emaSeries(closes, fastPeriod)
	slowSeries := emaSeries(closes, slowPeriod)

	// Align: the slow series starts (slowPeriod-fastPeriod) candles later
	offset := slowPeriod - fastPeriod
	macdSeries := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdSeries[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := emaSeries(macdSeries, signalPeriod)
	if len(signalSeries) == 0 {
		return &MACDResult{}
	}

	macd := macdSeries[len(macdSeries)-1]
	signal := signalSeries[len(signalSeries)-1]

	return &MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerBandsResult holds Bollinger Bands values
type BollingerBandsResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// CalculateBollingerBands calculates Bollinger Bands over the closing prices
func CalculateBollingerBands(klines []binance.Kline, period int, stdDevMultiplier float64) *BollingerBandsResult {
	if len(klines) < period || period <= 0 {
		return &BollingerBandsResult{}
	}

	middle := CalculateSMA(klines, period)

	variance := 0.0
	startIdx := len(klines) - period
	for i := startIdx; i < len(klines); i++ {
		diff := klines[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return &BollingerBandsResult{
		Upper:  middle + (stdDev * stdDevMultiplier),
		Middle: middle,
		Lower:  middle - (stdDev * stdDevMultiplier),
	}
}

// Width returns band width normalized by the middle band. Near-zero width
// means tight consolidation; widening bands mean expanding volatility.
func (b *BollingerBandsResult) Width() float64 {
	if b.Middle == 0 {
		return 0
	}
	return (b.Upper - b.Lower) / b.Middle
}

// ============================================================================
// ATR
// ============================================================================

// CalculateATR calculates Average True Range
func CalculateATR(klines []binance.Kline, period int) float64 {
	if len(klines) < period+1 || period <= 0 {
		return 0
	}

	trSum := 0.0
	startIdx := len(klines) - period

	for i := startIdx; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trSum += tr
	}

	return trSum / float64(period)
}

// ============================================================================
// ADX (Wilder)
// ============================================================================

// ADXResult carries the directional index and both directional indicators
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// CalculateADX calculates Wilder's Average Directional Index with smoothed
// +DI/-DI. Needs at least 2*period+1 candles for a meaningful reading.
func CalculateADX(klines []binance.Kline, period int) *ADXResult {
	if len(klines) < 2*period+1 || period <= 0 {
		return &ADXResult{}
	}

	n := len(klines)
	trs := make([]float64, 0, n-1)
	plusDMs := make([]float64, 0, n-1)
	minusDMs := make([]float64, 0, n-1)

	for i := 1; i < n; i++ {
		high, low := klines[i].High, klines[i].Low
		prevHigh, prevLow, prevClose := klines[i-1].High, klines[i-1].Low, klines[i-1].Close

		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trs = append(trs, tr)

		upMove := high - prevHigh
		downMove := prevLow - low

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		plusDMs = append(plusDMs, plusDM)
		minusDMs = append(minusDMs, minusDM)
	}

	// Wilder smoothing, seeded with the first window's sum
	smoothTR, smoothPlus, smoothMinus := 0.0, 0.0, 0.0
	for i := 0; i < period; i++ {
		smoothTR += trs[i]
		smoothPlus += plusDMs[i]
		smoothMinus += minusDMs[i]
	}

	dx := func() float64 {
		if smoothTR == 0 {
			return 0
		}
		plusDI := 100 * smoothPlus / smoothTR
		minusDI := 100 * smoothMinus / smoothTR
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	dxSum := dx()
	dxCount := 1

	adx := 0.0
	for i := period; i < len(trs); i++ {
		smoothTR = smoothTR - smoothTR/float64(period) + trs[i]
		smoothPlus = smoothPlus - smoothPlus/float64(period) + plusDMs[i]
		smoothMinus = smoothMinus - smoothMinus/float64(period) + minusDMs[i]

		if dxCount < period {
			dxSum += dx()
			dxCount++
			if dxCount == period {
				adx = dxSum / float64(period)
			}
		} else {
			adx = (adx*float64(period-1) + dx()) / float64(period)
		}
	}

	res := &ADXResult{ADX: adx}
	if smoothTR > 0 {
		res.PlusDI = 100 * smoothPlus / smoothTR
		res.MinusDI = 100 * smoothMinus / smoothTR
	}
	return res
}

// ============================================================================
// VWAP / VOLUME
// ============================================================================

// CalculateVWAP calculates the volume-weighted average price over the window
// using the typical price of each candle.
func CalculateVWAP(klines []binance.Kline) float64 {
	pvSum, vSum := 0.0, 0.0
	for _, k := range klines {
		typical := (k.High + k.Low + k.Close) / 3
		pvSum += typical * k.Volume
		vSum += k.Volume
	}
	if vSum == 0 {
		return 0
	}
	return pvSum / vSum
}

// CalculateAverageVolume calculates average volume over a period
func CalculateAverageVolume(klines []binance.Kline, period int) float64 {
	if len(klines) == 0 {
		return 0
	}
	if len(klines) < period {
		period = len(klines)
	}

	sum := 0.0
	startIdx := len(klines) - period
	for i := startIdx; i < len(klines); i++ {
		sum += klines[i].Volume
	}
	return sum / float64(period)
}

// CalculateDelta returns the normalized taker buy/sell imbalance of the last
// candle: (buyVolume - sellVolume) / totalVolume, in [-1, 1]. Positive values
// mean aggressive buying.
func CalculateDelta(klines []binance.Kline) float64 {
	if len(klines) == 0 {
		return 0
	}
	k := klines[len(klines)-1]
	if k.Volume == 0 {
		return 0
	}
	buy := k.TakerBuyBaseAssetVolume
	sell := k.Volume - buy
	return (buy - sell) / k.Volume
}

// CalculateVolumeRatio returns current volume over the trailing average,
// excluding the current candle from the baseline.
func CalculateVolumeRatio(klines []binance.Kline, period int) float64 {
	if len(klines) < 2 {
		return 0
	}
	avg := CalculateAverageVolume(klines[:len(klines)-1], period)
	if avg == 0 {
		return 0
	}
	return klines[len(klines)-1].Volume / avg
}

// ============================================================================
// OPEN INTEREST
// ============================================================================

// CalculateOIChange returns the fractional open interest change from the first
// to the last sample in the window.
func CalculateOIChange(points []binance.OpenInterestPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	first := points[0].SumOpenInterest
	last := points[len(points)-1].SumOpenInterest
	if first == 0 {
		return 0
	}
	return (last - first) / first
}
