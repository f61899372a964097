package strategy

import (
	"fusion-trading-bot/internal/binance"
)

// trendingKlines builds a linear price series. A positive step makes an
// uptrend. buyRatio sets the taker buy share of each candle's volume, which
// drives the delta indicator.
func trendingKlines(n int, start, step, buyRatio float64) []binance.Kline {
	klines := make([]binance.Kline, n)
	for i := 0; i < n; i++ {
		close := start + float64(i)*step
		open := close - step
		high := close + 0.3
		low := open - 0.3
		if step < 0 {
			high = open + 0.3
			low = close - 0.3
		}
		klines[i] = binance.Kline{
			OpenTime:                int64(i) * 60_000,
			Open:                    open,
			High:                    high,
			Low:                     low,
			Close:                   close,
			Volume:                  1000,
			CloseTime:               int64(i+1)*60_000 - 1,
			TakerBuyBaseAssetVolume: 1000 * buyRatio,
		}
	}
	return klines
}

// flatKlines builds a sideways series with tiny alternating noise so variance
// based indicators stay defined.
func flatKlines(n int, price float64) []binance.Kline {
	klines := make([]binance.Kline, n)
	for i := 0; i < n; i++ {
		noise := 0.05
		if i%2 == 0 {
			noise = -0.05
		}
		close := price + noise
		klines[i] = binance.Kline{
			OpenTime:                int64(i) * 60_000,
			Open:                    price,
			High:                    close + 0.2,
			Low:                     close - 0.2,
			Close:                   close,
			Volume:                  1000,
			CloseTime:               int64(i+1)*60_000 - 1,
			TakerBuyBaseAssetVolume: 500,
		}
	}
	return klines
}

// setClose overrides one candle's close, keeping high/low consistent
func setClose(klines []binance.Kline, idx int, close float64) {
	k := &klines[idx]
	k.Close = close
	if close > k.High {
		k.High = close + 0.1
	}
	if close < k.Low {
		k.Low = close - 0.1
	}
}
