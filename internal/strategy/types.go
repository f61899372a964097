// Package strategy implements the multi-timeframe signal engine: a 4H trend
// scorer, a 1H factor scorer, a 15M entry scorer, and the fusion layer that
// folds the three into one trade signal with risk parameters.
package strategy

import (
	"fusion-trading-bot/internal/binance"
)

// Direction of the dominant trend
type Direction string

const (
	DirectionUp      Direction = "UP"
	DirectionDown    Direction = "DOWN"
	DirectionNeutral Direction = "NEUTRAL"
)

// Action is the final trade recommendation
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionHold  Action = "HOLD"
	ActionError Action = "ERROR"
)

// MarketData bundles the raw inputs one evaluation needs. Candles are oldest
// first. Funding rate and open interest deltas are fractional (0.01 = 1%).
type MarketData struct {
	Symbol      string
	Klines4h    []binance.Kline
	Klines1h    []binance.Kline
	Klines15m   []binance.Kline
	FundingRate float64
	OIChange1h  float64
}
