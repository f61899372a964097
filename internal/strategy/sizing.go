package strategy

import (
	"math"

	"fusion-trading-bot/internal/classifier"
	"fusion-trading-bot/internal/duration"
)

// DefaultMaxLossAmount is the per-trade loss budget in quote currency
const DefaultMaxLossAmount = 100.0

// MaxLeverage caps the computed leverage regardless of stop distance
const MaxLeverage = 24

// TradeParameters are the sized risk parameters for an accepted signal,
// including the lifecycle limits the position check endpoints enforce later.
type TradeParameters struct {
	EntryPrice       float64 `json:"entry_price"`
	StopLoss         float64 `json:"stop_loss"`
	TakeProfit       float64 `json:"take_profit"`
	Leverage         int     `json:"leverage"`
	Margin           float64 `json:"margin"`
	TimeStopMinutes  int     `json:"time_stop_minutes"`
	MaxDurationHours float64 `json:"max_duration_hours"`
}

// Sizer converts an accepted signal into position sizing
type Sizer struct {
	maxLoss float64
}

// NewSizer creates a sizer with the given per-trade loss budget. A
// non-positive budget falls back to the default.
func NewSizer(maxLoss float64) *Sizer {
	if maxLoss <= 0 {
		maxLoss = DefaultMaxLossAmount
	}
	return &Sizer{maxLoss: maxLoss}
}

// Size computes entry, stop, target, leverage and margin. The stop and target
// legs come from the category duration policy, ATR-scaled and widened by
// falling confidence. Leverage is the largest multiple that keeps a full stop
// within the loss budget at the computed margin, capped at MaxLeverage.
//
// A zero price means there is nothing to size against: everything comes back
// zero rather than propagating division blowups downstream.
func (s *Sizer) Size(symbol string, signal Action, entryPrice, atr float64, marketType classifier.MarketType, confidence duration.Confidence) TradeParameters {
	if entryPrice <= 0 || (signal != ActionBuy && signal != ActionSell) {
		return TradeParameters{}
	}
	if atr <= 0 {
		atr = entryPrice * 0.01
	}

	side := duration.SideLong
	if signal == ActionSell {
		side = duration.SideShort
	}

	st := duration.ComputeStopAndTarget(symbol, side, entryPrice, atr, marketType, confidence)

	stopDistance := math.Abs(entryPrice-st.StopLoss) / entryPrice
	if stopDistance <= 0 {
		return TradeParameters{}
	}

	// Max leverage that survives a full stop with a 0.5% buffer
	leverage := int(math.Floor(1 / (stopDistance + 0.005)))
	if leverage > MaxLeverage {
		leverage = MaxLeverage
	}
	if leverage < 1 {
		leverage = 1
	}

	margin := math.Ceil(s.maxLoss / (float64(leverage) * stopDistance))

	return TradeParameters{
		EntryPrice:       entryPrice,
		StopLoss:         st.StopLoss,
		TakeProfit:       st.TakeProfit,
		Leverage:         leverage,
		Margin:           margin,
		TimeStopMinutes:  st.TimeStopMinutes,
		MaxDurationHours: st.MaxDurationHours,
	}
}

// SizeWithLevels sizes a trade whose stop and target were already fixed by
// the entry pattern, as range false breakouts do. Leverage and margin are
// derived here; the lifecycle limits still come from the category policy.
func (s *Sizer) SizeWithLevels(symbol string, entryPrice, stopLoss, takeProfit float64, marketType classifier.MarketType) TradeParameters {
	if entryPrice <= 0 || stopLoss <= 0 {
		return TradeParameters{}
	}

	stopDistance := math.Abs(entryPrice-stopLoss) / entryPrice
	if stopDistance <= 0 {
		return TradeParameters{}
	}

	leverage := int(math.Floor(1 / (stopDistance + 0.005)))
	if leverage > MaxLeverage {
		leverage = MaxLeverage
	}
	if leverage < 1 {
		leverage = 1
	}

	margin := math.Ceil(s.maxLoss / (float64(leverage) * stopDistance))

	cfg := duration.GetPositionConfig(symbol, marketType)
	return TradeParameters{
		EntryPrice:       entryPrice,
		StopLoss:         stopLoss,
		TakeProfit:       takeProfit,
		Leverage:         leverage,
		Margin:           margin,
		TimeStopMinutes:  cfg.TimeStopMinutes,
		MaxDurationHours: cfg.MaxDurationHours,
	}
}
