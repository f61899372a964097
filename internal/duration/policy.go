// Package duration holds the per-category holding-duration and risk policy:
// how long a position may be held, when a time-based stop kicks in, and how
// wide the ATR-scaled stop/target legs are.
package duration

import (
	"time"

	"fusion-trading-bot/internal/classifier"
)

// Confidence tiers widen the stop/target legs as conviction drops.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "med"
	ConfidenceLow    Confidence = "low"
)

// Multiplier returns the leg-width multiplier for the tier. Unknown tiers use
// the medium multiplier.
func (c Confidence) Multiplier() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceLow:
		return 1.5
	default:
		return 1.2
	}
}

// PositionConfig is the static duration/risk policy for one (category, market type) pair
type PositionConfig struct {
	MaxDurationHours float64
	MinDurationHours float64
	TimeStopMinutes  int
	ProfitTargetATR  float64
	StopLossATR      float64
}

// Policy table. Mainstream trend positions may run for a week; everything else
// is cut within hours. Stops are deliberately tight (sub-ATR) with targets at
// a multiple of the stop to keep the reward:risk above 3:1.
var policyTable = map[classifier.Category]map[classifier.MarketType]PositionConfig{
	classifier.Mainstream: {
		classifier.MarketTrend: {MaxDurationHours: 168, MinDurationHours: 24, TimeStopMinutes: 60, ProfitTargetATR: 4.5, StopLossATR: 0.5},
		classifier.MarketRange: {MaxDurationHours: 12, MinDurationHours: 1, TimeStopMinutes: 30, ProfitTargetATR: 4.5, StopLossATR: 0.5},
	},
	classifier.HighCapTrend: {
		classifier.MarketTrend: {MaxDurationHours: 4, MinDurationHours: 1, TimeStopMinutes: 120, ProfitTargetATR: 6.0, StopLossATR: 0.7},
		classifier.MarketRange: {MaxDurationHours: 4, MinDurationHours: 1, TimeStopMinutes: 45, ProfitTargetATR: 6.0, StopLossATR: 0.7},
	},
	classifier.Hot: {
		classifier.MarketTrend: {MaxDurationHours: 4, MinDurationHours: 1, TimeStopMinutes: 180, ProfitTargetATR: 7.5, StopLossATR: 0.8},
		classifier.MarketRange: {MaxDurationHours: 4, MinDurationHours: 1, TimeStopMinutes: 60, ProfitTargetATR: 7.5, StopLossATR: 0.8},
	},
	classifier.SmallCap: {
		classifier.MarketTrend: {MaxDurationHours: 4, MinDurationHours: 0.5, TimeStopMinutes: 30, ProfitTargetATR: 4.5, StopLossATR: 0.5},
		classifier.MarketRange: {MaxDurationHours: 4, MinDurationHours: 0.5, TimeStopMinutes: 30, ProfitTargetATR: 4.5, StopLossATR: 0.5},
	},
}

// conservativeFallback is used when no table entry matches: the small-cap
// policy with the tightest stop and the shortest leash.
var conservativeFallback = PositionConfig{
	MaxDurationHours: 4, MinDurationHours: 0.5, TimeStopMinutes: 30,
	ProfitTargetATR: 4.5, StopLossATR: 0.5,
}

// GetPositionConfig returns the duration/risk policy for a symbol in the given
// market regime.
func GetPositionConfig(symbol string, marketType classifier.MarketType) PositionConfig {
	category := classifier.Classify(symbol)

	byMarket, ok := policyTable[category]
	if !ok {
		return conservativeFallback
	}
	cfg, ok := byMarket[marketType]
	if !ok {
		return conservativeFallback
	}
	return cfg
}

// StopTarget holds the computed stop/target legs plus the lifecycle limits
// that apply to the resulting position.
type StopTarget struct {
	StopLoss         float64
	TakeProfit       float64
	TimeStopMinutes  int
	MaxDurationHours float64
}

// Side of an open position
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ComputeStopAndTarget computes ATR-scaled stop-loss and take-profit prices.
// Lower confidence widens both legs proportionally.
func ComputeStopAndTarget(symbol string, side Side, entryPrice, atr float64, marketType classifier.MarketType, confidence Confidence) StopTarget {
	cfg := GetPositionConfig(symbol, marketType)
	mult := confidence.Multiplier()

	stopLeg := atr * cfg.StopLossATR * mult
	targetLeg := atr * cfg.ProfitTargetATR * mult

	st := StopTarget{
		TimeStopMinutes:  cfg.TimeStopMinutes,
		MaxDurationHours: cfg.MaxDurationHours,
	}

	if side == SideLong {
		st.StopLoss = entryPrice - stopLeg
		st.TakeProfit = entryPrice + targetLeg
	} else {
		st.StopLoss = entryPrice + stopLeg
		st.TakeProfit = entryPrice - targetLeg
	}

	return st
}

// OpenPosition is the read-only view of a position the lifecycle checks need.
// Position storage and ownership live with the caller.
type OpenPosition struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	MarketType classifier.MarketType
}

// MaxDurationResult reports whether a position has outlived its allowance
type MaxDurationResult struct {
	Exceeded  bool
	Warning   bool
	HoursHeld float64
	MaxHours  float64
}

// CheckMaxDuration checks the position against its category's maximum holding
// duration. A warning is raised one hour before the limit.
func CheckMaxDuration(pos OpenPosition, now time.Time) MaxDurationResult {
	cfg := GetPositionConfig(pos.Symbol, pos.MarketType)
	hoursHeld := now.Sub(pos.EntryTime).Hours()

	res := MaxDurationResult{
		HoursHeld: hoursHeld,
		MaxHours:  cfg.MaxDurationHours,
	}

	if hoursHeld >= cfg.MaxDurationHours {
		res.Exceeded = true
		return res
	}
	if hoursHeld >= cfg.MaxDurationHours-1 {
		res.Warning = true
	}
	return res
}

// TimeStopResult reports the outcome of a time-stop evaluation
type TimeStopResult struct {
	Triggered      bool
	MinutesHeld    int
	ThresholdMin   int
	UnrealizedGain float64
}

// CheckTimeStop triggers when a position has been held past the time-stop
// interval without turning a profit. Profitable positions are exempt no
// matter how long they run; the time stop exists to cut dead trades.
func CheckTimeStop(pos OpenPosition, currentPrice float64, now time.Time) TimeStopResult {
	cfg := GetPositionConfig(pos.Symbol, pos.MarketType)
	minutesHeld := int(now.Sub(pos.EntryTime).Minutes())

	pnl := currentPrice - pos.EntryPrice
	if pos.Side == SideShort {
		pnl = pos.EntryPrice - currentPrice
	}

	res := TimeStopResult{
		MinutesHeld:    minutesHeld,
		ThresholdMin:   cfg.TimeStopMinutes,
		UnrealizedGain: pnl,
	}

	if minutesHeld < cfg.TimeStopMinutes {
		return res
	}
	if pnl <= 0 {
		res.Triggered = true
	}
	return res
}
