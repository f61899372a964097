package strategy

import (
	"math"

	"fusion-trading-bot/internal/classifier"
	"fusion-trading-bot/internal/duration"
)

// TimeframeWeights blends the three timeframe scores
type TimeframeWeights struct {
	Macro float64 `json:"macro"`
	Mid   float64 `json:"mid"`
	Micro float64 `json:"micro"`
}

// TierThresholds are the mid-score bars per signal tier after adjustment
type TierThresholds struct {
	Strong   float64 `json:"strong"`
	Moderate float64 `json:"moderate"`
	Weak     float64 `json:"weak"`
}

// FusionConfig carries every tunable constant of the scoring and fusion
// pipeline. The numbers are hand-tuned starting points, not laws: load them
// from configuration and re-tune per deployment.
type FusionConfig struct {
	// Dynamic inter-timeframe weights
	BaseWeights       TimeframeWeights `json:"base_weights"`
	MacroHeavyWeights TimeframeWeights `json:"macro_heavy_weights"`
	BalancedWeights   TimeframeWeights `json:"balanced_weights"`
	MidHeavyWeights   TimeframeWeights `json:"mid_heavy_weights"`

	MacroHeavyTrigger  float64 `json:"macro_heavy_trigger"` // macro score that shifts weight to macro
	MidHeavyTrigger    float64 `json:"mid_heavy_trigger"`
	BalancedMacroFloor float64 `json:"balanced_macro_floor"` // all three above these -> balanced
	BalancedMidFloor   float64 `json:"balanced_mid_floor"`
	BalancedMicroFloor float64 `json:"balanced_micro_floor"`

	// Normalized-score bands per tier
	StrongBand   float64 `json:"strong_band"`
	ModerateBand float64 `json:"moderate_band"`
	WeakBand     float64 `json:"weak_band"`

	// Macro and micro score bars per tier
	MacroBars [3]float64 `json:"macro_bars"`
	MicroBars [3]float64 `json:"micro_bars"`

	// Mid-score thresholds before adjustment, and their floor
	MidThresholds  TierThresholds `json:"mid_thresholds"`
	ThresholdFloor float64        `json:"threshold_floor"`

	CompensationCap float64 `json:"compensation_cap"`

	// Macro scorer thresholds
	MacroADXStrong     float64 `json:"macro_adx_strong"`
	MacroADXWeak       float64 `json:"macro_adx_weak"`
	MacroBBWExpansion  float64 `json:"macro_bbw_expansion"`
	FundingAnomalyRate float64 `json:"funding_anomaly_rate"`

	// Mid scorer thresholds
	RangeVWAPDeviation float64 `json:"range_vwap_deviation"`
	RangeEMADeviation  float64 `json:"range_ema_deviation"`
	OIChangeLong       float64 `json:"oi_change_long"`
	OIChangeShort      float64 `json:"oi_change_short"`

	// Range boundary validation
	BoundaryTouchTolerance float64 `json:"boundary_touch_tolerance"`
	BoundaryVolumeRatio    float64 `json:"boundary_volume_ratio"`
	BoundaryScoreThreshold int     `json:"boundary_score_threshold"`

	// Micro scorer thresholds
	MicroADXTrigger     float64 `json:"micro_adx_trigger"`
	RangeBBWCompression float64 `json:"range_bbw_compression"`
	RangeBreakoutRR     float64 `json:"range_breakout_rr"`
}

// DefaultFusionConfig returns the tuned defaults
func DefaultFusionConfig() *FusionConfig {
	return &FusionConfig{
		BaseWeights:       TimeframeWeights{Macro: 0.55, Mid: 0.30, Micro: 0.15},
		MacroHeavyWeights: TimeframeWeights{Macro: 0.70, Mid: 0.25, Micro: 0.05},
		BalancedWeights:   TimeframeWeights{Macro: 0.45, Mid: 0.35, Micro: 0.20},
		MidHeavyWeights:   TimeframeWeights{Macro: 0.50, Mid: 0.35, Micro: 0.15},

		MacroHeavyTrigger:  8,
		MidHeavyTrigger:    5,
		BalancedMacroFloor: 7,
		BalancedMidFloor:   4,
		BalancedMicroFloor: 3,

		StrongBand:   30,
		ModerateBand: 25,
		WeakBand:     20,

		MacroBars: [3]float64{6, 5, 4},
		MicroBars: [3]float64{3, 2, 1},

		MidThresholds:  TierThresholds{Strong: 2, Moderate: 1.5, Weak: 1},
		ThresholdFloor: 0.5,

		CompensationCap: 2,

		MacroADXStrong:     30,
		MacroADXWeak:       20,
		MacroBBWExpansion:  0.02,
		FundingAnomalyRate: 0.0005,

		RangeVWAPDeviation: 0.01,
		RangeEMADeviation:  0.02,
		OIChangeLong:       0.02,
		OIChangeShort:      -0.03,

		BoundaryTouchTolerance: 0.015,
		BoundaryVolumeRatio:    1.7,
		BoundaryScoreThreshold: 3,

		MicroADXTrigger:     15,
		RangeBBWCompression: 0.05,
		RangeBreakoutRR:     4.5,
	}
}

// Tier names for the decision output
const (
	TierStrong   = "strong"
	TierModerate = "moderate"
	TierWeak     = "weak"
	TierRange    = "range_breakout"
	TierNone     = "none"
)

// FusionDecision is the fused verdict across the three timeframes
type FusionDecision struct {
	Signal            Action              `json:"signal"`
	Tier              string              `json:"tier"`
	NormalizedScore   int                 `json:"normalized_score"`
	Compensation      float64             `json:"compensation"`
	Weights           TimeframeWeights    `json:"weights"`
	AppliedThresholds TierThresholds      `json:"applied_thresholds"`
	Confidence        duration.Confidence `json:"confidence"`
	Reason            string              `json:"reason"`
}

// Fuser folds the three timeframe scores into one signal
type Fuser struct {
	cfg *FusionConfig
}

func NewFuser(cfg *FusionConfig) *Fuser {
	return &Fuser{cfg: cfg}
}

// dynamicWeights shifts weight toward whichever timeframe carries the most
// conviction: a dominant macro overrides everything, balanced strength across
// all three spreads the weight, a hot mid-timeframe pulls weight inward.
func (f *Fuser) dynamicWeights(macro, mid, micro float64) TimeframeWeights {
	cfg := f.cfg
	switch {
	case macro >= cfg.MacroHeavyTrigger:
		return cfg.MacroHeavyWeights
	case macro >= cfg.BalancedMacroFloor && mid >= cfg.BalancedMidFloor && micro >= cfg.BalancedMicroFloor:
		return cfg.BalancedWeights
	case mid >= cfg.MidHeavyTrigger:
		return cfg.MidHeavyWeights
	default:
		return cfg.BaseWeights
	}
}

// compensation rewards exceptional strength in any single dimension, capped
// so one hot reading can carry at most two points of threshold relief.
func (f *Fuser) compensation(normalized, macro, micro, structure float64) float64 {
	comp := 0.0

	switch {
	case normalized >= 80:
		comp += 1
	case normalized >= 75:
		comp += 0.5
	}

	switch {
	case macro >= 9:
		comp += 1.5
	case macro >= 8:
		comp += 1
	case macro >= 7:
		comp += 0.5
	}

	switch {
	case micro >= 5:
		comp += 1
	case micro >= 4:
		comp += 0.5
	}

	switch {
	case structure >= 3:
		comp += 1
	case structure >= 2:
		comp += 0.5
	}

	return math.Min(comp, f.cfg.CompensationCap)
}

// adjustedThresholds lowers the mid-score bars as overall and macro strength
// rise, then applies the compensation, flooring each bar at a small positive
// minimum so a mid score of zero can never pass.
func (f *Fuser) adjustedThresholds(normalized, macro, comp float64) TierThresholds {
	t := f.cfg.MidThresholds

	switch {
	case normalized >= 80:
		t.Strong -= 1
		t.Moderate -= 0.5
		t.Weak -= 0.25
	case normalized >= 75:
		t.Strong -= 0.5
		t.Moderate -= 0.25
	}

	if macro >= f.cfg.MacroHeavyTrigger {
		t.Strong -= 0.5
		t.Moderate -= 0.25
	}

	floor := f.cfg.ThresholdFloor
	t.Strong = math.Max(floor, t.Strong-comp)
	t.Moderate = math.Max(floor, t.Moderate-comp)
	t.Weak = math.Max(floor, t.Weak-comp)
	return t
}

// Fuse combines the three timeframe scores into a directional decision.
func (f *Fuser) Fuse(trend *TrendScore, factor *FactorScore, entry *EntryScore) *FusionDecision {
	cfg := f.cfg
	macro, mid, micro := trend.Score, factor.Score, entry.Score
	structure := entry.StructureScore

	weights := f.dynamicWeights(macro, mid, micro)
	normalized := math.Round(100 * (macro/10*weights.Macro + mid/6*weights.Mid + micro/5*weights.Micro))
	comp := f.compensation(normalized, macro, micro, structure)
	thresholds := f.adjustedThresholds(normalized, macro, comp)

	dec := &FusionDecision{
		Signal:            ActionHold,
		Tier:              TierNone,
		NormalizedScore:   int(normalized),
		Compensation:      comp,
		Weights:           weights,
		AppliedThresholds: thresholds,
		Confidence:        duration.ConfidenceLow,
	}

	// Range regime bypasses the tiers entirely: only a validated false
	// breakout from the micro scorer is tradeable, anything else holds.
	if trend.MarketType == classifier.MarketRange {
		if entry.RangeBreakout && (entry.Signal == ActionBuy || entry.Signal == ActionSell) {
			dec.Signal = entry.Signal
			dec.Tier = TierRange
			dec.Confidence = duration.ConfidenceMedium
			dec.Reason = entry.Reason
			return dec
		}
		dec.Reason = "range market without validated breakout"
		return dec
	}

	directional := func() Action {
		if trend.Direction == DirectionUp {
			return ActionBuy
		}
		return ActionSell
	}

	switch {
	case normalized >= cfg.StrongBand && macro >= cfg.MacroBars[0] &&
		mid >= thresholds.Strong && micro >= cfg.MicroBars[0]:
		dec.Signal = directional()
		dec.Tier = TierStrong
		dec.Confidence = duration.ConfidenceHigh
		dec.Reason = "strong multi-timeframe agreement"

	case normalized >= cfg.ModerateBand && normalized < cfg.StrongBand &&
		macro >= cfg.MacroBars[1] && mid >= thresholds.Moderate && micro >= cfg.MicroBars[1]:
		dec.Signal = directional()
		dec.Tier = TierModerate
		dec.Confidence = duration.ConfidenceMedium
		dec.Reason = "moderate multi-timeframe agreement"

	case normalized >= cfg.WeakBand && normalized < cfg.ModerateBand &&
		macro >= cfg.MacroBars[2] && mid >= thresholds.Weak && micro >= cfg.MicroBars[2]:
		dec.Signal = directional()
		dec.Tier = TierWeak
		dec.Confidence = duration.ConfidenceLow
		dec.Reason = "weak multi-timeframe agreement"

	default:
		dec.Reason = "insufficient cross-timeframe confirmation"
	}

	return dec
}
