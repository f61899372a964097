// Package classifier maps trading symbols to liquidity/market-cap categories
// and supplies the category-specific factor weight tables used by the
// timeframe scorers.
package classifier

// Category represents a liquidity/market-cap tier
type Category string

const (
	Mainstream   Category = "MAINSTREAM"
	HighCapTrend Category = "HIGH_CAP_TREND"
	Hot          Category = "HOT"
	SmallCap     Category = "SMALL_CAP"
)

// MarketType distinguishes trending from ranging market regimes
type MarketType string

const (
	MarketTrend MarketType = "TREND"
	MarketRange MarketType = "RANGE"
)

// Timeframe identifies the scoring context a weight table belongs to
type Timeframe string

const (
	Timeframe1H  Timeframe = "1H"
	Timeframe15M Timeframe = "15M"
)

// FactorWeights maps factor name to its weight. Weights in each table sum to 1.0.
type FactorWeights map[string]float64

// Category membership is static configuration. Symbols not listed anywhere
// default to Hot, the lowest-confidence category.
var categorySymbols = map[Category][]string{
	Mainstream: {"BTCUSDT", "ETHUSDT", "BNBUSDT"},
	HighCapTrend: {
		"SOLUSDT", "ADAUSDT", "XRPUSDT", "DOGEUSDT", "DOTUSDT",
		"LTCUSDT", "TRXUSDT", "BCHUSDT", "ETCUSDT",
	},
	Hot:      {"PEPEUSDT", "APTUSDT", "PENDLEUSDT", "LINKUSDT", "MKRUSDT", "SUIUSDT"},
	SmallCap: {"ONDOUSDT", "LDOUSDT", "MPLUSDT"},
}

// 1H factor weights, trend market
var trend1HWeights = map[Category]FactorWeights{
	Mainstream: {
		"breakout":    0.30,
		"volume":      0.20,
		"oiChange":    0.25,
		"delta":       0.15,
		"fundingRate": 0.10,
	},
	HighCapTrend: {
		"breakout":    0.25,
		"volume":      0.25,
		"oiChange":    0.20,
		"delta":       0.20,
		"fundingRate": 0.10,
	},
	Hot: {
		"breakout":    0.15,
		"volume":      0.30,
		"oiChange":    0.15,
		"delta":       0.30,
		"fundingRate": 0.10,
	},
	SmallCap: {
		"breakout":    0.15,
		"volume":      0.35,
		"oiChange":    0.15,
		"delta":       0.25,
		"fundingRate": 0.10,
	},
}

// 1H factor weights, range market
var range1HWeights = map[Category]FactorWeights{
	Mainstream: {
		"vwap":       0.20,
		"touch":      0.30,
		"volume":     0.20,
		"delta":      0.15,
		"oi":         0.10,
		"noBreakout": 0.05,
	},
	HighCapTrend: {
		"vwap":       0.20,
		"touch":      0.30,
		"volume":     0.25,
		"delta":      0.15,
		"oi":         0.10,
		"noBreakout": 0.00,
	},
	Hot: {
		"vwap":       0.10,
		"touch":      0.25,
		"volume":     0.30,
		"delta":      0.25,
		"oi":         0.10,
		"noBreakout": 0.00,
	},
	SmallCap: {
		"vwap":       0.10,
		"touch":      0.25,
		"volume":     0.30,
		"delta":      0.25,
		"oi":         0.10,
		"noBreakout": 0.00,
	},
}

// 15M entry weights, trend market
var trend15MWeights = map[Category]FactorWeights{
	Mainstream: {
		"vwap":   0.40,
		"delta":  0.20,
		"oi":     0.20,
		"volume": 0.20,
	},
	HighCapTrend: {
		"vwap":   0.35,
		"delta":  0.25,
		"oi":     0.20,
		"volume": 0.20,
	},
	Hot: {
		"vwap":   0.30,
		"delta":  0.25,
		"oi":     0.20,
		"volume": 0.25,
	},
	SmallCap: {
		"vwap":   0.25,
		"delta":  0.25,
		"oi":     0.15,
		"volume": 0.35,
	},
}

// 15M entry weights, range market
var range15MWeights = map[Category]FactorWeights{
	Mainstream: {
		"vwap":   0.30,
		"delta":  0.30,
		"oi":     0.20,
		"volume": 0.20,
	},
	HighCapTrend: {
		"vwap":   0.20,
		"delta":  0.30,
		"oi":     0.30,
		"volume": 0.20,
	},
	Hot: {
		"vwap":   0.20,
		"delta":  0.20,
		"oi":     0.20,
		"volume": 0.40,
	},
	SmallCap: {
		"vwap":   0.10,
		"delta":  0.20,
		"oi":     0.20,
		"volume": 0.50,
	},
}

var symbolIndex map[string]Category

func init() {
	symbolIndex = make(map[string]Category)
	for cat, symbols := range categorySymbols {
		for _, s := range symbols {
			symbolIndex[s] = cat
		}
	}
}

// Classify returns the category for a symbol. Unlisted symbols map to Hot.
func Classify(symbol string) Category {
	if cat, ok := symbolIndex[symbol]; ok {
		return cat
	}
	return Hot
}

// Weights returns the factor weight table for the given category, market type
// and timeframe. Unknown categories fall back to the Hot tables.
func Weights(category Category, marketType MarketType, timeframe Timeframe) FactorWeights {
	var tables map[Category]FactorWeights

	switch {
	case timeframe == Timeframe1H && marketType == MarketTrend:
		tables = trend1HWeights
	case timeframe == Timeframe1H && marketType == MarketRange:
		tables = range1HWeights
	case timeframe == Timeframe15M && marketType == MarketTrend:
		tables = trend15MWeights
	default:
		tables = range15MWeights
	}

	if w, ok := tables[category]; ok {
		return w.clone()
	}
	return tables[Hot].clone()
}

// WeightsForSymbol is a convenience wrapper combining Classify and Weights.
func WeightsForSymbol(symbol string, marketType MarketType, timeframe Timeframe) FactorWeights {
	return Weights(Classify(symbol), marketType, timeframe)
}

// WeightedScore computes the weighted sum of binary factor scores (0 or 1)
// against a weight table. Factors missing from the table contribute nothing.
func WeightedScore(weights FactorWeights, factors map[string]float64) float64 {
	score := 0.0
	for name, w := range weights {
		score += factors[name] * w
	}
	return score
}

// Name returns a human-readable category description.
func (c Category) Name() string {
	switch c {
	case Mainstream:
		return "mainstream"
	case HighCapTrend:
		return "high-cap trend"
	case Hot:
		return "hot"
	case SmallCap:
		return "small-cap"
	default:
		return "unknown"
	}
}

func (w FactorWeights) clone() FactorWeights {
	out := make(FactorWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Sum returns the total of all weights, used to verify table normalization.
func (w FactorWeights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}
