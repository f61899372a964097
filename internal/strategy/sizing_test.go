package strategy

import (
	"testing"

	"fusion-trading-bot/internal/classifier"
	"fusion-trading-bot/internal/duration"
)

func TestSizeLong(t *testing.T) {
	sizer := NewSizer(100)

	// Mainstream trend, high confidence: stop leg 0.5 ATR = 500, so stop
	// distance is 1% and leverage caps at 24.
	p := sizer.Size("BTCUSDT", ActionBuy, 50000, 1000, classifier.MarketTrend, duration.ConfidenceHigh)

	if p.StopLoss != 49500 {
		t.Errorf("stop loss = %f, want 49500", p.StopLoss)
	}
	if p.TakeProfit != 54500 {
		t.Errorf("take profit = %f, want 54500", p.TakeProfit)
	}
	if p.Leverage != 24 {
		t.Errorf("leverage = %d, want 24 (capped)", p.Leverage)
	}
	// margin = ceil(100 / (24 * 0.01)) = ceil(416.67)
	if p.Margin != 417 {
		t.Errorf("margin = %f, want 417", p.Margin)
	}
	if p.TimeStopMinutes != 60 || p.MaxDurationHours != 168 {
		t.Errorf("lifecycle limits = %d min / %f h, want 60 / 168", p.TimeStopMinutes, p.MaxDurationHours)
	}
}

func TestSizeShortMirrors(t *testing.T) {
	sizer := NewSizer(100)

	p := sizer.Size("BTCUSDT", ActionSell, 50000, 1000, classifier.MarketTrend, duration.ConfidenceHigh)

	if p.StopLoss != 50500 {
		t.Errorf("short stop loss = %f, want 50500", p.StopLoss)
	}
	if p.TakeProfit != 45500 {
		t.Errorf("short take profit = %f, want 45500", p.TakeProfit)
	}
}

func TestSizeWideStopLowersLeverage(t *testing.T) {
	sizer := NewSizer(100)

	// Hot category, low confidence: stop leg 0.8 ATR * 1.5 = 6% of price.
	// leverage = floor(1 / (0.06 + 0.005)) = 15
	p := sizer.Size("PEPEUSDT", ActionBuy, 100, 5, classifier.MarketTrend, duration.ConfidenceLow)

	if p.Leverage != 15 {
		t.Errorf("leverage = %d, want 15", p.Leverage)
	}
	if p.Margin <= 0 {
		t.Errorf("margin = %f, want positive", p.Margin)
	}
}

func TestSizeZeroPrice(t *testing.T) {
	sizer := NewSizer(100)

	p := sizer.Size("BTCUSDT", ActionBuy, 0, 1000, classifier.MarketTrend, duration.ConfidenceHigh)
	if p != (TradeParameters{}) {
		t.Errorf("zero price should produce zero parameters, got %+v", p)
	}
}

func TestSizeZeroATRFallsBack(t *testing.T) {
	sizer := NewSizer(100)

	// Zero ATR falls back to 1% of price: stop leg = 0.5 * 1% = 0.5%
	p := sizer.Size("BTCUSDT", ActionBuy, 50000, 0, classifier.MarketTrend, duration.ConfidenceHigh)

	if p.StopLoss != 49750 {
		t.Errorf("stop loss = %f, want 49750", p.StopLoss)
	}
	if p.Leverage == 0 {
		t.Error("leverage should be computed from the fallback ATR")
	}
}

func TestSizeHoldSignal(t *testing.T) {
	sizer := NewSizer(100)

	p := sizer.Size("BTCUSDT", ActionHold, 50000, 1000, classifier.MarketTrend, duration.ConfidenceHigh)
	if p != (TradeParameters{}) {
		t.Errorf("hold signal should produce zero parameters, got %+v", p)
	}
}

func TestSizeWithLevels(t *testing.T) {
	sizer := NewSizer(100)

	// 1% stop distance: leverage caps at 24, margin = ceil(100/(24*0.01))
	p := sizer.SizeWithLevels("BTCUSDT", 100, 99, 104.5, classifier.MarketRange)

	if p.Leverage != 24 {
		t.Errorf("leverage = %d, want 24", p.Leverage)
	}
	if p.Margin != 417 {
		t.Errorf("margin = %f, want 417", p.Margin)
	}
	if p.TakeProfit != 104.5 {
		t.Errorf("take profit = %f, want passthrough 104.5", p.TakeProfit)
	}
	if p.TimeStopMinutes != 30 {
		t.Errorf("time stop = %d min, want 30 for mainstream range", p.TimeStopMinutes)
	}
}

func TestSizerDefaultBudget(t *testing.T) {
	sizer := NewSizer(0)

	p := sizer.SizeWithLevels("BTCUSDT", 100, 99, 104.5, classifier.MarketRange)
	if p.Margin != 417 {
		t.Errorf("margin with default budget = %f, want 417", p.Margin)
	}
}
