package duration

import (
	"testing"
	"time"

	"fusion-trading-bot/internal/classifier"
)

func TestGetPositionConfig(t *testing.T) {
	cfg := GetPositionConfig("BTCUSDT", classifier.MarketTrend)
	if cfg.MaxDurationHours != 168 {
		t.Errorf("mainstream trend max duration = %f, want 168", cfg.MaxDurationHours)
	}
	if cfg.TimeStopMinutes != 60 {
		t.Errorf("mainstream trend time stop = %d, want 60", cfg.TimeStopMinutes)
	}

	cfg = GetPositionConfig("BTCUSDT", classifier.MarketRange)
	if cfg.MaxDurationHours != 12 {
		t.Errorf("mainstream range max duration = %f, want 12", cfg.MaxDurationHours)
	}

	// Unknown symbol classifies as Hot
	cfg = GetPositionConfig("NOSUCHUSDT", classifier.MarketTrend)
	if cfg.TimeStopMinutes != 180 {
		t.Errorf("hot trend time stop = %d, want 180", cfg.TimeStopMinutes)
	}
}

func TestComputeStopAndTargetLong(t *testing.T) {
	// Mainstream trend: 0.5x ATR stop, 4.5x ATR target, high confidence = 1.0x
	st := ComputeStopAndTarget("BTCUSDT", SideLong, 50000, 1000, classifier.MarketTrend, ConfidenceHigh)

	if st.StopLoss != 49500 {
		t.Errorf("stop loss = %f, want 49500", st.StopLoss)
	}
	if st.TakeProfit != 54500 {
		t.Errorf("take profit = %f, want 54500", st.TakeProfit)
	}
	if st.TimeStopMinutes != 60 {
		t.Errorf("time stop = %d, want 60", st.TimeStopMinutes)
	}
}

func TestComputeStopAndTargetShort(t *testing.T) {
	st := ComputeStopAndTarget("BTCUSDT", SideShort, 50000, 1000, classifier.MarketTrend, ConfidenceHigh)

	if st.StopLoss != 50500 {
		t.Errorf("short stop loss = %f, want 50500", st.StopLoss)
	}
	if st.TakeProfit != 45500 {
		t.Errorf("short take profit = %f, want 45500", st.TakeProfit)
	}
}

func TestConfidenceWidensLegs(t *testing.T) {
	high := ComputeStopAndTarget("BTCUSDT", SideLong, 50000, 1000, classifier.MarketTrend, ConfidenceHigh)
	low := ComputeStopAndTarget("BTCUSDT", SideLong, 50000, 1000, classifier.MarketTrend, ConfidenceLow)

	highLeg := 50000 - high.StopLoss
	lowLeg := 50000 - low.StopLoss

	if lowLeg <= highLeg {
		t.Errorf("low confidence stop leg %f should be wider than high %f", lowLeg, highLeg)
	}
	// Low multiplier is 1.5x
	if lowLeg != highLeg*1.5 {
		t.Errorf("low leg = %f, want %f", lowLeg, highLeg*1.5)
	}
}

func TestCheckMaxDuration(t *testing.T) {
	now := time.Now()
	// Hot trend market: 4 hour max
	pos := OpenPosition{
		Symbol:     "LINKUSDT",
		Side:       SideLong,
		EntryPrice: 10,
		MarketType: classifier.MarketTrend,
	}

	cases := []struct {
		held     time.Duration
		exceeded bool
		warning  bool
	}{
		{1 * time.Hour, false, false},
		{3*time.Hour + 30*time.Minute, false, true}, // inside the 1h lookahead window
		{4 * time.Hour, true, false},
		{10 * time.Hour, true, false},
	}

	for _, tc := range cases {
		pos.EntryTime = now.Add(-tc.held)
		res := CheckMaxDuration(pos, now)
		if res.Exceeded != tc.exceeded {
			t.Errorf("held %v: exceeded = %v, want %v", tc.held, res.Exceeded, tc.exceeded)
		}
		if res.Warning != tc.warning {
			t.Errorf("held %v: warning = %v, want %v", tc.held, res.Warning, tc.warning)
		}
	}
}

func TestCheckTimeStopNotYetDue(t *testing.T) {
	now := time.Now()
	pos := OpenPosition{
		Symbol:     "BTCUSDT",
		Side:       SideLong,
		EntryPrice: 50000,
		EntryTime:  now.Add(-10 * time.Minute),
		MarketType: classifier.MarketTrend, // 60 min time stop
	}

	// Deep underwater but under the threshold: never triggers
	res := CheckTimeStop(pos, 40000, now)
	if res.Triggered {
		t.Error("time stop must not trigger before the threshold")
	}
}

func TestCheckTimeStopProfitExempt(t *testing.T) {
	now := time.Now()
	pos := OpenPosition{
		Symbol:     "BTCUSDT",
		Side:       SideLong,
		EntryPrice: 50000,
		EntryTime:  now.Add(-48 * time.Hour),
		MarketType: classifier.MarketTrend,
	}

	// Way past the threshold but profitable: exempt
	if res := CheckTimeStop(pos, 51000, now); res.Triggered {
		t.Error("profitable position must be exempt from the time stop")
	}

	// Past the threshold and flat/losing: triggers
	if res := CheckTimeStop(pos, 50000, now); !res.Triggered {
		t.Error("flat position past the threshold should trigger the time stop")
	}
	if res := CheckTimeStop(pos, 49000, now); !res.Triggered {
		t.Error("losing position past the threshold should trigger the time stop")
	}
}

func TestCheckTimeStopShortSide(t *testing.T) {
	now := time.Now()
	pos := OpenPosition{
		Symbol:     "BTCUSDT",
		Side:       SideShort,
		EntryPrice: 50000,
		EntryTime:  now.Add(-2 * time.Hour),
		MarketType: classifier.MarketTrend,
	}

	// Price dropped: short is profitable, exempt
	if res := CheckTimeStop(pos, 49000, now); res.Triggered {
		t.Error("profitable short must be exempt")
	}
	// Price rose: short is losing, triggers
	if res := CheckTimeStop(pos, 51000, now); !res.Triggered {
		t.Error("losing short past threshold should trigger")
	}
}
