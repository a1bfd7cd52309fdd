package strategy

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/stretchr/testify/suite"
)

type TrendStrategyTestSuite struct {
	suite.Suite

	now time.Time
}

func TestTrendStrategySuite(t *testing.T) {
	suite.Run(t, new(TrendStrategyTestSuite))
}

func (suite *TrendStrategyTestSuite) SetupTest() {
	suite.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

// trendParams pins the adaptive multiplier at 3.0 by clamping the
// volatility scaling against the max bound.
func trendParams() map[string]float64 {
	return map[string]float64{
		"atr_period":          10,
		"multiplier":          3.0,
		"trends_required":     2,
		"volume_threshold":    1.5,
		"baseline_volatility": 0.000001,
		"max_multiplier":      3.0,
	}
}

// reversalBars builds 200 bars: a steady uptrend, a two-bar crash through
// the lower band, and a final rally bar back through the upper band with the
// given volume. The Supertrend direction at the last bar flips from -1 to +1
// after a -1 run of exactly 2 bars.
func reversalBars(finalVolume float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 200)

	for i := 0; i < 200; i++ {
		var c, v float64

		switch {
		case i < 197:
			c = 100 + float64(i)*0.1
			v = 1000
		case i < 199:
			c = 100
			v = 1000
		default:
			c = 115
			v = finalVolume
		}

		bars[i] = types.Bar{
			Symbol:    "BTC/USD",
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    v,
		}
	}

	return bars
}

func (suite *TrendStrategyTestSuite) TestBuyOnConfirmedFlip() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, trendParams())
	suite.Require().NoError(err)

	signal := s.GenerateSignal(reversalBars(8000), suite.now)

	suite.Equal(types.SignalActionBuy, signal.Action)
	suite.Greater(signal.Confidence, 0.0)
	suite.Equal(115.0, signal.ReferencePrice)
	suite.Greater(signal.StopPrice, 0.0)
	suite.Less(signal.StopPrice, signal.ReferencePrice)
	suite.Equal(2.0, signal.Indicators["trend_strength"])
	suite.Equal(1.0, signal.Indicators["direction"])
}

func (suite *TrendStrategyTestSuite) TestLowConfidenceFlipHolds() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, trendParams())
	suite.Require().NoError(err)

	// Ratio barely above threshold keeps confidence under the 0.5 gate
	signal := s.GenerateSignal(reversalBars(1600), suite.now)

	suite.Equal(types.SignalActionHold, signal.Action)
	suite.Greater(signal.Confidence, 0.0)
	suite.Less(signal.Confidence, 0.5)
	suite.Contains(signal.Rationale, "confidence")
}

func (suite *TrendStrategyTestSuite) TestWeakVolumeFlipHolds() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, trendParams())
	suite.Require().NoError(err)

	signal := s.GenerateSignal(reversalBars(1000), suite.now)

	suite.Equal(types.SignalActionHold, signal.Action)
	suite.Contains(signal.Rationale, "volume ratio")
}

func (suite *TrendStrategyTestSuite) TestCooldownBlocksRepeatSignal() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, trendParams())
	suite.Require().NoError(err)

	bars := reversalBars(8000)

	first := s.GenerateSignal(bars, suite.now)
	suite.Equal(types.SignalActionBuy, first.Action)

	second := s.GenerateSignal(bars, suite.now.Add(time.Minute))
	suite.Equal(types.SignalActionHold, second.Action)
	suite.Contains(second.Rationale, "cooldown")

	// After the cooldown window the same flip may fire again
	third := s.GenerateSignal(bars, suite.now.Add(31*time.Minute))
	suite.Equal(types.SignalActionBuy, third.Action)
}

func (suite *TrendStrategyTestSuite) TestShortSeriesHoldsWithZeroConfidence() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, trendParams())
	suite.Require().NoError(err)

	signal := s.GenerateSignal(reversalBars(8000)[:10], suite.now)

	suite.Equal(types.SignalActionHold, signal.Action)
	suite.Equal(0.0, signal.Confidence)
	suite.Nil(signal.Indicators)
}

func (suite *TrendStrategyTestSuite) TestNoFlipHolds() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, trendParams())
	suite.Require().NoError(err)

	// Uptrend only, no reversal
	signal := s.GenerateSignal(reversalBars(8000)[:150], suite.now)

	suite.Equal(types.SignalActionHold, signal.Action)
	suite.Equal("no direction flip", signal.Rationale)
	suite.NotNil(signal.Indicators)
}

func (suite *TrendStrategyTestSuite) TestTuneWidensMultiplierOnPoorPerformance() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, nil)
	suite.Require().NoError(err)

	s.Tune(types.PerformanceStats{TotalTrades: 10, WinRate: 0.2, AvgPnL: -5})
	suite.Equal(3.25, s.Parameters()["multiplier"])

	// Never overshoots the upper bound
	for i := 0; i < 20; i++ {
		s.Tune(types.PerformanceStats{TotalTrades: 10, WinRate: 0.2, AvgPnL: -5})
	}

	suite.Equal(5.0, s.Parameters()["multiplier"])
}

func (suite *TrendStrategyTestSuite) TestTuneNarrowsMultiplierOnStrongPerformance() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, nil)
	suite.Require().NoError(err)

	s.Tune(types.PerformanceStats{TotalTrades: 10, WinRate: 0.8, AvgPnL: 5})
	suite.Equal(2.75, s.Parameters()["multiplier"])

	for i := 0; i < 20; i++ {
		s.Tune(types.PerformanceStats{TotalTrades: 10, WinRate: 0.8, AvgPnL: 5})
	}

	suite.Equal(1.0, s.Parameters()["multiplier"])
}

func (suite *TrendStrategyTestSuite) TestTuneIgnoresThinSample() {
	s, err := New("BTC/USD", types.StrategyTypeTrendFollowing, nil)
	suite.Require().NoError(err)

	s.Tune(types.PerformanceStats{TotalTrades: 2, WinRate: 0.0, AvgPnL: -10})
	suite.Equal(3.0, s.Parameters()["multiplier"])
}

func (suite *TrendStrategyTestSuite) TestInvalidParamsRejected() {
	_, err := New("BTC/USD", types.StrategyTypeTrendFollowing, map[string]float64{"atr_period": -1})
	suite.Error(err)
}
