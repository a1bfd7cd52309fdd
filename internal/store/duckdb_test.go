package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-executor/internal/logger"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/stretchr/testify/suite"
)

type DuckDBStoreTestSuite struct {
	suite.Suite
	store *DuckDBStore
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, new(DuckDBStoreTestSuite))
}

func (suite *DuckDBStoreTestSuite) SetupTest() {
	store, err := NewDuckDBStore(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)

	suite.store = store
}

func (suite *DuckDBStoreTestSuite) TearDownTest() {
	suite.Require().NoError(suite.store.Close())
}

func (suite *DuckDBStoreTestSuite) trade(symbol string, side types.OrderSide, pnl float64, executedAt time.Time) types.TradeRecord {
	return types.TradeRecord{
		ID:         uuid.New().String(),
		OrderID:    uuid.New().String(),
		Symbol:     symbol,
		Side:       side,
		Quantity:   1,
		Price:      100,
		PnL:        pnl,
		StrategyID: "strat-1",
		Simulated:  false,
		ExecutedAt: executedAt,
	}
}

func (suite *DuckDBStoreTestSuite) TestSaveAndGetTrades() {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	suite.Require().NoError(suite.store.SaveTrade(suite.trade("BTCUSDT", types.OrderSideBuy, 0, base)))
	suite.Require().NoError(suite.store.SaveTrade(suite.trade("BTCUSDT", types.OrderSideSell, 50, base.Add(time.Hour))))
	suite.Require().NoError(suite.store.SaveTrade(suite.trade("ETHUSDT", types.OrderSideBuy, 0, base.Add(2*time.Hour))))

	trades, err := suite.store.GetTrades(types.TradeFilter{})
	suite.Require().NoError(err)
	suite.Require().Len(trades, 3)
	// Newest first
	suite.Equal("ETHUSDT", trades[0].Symbol)

	trades, err = suite.store.GetTrades(types.TradeFilter{Symbol: "BTCUSDT"})
	suite.Require().NoError(err)
	suite.Len(trades, 2)

	trades, err = suite.store.GetTrades(types.TradeFilter{StartTime: base.Add(30 * time.Minute)})
	suite.Require().NoError(err)
	suite.Len(trades, 2)

	trades, err = suite.store.GetTrades(types.TradeFilter{Limit: 1})
	suite.Require().NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal("ETHUSDT", trades[0].Symbol)
}

func (suite *DuckDBStoreTestSuite) TestTradeRoundTrip() {
	executedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	want := types.TradeRecord{
		ID:         uuid.New().String(),
		OrderID:    uuid.New().String(),
		Symbol:     "BTCUSDT",
		Side:       types.OrderSideSell,
		Quantity:   0.25,
		Price:      64000,
		PnL:        -120.5,
		StrategyID: "strat-9",
		Simulated:  true,
		ExecutedAt: executedAt,
	}
	suite.Require().NoError(suite.store.SaveTrade(want))

	trades, err := suite.store.GetTrades(types.TradeFilter{Symbol: "BTCUSDT"})
	suite.Require().NoError(err)
	suite.Require().Len(trades, 1)

	got := trades[0]
	suite.Equal(want.ID, got.ID)
	suite.Equal(want.Side, got.Side)
	suite.Equal(want.Quantity, got.Quantity)
	suite.Equal(want.PnL, got.PnL)
	suite.True(got.Simulated)
	suite.True(want.ExecutedAt.Equal(got.ExecutedAt))
}

func (suite *DuckDBStoreTestSuite) TestSnapshotsRangeQuery() {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := suite.store.SaveSnapshot(types.PortfolioSnapshot{
			Timestamp:      base.Add(time.Duration(i) * time.Hour),
			Cash:           1000,
			PortfolioValue: 1000 + float64(i)*10,
			UnrealizedPnL:  float64(i) * 10,
			PositionCount:  i,
		})
		suite.Require().NoError(err)
	}

	snapshots, err := suite.store.GetSnapshots(base.Add(time.Hour), base.Add(3*time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(snapshots, 3)
	// Oldest first
	suite.Equal(1010.0, snapshots[0].PortfolioValue)
	suite.Equal(1030.0, snapshots[2].PortfolioValue)
}

func (suite *DuckDBStoreTestSuite) TestBarsRangeQuery() {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		err := suite.store.SaveBar(types.Bar{
			Symbol:    "BTCUSDT",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      100 + float64(i),
			High:      101 + float64(i),
			Low:       99 + float64(i),
			Close:     100.5 + float64(i),
			Volume:    1000,
		}, types.Interval1m)
		suite.Require().NoError(err)
	}

	// Same symbol at a different interval must not match
	err := suite.store.SaveBar(types.Bar{
		Symbol:    "BTCUSDT",
		Timestamp: base,
		Open:      1,
		High:      1,
		Low:       1,
		Close:     1,
		Volume:    1,
	}, types.Interval1h)
	suite.Require().NoError(err)

	bars, err := suite.store.GetBars("BTCUSDT", types.Interval1m, base, base.Add(2*time.Minute))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)
	suite.Equal(100.0, bars[0].Open)
	suite.Equal(102.0, bars[2].Open)
}

func (suite *DuckDBStoreTestSuite) TestPerformanceStatsAggregatesSells() {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Buys carry no realized P&L and are excluded
	suite.Require().NoError(suite.store.SaveTrade(suite.trade("BTCUSDT", types.OrderSideBuy, 0, base)))

	pnls := []float64{100, -40, 60, -20}
	for i, pnl := range pnls {
		suite.Require().NoError(suite.store.SaveTrade(suite.trade("BTCUSDT", types.OrderSideSell, pnl, base.Add(time.Duration(i)*time.Hour))))
	}

	stats, err := suite.store.PerformanceStats("strat-1")
	suite.Require().NoError(err)

	suite.Equal(4, stats.TotalTrades)
	suite.InDelta(0.5, stats.WinRate, 1e-9)
	suite.InDelta(80, stats.AvgWin, 1e-9)
	suite.InDelta(-30, stats.AvgLoss, 1e-9)
	suite.InDelta(100, stats.LargestWin, 1e-9)
	suite.InDelta(-40, stats.LargestLoss, 1e-9)
	suite.InDelta(100, stats.TotalPnL, 1e-9)
	suite.InDelta(25, stats.AvgPnL, 1e-9)
}

func (suite *DuckDBStoreTestSuite) TestPerformanceStatsEmpty() {
	stats, err := suite.store.PerformanceStats("missing")
	suite.Require().NoError(err)
	suite.Equal(0, stats.TotalTrades)
	suite.Equal(0.0, stats.WinRate)
}
