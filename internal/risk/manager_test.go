package risk

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/stretchr/testify/suite"
)

type RiskManagerTestSuite struct {
	suite.Suite

	manager *Manager
}

func TestRiskManagerSuite(t *testing.T) {
	suite.Run(t, new(RiskManagerTestSuite))
}

func (suite *RiskManagerTestSuite) SetupTest() {
	manager, err := NewManager(DefaultConfig())
	suite.Require().NoError(err)
	suite.manager = manager
}

func buySignal(ref, stop float64) types.Signal {
	return types.Signal{
		Action:         types.SignalActionBuy,
		Confidence:     0.8,
		ReferencePrice: ref,
		StopPrice:      stop,
		GeneratedAt:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (suite *RiskManagerTestSuite) TestNotionalCapShrinksQuantity() {
	// risk_per_unit=2, risk_amount=200, raw quantity=100, notional 10000
	// exceeds the 2000 cap, so the quantity shrinks to exactly 20
	intent, reason := suite.manager.Size(Input{
		Symbol:     "BTC/USD",
		Signal:     buySignal(100, 98),
		StrategyID: "s1",
		Account:    types.AccountInfo{Cash: 10000, PortfolioValue: 10000, BuyingPower: 10000},
		Regime:     RegimeTrending,
	})

	suite.Empty(reason)
	suite.True(intent.IsSome())

	order := intent.Unwrap()
	suite.InDelta(20.0, order.Quantity, 1e-9)
	suite.InDelta(2000.0, order.Quantity*order.ReferencePrice, 1e-9)
	suite.Equal(types.OrderSideBuy, order.Side)
	suite.InDelta(98.0, order.StopLoss.Unwrap(), 1e-9)
}

func (suite *RiskManagerTestSuite) TestNotionalNeverExceedsCap() {
	refs := []float64{0.5, 3, 42, 100, 25000}
	stops := []float64{0.9995, 0.5, 0.98, 0.999}

	for _, ref := range refs {
		for _, stopFrac := range stops {
			intent, _ := suite.manager.Size(Input{
				Symbol:     "BTC/USD",
				Signal:     buySignal(ref, ref*stopFrac),
				StrategyID: "s1",
				Account:    types.AccountInfo{Cash: 10000, PortfolioValue: 10000},
				Regime:     RegimeTrending,
			})

			if intent.IsNone() {
				continue
			}

			order := intent.Unwrap()
			suite.LessOrEqual(order.Quantity*order.ReferencePrice, 10000*0.20+1e-9)
		}
	}
}

func (suite *RiskManagerTestSuite) TestDefaultStopWhenStrategySuppliesNone() {
	intent, reason := suite.manager.Size(Input{
		Symbol:     "BTC/USD",
		Signal:     buySignal(100, 0),
		StrategyID: "s1",
		Account:    types.AccountInfo{PortfolioValue: 10000},
		Regime:     RegimeTrending,
	})

	suite.Empty(reason)
	suite.True(intent.IsSome())
	suite.InDelta(98.0, intent.Unwrap().StopLoss.Unwrap(), 1e-9)
}

func (suite *RiskManagerTestSuite) TestTakeProfitByRegime() {
	trending, _ := suite.manager.Size(Input{
		Symbol:  "BTC/USD",
		Signal:  buySignal(100, 98),
		Account: types.AccountInfo{PortfolioValue: 10000},
		Regime:  RegimeTrending, StrategyID: "s1",
	})
	suite.InDelta(104.0, trending.Unwrap().TakeProfit.Unwrap(), 1e-9)

	volatile, _ := suite.manager.Size(Input{
		Symbol:  "BTC/USD",
		Signal:  buySignal(100, 98),
		Account: types.AccountInfo{PortfolioValue: 10000},
		Regime:  RegimeVolatile, StrategyID: "s1",
	})
	suite.InDelta(103.0, volatile.Unwrap().TakeProfit.Unwrap(), 1e-9)
}

func (suite *RiskManagerTestSuite) TestRejectsSameDirectionPosition() {
	intent, reason := suite.manager.Size(Input{
		Symbol:     "BTC/USD",
		Signal:     buySignal(100, 98),
		StrategyID: "s1",
		Account:    types.AccountInfo{PortfolioValue: 10000},
		Positions: []types.PositionSnapshot{
			{Symbol: "BTC/USD", Quantity: 1, AvgEntryPrice: 95, CurrentPrice: 100},
		},
		Regime: RegimeTrending,
	})

	suite.True(intent.IsNone())
	suite.Contains(reason, "same-direction")
}

func (suite *RiskManagerTestSuite) TestRejectsAtMaxOpenTrades() {
	positions := make([]types.PositionSnapshot, 5)
	for i := range positions {
		positions[i] = types.PositionSnapshot{Symbol: string(rune('A' + i)), Quantity: 1, CurrentPrice: 10}
	}

	intent, reason := suite.manager.Size(Input{
		Symbol:     "BTC/USD",
		Signal:     buySignal(100, 98),
		StrategyID: "s1",
		Account:    types.AccountInfo{PortfolioValue: 10000},
		Positions:  positions,
		Regime:     RegimeTrending,
	})

	suite.True(intent.IsNone())
	suite.Contains(reason, "max open trades")
}

func (suite *RiskManagerTestSuite) TestRejectsStopAboveReference() {
	intent, reason := suite.manager.Size(Input{
		Symbol:     "BTC/USD",
		Signal:     buySignal(100, 101),
		StrategyID: "s1",
		Account:    types.AccountInfo{PortfolioValue: 10000},
		Regime:     RegimeTrending,
	})

	suite.True(intent.IsNone())
	suite.Contains(reason, "stop price")
}

func (suite *RiskManagerTestSuite) TestRejectsBelowMinNotional() {
	// The 20% cap shrinks the notional to 8, below the 10 minimum
	intent, reason := suite.manager.Size(Input{
		Symbol:     "BTC/USD",
		Signal:     buySignal(100, 98),
		StrategyID: "s1",
		Account:    types.AccountInfo{PortfolioValue: 40},
		Regime:     RegimeTrending,
	})

	suite.True(intent.IsNone())
	suite.Contains(reason, "minimum")
}

func (suite *RiskManagerTestSuite) TestSellExitsWholePosition() {
	intent, reason := suite.manager.Size(Input{
		Symbol: "BTC/USD",
		Signal: types.Signal{
			Action:         types.SignalActionSell,
			ReferencePrice: 105,
		},
		StrategyID: "s1",
		Account:    types.AccountInfo{PortfolioValue: 10000},
		Positions: []types.PositionSnapshot{
			{Symbol: "BTC/USD", Quantity: 2.5, AvgEntryPrice: 95, CurrentPrice: 105},
		},
	})

	suite.Empty(reason)
	suite.True(intent.IsSome())

	order := intent.Unwrap()
	suite.Equal(types.OrderSideSell, order.Side)
	suite.InDelta(2.5, order.Quantity, 1e-9)
	suite.True(order.StopLoss.IsNone())
}

func (suite *RiskManagerTestSuite) TestSellWithoutPositionRejected() {
	intent, reason := suite.manager.Size(Input{
		Symbol:     "BTC/USD",
		Signal:     types.Signal{Action: types.SignalActionSell, ReferencePrice: 100},
		StrategyID: "s1",
		Account:    types.AccountInfo{PortfolioValue: 10000},
	})

	suite.True(intent.IsNone())
	suite.Contains(reason, "no open position")
}

func (suite *RiskManagerTestSuite) TestHoldProducesNoIntent() {
	intent, _ := suite.manager.Size(Input{
		Symbol:  "BTC/USD",
		Signal:  types.Signal{Action: types.SignalActionHold},
		Account: types.AccountInfo{PortfolioValue: 10000},
	})

	suite.True(intent.IsNone())
}

func (suite *RiskManagerTestSuite) TestRiskOverrideScalesQuantity() {
	// Override shrinks the risk budget: risk_amount=20, quantity=10,
	// notional 1000 stays under the cap
	intent, reason := suite.manager.Size(Input{
		Symbol:       "BTC/USD",
		Signal:       buySignal(100, 98),
		StrategyID:   "s1",
		Account:      types.AccountInfo{Cash: 10000, PortfolioValue: 10000, BuyingPower: 10000},
		Regime:       RegimeTrending,
		RiskOverride: 0.002,
	})

	suite.Empty(reason)
	suite.Require().True(intent.IsSome())
	suite.InDelta(10.0, intent.Unwrap().Quantity, 1e-9)
}

func (suite *RiskManagerTestSuite) TestInvalidConfigRejected() {
	_, err := NewManager(Config{})
	suite.Error(err)
}
