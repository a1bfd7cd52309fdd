package broker

import (
	"context"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// fakeBinanceClient queues canned responses and records submitted orders.
type fakeBinanceClient struct {
	account    *binance.Account
	accountErr error

	createResponses []*binance.CreateOrderResponse
	createErr       error
	created         []*fakeCreateOrderService

	cancelErr error
	cancelled []string
}

func (f *fakeBinanceClient) NewCreateOrderService() CreateOrderService {
	return &fakeCreateOrderService{client: f}
}

func (f *fakeBinanceClient) NewGetAccountService() GetAccountService {
	return &fakeGetAccountService{client: f}
}

func (f *fakeBinanceClient) NewCancelOpenOrdersService() CancelOpenOrdersService {
	return &fakeCancelOpenOrdersService{client: f}
}

type fakeCreateOrderService struct {
	client    *fakeBinanceClient
	symbol    string
	side      binance.SideType
	orderType binance.OrderType
	quantity  string
	price     string
	stopPrice string
	tif       binance.TimeInForceType
}

func (s *fakeCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.symbol = symbol

	return s
}

func (s *fakeCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.side = side

	return s
}

func (s *fakeCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.orderType = orderType

	return s
}

func (s *fakeCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.quantity = quantity

	return s
}

func (s *fakeCreateOrderService) Price(price string) CreateOrderService {
	s.price = price

	return s
}

func (s *fakeCreateOrderService) StopPrice(price string) CreateOrderService {
	s.stopPrice = price

	return s
}

func (s *fakeCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.tif = tif

	return s
}

func (s *fakeCreateOrderService) Do(_ context.Context) (*binance.CreateOrderResponse, error) {
	s.client.created = append(s.client.created, s)

	if s.client.createErr != nil {
		return nil, s.client.createErr
	}

	if len(s.client.createResponses) == 0 {
		return nil, errors.New(errors.ErrCodeOrderFailed, "no canned response")
	}

	res := s.client.createResponses[0]
	s.client.createResponses = s.client.createResponses[1:]

	return res, nil
}

type fakeGetAccountService struct {
	client *fakeBinanceClient
}

func (s *fakeGetAccountService) Do(_ context.Context) (*binance.Account, error) {
	return s.client.account, s.client.accountErr
}

type fakeCancelOpenOrdersService struct {
	client *fakeBinanceClient
	symbol string
}

func (s *fakeCancelOpenOrdersService) Symbol(symbol string) CancelOpenOrdersService {
	s.symbol = symbol

	return s
}

func (s *fakeCancelOpenOrdersService) Do(_ context.Context) error {
	s.client.cancelled = append(s.client.cancelled, s.symbol)

	return s.client.cancelErr
}

// fakeQuoter returns a fixed price for every symbol.
type fakeQuoter struct {
	price float64
}

func (q *fakeQuoter) GetLatest(_ context.Context, symbol string) (*types.Quote, error) {
	return &types.Quote{
		Symbol:    symbol,
		Price:     q.price,
		High:      q.price,
		Low:       q.price,
		Volume:    0,
		ChangePct: 0,
		Timestamp: time.Now(),
	}, nil
}

type BinanceBrokerTestSuite struct {
	suite.Suite
	client *fakeBinanceClient
	broker *BinanceBroker
	ctx    context.Context
}

func TestBinanceBrokerSuite(t *testing.T) {
	suite.Run(t, new(BinanceBrokerTestSuite))
}

func (suite *BinanceBrokerTestSuite) SetupTest() {
	//nolint:exhaustruct // canned account, other fields are irrelevant
	suite.client = &fakeBinanceClient{
		account: &binance.Account{
			Balances: []binance.Balance{
				{Asset: "USDT", Free: "1000", Locked: "200"},
				{Asset: "USDC", Free: "300", Locked: "0"},
				{Asset: "BTC", Free: "0.5", Locked: "0"},
				{Asset: "ETH", Free: "0", Locked: "0"},
			},
		},
	}
	suite.broker = newBinanceBrokerWithClient(suite.client, &fakeQuoter{price: 100})
	suite.ctx = context.Background()
}

func (suite *BinanceBrokerTestSuite) TestModeIsLive() {
	suite.Equal(types.ExecutionModeLive, suite.broker.Mode())
}

func (suite *BinanceBrokerTestSuite) TestGetAccountSumsStableBalances() {
	account, err := suite.broker.GetAccount(suite.ctx)
	suite.Require().NoError(err)

	suite.InDelta(1500, account.Cash, 1e-9)
	suite.InDelta(1300, account.BuyingPower, 1e-9)
	// Portfolio value adds the BTC holding marked at the quoted price
	suite.InDelta(1550, account.PortfolioValue, 1e-9)
}

func (suite *BinanceBrokerTestSuite) TestGetPositionsSkipsStablesAndDust() {
	positions, err := suite.broker.GetPositions(suite.ctx)
	suite.Require().NoError(err)

	suite.Require().Len(positions, 1)
	suite.Equal("BTCUSDT", positions[0].Symbol)
	suite.Equal(0.5, positions[0].Quantity)
	suite.Equal(100.0, positions[0].CurrentPrice)
}

func (suite *BinanceBrokerTestSuite) TestSubmitMarketOrderMapsFill() {
	//nolint:exhaustruct // canned response
	suite.client.createResponses = []*binance.CreateOrderResponse{{
		OrderID:                  42,
		Status:                   binance.OrderStatusTypeFilled,
		ExecutedQuantity:         "10",
		CummulativeQuoteQuantity: "1050",
		TransactTime:             1700000000000,
	}}

	result, err := suite.broker.SubmitMarketOrder(suite.ctx, types.OrderIntent{
		ID:             uuid.New().String(),
		Symbol:         "BTC/USDT",
		Side:           types.OrderSideBuy,
		Quantity:       10,
		ReferencePrice: 105,
		StrategyID:     "strat-1",
		StopLoss:       optional.None[float64](),
		TakeProfit:     optional.None[float64](),
	})
	suite.Require().NoError(err)

	suite.Equal("42", result.OrderID)
	suite.True(result.IsFilled())
	suite.Equal(10.0, result.FilledQuantity)
	suite.InDelta(105, result.FilledAvgPrice, 1e-9)

	suite.Require().Len(suite.client.created, 1)
	submitted := suite.client.created[0]
	suite.Equal("BTCUSDT", submitted.symbol)
	suite.Equal(binance.SideTypeBuy, submitted.side)
	suite.Equal(binance.OrderTypeMarket, submitted.orderType)
	suite.Equal("10.00000000", submitted.quantity)
}

func (suite *BinanceBrokerTestSuite) TestSubmitConditionalStopUsesStopLossLimit() {
	//nolint:exhaustruct // canned response
	suite.client.createResponses = []*binance.CreateOrderResponse{{
		OrderID:      7,
		Status:       binance.OrderStatusTypeNew,
		TransactTime: 1700000000000,
	}}

	result, err := suite.broker.SubmitConditionalOrder(suite.ctx, ConditionalOrder{
		Symbol:   "BTCUSDT",
		Kind:     types.OrderKindStop,
		Side:     types.OrderSideSell,
		Quantity: 0.5,
		Price:    95,
	})
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusPending, result.Status)

	suite.Require().Len(suite.client.created, 1)
	submitted := suite.client.created[0]
	suite.Equal(binance.OrderTypeStopLossLimit, submitted.orderType)
	suite.Equal("95", submitted.price)
	suite.Equal("95", submitted.stopPrice)
	suite.Equal(binance.TimeInForceTypeGTC, submitted.tif)
}

func (suite *BinanceBrokerTestSuite) TestSubmitConditionalLimit() {
	//nolint:exhaustruct // canned response
	suite.client.createResponses = []*binance.CreateOrderResponse{{
		OrderID:      8,
		Status:       binance.OrderStatusTypeNew,
		TransactTime: 1700000000000,
	}}

	_, err := suite.broker.SubmitConditionalOrder(suite.ctx, ConditionalOrder{
		Symbol:   "BTCUSDT",
		Kind:     types.OrderKindLimit,
		Side:     types.OrderSideSell,
		Quantity: 0.5,
		Price:    120,
	})
	suite.Require().NoError(err)

	suite.Require().Len(suite.client.created, 1)
	submitted := suite.client.created[0]
	suite.Equal(binance.OrderTypeLimit, submitted.orderType)
	suite.Equal("120", submitted.price)
	suite.Empty(submitted.stopPrice)
}

func (suite *BinanceBrokerTestSuite) TestCancelOpenOrdersIgnoresNothingToCancel() {
	suite.client.cancelErr = &common.APIError{Code: binanceNoOpenOrdersCode, Message: "Unknown order sent."}

	err := suite.broker.CancelOpenOrders(suite.ctx, "BTC/USDT")
	suite.NoError(err)
	suite.Equal([]string{"BTCUSDT"}, suite.client.cancelled)
}

func (suite *BinanceBrokerTestSuite) TestClosePositionCancelsThenSells() {
	//nolint:exhaustruct // canned response
	suite.client.createResponses = []*binance.CreateOrderResponse{{
		OrderID:                  9,
		Status:                   binance.OrderStatusTypeFilled,
		ExecutedQuantity:         "0.5",
		CummulativeQuoteQuantity: "50",
		TransactTime:             1700000000000,
	}}

	result, err := suite.broker.ClosePosition(suite.ctx, "BTC/USDT")
	suite.Require().NoError(err)
	suite.Equal(types.OrderSideSell, result.Side)
	suite.Equal(0.5, result.FilledQuantity)

	suite.Equal([]string{"BTCUSDT"}, suite.client.cancelled)
	suite.Require().Len(suite.client.created, 1)
	suite.Equal(binance.SideTypeSell, suite.client.created[0].side)
}

func (suite *BinanceBrokerTestSuite) TestClosePositionNotFound() {
	_, err := suite.broker.ClosePosition(suite.ctx, "DOGEUSDT")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodePositionNotFound))
}
