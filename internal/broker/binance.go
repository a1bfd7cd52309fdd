package broker

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

const (
	// binanceDecimalPrecision is a default precision used as a fallback.
	// 8 decimals allows satoshi-level quantities for BTC-like assets.
	// Production systems should use symbol-specific precision from
	// Binance exchange info (LOT_SIZE, PRICE_FILTER).
	binanceDecimalPrecision = 8

	// binanceNoOpenOrdersCode is returned when cancelling with nothing open.
	binanceNoOpenOrdersCode = -2011

	// dustQuantity is the threshold below which a balance is not a position.
	dustQuantity = 1e-8
)

// quoteAsset is the quote currency all positions are denominated in.
const quoteAsset = "USDT"

// stableAssets count as cash rather than positions.
var stableAssets = map[string]bool{
	"USDT": true,
	"USDC": true,
	"BUSD": true,
	"USD":  true,
}

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	StopPrice(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// CancelOpenOrdersService interface for cancelling all open orders for a symbol.
type CancelOpenOrdersService interface {
	Symbol(symbol string) CancelOpenOrdersService
	Do(ctx context.Context) error
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewCancelOpenOrdersService() CancelOpenOrdersService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewCancelOpenOrdersService() CancelOpenOrdersService {
	return &realCancelOpenOrdersService{service: r.client.NewCancelOpenOrdersService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) StopPrice(price string) CreateOrderService {
	s.service = s.service.StopPrice(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realCancelOpenOrdersService struct {
	service *binance.CancelOpenOrdersService
}

func (s *realCancelOpenOrdersService) Symbol(symbol string) CancelOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOpenOrdersService) Do(ctx context.Context) error {
	_, err := s.service.Do(ctx)

	return err
}

// BinanceConfig configures the live broker.
type BinanceConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key" validate:"required"`
	SecretKey string `json:"secret_key" yaml:"secret_key" validate:"required"`
	// BaseURL overrides the API endpoint, taking precedence over UseTestnet.
	BaseURL    string `json:"base_url" yaml:"base_url"`
	UseTestnet bool   `json:"use_testnet" yaml:"use_testnet"`
}

// BinanceBroker executes spot orders against the Binance API. It is
// stateless, all account data is fetched directly from the exchange.
type BinanceBroker struct {
	client           BinanceClient
	quoter           Quoter
	decimalPrecision int
}

var _ Broker = (*BinanceBroker)(nil)

// NewBinanceBroker creates a live broker. The quoter is used to mark open
// positions to market and may be nil, in which case positions carry a zero
// current price.
func NewBinanceBroker(config BinanceConfig, quoter Quoter) (*BinanceBroker, error) {
	if config.APIKey == "" || config.SecretKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "binance api key and secret key are required")
	}

	if config.UseTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceBroker{
		client:           &realBinanceClient{client: client},
		quoter:           quoter,
		decimalPrecision: binanceDecimalPrecision,
	}, nil
}

// newBinanceBrokerWithClient creates a broker with a custom client for tests.
func newBinanceBrokerWithClient(client BinanceClient, quoter Quoter) *BinanceBroker {
	return &BinanceBroker{
		client:           client,
		quoter:           quoter,
		decimalPrecision: binanceDecimalPrecision,
	}
}

// Mode implements Broker.
func (b *BinanceBroker) Mode() types.ExecutionMode {
	return types.ExecutionModeLive
}

// GetAccount implements Broker. Cash is the sum of stable asset balances,
// portfolio value adds the marked value of every non-stable holding.
func (b *BinanceBroker) GetAccount(ctx context.Context) (types.AccountInfo, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.AccountInfo{}, errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to get account info from Binance", err)
	}

	var cash, buyingPower float64

	for _, balance := range account.Balances {
		if !stableAssets[balance.Asset] {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		cash += free + locked
		buyingPower += free
	}

	positions, err := b.positionsFromBalances(ctx, account)
	if err != nil {
		return types.AccountInfo{}, err
	}

	portfolioValue := cash
	for _, pos := range positions {
		portfolioValue += pos.Notional()
	}

	return types.AccountInfo{
		Cash:           cash,
		PortfolioValue: portfolioValue,
		BuyingPower:    buyingPower,
	}, nil
}

// GetPositions implements Broker.
func (b *BinanceBroker) GetPositions(ctx context.Context) ([]types.PositionSnapshot, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to get account info from Binance", err)
	}

	return b.positionsFromBalances(ctx, account)
}

// positionsFromBalances maps non-stable balances to positions quoted against
// USDT. Spot balances carry no cost basis, so the entry price and unrealized
// P&L stay zero.
func (b *BinanceBroker) positionsFromBalances(ctx context.Context, account *binance.Account) ([]types.PositionSnapshot, error) {
	positions := make([]types.PositionSnapshot, 0)

	for _, balance := range account.Balances {
		if stableAssets[balance.Asset] {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		total := free + locked

		if total <= dustQuantity {
			continue
		}

		symbol := balance.Asset + quoteAsset

		var currentPrice float64

		if b.quoter != nil {
			quote, err := b.quoter.GetLatest(ctx, symbol)
			if err != nil {
				return nil, err
			}

			if quote != nil {
				currentPrice = quote.Price
			}
		}

		positions = append(positions, types.PositionSnapshot{
			Symbol:        symbol,
			Quantity:      total,
			AvgEntryPrice: 0,
			CurrentPrice:  currentPrice,
			UnrealizedPnL: 0,
		})
	}

	return positions, nil
}

// SubmitMarketOrder implements Broker.
func (b *BinanceBroker) SubmitMarketOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	if err := intent.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	quantity := roundQuantity(intent.Quantity, b.decimalPrecision)
	if quantity <= 0 {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeInvalidOrder,
			"order quantity %.8f is too small after rounding to %d decimal places",
			intent.Quantity, b.decimalPrecision)
	}

	res, err := b.client.NewCreateOrderService().
		Symbol(normalizeSymbol(intent.Symbol)).
		Side(binanceSide(intent.Side)).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', b.decimalPrecision, 64)).
		Do(ctx)
	if err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place market order on Binance", err)
	}

	filledQty, _ := strconv.ParseFloat(res.ExecutedQuantity, 64)
	cumQuote, _ := strconv.ParseFloat(res.CummulativeQuoteQuantity, 64)

	var avgPrice float64
	if filledQty > 0 {
		avgPrice = cumQuote / filledQty
	}

	return types.OrderResult{
		OrderID:        strconv.FormatInt(res.OrderID, 10),
		Symbol:         intent.Symbol,
		Side:           intent.Side,
		Kind:           types.OrderKindMarket,
		Status:         mapBinanceOrderStatus(res.Status),
		FilledQuantity: filledQty,
		FilledAvgPrice: avgPrice,
		Timestamp:      time.UnixMilli(res.TransactTime),
	}, nil
}

// SubmitConditionalOrder implements Broker. Stops map to STOP_LOSS_LIMIT
// with the trigger doubling as the limit price, limits map to plain LIMIT.
func (b *BinanceBroker) SubmitConditionalOrder(ctx context.Context, order ConditionalOrder) (types.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	quantity := roundQuantity(order.Quantity, b.decimalPrecision)
	if quantity <= 0 {
		return types.OrderResult{}, errors.New(errors.ErrCodeInvalidOrder, "order quantity is zero after rounding")
	}

	price := strconv.FormatFloat(order.Price, 'f', -1, 64)

	service := b.client.NewCreateOrderService().
		Symbol(normalizeSymbol(order.Symbol)).
		Side(binanceSide(order.Side)).
		Quantity(strconv.FormatFloat(quantity, 'f', b.decimalPrecision, 64)).
		Price(price).
		TimeInForce(binance.TimeInForceTypeGTC)

	switch order.Kind {
	case types.OrderKindStop:
		service = service.Type(binance.OrderTypeStopLossLimit).StopPrice(price)
	case types.OrderKindLimit:
		service = service.Type(binance.OrderTypeLimit)
	}

	res, err := service.Do(ctx)
	if err != nil {
		return types.OrderResult{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place %s order on Binance", order.Kind)
	}

	return types.OrderResult{
		OrderID:        strconv.FormatInt(res.OrderID, 10),
		Symbol:         order.Symbol,
		Side:           order.Side,
		Kind:           order.Kind,
		Status:         mapBinanceOrderStatus(res.Status),
		FilledQuantity: 0,
		FilledAvgPrice: 0,
		Timestamp:      time.UnixMilli(res.TransactTime),
	}, nil
}

// CancelOpenOrders implements Broker. Having nothing to cancel is not an
// error.
func (b *BinanceBroker) CancelOpenOrders(ctx context.Context, symbol string) error {
	err := b.client.NewCancelOpenOrdersService().
		Symbol(normalizeSymbol(symbol)).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == binanceNoOpenOrdersCode {
			return nil
		}

		return errors.Wrap(errors.ErrCodeCancelFailed, "failed to cancel open orders on Binance", err)
	}

	return nil
}

// ClosePosition implements Broker.
func (b *BinanceBroker) ClosePosition(ctx context.Context, symbol string) (types.OrderResult, error) {
	positions, err := b.GetPositions(ctx)
	if err != nil {
		return types.OrderResult{}, err
	}

	normalized := normalizeSymbol(symbol)

	for _, pos := range positions {
		if normalizeSymbol(pos.Symbol) != normalized {
			continue
		}

		if err := b.CancelOpenOrders(ctx, symbol); err != nil {
			return types.OrderResult{}, err
		}

		return b.marketSell(ctx, pos.Symbol, pos.Quantity)
	}

	return types.OrderResult{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
}

// CloseAll implements Broker.
func (b *BinanceBroker) CloseAll(ctx context.Context) ([]types.OrderResult, error) {
	positions, err := b.GetPositions(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]types.OrderResult, 0, len(positions))

	for _, pos := range positions {
		if err := b.CancelOpenOrders(ctx, pos.Symbol); err != nil {
			return results, err
		}

		result, err := b.marketSell(ctx, pos.Symbol, pos.Quantity)
		if err != nil {
			return results, err
		}

		results = append(results, result)
	}

	return results, nil
}

func (b *BinanceBroker) marketSell(ctx context.Context, symbol string, quantity float64) (types.OrderResult, error) {
	quantity = roundQuantity(quantity, b.decimalPrecision)
	if quantity <= 0 {
		return types.OrderResult{}, errors.New(errors.ErrCodeInvalidOrder, "position quantity is zero after rounding")
	}

	res, err := b.client.NewCreateOrderService().
		Symbol(normalizeSymbol(symbol)).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', b.decimalPrecision, 64)).
		Do(ctx)
	if err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to close position on Binance", err)
	}

	filledQty, _ := strconv.ParseFloat(res.ExecutedQuantity, 64)
	cumQuote, _ := strconv.ParseFloat(res.CummulativeQuoteQuantity, 64)

	var avgPrice float64
	if filledQty > 0 {
		avgPrice = cumQuote / filledQty
	}

	return types.OrderResult{
		OrderID:        strconv.FormatInt(res.OrderID, 10),
		Symbol:         symbol,
		Side:           types.OrderSideSell,
		Kind:           types.OrderKindMarket,
		Status:         mapBinanceOrderStatus(res.Status),
		FilledQuantity: filledQty,
		FilledAvgPrice: avgPrice,
		Timestamp:      time.UnixMilli(res.TransactTime),
	}, nil
}

// Helper functions

func binanceSide(side types.OrderSide) binance.SideType {
	if side == types.OrderSideSell {
		return binance.SideTypeSell
	}

	return binance.SideTypeBuy
}

// mapBinanceOrderStatus maps a Binance order status to our OrderStatus type.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPending
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusFailed
	}
}

// normalizeSymbol strips separators: "BTC/USDT" becomes "BTCUSDT".
func normalizeSymbol(symbol string) string {
	symbol = strings.ReplaceAll(symbol, "/", "")
	symbol = strings.ReplaceAll(symbol, "-", "")

	return strings.ToUpper(symbol)
}

func roundQuantity(quantity float64, precision int) float64 {
	factor := math.Pow10(precision)

	return math.Floor(quantity*factor) / factor
}
