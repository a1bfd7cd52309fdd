package broker

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-executor/internal/logger"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OnTrade is called after each simulated fill, for persistence.
type OnTrade func(trade types.TradeRecord)

type paperPosition struct {
	quantity decimal.Decimal
	avgEntry decimal.Decimal
}

type restingOrder struct {
	id    string
	order ConditionalOrder
}

// PaperBroker keeps an in-memory ledger and fills orders at the last seen
// quote. It backs degraded execution, where signals keep flowing but no real
// orders may be placed. Conditional orders rest until a later quote crosses
// their trigger price. All fills are recorded with Simulated set.
type PaperBroker struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]*paperPosition
	resting   []restingOrder
	quotes    map[string]types.Quote
	onTrade   OnTrade
	logger    *logger.Logger
}

var _ Broker = (*PaperBroker)(nil)

// NewPaperBroker creates a paper broker seeded with initial cash.
func NewPaperBroker(initialCash float64, log *logger.Logger) (*PaperBroker, error) {
	if initialCash <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "initial cash must be positive")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PaperBroker{
		cash:      decimal.NewFromFloat(initialCash),
		positions: make(map[string]*paperPosition),
		resting:   nil,
		quotes:    make(map[string]types.Quote),
		onTrade:   nil,
		logger:    log,
	}, nil
}

// SetOnTrade registers a callback invoked after every simulated fill.
func (b *PaperBroker) SetOnTrade(fn OnTrade) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.onTrade = fn
}

// UpdateQuote records the latest quote for a symbol and triggers any resting
// orders it crosses.
func (b *PaperBroker) UpdateQuote(quote types.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.quotes[normalizeSymbol(quote.Symbol)] = quote
	b.processResting()
}

// Mode implements Broker.
func (b *PaperBroker) Mode() types.ExecutionMode {
	return types.ExecutionModeDegraded
}

// GetAccount implements Broker.
func (b *PaperBroker) GetAccount(_ context.Context) (types.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cash, _ := b.cash.Float64()
	portfolioValue := cash

	for symbol, pos := range b.positions {
		if quote, ok := b.quotes[symbol]; ok {
			notional, _ := pos.quantity.Mul(decimal.NewFromFloat(quote.Price)).Float64()
			portfolioValue += notional
		}
	}

	return types.AccountInfo{
		Cash:           cash,
		PortfolioValue: portfolioValue,
		BuyingPower:    cash,
	}, nil
}

// GetPositions implements Broker.
func (b *PaperBroker) GetPositions(_ context.Context) ([]types.PositionSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	positions := make([]types.PositionSnapshot, 0, len(b.positions))

	for symbol, pos := range b.positions {
		quantity, _ := pos.quantity.Float64()
		avgEntry, _ := pos.avgEntry.Float64()

		var currentPrice, unrealized float64

		if quote, ok := b.quotes[symbol]; ok {
			currentPrice = quote.Price
			pnl := decimal.NewFromFloat(quote.Price).Sub(pos.avgEntry).Mul(pos.quantity)
			unrealized, _ = pnl.Float64()
		}

		positions = append(positions, types.PositionSnapshot{
			Symbol:        symbol,
			Quantity:      quantity,
			AvgEntryPrice: avgEntry,
			CurrentPrice:  currentPrice,
			UnrealizedPnL: unrealized,
		})
	}

	return positions, nil
}

// SubmitMarketOrder implements Broker. The fill price is the last quote seen
// for the symbol.
func (b *PaperBroker) SubmitMarketOrder(_ context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	if err := intent.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	symbol := normalizeSymbol(intent.Symbol)

	quote, ok := b.quotes[symbol]
	if !ok {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeDataSourceUnavailable, "no quote seen for %s yet", intent.Symbol)
	}

	return b.fill(symbol, intent.Side, decimal.NewFromFloat(intent.Quantity), decimal.NewFromFloat(quote.Price), intent.StrategyID)
}

// SubmitConditionalOrder implements Broker. The order rests until a later
// quote crosses its trigger price.
func (b *PaperBroker) SubmitConditionalOrder(_ context.Context, order ConditionalOrder) (types.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.resting = append(b.resting, restingOrder{id: id, order: order})

	return types.OrderResult{
		OrderID:        id,
		Symbol:         order.Symbol,
		Side:           order.Side,
		Kind:           order.Kind,
		Status:         types.OrderStatusPending,
		FilledQuantity: 0,
		FilledAvgPrice: 0,
		Timestamp:      time.Now(),
	}, nil
}

// CancelOpenOrders implements Broker.
func (b *PaperBroker) CancelOpenOrders(_ context.Context, symbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	normalized := normalizeSymbol(symbol)
	b.resting = slices.DeleteFunc(b.resting, func(r restingOrder) bool {
		return normalizeSymbol(r.order.Symbol) == normalized
	})

	return nil
}

// ClosePosition implements Broker.
func (b *PaperBroker) ClosePosition(_ context.Context, symbol string) (types.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closeLocked(normalizeSymbol(symbol))
}

// CloseAll implements Broker.
func (b *PaperBroker) CloseAll(_ context.Context) ([]types.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	symbols := make([]string, 0, len(b.positions))
	for symbol := range b.positions {
		symbols = append(symbols, symbol)
	}

	slices.Sort(symbols)

	results := make([]types.OrderResult, 0, len(symbols))

	for _, symbol := range symbols {
		result, err := b.closeLocked(symbol)
		if err != nil {
			return results, err
		}

		results = append(results, result)
	}

	return results, nil
}

// closeLocked cancels resting orders for the symbol and sells the whole
// position at the last quote. The caller must hold the mutex.
func (b *PaperBroker) closeLocked(symbol string) (types.OrderResult, error) {
	pos, ok := b.positions[symbol]
	if !ok {
		return types.OrderResult{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
	}

	b.resting = slices.DeleteFunc(b.resting, func(r restingOrder) bool {
		return normalizeSymbol(r.order.Symbol) == symbol
	})

	quote, ok := b.quotes[symbol]
	if !ok {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeDataSourceUnavailable, "no quote seen for %s yet", symbol)
	}

	return b.fill(symbol, types.OrderSideSell, pos.quantity, decimal.NewFromFloat(quote.Price), "")
}

// processResting executes resting orders crossed by the latest quotes. An
// order whose fill fails, for example a protective sell after the position
// already closed, is dropped. The caller must hold the mutex.
func (b *PaperBroker) processResting() {
	if len(b.resting) == 0 {
		return
	}

	var remaining []restingOrder

	var triggered []restingOrder

	for _, r := range b.resting {
		quote, ok := b.quotes[normalizeSymbol(r.order.Symbol)]
		if ok && crossed(r.order, quote.Price) {
			triggered = append(triggered, r)
		} else {
			remaining = append(remaining, r)
		}
	}

	b.resting = remaining

	for _, r := range triggered {
		symbol := normalizeSymbol(r.order.Symbol)
		price := decimal.NewFromFloat(r.order.Price)

		_, err := b.fill(symbol, r.order.Side, decimal.NewFromFloat(r.order.Quantity), price, "")
		if err != nil {
			b.logger.Debug("dropping resting order",
				zap.String("symbol", r.order.Symbol),
				zap.String("kind", string(r.order.Kind)),
				zap.Error(err))
		}
	}
}

// crossed reports whether the quote price triggers the resting order.
func crossed(order ConditionalOrder, price float64) bool {
	if order.Side == types.OrderSideSell {
		if order.Kind == types.OrderKindStop {
			return price <= order.Price
		}

		return price >= order.Price
	}

	if order.Kind == types.OrderKindStop {
		return price >= order.Price
	}

	return price <= order.Price
}

// fill applies one execution to the ledger. Sells are clamped to the held
// quantity. The caller must hold the mutex.
func (b *PaperBroker) fill(symbol string, side types.OrderSide, quantity, price decimal.Decimal, strategyID string) (types.OrderResult, error) {
	pnl := decimal.Zero

	switch side {
	case types.OrderSideBuy:
		cost := quantity.Mul(price)
		if cost.GreaterThan(b.cash) {
			return types.OrderResult{}, errors.Newf(errors.ErrCodeInsufficientBalance,
				"order cost %s exceeds available cash %s", cost.StringFixed(2), b.cash.StringFixed(2))
		}

		b.cash = b.cash.Sub(cost)

		pos, ok := b.positions[symbol]
		if !ok {
			b.positions[symbol] = &paperPosition{quantity: quantity, avgEntry: price}
		} else {
			total := pos.quantity.Add(quantity)
			pos.avgEntry = pos.quantity.Mul(pos.avgEntry).Add(cost).Div(total)
			pos.quantity = total
		}

	case types.OrderSideSell:
		pos, ok := b.positions[symbol]
		if !ok || pos.quantity.IsZero() {
			return types.OrderResult{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
		}

		if quantity.GreaterThan(pos.quantity) {
			quantity = pos.quantity
		}

		proceeds := quantity.Mul(price)
		pnl = price.Sub(pos.avgEntry).Mul(quantity)
		b.cash = b.cash.Add(proceeds)

		pos.quantity = pos.quantity.Sub(quantity)
		if pos.quantity.IsZero() {
			delete(b.positions, symbol)
		}
	}

	orderID := uuid.New().String()
	now := time.Now()

	filledQty, _ := quantity.Float64()
	filledPrice, _ := price.Float64()
	realized, _ := pnl.Float64()

	b.logger.Info("paper fill",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("quantity", filledQty),
		zap.Float64("price", filledPrice))

	if b.onTrade != nil {
		b.onTrade(types.TradeRecord{
			ID:         uuid.New().String(),
			OrderID:    orderID,
			Symbol:     symbol,
			Side:       side,
			Quantity:   filledQty,
			Price:      filledPrice,
			PnL:        realized,
			StrategyID: strategyID,
			Simulated:  true,
			ExecutedAt: now,
		})
	}

	return types.OrderResult{
		OrderID:        orderID,
		Symbol:         symbol,
		Side:           side,
		Kind:           types.OrderKindMarket,
		Status:         types.OrderStatusFilled,
		FilledQuantity: filledQty,
		FilledAvgPrice: filledPrice,
		Timestamp:      now,
	}, nil
}
