// Package broker provides order execution and account state. The live
// implementation trades spot on Binance; the paper implementation keeps an
// in-memory ledger and is substituted when the engine runs degraded.
package broker

import (
	"context"

	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// ConditionalOrder is a resting protective order. Stop orders trigger when
// the price falls to the trigger price, limit orders when it rises to it.
type ConditionalOrder struct {
	Symbol   string          `json:"symbol" validate:"required"`
	Kind     types.OrderKind `json:"kind" validate:"required,oneof=STOP LIMIT"`
	Side     types.OrderSide `json:"side" validate:"required,oneof=BUY SELL"`
	Quantity float64         `json:"quantity" validate:"required,gt=0"`
	Price    float64         `json:"price" validate:"required,gt=0"`
}

// Validate checks the conditional order fields.
func (c ConditionalOrder) Validate() error {
	if c.Kind != types.OrderKindStop && c.Kind != types.OrderKindLimit {
		return errors.Newf(errors.ErrCodeInvalidOrder, "conditional order kind must be STOP or LIMIT, got %s", c.Kind)
	}

	if c.Quantity <= 0 {
		return errors.New(errors.ErrCodeInvalidOrder, "conditional order quantity must be positive")
	}

	if c.Price <= 0 {
		return errors.New(errors.ErrCodeInvalidOrder, "conditional order price must be positive")
	}

	return nil
}

// Broker is the execution capability consumed by the engine.
type Broker interface {
	// Mode reports whether orders reach a live venue or the paper ledger.
	Mode() types.ExecutionMode
	// GetAccount returns cash, portfolio value and buying power.
	GetAccount(ctx context.Context) (types.AccountInfo, error)
	// GetPositions returns all open positions.
	GetPositions(ctx context.Context) ([]types.PositionSnapshot, error)
	// SubmitMarketOrder executes an intent immediately at the current price.
	SubmitMarketOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error)
	// SubmitConditionalOrder places a resting stop or limit order.
	SubmitConditionalOrder(ctx context.Context, order ConditionalOrder) (types.OrderResult, error)
	// CancelOpenOrders cancels every resting order for a symbol.
	CancelOpenOrders(ctx context.Context, symbol string) error
	// ClosePosition market-sells the full position for a symbol after
	// cancelling its resting orders.
	ClosePosition(ctx context.Context, symbol string) (types.OrderResult, error)
	// CloseAll closes every open position.
	CloseAll(ctx context.Context) ([]types.OrderResult, error)
}

// QuoteSink is implemented by brokers that price fills from a pushed quote
// feed. The engine hands each refreshed quote to the sink when present.
type QuoteSink interface {
	UpdateQuote(quote types.Quote)
}

// Quoter prices positions for account valuation. market.Provider satisfies it.
type Quoter interface {
	GetLatest(ctx context.Context, symbol string) (*types.Quote, error)
}
