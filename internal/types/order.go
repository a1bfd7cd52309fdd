package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

type OrderSide string

type OrderKind string

type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	// OrderKindMarket is an immediate fill at the current price
	OrderKindMarket OrderKind = "MARKET"
	// OrderKindStop triggers when the price falls to the stop price
	OrderKindStop OrderKind = "STOP"
	// OrderKindLimit rests until the price reaches the limit price
	OrderKindLimit OrderKind = "LIMIT"
)

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

// OrderIntent is the risk manager's sized output for a signal. It is derived,
// never persisted, and consumed immediately by the broker.
type OrderIntent struct {
	ID       string    `json:"id" yaml:"id" validate:"required,uuid"`
	Symbol   string    `json:"symbol" yaml:"symbol" validate:"required"`
	Side     OrderSide `json:"side" yaml:"side" validate:"required,oneof=BUY SELL"`
	Quantity float64   `json:"quantity" yaml:"quantity" validate:"required,gt=0"`
	// ReferencePrice is the price sizing was computed against
	ReferencePrice float64 `json:"reference_price" yaml:"reference_price" validate:"required,gt=0"`
	// StrategyID identifies the strategy instance that produced the intent
	StrategyID string `json:"strategy_id" yaml:"strategy_id" validate:"required"`
	// StopLoss is the protective stop price. Can be None if not set.
	StopLoss optional.Option[float64] `json:"stop_loss" yaml:"stop_loss"`
	// TakeProfit is the profit target price. Can be None if not set.
	TakeProfit optional.Option[float64] `json:"take_profit" yaml:"take_profit"`
}

// Validate validates the OrderIntent struct.
func (oi *OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(oi); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order intent", err)
	}

	if oi.StopLoss.IsSome() && oi.StopLoss.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidStopLoss, "stop loss price must be positive")
	}

	if oi.TakeProfit.IsSome() && oi.TakeProfit.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidTakeProfit, "take profit price must be positive")
	}

	return nil
}

// OrderResult is the broker's response to a submitted order.
type OrderResult struct {
	OrderID        string      `json:"order_id" yaml:"order_id"`
	Symbol         string      `json:"symbol" yaml:"symbol"`
	Side           OrderSide   `json:"side" yaml:"side"`
	Kind           OrderKind   `json:"kind" yaml:"kind"`
	Status         OrderStatus `json:"status" yaml:"status"`
	FilledQuantity float64     `json:"filled_quantity" yaml:"filled_quantity"`
	FilledAvgPrice float64     `json:"filled_avg_price" yaml:"filled_avg_price"`
	Timestamp      time.Time   `json:"timestamp" yaml:"timestamp"`
}

// IsFilled reports whether the order completed with a fill.
func (r OrderResult) IsFilled() bool {
	return r.Status == OrderStatusFilled && r.FilledQuantity > 0
}
