package types

import "time"

// TradeRecord is one executed fill, persisted append-only by the store.
type TradeRecord struct {
	ID       string    `json:"id" yaml:"id"`
	OrderID  string    `json:"order_id" yaml:"order_id"`
	Symbol   string    `json:"symbol" yaml:"symbol"`
	Side     OrderSide `json:"side" yaml:"side"`
	Quantity float64   `json:"quantity" yaml:"quantity"`
	Price    float64   `json:"price" yaml:"price"`
	// PnL is the realized profit for a closing fill; 0 for an entry
	PnL float64 `json:"pnl" yaml:"pnl"`
	// StrategyID identifies the strategy instance that produced the trade
	StrategyID string `json:"strategy_id" yaml:"strategy_id"`
	// Simulated is true for fills produced by the in-memory broker
	Simulated  bool      `json:"simulated" yaml:"simulated"`
	ExecutedAt time.Time `json:"executed_at" yaml:"executed_at"`
}

// Notional is the dollar value of the fill.
func (t TradeRecord) Notional() float64 {
	return t.Quantity * t.Price
}

// TradeFilter is used to filter trades when querying trade history.
type TradeFilter struct {
	// Symbol filters trades by symbol (empty string means no filter)
	Symbol string `json:"symbol" yaml:"symbol"`
	// StartTime filters trades executed after this time (zero time means no filter)
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	// EndTime filters trades executed before this time (zero time means no filter)
	EndTime time.Time `json:"end_time" yaml:"end_time"`
	// Limit limits the number of trades returned (0 means no limit)
	Limit int `json:"limit" yaml:"limit"`
}
