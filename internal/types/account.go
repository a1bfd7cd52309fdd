package types

import "time"

// AccountInfo represents the current account state as reported by the broker.
type AccountInfo struct {
	// Cash is the free balance in the quote currency
	Cash float64 `json:"cash" yaml:"cash"`
	// PortfolioValue is cash plus the marked value of all open positions
	PortfolioValue float64 `json:"portfolio_value" yaml:"portfolio_value"`
	// BuyingPower is the amount available for new purchases
	BuyingPower float64 `json:"buying_power" yaml:"buying_power"`
}

// PositionSnapshot represents one open position read from the broker.
type PositionSnapshot struct {
	Symbol        string  `json:"symbol" yaml:"symbol"`
	Quantity      float64 `json:"quantity" yaml:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price" yaml:"avg_entry_price"`
	CurrentPrice  float64 `json:"current_price" yaml:"current_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl" yaml:"unrealized_pnl"`
}

// Notional is the marked dollar value of the position.
func (p PositionSnapshot) Notional() float64 {
	return p.Quantity * p.CurrentPrice
}

// PortfolioSnapshot is a periodic valuation persisted for history queries.
type PortfolioSnapshot struct {
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	Cash           float64   `json:"cash" yaml:"cash"`
	PortfolioValue float64   `json:"portfolio_value" yaml:"portfolio_value"`
	UnrealizedPnL  float64   `json:"unrealized_pnl" yaml:"unrealized_pnl"`
	PositionCount  int       `json:"position_count" yaml:"position_count"`
}
