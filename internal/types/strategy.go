package types

import "time"

type StrategyType string

const (
	// StrategyTypeTrendFollowing is the Supertrend flip strategy with
	// volume confirmation and a cooldown window
	StrategyTypeTrendFollowing StrategyType = "trend_following"
	// StrategyTypeMomentum is the MACD histogram strategy with RSI confirmation
	StrategyTypeMomentum StrategyType = "momentum"
)

// StrategyInstance is a read-only projection of one registered strategy,
// returned by the engine's control surface. Mutating it has no effect on the
// live instance.
type StrategyInstance struct {
	ID     string       `json:"id" yaml:"id"`
	Symbol string       `json:"symbol" yaml:"symbol"`
	Type   StrategyType `json:"type" yaml:"type"`
	// Parameters are the numeric strategy parameters at creation time
	Parameters map[string]float64 `json:"parameters" yaml:"parameters"`
	// Capital is the notional allocated to this instance
	Capital float64 `json:"capital" yaml:"capital"`
	// RiskPerTrade is the per-trade risk fraction of portfolio value
	RiskPerTrade float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	IsActive     bool    `json:"is_active" yaml:"is_active"`
	// LastSignalTime is the time the instance last emitted a BUY or SELL
	LastSignalTime time.Time `json:"last_signal_time" yaml:"last_signal_time"`
	// LastSignal is the most recent evaluation result
	LastSignal Signal `json:"last_signal" yaml:"last_signal"`
	// AdaptiveMultiplier is the current volatility-adjusted multiplier
	// (trend-following only; 0 otherwise)
	AdaptiveMultiplier float64 `json:"adaptive_multiplier" yaml:"adaptive_multiplier"`
	// ConsecutiveErrors is the symbol's current error-isolation counter
	ConsecutiveErrors int `json:"consecutive_errors" yaml:"consecutive_errors"`
	// LastError is the most recent evaluation error message, empty when healthy
	LastError string `json:"last_error" yaml:"last_error"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// PerformanceStats summarizes closed-trade performance over a trailing window.
// It drives the strategies' slow parameter self-adjustment.
type PerformanceStats struct {
	TotalTrades int     `json:"total_trades" yaml:"total_trades"`
	WinRate     float64 `json:"win_rate" yaml:"win_rate"`
	AvgWin      float64 `json:"avg_win" yaml:"avg_win"`
	AvgLoss     float64 `json:"avg_loss" yaml:"avg_loss"`
	LargestWin  float64 `json:"largest_win" yaml:"largest_win"`
	LargestLoss float64 `json:"largest_loss" yaml:"largest_loss"`
	TotalPnL    float64 `json:"total_pnl" yaml:"total_pnl"`
	AvgPnL      float64 `json:"avg_pnl" yaml:"avg_pnl"`
}
