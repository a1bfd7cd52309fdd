package types

import "time"

// Bar represents one OHLCV sample for a symbol over a fixed time bucket.
// A valid series is ordered ascending by timestamp with no duplicates.
type Bar struct {
	// Symbol is the trading pair the bar belongs to
	Symbol string `json:"symbol" yaml:"symbol"`
	// Timestamp is the open time of the bar
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Open      float64   `json:"open" yaml:"open"`
	High      float64   `json:"high" yaml:"high"`
	Low       float64   `json:"low" yaml:"low"`
	Close     float64   `json:"close" yaml:"close"`
	Volume    float64   `json:"volume" yaml:"volume"`
}

// Quote is the latest snapshot of a symbol, including the percentage change
// against the open of the current daily bar.
type Quote struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Price     float64   `json:"price" yaml:"price"`
	High      float64   `json:"high" yaml:"high"`
	Low       float64   `json:"low" yaml:"low"`
	Volume    float64   `json:"volume" yaml:"volume"`
	ChangePct float64   `json:"change_pct" yaml:"change_pct"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Interval is the bar timeframe granularity requested from a market data provider.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)
