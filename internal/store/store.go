// Package store persists trades, portfolio snapshots and downloaded market
// data in DuckDB. Persistence failures are logged by callers and never stop
// the trading loop.
package store

import (
	"time"

	"github.com/rxtech-lab/argo-executor/internal/types"
)

// Store is the persistence capability consumed by the engine.
type Store interface {
	// SaveTrade records one executed trade.
	SaveTrade(trade types.TradeRecord) error
	// SaveSnapshot records a periodic portfolio valuation.
	SaveSnapshot(snapshot types.PortfolioSnapshot) error
	// SaveBar records one downloaded bar.
	SaveBar(bar types.Bar, interval types.Interval) error
	// GetTrades returns trades matching the filter, newest first.
	GetTrades(filter types.TradeFilter) ([]types.TradeRecord, error)
	// GetSnapshots returns snapshots within the time range, oldest first.
	GetSnapshots(start, end time.Time) ([]types.PortfolioSnapshot, error)
	// GetBars returns stored bars for a symbol within the time range,
	// oldest first.
	GetBars(symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error)
	// PerformanceStats aggregates closed trades for a strategy. Only sells
	// realize P&L, so the stats count sell trades.
	PerformanceStats(strategyID string) (types.PerformanceStats, error)
	// Close releases the underlying database.
	Close() error
}
