package store

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-executor/internal/logger"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBStore implements Store on an embedded DuckDB database.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

var _ Store = (*DuckDBStore)(nil)

// NewDuckDBStore opens or creates the database at path. Use ":memory:" for
// an ephemeral store.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to connect to database", err)
	}

	store := &DuckDBStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// initialize creates the tables if they do not exist.
func (s *DuckDBStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT,
			order_id TEXT,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			price DOUBLE,
			pnl DOUBLE,
			strategy_id TEXT,
			simulated BOOLEAN,
			executed_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create trades table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			time TIMESTAMP,
			cash DOUBLE,
			portfolio_value DOUBLE,
			unrealized_pnl DOUBLE,
			position_count INTEGER
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create portfolio_snapshots table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			symbol TEXT,
			interval TEXT,
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create market_data table", err)
	}

	return nil
}

// SaveTrade implements Store.
func (s *DuckDBStore) SaveTrade(trade types.TradeRecord) error {
	_, err := s.sq.
		Insert("trades").
		Columns("id", "order_id", "symbol", "side", "quantity", "price", "pnl", "strategy_id", "simulated", "executed_at").
		Values(trade.ID, trade.OrderID, trade.Symbol, string(trade.Side), trade.Quantity, trade.Price, trade.PnL, trade.StrategyID, trade.Simulated, trade.ExecutedAt).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to insert trade", err)
	}

	return nil
}

// SaveSnapshot implements Store.
func (s *DuckDBStore) SaveSnapshot(snapshot types.PortfolioSnapshot) error {
	_, err := s.sq.
		Insert("portfolio_snapshots").
		Columns("time", "cash", "portfolio_value", "unrealized_pnl", "position_count").
		Values(snapshot.Timestamp, snapshot.Cash, snapshot.PortfolioValue, snapshot.UnrealizedPnL, snapshot.PositionCount).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to insert portfolio snapshot", err)
	}

	return nil
}

// SaveBar implements Store.
func (s *DuckDBStore) SaveBar(bar types.Bar, interval types.Interval) error {
	_, err := s.sq.
		Insert("market_data").
		Columns("symbol", "interval", "time", "open", "high", "low", "close", "volume").
		Values(bar.Symbol, string(interval), bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to insert bar", err)
	}

	return nil
}

// GetTrades implements Store.
func (s *DuckDBStore) GetTrades(filter types.TradeFilter) ([]types.TradeRecord, error) {
	query := s.sq.
		Select("id", "order_id", "symbol", "side", "quantity", "price", "pnl", "strategy_id", "simulated", "executed_at").
		From("trades").
		OrderBy("executed_at DESC")

	if filter.Symbol != "" {
		query = query.Where(squirrel.Eq{"symbol": filter.Symbol})
	}

	if !filter.StartTime.IsZero() {
		query = query.Where(squirrel.GtOrEq{"executed_at": filter.StartTime})
	}

	if !filter.EndTime.IsZero() {
		query = query.Where(squirrel.LtOrEq{"executed_at": filter.EndTime})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord

	for rows.Next() {
		var trade types.TradeRecord

		var side string

		err := rows.Scan(
			&trade.ID,
			&trade.OrderID,
			&trade.Symbol,
			&side,
			&trade.Quantity,
			&trade.Price,
			&trade.PnL,
			&trade.StrategyID,
			&trade.Simulated,
			&trade.ExecutedAt,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trade.Side = types.OrderSide(side)
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// GetSnapshots implements Store.
func (s *DuckDBStore) GetSnapshots(start, end time.Time) ([]types.PortfolioSnapshot, error) {
	rows, err := s.sq.
		Select("time", "cash", "portfolio_value", "unrealized_pnl", "position_count").
		From("portfolio_snapshots").
		Where(squirrel.And{
			squirrel.GtOrEq{"time": start},
			squirrel.LtOrEq{"time": end},
		}).
		OrderBy("time ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query snapshots", err)
	}
	defer rows.Close()

	var snapshots []types.PortfolioSnapshot

	for rows.Next() {
		var snapshot types.PortfolioSnapshot

		err := rows.Scan(
			&snapshot.Timestamp,
			&snapshot.Cash,
			&snapshot.PortfolioValue,
			&snapshot.UnrealizedPnL,
			&snapshot.PositionCount,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan snapshot", err)
		}

		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating snapshots", err)
	}

	return snapshots, nil
}

// GetBars implements Store.
func (s *DuckDBStore) GetBars(symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	rows, err := s.sq.
		Select("symbol", "time", "open", "high", "low", "close", "volume").
		From("market_data").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.Eq{"interval": string(interval)},
			squirrel.GtOrEq{"time": start},
			squirrel.LtOrEq{"time": end},
		}).
		OrderBy("time ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var bar types.Bar

		err := rows.Scan(
			&bar.Symbol,
			&bar.Timestamp,
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
			&bar.Volume,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	return bars, nil
}

// PerformanceStats implements Store. Losses are reported as negative
// numbers.
func (s *DuckDBStore) PerformanceStats(strategyID string) (types.PerformanceStats, error) {
	rows, err := s.sq.
		Select("pnl").
		From("trades").
		Where(squirrel.And{
			squirrel.Eq{"strategy_id": strategyID},
			squirrel.Eq{"side": string(types.OrderSideSell)},
		}).
		RunWith(s.db).
		Query()
	if err != nil {
		return types.PerformanceStats{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trade pnl", err)
	}
	defer rows.Close()

	var stats types.PerformanceStats

	var wins, losses int

	var winSum, lossSum float64

	for rows.Next() {
		var pnl float64
		if err := rows.Scan(&pnl); err != nil {
			return types.PerformanceStats{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan pnl", err)
		}

		stats.TotalTrades++
		stats.TotalPnL += pnl

		if pnl > 0 {
			wins++
			winSum += pnl

			if pnl > stats.LargestWin {
				stats.LargestWin = pnl
			}
		} else {
			losses++
			lossSum += pnl

			if pnl < stats.LargestLoss {
				stats.LargestLoss = pnl
			}
		}
	}

	if err := rows.Err(); err != nil {
		return types.PerformanceStats{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating pnl", err)
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(wins) / float64(stats.TotalTrades)
		stats.AvgPnL = stats.TotalPnL / float64(stats.TotalTrades)
	}

	if wins > 0 {
		stats.AvgWin = winSum / float64(wins)
	}

	if losses > 0 {
		stats.AvgLoss = lossSum / float64(losses)
	}

	s.logger.Debug("computed performance stats",
		zap.String("strategy_id", strategyID),
		zap.Int("total_trades", stats.TotalTrades))

	return stats, nil
}

// Close implements Store.
func (s *DuckDBStore) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}
