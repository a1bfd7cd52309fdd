package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-executor/internal/broker"
	"github.com/rxtech-lab/argo-executor/internal/risk"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
	"go.uber.org/zap"
)

// runLoop is the single background worker. It is the only goroutine that
// evaluates strategies and submits orders.
func (e *Engine) runLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		delay := e.config.PollInterval.Std()

		if err := e.runCycle(context.Background(), stopCh); err != nil {
			delay = e.backoff.NextBackOff()
			e.logger.Warn("cycle failed, backing off",
				zap.Duration("backoff", delay),
				zap.Error(err))
		} else {
			e.backoff.Reset()
		}

		select {
		case <-stopCh:
			return
		case <-time.After(delay):
		}
	}
}

// runCycle executes one pass of the loop body. An error return counts
// toward the global backoff; per-symbol errors are absorbed into the
// isolation counters instead.
func (e *Engine) runCycle(ctx context.Context, stopCh <-chan struct{}) error {
	symbols := e.registry.activeSymbols()
	if len(symbols) == 0 {
		return nil
	}

	e.cycles++

	bars, fetchErrs := e.refreshMarketData(ctx, symbols, stopCh)

	if e.cycles%e.config.SnapshotEvery == 0 {
		if err := e.persistSnapshot(ctx); err != nil {
			return err
		}
	}

	for _, symbol := range symbols {
		select {
		case <-stopCh:
			return nil
		default:
		}

		if e.skipped(symbol) {
			continue
		}

		if fetchErr, ok := fetchErrs[symbol]; ok {
			count := e.registry.recordSymbolError(symbol, fetchErr.Error())
			e.logger.Warn("market data refresh failed",
				zap.String("symbol", symbol),
				zap.Int("consecutive_errors", count),
				zap.Error(fetchErr))

			continue
		}

		if err := e.evaluateSymbol(ctx, symbol, bars[symbol]); err != nil {
			count := e.registry.recordSymbolError(symbol, err.Error())
			e.logger.Warn("symbol evaluation failed",
				zap.String("symbol", symbol),
				zap.Int("consecutive_errors", count),
				zap.Error(err))
		} else {
			e.registry.resetSymbolErrors(symbol)
		}
	}

	return nil
}

// skipped reports whether a symbol is isolated this cycle. Isolated symbols
// get a probe retry every ErrorThreshold cycles so a recovered feed can
// reset its counter.
func (e *Engine) skipped(symbol string) bool {
	if e.registry.symbolErrors(symbol) < e.config.ErrorThreshold {
		return false
	}

	if e.cycles%e.config.ErrorThreshold == 0 {
		return false
	}

	e.logger.Debug("skipping isolated symbol", zap.String("symbol", symbol))

	return true
}

// refreshMarketData fetches bars and the latest quote for each symbol in
// bounded batches with a rate-limit pause in between. It persists one
// market-data point per symbol, fire-and-forget.
func (e *Engine) refreshMarketData(ctx context.Context, symbols []string, stopCh <-chan struct{}) (map[string][]types.Bar, map[string]error) {
	bars := make(map[string][]types.Bar, len(symbols))
	fetchErrs := make(map[string]error)

	for i, symbol := range symbols {
		if i > 0 && i%e.config.BatchSize == 0 {
			select {
			case <-stopCh:
				return bars, fetchErrs
			case <-time.After(e.config.BatchPause.Std()):
			}
		}

		if e.registry.symbolErrors(symbol) >= e.config.ErrorThreshold && e.cycles%e.config.ErrorThreshold != 0 {
			continue
		}

		series, err := e.market.GetBars(ctx, symbol, e.config.Interval, e.config.Lookback)
		if err != nil {
			fetchErrs[symbol] = err

			continue
		}

		quote, err := e.market.GetLatest(ctx, symbol)
		if err != nil {
			fetchErrs[symbol] = err

			continue
		}

		if quote != nil && e.quoteSink != nil {
			e.quoteSink.UpdateQuote(*quote)
		}

		bars[symbol] = series

		if len(series) > 0 {
			latest := series[len(series)-1]
			if err := e.store.SaveBar(latest, e.config.Interval); err != nil {
				e.logger.Debug("failed to persist market data point",
					zap.String("symbol", symbol),
					zap.Error(err))
			}
		}
	}

	return bars, fetchErrs
}

// persistSnapshot values the portfolio and stores it for history queries.
// A broker failure here is a loop-level error; a store failure is only
// logged.
func (e *Engine) persistSnapshot(ctx context.Context) error {
	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to value portfolio", err)
	}

	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to list positions", err)
	}

	var unrealized float64
	for _, pos := range positions {
		unrealized += pos.UnrealizedPnL
	}

	snapshot := types.PortfolioSnapshot{
		Timestamp:      time.Now(),
		Cash:           account.Cash,
		PortfolioValue: account.PortfolioValue,
		UnrealizedPnL:  unrealized,
		PositionCount:  len(positions),
	}

	if err := e.store.SaveSnapshot(snapshot); err != nil {
		e.logger.Warn("failed to persist portfolio snapshot", zap.Error(err))
	}

	return nil
}

// evaluateSymbol runs every active instance for a symbol. Errors are
// captured per instance; the first one is returned for the symbol's
// isolation counter after all instances have run.
func (e *Engine) evaluateSymbol(ctx context.Context, symbol string, bars []types.Bar) error {
	var firstErr error

	for _, id := range e.registry.activeForSymbol(symbol) {
		if err := e.evaluateInstance(ctx, id, symbol, bars); err != nil {
			e.registry.run(id, func(inst *instance) {
				inst.lastError = err.Error()
			})

			if firstErr == nil {
				firstErr = err
			}
		} else {
			e.registry.run(id, func(inst *instance) {
				inst.lastError = ""
			})
		}
	}

	return firstErr
}

// evaluateInstance generates a signal, executes it, then runs the
// strategy's slow self-adjustment from trailing performance.
func (e *Engine) evaluateInstance(ctx context.Context, id, symbol string, bars []types.Bar) error {
	var signal types.Signal

	now := time.Now()

	ok := e.registry.run(id, func(inst *instance) {
		signal = inst.strat.GenerateSignal(bars, now)
		inst.lastSignal = signal

		if signal.Action != types.SignalActionHold {
			inst.lastSignalTime = now
		}
	})
	if !ok {
		return nil
	}

	e.logger.Debug("signal",
		zap.String("symbol", symbol),
		zap.String("action", string(signal.Action)),
		zap.Float64("confidence", signal.Confidence),
		zap.String("rationale", signal.Rationale))

	var execErr error

	switch signal.Action {
	case types.SignalActionBuy:
		execErr = e.executeBuy(ctx, id, symbol, signal)
	case types.SignalActionSell:
		execErr = e.executeSell(ctx, id, symbol, signal)
	case types.SignalActionHold:
	}

	if execErr != nil {
		return execErr
	}

	e.tune(id)

	return nil
}

// tune feeds trailing closed-trade stats into the strategy's slow
// self-adjustment.
func (e *Engine) tune(id string) {
	stats, err := e.store.PerformanceStats(id)
	if err != nil {
		e.logger.Debug("failed to load performance stats",
			zap.String("strategy_id", id),
			zap.Error(err))

		return
	}

	if stats.TotalTrades == 0 {
		return
	}

	e.registry.run(id, func(inst *instance) {
		inst.strat.Tune(stats)
	})
}

// executeBuy re-checks positions, sizes the entry, submits the market
// order and, only after a confirmed fill, attaches the protective orders.
func (e *Engine) executeBuy(ctx context.Context, id, symbol string, signal types.Signal) error {
	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to fetch account", err)
	}

	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to fetch positions", err)
	}

	var capital, riskOverride float64

	regime := risk.RegimeTrending

	e.registry.run(id, func(inst *instance) {
		capital = inst.capital
		riskOverride = inst.riskPerTrade

		// A multiplier widened above its baseline means the strategy is in
		// a high-volatility regime
		if am := inst.strat.AdaptiveMultiplier(); am > inst.strat.Parameters()["multiplier"] {
			regime = risk.RegimeVolatile
		}
	})

	if capital > 0 && capital < account.PortfolioValue {
		account.PortfolioValue = capital
	}

	intent, reason := e.risk.Size(risk.Input{
		Symbol:       normalizeSymbol(symbol),
		Signal:       signal,
		StrategyID:   id,
		Account:      account,
		Positions:    normalizePositions(positions),
		Regime:       regime,
		RiskOverride: riskOverride,
	})
	if intent.IsNone() {
		e.logger.Info("buy rejected by risk sizing",
			zap.String("symbol", symbol),
			zap.String("reason", reason))

		return nil
	}

	order := intent.Unwrap()
	order.Symbol = symbol

	result, err := e.broker.SubmitMarketOrder(ctx, order)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "buy order failed for %s", symbol)
	}

	e.recordFill(result, id, nil)

	if !result.IsFilled() {
		e.logger.Warn("buy order not filled",
			zap.String("symbol", symbol),
			zap.String("status", string(result.Status)))

		return nil
	}

	e.logger.Info("position opened",
		zap.String("symbol", symbol),
		zap.Float64("quantity", result.FilledQuantity),
		zap.Float64("price", result.FilledAvgPrice))

	e.attachProtectiveOrders(ctx, symbol, order, result)

	return nil
}

// attachProtectiveOrders submits the stop-loss and take-profit after a
// confirmed fill. A failure leaves the position open and unprotected, the
// one state that violates the protective-order invariant, so it is surfaced
// loudly instead of failing the cycle.
func (e *Engine) attachProtectiveOrders(ctx context.Context, symbol string, order types.OrderIntent, result types.OrderResult) {
	if stop, err := order.StopLoss.Take(); err == nil {
		_, submitErr := e.broker.SubmitConditionalOrder(ctx, broker.ConditionalOrder{
			Symbol:   symbol,
			Kind:     types.OrderKindStop,
			Side:     types.OrderSideSell,
			Quantity: result.FilledQuantity,
			Price:    stop,
		})
		if submitErr != nil {
			e.logger.Warn("open position left without stop loss",
				zap.String("symbol", symbol),
				zap.Error(errors.Wrap(errors.ErrCodeUnprotectedPosition, "stop loss submission failed", submitErr)))
		}
	}

	if target, err := order.TakeProfit.Take(); err == nil {
		_, submitErr := e.broker.SubmitConditionalOrder(ctx, broker.ConditionalOrder{
			Symbol:   symbol,
			Kind:     types.OrderKindLimit,
			Side:     types.OrderSideSell,
			Quantity: result.FilledQuantity,
			Price:    target,
		})
		if submitErr != nil {
			e.logger.Warn("open position left without take profit",
				zap.String("symbol", symbol),
				zap.Error(errors.Wrap(errors.ErrCodeUnprotectedPosition, "take profit submission failed", submitErr)))
		}
	}
}

// executeSell cancels resting protective orders first, then exits the
// position at market.
func (e *Engine) executeSell(ctx context.Context, id, symbol string, signal types.Signal) error {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to fetch positions", err)
	}

	normalized := normalizePositions(positions)

	intent, reason := e.risk.Size(risk.Input{
		Symbol:     normalizeSymbol(symbol),
		Signal:     signal,
		StrategyID: id,
		Positions:  normalized,
	})
	if intent.IsNone() {
		e.logger.Debug("sell skipped",
			zap.String("symbol", symbol),
			zap.String("reason", reason))

		return nil
	}

	if err := e.broker.CancelOpenOrders(ctx, symbol); err != nil {
		return errors.Wrapf(errors.ErrCodeCancelFailed, err, "failed to cancel protective orders for %s", symbol)
	}

	order := intent.Unwrap()
	order.Symbol = symbol

	result, err := e.broker.SubmitMarketOrder(ctx, order)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "sell order failed for %s", symbol)
	}

	entries := make(map[string]float64)
	for _, pos := range normalized {
		entries[pos.Symbol] = pos.AvgEntryPrice
	}

	e.recordFill(result, id, entries)

	if result.IsFilled() {
		e.logger.Info("position closed",
			zap.String("symbol", symbol),
			zap.Float64("quantity", result.FilledQuantity),
			zap.Float64("price", result.FilledAvgPrice))
	}

	return nil
}

// normalizePositions rewrites position symbols to the separator-free form
// used for registry symbols, so lookups match regardless of formatting.
func normalizePositions(positions []types.PositionSnapshot) []types.PositionSnapshot {
	out := make([]types.PositionSnapshot, len(positions))

	for i, pos := range positions {
		pos.Symbol = normalizeSymbol(pos.Symbol)
		out[i] = pos
	}

	return out
}
