// Package engine runs the polling scheduler: it owns the strategy registry,
// refreshes market data, evaluates strategies, sizes and submits orders, and
// isolates failures per symbol so one broken feed never starves the rest.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-executor/internal/broker"
	"github.com/rxtech-lab/argo-executor/internal/config"
	"github.com/rxtech-lab/argo-executor/internal/logger"
	"github.com/rxtech-lab/argo-executor/internal/market"
	"github.com/rxtech-lab/argo-executor/internal/risk"
	"github.com/rxtech-lab/argo-executor/internal/store"
	"github.com/rxtech-lab/argo-executor/internal/strategy"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
	"go.uber.org/zap"
)

// stopJoinTimeout bounds how long Stop waits for the current cycle.
const stopJoinTimeout = 30 * time.Second

// StrategySpec declares one strategy instance to register.
type StrategySpec struct {
	Symbol       string
	Type         types.StrategyType
	Parameters   map[string]float64
	Capital      float64
	RiskPerTrade float64
}

// Params wires the engine's collaborators.
type Params struct {
	Config config.EngineConfig
	Market market.Provider
	Broker broker.Broker
	Risk   *risk.Manager
	Store  store.Store
	Logger *logger.Logger
}

// Engine is the execution loop controller. The loop goroutine is the sole
// mutator of instance state; external callers interact through the control
// surface, which hands off via the registry's lock.
type Engine struct {
	config    config.EngineConfig
	market    market.Provider
	broker    broker.Broker
	risk      *risk.Manager
	store     store.Store
	logger    *logger.Logger
	registry  *registry
	quoteSink broker.QuoteSink

	stateMu sync.Mutex
	state   types.EngineState
	stopCh  chan struct{}
	doneCh  chan struct{}

	cycles  int
	backoff *backoff.ExponentialBackOff
}

// NewEngine validates the collaborators and returns a ready engine.
func NewEngine(p Params) (*Engine, error) {
	if p.Market == nil || p.Broker == nil || p.Risk == nil || p.Store == nil {
		return nil, errors.New(errors.ErrCodeEngineInitFailed, "market, broker, risk and store collaborators are required")
	}

	if p.Logger == nil {
		p.Logger = logger.NewNopLogger()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.Config.PollInterval.Std()
	bo.MaxInterval = p.Config.MaxBackoff.Std()
	bo.MaxElapsedTime = 0
	bo.Reset()

	e := &Engine{
		config:   p.Config,
		market:   p.Market,
		broker:   p.Broker,
		risk:     p.Risk,
		store:    p.Store,
		logger:   p.Logger,
		registry: newRegistry(),
		state:    types.EngineStateInitializing,
		backoff:  bo,
	}

	// A broker that prices fills from a quote feed gets every refreshed
	// quote pushed in
	if sink, ok := p.Broker.(broker.QuoteSink); ok {
		e.quoteSink = sink
	}

	e.state = types.EngineStateReady

	e.logger.Info("engine ready",
		zap.String("mode", string(p.Broker.Mode())),
		zap.Duration("poll_interval", p.Config.PollInterval.Std()))

	return e, nil
}

// Mode reports whether execution is live or degraded.
func (e *Engine) Mode() types.ExecutionMode {
	return e.broker.Mode()
}

// State returns the lifecycle state.
func (e *Engine) State() types.EngineState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return e.state
}

// IsRunning reports whether the poll loop is active.
func (e *Engine) IsRunning() bool {
	return e.State() == types.EngineStateRunning
}

// Start launches the poll loop. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	switch e.state {
	case types.EngineStateRunning:
		return nil
	case types.EngineStateReady:
	default:
		return errors.Newf(errors.ErrCodeEngineNotReady, "cannot start from state %s", e.state)
	}

	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.state = types.EngineStateRunning
	e.backoff.Reset()

	go e.runLoop(e.stopCh, e.doneCh)

	e.logger.Info("engine started")

	return nil
}

// Stop signals the loop to exit and waits, bounded, for the current cycle
// to finish. Stopping a non-running engine is a no-op.
func (e *Engine) Stop() error {
	e.stateMu.Lock()

	if e.state != types.EngineStateRunning {
		e.stateMu.Unlock()

		return nil
	}

	stopCh := e.stopCh
	doneCh := e.doneCh
	e.stateMu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-time.After(stopJoinTimeout):
		e.logger.Warn("timed out waiting for poll loop to finish")
	}

	e.stateMu.Lock()
	e.state = types.EngineStateReady
	e.stateMu.Unlock()

	e.logger.Info("engine stopped")

	return nil
}

// Shutdown stops the loop and moves the engine to its terminal state.
func (e *Engine) Shutdown() error {
	if err := e.Stop(); err != nil {
		return err
	}

	e.stateMu.Lock()
	e.state = types.EngineStateStopped
	e.stateMu.Unlock()

	return nil
}

// AddStrategy registers a new strategy instance and returns its id.
func (e *Engine) AddStrategy(spec StrategySpec) (string, error) {
	strat, err := strategy.New(spec.Symbol, spec.Type, spec.Parameters)
	if err != nil {
		return "", err
	}

	if spec.Capital <= 0 {
		return "", errors.New(errors.ErrCodeInvalidParameter, "strategy capital must be positive")
	}

	inst := &instance{
		id:           uuid.New().String(),
		symbol:       spec.Symbol,
		strat:        strat,
		capital:      spec.Capital,
		riskPerTrade: spec.RiskPerTrade,
		active:       true,
		createdAt:    time.Now(),
	}

	e.registry.add(inst)

	e.logger.Info("strategy added",
		zap.String("id", inst.id),
		zap.String("symbol", spec.Symbol),
		zap.String("type", string(spec.Type)))

	return inst.id, nil
}

// RemoveStrategy deletes an instance from the registry.
func (e *Engine) RemoveStrategy(id string) error {
	if err := e.registry.remove(id); err != nil {
		return err
	}

	e.logger.Info("strategy removed", zap.String("id", id))

	return nil
}

// ToggleStrategy activates or deactivates an instance.
func (e *Engine) ToggleStrategy(id string, active bool) error {
	if err := e.registry.toggle(id, active); err != nil {
		return err
	}

	e.logger.Info("strategy toggled", zap.String("id", id), zap.Bool("active", active))

	return nil
}

// ActiveStrategies returns a read-only projection of every registered
// instance.
func (e *Engine) ActiveStrategies() []types.StrategyInstance {
	return e.registry.project()
}

// StrategySchema returns the JSON schema of a strategy type's parameters.
func (e *Engine) StrategySchema(strategyType types.StrategyType) ([]byte, error) {
	return strategy.ParameterSchema(strategyType)
}

// ListPositions returns the broker's open positions.
func (e *Engine) ListPositions(ctx context.Context) ([]types.PositionSnapshot, error) {
	return e.broker.GetPositions(ctx)
}

// ClosePosition exits one position at market and records the trade.
func (e *Engine) ClosePosition(ctx context.Context, symbol string) (types.OrderResult, error) {
	entries := e.entryPrices(ctx)

	result, err := e.broker.ClosePosition(ctx, symbol)
	if err != nil {
		return types.OrderResult{}, err
	}

	e.recordFill(result, "", entries)

	return result, nil
}

// CloseAll exits every open position.
func (e *Engine) CloseAll(ctx context.Context) ([]types.OrderResult, error) {
	entries := e.entryPrices(ctx)

	results, err := e.broker.CloseAll(ctx)

	for _, result := range results {
		e.recordFill(result, "", entries)
	}

	return results, err
}

// entryPrices snapshots avg entry prices by normalized symbol, for P&L on
// closing fills.
func (e *Engine) entryPrices(ctx context.Context) map[string]float64 {
	entries := make(map[string]float64)

	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return entries
	}

	for _, pos := range positions {
		entries[normalizeSymbol(pos.Symbol)] = pos.AvgEntryPrice
	}

	return entries
}

// recordFill persists a live fill, fire-and-forget. Degraded fills are
// recorded by the paper broker's own trade callback.
func (e *Engine) recordFill(result types.OrderResult, strategyID string, entries map[string]float64) {
	if e.broker.Mode() != types.ExecutionModeLive || !result.IsFilled() {
		return
	}

	var pnl float64

	if result.Side == types.OrderSideSell {
		if entry, ok := entries[normalizeSymbol(result.Symbol)]; ok && entry > 0 {
			pnl = (result.FilledAvgPrice - entry) * result.FilledQuantity
		}
	}

	trade := types.TradeRecord{
		ID:         uuid.New().String(),
		OrderID:    result.OrderID,
		Symbol:     result.Symbol,
		Side:       result.Side,
		Quantity:   result.FilledQuantity,
		Price:      result.FilledAvgPrice,
		PnL:        pnl,
		StrategyID: strategyID,
		Simulated:  false,
		ExecutedAt: result.Timestamp,
	}

	if err := e.store.SaveTrade(trade); err != nil {
		e.logger.Warn("failed to persist trade",
			zap.String("order_id", result.OrderID),
			zap.Error(err))
	}
}

// normalizeSymbol strips separators so configured symbols match broker
// position symbols.
func normalizeSymbol(symbol string) string {
	symbol = strings.ReplaceAll(symbol, "/", "")
	symbol = strings.ReplaceAll(symbol, "-", "")

	return strings.ToUpper(symbol)
}
