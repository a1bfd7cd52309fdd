package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-executor/internal/strategy"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// instance is one registered strategy. Its mutable fields are written only
// by the poll loop, always under the registry lock, so control-surface
// projections never observe a half-updated instance.
type instance struct {
	id           string
	symbol       string
	strat        strategy.Strategy
	capital      float64
	riskPerTrade float64
	active       bool

	lastSignal     types.Signal
	lastSignalTime time.Time
	lastError      string
	createdAt      time.Time
}

// registry is the mutex-guarded table of strategy instances plus the
// per-symbol error-isolation counters. External callers go through the
// engine's control surface; instance state is never handed out by reference.
type registry struct {
	mu        sync.RWMutex
	instances map[string]*instance
	bySymbol  map[string][]string
	errCount  map[string]int
	lastErr   map[string]string
}

func newRegistry() *registry {
	return &registry{
		instances: make(map[string]*instance),
		bySymbol:  make(map[string][]string),
		errCount:  make(map[string]int),
		lastErr:   make(map[string]string),
	}
}

func (r *registry) add(inst *instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances[inst.id] = inst
	r.bySymbol[inst.symbol] = append(r.bySymbol[inst.symbol], inst.id)
}

func (r *registry) remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	delete(r.instances, id)

	ids := r.bySymbol[inst.symbol]
	for i, other := range ids {
		if other == id {
			r.bySymbol[inst.symbol] = append(ids[:i], ids[i+1:]...)

			break
		}
	}

	if len(r.bySymbol[inst.symbol]) == 0 {
		delete(r.bySymbol, inst.symbol)
		delete(r.errCount, inst.symbol)
		delete(r.lastErr, inst.symbol)
	}

	return nil
}

func (r *registry) toggle(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	inst.active = active

	return nil
}

// run applies fn to an instance under the write lock. It is the only way
// the loop mutates instance or strategy state.
func (r *registry) run(id string, fn func(*instance)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return false
	}

	fn(inst)

	return true
}

// activeSymbols returns the sorted set of symbols with at least one active
// instance.
func (r *registry) activeSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var symbols []string

	for symbol, ids := range r.bySymbol {
		for _, id := range ids {
			if r.instances[id].active {
				symbols = append(symbols, symbol)

				break
			}
		}
	}

	sort.Strings(symbols)

	return symbols
}

// activeForSymbol returns the ids of active instances for a symbol, in
// registration order.
func (r *registry) activeForSymbol(symbol string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string

	for _, id := range r.bySymbol[symbol] {
		if r.instances[id].active {
			ids = append(ids, id)
		}
	}

	return ids
}

// recordSymbolError bumps the symbol's consecutive-error counter and
// returns the new count.
func (r *registry) recordSymbolError(symbol, message string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errCount[symbol]++
	r.lastErr[symbol] = message

	return r.errCount[symbol]
}

func (r *registry) resetSymbolErrors(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.errCount, symbol)
	delete(r.lastErr, symbol)
}

func (r *registry) symbolErrors(symbol string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.errCount[symbol]
}

// project returns read-only copies of every instance, ordered by creation
// time.
func (r *registry) project() []types.StrategyInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.StrategyInstance, 0, len(r.instances))

	for _, inst := range r.instances {
		out = append(out, types.StrategyInstance{
			ID:                 inst.id,
			Symbol:             inst.symbol,
			Type:               inst.strat.Type(),
			Parameters:         inst.strat.Parameters(),
			Capital:            inst.capital,
			RiskPerTrade:       inst.riskPerTrade,
			IsActive:           inst.active,
			LastSignalTime:     inst.lastSignalTime,
			LastSignal:         inst.lastSignal,
			AdaptiveMultiplier: inst.strat.AdaptiveMultiplier(),
			ConsecutiveErrors:  r.errCount[inst.symbol],
			LastError:          firstNonEmpty(inst.lastError, r.lastErr[inst.symbol]),
			CreatedAt:          inst.createdAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}

		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}

	return b
}
