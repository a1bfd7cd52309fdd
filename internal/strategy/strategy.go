// Package strategy implements the signal generators. Each strategy is a
// state machine for one symbol that consumes a bar series and emits a
// directional signal with confidence and rationale. Variants form a closed
// set selected by a type tag so the engine registry can hold them behind one
// interface.
package strategy

import (
	"encoding/json"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// Strategy is the evaluation contract shared by all variants. Instances
// carry mutable state between calls (cooldown timestamp, adaptive
// parameters); the engine guarantees a single evaluator at a time, so
// implementations need no internal locking.
type Strategy interface {
	// Type returns the variant tag.
	Type() types.StrategyType
	// MinBars returns the minimum history length needed for a full
	// evaluation. Shorter series yield HOLD with confidence 0.
	MinBars() int
	// GenerateSignal evaluates the bar series and returns a signal. The
	// series must be ordered ascending by timestamp.
	GenerateSignal(bars []types.Bar, now time.Time) types.Signal
	// Tune slowly adjusts the strategy's sensitivity from trailing
	// closed-trade performance. Adjustments move by small fixed increments
	// and never overshoot the configured bounds.
	Tune(stats types.PerformanceStats)
	// Parameters returns the current numeric parameters, including any
	// adaptive state.
	Parameters() map[string]float64
	// AdaptiveMultiplier returns the current volatility-adjusted multiplier,
	// or 0 for variants without one.
	AdaptiveMultiplier() float64
}

// New creates a strategy of the given type for a symbol. Unknown parameter
// keys are ignored; missing ones take their defaults.
func New(symbol string, strategyType types.StrategyType, params map[string]float64) (Strategy, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "strategy symbol is required")
	}

	switch strategyType {
	case types.StrategyTypeTrendFollowing:
		return newTrendFollowing(symbol, params)
	case types.StrategyTypeMomentum:
		return newMomentum(symbol, params)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy type: %s", strategyType)
	}
}

// ParameterSchema returns the JSON schema of the parameter struct for a
// strategy type, for the control surface to expose to configuration UIs.
func ParameterSchema(strategyType types.StrategyType) ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}

	var schema *jsonschema.Schema

	switch strategyType {
	case types.StrategyTypeTrendFollowing:
		schema = reflector.Reflect(&TrendParams{})
	case types.StrategyTypeMomentum:
		schema = reflector.Reflect(&MomentumParams{})
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy type: %s", strategyType)
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to marshal parameter schema", err)
	}

	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

func paramOr(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}

	return def
}
