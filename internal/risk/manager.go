// Package risk converts signals into sized order intents under the account
// risk budget. The manager performs no I/O; every input is passed in, so it
// is independently testable.
package risk

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// Regime selects the reward:risk multiple used for the take-profit target.
type Regime string

const (
	// RegimeTrending targets a higher reward:risk multiple
	RegimeTrending Regime = "TRENDING"
	// RegimeVolatile targets a lower reward:risk multiple
	RegimeVolatile Regime = "VOLATILE"
)

// Config holds the account-level risk limits.
type Config struct {
	// RiskPerTradePct is the fraction of portfolio value at risk per trade
	RiskPerTradePct float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct" validate:"required,gt=0,lt=1"`
	// MaxPositionPct caps a single position's notional as a fraction of
	// portfolio value
	MaxPositionPct float64 `json:"max_position_pct" yaml:"max_position_pct" validate:"required,gt=0,lte=1"`
	// MaxOpenTrades caps the number of simultaneously open positions
	MaxOpenTrades int `json:"max_open_trades" yaml:"max_open_trades" validate:"required,gt=0"`
	// StopLossPct is the default protective distance when the strategy
	// supplies no stop of its own
	StopLossPct float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" validate:"required,gt=0,lt=1"`
	// MinNotional rejects intents below the venue's minimum trade value
	MinNotional float64 `json:"min_notional" yaml:"min_notional" validate:"gte=0"`
	// TrendingRewardRisk and VolatileRewardRisk are the take-profit
	// multiples per regime
	TrendingRewardRisk float64 `json:"trending_reward_risk" yaml:"trending_reward_risk" validate:"required,gt=0"`
	VolatileRewardRisk float64 `json:"volatile_reward_risk" yaml:"volatile_reward_risk" validate:"required,gt=0"`
}

// DefaultConfig returns the stock risk limits.
func DefaultConfig() Config {
	return Config{
		RiskPerTradePct:    0.02,
		MaxPositionPct:     0.20,
		MaxOpenTrades:      5,
		StopLossPct:        0.02,
		MinNotional:        10,
		TrendingRewardRisk: 2.0,
		VolatileRewardRisk: 1.5,
	}
}

// Input carries everything one sizing decision needs.
type Input struct {
	Symbol     string
	Signal     types.Signal
	StrategyID string
	Account    types.AccountInfo
	Positions  []types.PositionSnapshot
	Regime     Regime
	// RiskOverride replaces the configured per-trade risk fraction when
	// positive, for strategies that carry their own risk budget
	RiskOverride float64
}

// Manager sizes positions under the configured limits.
type Manager struct {
	config Config
}

// NewManager validates the config and creates a manager.
func NewManager(config Config) (*Manager, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid risk configuration", err)
	}

	return &Manager{config: config}, nil
}

// Size converts a signal into an order intent. A None return with a reason
// is a rejection, not an error; the caller logs it at info level.
func (m *Manager) Size(in Input) (optional.Option[types.OrderIntent], string) {
	switch in.Signal.Action {
	case types.SignalActionBuy:
		return m.sizeBuy(in)
	case types.SignalActionSell:
		return m.sizeSell(in)
	default:
		return optional.None[types.OrderIntent](), "hold signal"
	}
}

func (m *Manager) sizeBuy(in Input) (optional.Option[types.OrderIntent], string) {
	ref := in.Signal.ReferencePrice
	if ref <= 0 {
		return optional.None[types.OrderIntent](), "reference price missing"
	}

	if pos := findPosition(in.Positions, in.Symbol); pos != nil && pos.Quantity > 0 {
		return optional.None[types.OrderIntent](), "same-direction position already open"
	}

	if len(openPositions(in.Positions)) >= m.config.MaxOpenTrades {
		return optional.None[types.OrderIntent](), fmt.Sprintf("max open trades reached (%d)", m.config.MaxOpenTrades)
	}

	stop := in.Signal.StopPrice
	if stop <= 0 {
		stop = ref * (1 - m.config.StopLossPct)
	}

	riskPerUnit := ref - stop
	if riskPerUnit <= 0 {
		return optional.None[types.OrderIntent](), "stop price at or above reference price"
	}

	riskPct := m.config.RiskPerTradePct
	if in.RiskOverride > 0 {
		riskPct = in.RiskOverride
	}

	portfolioValue := in.Account.PortfolioValue
	riskAmount := portfolioValue * riskPct
	quantity := riskAmount / riskPerUnit

	// Cap the notional, shrinking the quantity proportionally
	maxNotional := portfolioValue * m.config.MaxPositionPct
	if quantity*ref > maxNotional {
		quantity = maxNotional / ref
	}

	if quantity*ref < m.config.MinNotional {
		return optional.None[types.OrderIntent](), fmt.Sprintf("notional %.2f below minimum %.2f", quantity*ref, m.config.MinNotional)
	}

	rewardRisk := m.config.TrendingRewardRisk
	if in.Regime == RegimeVolatile {
		rewardRisk = m.config.VolatileRewardRisk
	}

	takeProfit := ref + riskPerUnit*rewardRisk

	intent := types.OrderIntent{
		ID:             uuid.New().String(),
		Symbol:         in.Symbol,
		Side:           types.OrderSideBuy,
		Quantity:       quantity,
		ReferencePrice: ref,
		StrategyID:     in.StrategyID,
		StopLoss:       optional.Some(stop),
		TakeProfit:     optional.Some(takeProfit),
	}

	return optional.Some(intent), ""
}

// sizeSell exits the whole open position. There is nothing to size: the
// quantity is whatever is held.
func (m *Manager) sizeSell(in Input) (optional.Option[types.OrderIntent], string) {
	pos := findPosition(in.Positions, in.Symbol)
	if pos == nil || pos.Quantity <= 0 {
		return optional.None[types.OrderIntent](), "no open position to sell"
	}

	intent := types.OrderIntent{
		ID:             uuid.New().String(),
		Symbol:         pos.Symbol,
		Side:           types.OrderSideSell,
		Quantity:       pos.Quantity,
		ReferencePrice: in.Signal.ReferencePrice,
		StrategyID:     in.StrategyID,
	}

	if intent.ReferencePrice <= 0 {
		intent.ReferencePrice = pos.CurrentPrice
	}

	return optional.Some(intent), ""
}

func openPositions(positions []types.PositionSnapshot) []types.PositionSnapshot {
	out := make([]types.PositionSnapshot, 0, len(positions))

	for _, p := range positions {
		if p.Quantity > 0 {
			out = append(out, p)
		}
	}

	return out
}

func findPosition(positions []types.PositionSnapshot, symbol string) *types.PositionSnapshot {
	for i := range positions {
		if positions[i].Symbol == symbol {
			return &positions[i]
		}
	}

	return nil
}
