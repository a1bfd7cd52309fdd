package strategy

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-executor/internal/indicator"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// MomentumParams configures the MACD+RSI variant.
type MomentumParams struct {
	FastPeriod   int `json:"fast_period" yaml:"fast_period" validate:"required,gt=0"`
	SlowPeriod   int `json:"slow_period" yaml:"slow_period" validate:"required,gtfield=FastPeriod"`
	SignalPeriod int `json:"signal_period" yaml:"signal_period" validate:"required,gt=0"`
	RSIPeriod    int `json:"rsi_period" yaml:"rsi_period" validate:"required,gt=0"`
	// RSIOverbought blocks BUY at or above this RSI
	RSIOverbought float64 `json:"rsi_overbought" yaml:"rsi_overbought" validate:"required,gt=0,lte=100"`
	// RSIOversold blocks SELL at or below this RSI
	RSIOversold float64 `json:"rsi_oversold" yaml:"rsi_oversold" validate:"required,gt=0,ltfield=RSIOverbought"`
	// StopLossPct and TakeProfitPct are the entry-relative protective
	// distances supplied with a BUY
	StopLossPct   float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" validate:"gt=0,lt=1"`
	TakeProfitPct float64 `json:"take_profit_pct" yaml:"take_profit_pct" validate:"gt=0,lt=1"`
	// TuneStep moves the RSI confirmation bounds during self-adjustment
	TuneStep        float64 `json:"tune_step" yaml:"tune_step" validate:"gte=0"`
	TuneMinTrades   int     `json:"tune_min_trades" yaml:"tune_min_trades" validate:"gte=0"`
	TuneLowWinRate  float64 `json:"tune_low_win_rate" yaml:"tune_low_win_rate" validate:"gte=0,lte=1"`
	TuneHighWinRate float64 `json:"tune_high_win_rate" yaml:"tune_high_win_rate" validate:"gte=0,lte=1"`
	// Bounds the tuned RSI thresholds can never overshoot
	MinOverbought float64 `json:"min_overbought" yaml:"min_overbought" validate:"required,gt=0"`
	MaxOverbought float64 `json:"max_overbought" yaml:"max_overbought" validate:"required,gtfield=MinOverbought"`
	MinOversold   float64 `json:"min_oversold" yaml:"min_oversold" validate:"required,gt=0"`
	MaxOversold   float64 `json:"max_oversold" yaml:"max_oversold" validate:"required,gtfield=MinOversold"`
}

func defaultMomentumParams() MomentumParams {
	return MomentumParams{
		FastPeriod:      12,
		SlowPeriod:      26,
		SignalPeriod:    9,
		RSIPeriod:       14,
		RSIOverbought:   70,
		RSIOversold:     30,
		StopLossPct:     0.02,
		TakeProfitPct:   0.04,
		TuneStep:        1.0,
		TuneMinTrades:   5,
		TuneLowWinRate:  0.4,
		TuneHighWinRate: 0.6,
		MinOverbought:   60,
		MaxOverbought:   80,
		MinOversold:     20,
		MaxOversold:     40,
	}
}

// momentum emits BUY when the MACD histogram is positive and rising with RSI
// below the overbought bound, and SELL when the histogram is negative and
// falling with RSI above the oversold bound.
type momentum struct {
	symbol string
	params MomentumParams
}

var _ Strategy = (*momentum)(nil)

func newMomentum(symbol string, overrides map[string]float64) (*momentum, error) {
	p := defaultMomentumParams()

	applyMomentumOverrides(&p, overrides)

	if err := validator.New().Struct(p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid momentum parameters", err)
	}

	return &momentum{
		symbol: symbol,
		params: p,
	}, nil
}

func applyMomentumOverrides(p *MomentumParams, overrides map[string]float64) {
	p.FastPeriod = int(paramOr(overrides, "fast_period", float64(p.FastPeriod)))
	p.SlowPeriod = int(paramOr(overrides, "slow_period", float64(p.SlowPeriod)))
	p.SignalPeriod = int(paramOr(overrides, "signal_period", float64(p.SignalPeriod)))
	p.RSIPeriod = int(paramOr(overrides, "rsi_period", float64(p.RSIPeriod)))
	p.RSIOverbought = paramOr(overrides, "rsi_overbought", p.RSIOverbought)
	p.RSIOversold = paramOr(overrides, "rsi_oversold", p.RSIOversold)
	p.StopLossPct = paramOr(overrides, "stop_loss_pct", p.StopLossPct)
	p.TakeProfitPct = paramOr(overrides, "take_profit_pct", p.TakeProfitPct)
	p.TuneStep = paramOr(overrides, "tune_step", p.TuneStep)
	p.TuneMinTrades = int(paramOr(overrides, "tune_min_trades", float64(p.TuneMinTrades)))
	p.TuneLowWinRate = paramOr(overrides, "tune_low_win_rate", p.TuneLowWinRate)
	p.TuneHighWinRate = paramOr(overrides, "tune_high_win_rate", p.TuneHighWinRate)
	p.MinOverbought = paramOr(overrides, "min_overbought", p.MinOverbought)
	p.MaxOverbought = paramOr(overrides, "max_overbought", p.MaxOverbought)
	p.MinOversold = paramOr(overrides, "min_oversold", p.MinOversold)
	p.MaxOversold = paramOr(overrides, "max_oversold", p.MaxOversold)
}

func (s *momentum) Type() types.StrategyType {
	return types.StrategyTypeMomentum
}

func (s *momentum) MinBars() int {
	if s.params.SlowPeriod > s.params.RSIPeriod {
		return s.params.SlowPeriod
	}

	return s.params.RSIPeriod
}

func (s *momentum) AdaptiveMultiplier() float64 {
	return 0
}

func (s *momentum) Parameters() map[string]float64 {
	return map[string]float64{
		"fast_period":    float64(s.params.FastPeriod),
		"slow_period":    float64(s.params.SlowPeriod),
		"signal_period":  float64(s.params.SignalPeriod),
		"rsi_period":     float64(s.params.RSIPeriod),
		"rsi_overbought":  s.params.RSIOverbought,
		"rsi_oversold":    s.params.RSIOversold,
		"stop_loss_pct":   s.params.StopLossPct,
		"take_profit_pct": s.params.TakeProfitPct,
	}
}

// GenerateSignal evaluates the MACD histogram slope with RSI confirmation.
// Fewer bars than max(slow_period, rsi_period) yields HOLD with no indicator
// fields.
func (s *momentum) GenerateSignal(bars []types.Bar, now time.Time) types.Signal {
	n := len(bars)
	if n < s.MinBars() {
		return types.Hold("insufficient history", now)
	}

	closes := indicator.Closes(bars)

	macd := indicator.MACD(closes, s.params.FastPeriod, s.params.SlowPeriod, s.params.SignalPeriod)
	rsi := indicator.RSI(closes, s.params.RSIPeriod)

	hist, okHist := macd.Histogram.At(n - 1)
	prevHist, okPrev := macd.Histogram.At(n - 2)
	macdLine, okMACD := macd.MACD.At(n - 1)
	signalLine, okSignal := macd.Signal.At(n - 1)
	rsiValue, okRSI := rsi.At(n - 1)

	if !okHist || !okPrev || !okMACD || !okSignal || !okRSI {
		return types.Hold("indicators undefined", now)
	}

	indicators := map[string]float64{
		"macd":      macdLine,
		"signal":    signalLine,
		"histogram": hist,
		"rsi":       rsiValue,
	}

	signal := types.Signal{
		Action:         types.SignalActionHold,
		ReferencePrice: closes[n-1],
		Rationale:      "no momentum confirmation",
		Indicators:     indicators,
		GeneratedAt:    now,
	}

	rsiSpan := s.params.RSIOverbought - s.params.RSIOversold

	switch {
	case hist > 0 && hist > prevHist && rsiValue < s.params.RSIOverbought:
		signal.Action = types.SignalActionBuy
		signal.Confidence = clamp((s.params.RSIOverbought-rsiValue)/rsiSpan, 0, 1)
		signal.Rationale = fmt.Sprintf("histogram rising at %.4f with RSI %.1f", hist, rsiValue)
		signal.StopPrice = closes[n-1] * (1 - s.params.StopLossPct)
	case hist < 0 && hist < prevHist && rsiValue > s.params.RSIOversold:
		signal.Action = types.SignalActionSell
		signal.Confidence = clamp((rsiValue-s.params.RSIOversold)/rsiSpan, 0, 1)
		signal.Rationale = fmt.Sprintf("histogram falling at %.4f with RSI %.1f", hist, rsiValue)
	}

	return signal
}

// Tune tightens the RSI confirmation bounds when trailing performance is
// poor and relaxes them when it is strong, one step at a time within the
// configured bounds.
func (s *momentum) Tune(stats types.PerformanceStats) {
	if stats.TotalTrades < s.params.TuneMinTrades || s.params.TuneStep == 0 {
		return
	}

	if stats.WinRate < s.params.TuneLowWinRate || stats.AvgPnL < 0 {
		s.params.RSIOverbought = clamp(s.params.RSIOverbought-s.params.TuneStep, s.params.MinOverbought, s.params.MaxOverbought)
		s.params.RSIOversold = clamp(s.params.RSIOversold+s.params.TuneStep, s.params.MinOversold, s.params.MaxOversold)

		return
	}

	if stats.WinRate > s.params.TuneHighWinRate && stats.AvgPnL > 0 {
		s.params.RSIOverbought = clamp(s.params.RSIOverbought+s.params.TuneStep, s.params.MinOverbought, s.params.MaxOverbought)
		s.params.RSIOversold = clamp(s.params.RSIOversold-s.params.TuneStep, s.params.MinOversold, s.params.MaxOversold)
	}
}
