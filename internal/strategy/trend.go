package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-executor/internal/indicator"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// TrendParams configures the trend-following variant. The gate, bound, and
// step defaults are tuned empirically; they are configuration, not
// constants.
type TrendParams struct {
	// ATRPeriod is the Supertrend ATR smoothing period
	ATRPeriod int `json:"atr_period" yaml:"atr_period" validate:"required,gt=0"`
	// Multiplier is the baseline Supertrend band multiplier
	Multiplier float64 `json:"multiplier" yaml:"multiplier" validate:"required,gt=0"`
	// TrendsRequired is the minimum trend-strength count for a signal
	TrendsRequired int `json:"trends_required" yaml:"trends_required" validate:"required,gt=0"`
	// VolumeThreshold is the minimum volume ratio for a signal
	VolumeThreshold float64 `json:"volume_threshold" yaml:"volume_threshold" validate:"required,gt=0"`
	// VolumePeriod is the rolling window for the mean volume
	VolumePeriod int `json:"volume_period" yaml:"volume_period" validate:"required,gt=0"`
	// CooldownMinutes is the minimum spacing between fired signals
	CooldownMinutes float64 `json:"cooldown_minutes" yaml:"cooldown_minutes" validate:"gte=0"`
	// VolatilityPeriod is the return-stddev window for multiplier adaptation
	VolatilityPeriod int `json:"volatility_period" yaml:"volatility_period" validate:"required,gt=0"`
	// BaselineVolatility is the return stddev at which the baseline
	// multiplier applies unchanged
	BaselineVolatility float64 `json:"baseline_volatility" yaml:"baseline_volatility" validate:"required,gt=0"`
	// ConfidenceGate is the minimum confidence for a flip to fire
	ConfidenceGate float64 `json:"confidence_gate" yaml:"confidence_gate" validate:"gte=0,lte=1"`
	// MinMultiplier and MaxMultiplier bound the adaptive multiplier
	MinMultiplier float64 `json:"min_multiplier" yaml:"min_multiplier" validate:"required,gt=0"`
	MaxMultiplier float64 `json:"max_multiplier" yaml:"max_multiplier" validate:"required,gtfield=MinMultiplier"`
	// TuneStep is the self-adjustment increment for the baseline multiplier
	TuneStep float64 `json:"tune_step" yaml:"tune_step" validate:"gte=0"`
	// TuneMinTrades is the minimum closed trades before tuning reacts
	TuneMinTrades int `json:"tune_min_trades" yaml:"tune_min_trades" validate:"gte=0"`
	// TuneLowWinRate loosens below, TuneHighWinRate tightens above
	TuneLowWinRate  float64 `json:"tune_low_win_rate" yaml:"tune_low_win_rate" validate:"gte=0,lte=1"`
	TuneHighWinRate float64 `json:"tune_high_win_rate" yaml:"tune_high_win_rate" validate:"gte=0,lte=1"`
}

func defaultTrendParams() TrendParams {
	return TrendParams{
		ATRPeriod:          10,
		Multiplier:         3.0,
		TrendsRequired:     2,
		VolumeThreshold:    1.5,
		VolumePeriod:       20,
		CooldownMinutes:    30,
		VolatilityPeriod:   20,
		BaselineVolatility: 0.02,
		ConfidenceGate:     0.5,
		MinMultiplier:      1.0,
		MaxMultiplier:      5.0,
		TuneStep:           0.25,
		TuneMinTrades:      5,
		TuneLowWinRate:     0.4,
		TuneHighWinRate:    0.6,
	}
}

// trendFollowing emits a BUY or SELL when the Supertrend direction flips out
// of a mature trend with volume confirmation, rate-limited by a cooldown
// window. The band multiplier adapts to recent realized volatility.
type trendFollowing struct {
	symbol string
	params TrendParams

	// mutated only by the engine's single evaluation goroutine
	lastSignalTime     time.Time
	adaptiveMultiplier float64
}

var _ Strategy = (*trendFollowing)(nil)

func newTrendFollowing(symbol string, overrides map[string]float64) (*trendFollowing, error) {
	p := defaultTrendParams()

	applyTrendOverrides(&p, overrides)

	if err := validator.New().Struct(p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid trend-following parameters", err)
	}

	return &trendFollowing{
		symbol:             symbol,
		params:             p,
		adaptiveMultiplier: p.Multiplier,
	}, nil
}

func applyTrendOverrides(p *TrendParams, overrides map[string]float64) {
	p.ATRPeriod = int(paramOr(overrides, "atr_period", float64(p.ATRPeriod)))
	p.Multiplier = paramOr(overrides, "multiplier", p.Multiplier)
	p.TrendsRequired = int(paramOr(overrides, "trends_required", float64(p.TrendsRequired)))
	p.VolumeThreshold = paramOr(overrides, "volume_threshold", p.VolumeThreshold)
	p.VolumePeriod = int(paramOr(overrides, "volume_period", float64(p.VolumePeriod)))
	p.CooldownMinutes = paramOr(overrides, "cooldown_minutes", p.CooldownMinutes)
	p.VolatilityPeriod = int(paramOr(overrides, "volatility_period", float64(p.VolatilityPeriod)))
	p.BaselineVolatility = paramOr(overrides, "baseline_volatility", p.BaselineVolatility)
	p.ConfidenceGate = paramOr(overrides, "confidence_gate", p.ConfidenceGate)
	p.MinMultiplier = paramOr(overrides, "min_multiplier", p.MinMultiplier)
	p.MaxMultiplier = paramOr(overrides, "max_multiplier", p.MaxMultiplier)
	p.TuneStep = paramOr(overrides, "tune_step", p.TuneStep)
	p.TuneMinTrades = int(paramOr(overrides, "tune_min_trades", float64(p.TuneMinTrades)))
	p.TuneLowWinRate = paramOr(overrides, "tune_low_win_rate", p.TuneLowWinRate)
	p.TuneHighWinRate = paramOr(overrides, "tune_high_win_rate", p.TuneHighWinRate)
}

func (s *trendFollowing) Type() types.StrategyType {
	return types.StrategyTypeTrendFollowing
}

func (s *trendFollowing) MinBars() int {
	minBars := s.params.ATRPeriod
	if s.params.VolumePeriod > minBars {
		minBars = s.params.VolumePeriod
	}

	if s.params.VolatilityPeriod > minBars {
		minBars = s.params.VolatilityPeriod
	}

	return minBars + 1
}

func (s *trendFollowing) AdaptiveMultiplier() float64 {
	return s.adaptiveMultiplier
}

func (s *trendFollowing) Parameters() map[string]float64 {
	return map[string]float64{
		"atr_period":          float64(s.params.ATRPeriod),
		"multiplier":          s.params.Multiplier,
		"trends_required":     float64(s.params.TrendsRequired),
		"volume_threshold":    s.params.VolumeThreshold,
		"volume_period":       float64(s.params.VolumePeriod),
		"cooldown_minutes":    s.params.CooldownMinutes,
		"volatility_period":   float64(s.params.VolatilityPeriod),
		"baseline_volatility": s.params.BaselineVolatility,
		"confidence_gate":     s.params.ConfidenceGate,
		"min_multiplier":      s.params.MinMultiplier,
		"max_multiplier":      s.params.MaxMultiplier,
		"adaptive_multiplier": s.adaptiveMultiplier,
	}
}

// GenerateSignal evaluates the Supertrend flip conditions. A flip that fails
// the strength, volume, cooldown, or confidence checks still updates the
// adaptive state but yields HOLD.
func (s *trendFollowing) GenerateSignal(bars []types.Bar, now time.Time) types.Signal {
	n := len(bars)
	if n < s.MinBars() {
		return types.Hold("insufficient history", now)
	}

	closes := indicator.Closes(bars)
	volumes := indicator.Volumes(bars)

	s.adaptiveMultiplier = s.effectiveMultiplier(closes)

	st := indicator.Supertrend(bars, s.params.ATRPeriod, s.adaptiveMultiplier)

	dir, okDir := st.Direction.At(n - 1)
	prevDir, okPrev := st.Direction.At(n - 2)
	line, okLine := st.Line.At(n - 1)

	if !okDir || !okPrev || !okLine {
		return types.Hold("supertrend undefined", now)
	}

	flipped := dir != prevDir
	strength := s.trendStrength(st.Direction, flipped)
	volumeRatio := s.volumeRatio(volumes)

	indicators := map[string]float64{
		"supertrend":     line,
		"direction":      dir,
		"trend_strength": float64(strength),
		"volume_ratio":   volumeRatio,
		"multiplier":     s.adaptiveMultiplier,
	}

	signal := types.Signal{
		Action:         types.SignalActionHold,
		ReferencePrice: closes[n-1],
		StopPrice:      line,
		Indicators:     indicators,
		GeneratedAt:    now,
	}

	if !flipped {
		signal.Rationale = "no direction flip"
		return signal
	}

	confidence := clamp(float64(strength)/10*volumeRatio/s.params.VolumeThreshold, 0, 1)
	signal.Confidence = confidence

	cooldown := time.Duration(s.params.CooldownMinutes * float64(time.Minute))
	cooledDown := s.lastSignalTime.IsZero() || now.Sub(s.lastSignalTime) >= cooldown

	switch {
	case strength < s.params.TrendsRequired:
		signal.Rationale = fmt.Sprintf("flip ignored: trend strength %d below required %d", strength, s.params.TrendsRequired)
	case volumeRatio < s.params.VolumeThreshold:
		signal.Rationale = fmt.Sprintf("flip ignored: volume ratio %.2f below threshold %.2f", volumeRatio, s.params.VolumeThreshold)
	case !cooledDown:
		signal.Rationale = fmt.Sprintf("flip ignored: cooldown active since %s", s.lastSignalTime.Format(time.RFC3339))
	case confidence < s.params.ConfidenceGate:
		signal.Rationale = fmt.Sprintf("flip ignored: confidence %.2f below gate %.2f", confidence, s.params.ConfidenceGate)
	default:
		if dir > 0 {
			signal.Action = types.SignalActionBuy
			signal.Rationale = fmt.Sprintf("supertrend flipped up with strength %d and volume ratio %.2f", strength, volumeRatio)
		} else {
			signal.Action = types.SignalActionSell
			signal.Rationale = fmt.Sprintf("supertrend flipped down with strength %d and volume ratio %.2f", strength, volumeRatio)
		}

		s.lastSignalTime = now
	}

	return signal
}

// Tune widens the baseline multiplier when trailing performance is poor
// (fewer, more conservative flips) and narrows it when performance is
// strong, one step at a time within the configured bounds.
func (s *trendFollowing) Tune(stats types.PerformanceStats) {
	if stats.TotalTrades < s.params.TuneMinTrades || s.params.TuneStep == 0 {
		return
	}

	if stats.WinRate < s.params.TuneLowWinRate || stats.AvgPnL < 0 {
		s.params.Multiplier = clamp(s.params.Multiplier+s.params.TuneStep, s.params.MinMultiplier, s.params.MaxMultiplier)
		return
	}

	if stats.WinRate > s.params.TuneHighWinRate && stats.AvgPnL > 0 {
		s.params.Multiplier = clamp(s.params.Multiplier-s.params.TuneStep, s.params.MinMultiplier, s.params.MaxMultiplier)
	}
}

// effectiveMultiplier scales the baseline multiplier by recent realized
// volatility relative to the configured baseline: high volatility widens the
// bands, low volatility narrows them, always inside the bounds.
func (s *trendFollowing) effectiveMultiplier(closes []float64) float64 {
	n := len(closes)
	period := s.params.VolatilityPeriod

	if n < period+1 {
		return clamp(s.params.Multiplier, s.params.MinMultiplier, s.params.MaxMultiplier)
	}

	returns := make([]float64, 0, period)

	for i := n - period; i < n; i++ {
		if closes[i-1] == 0 {
			continue
		}

		returns = append(returns, closes[i]/closes[i-1]-1)
	}

	if len(returns) == 0 {
		return clamp(s.params.Multiplier, s.params.MinMultiplier, s.params.MaxMultiplier)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}

	vol := math.Sqrt(variance / float64(len(returns)))
	scaled := s.params.Multiplier * vol / s.params.BaselineVolatility

	return clamp(scaled, s.params.MinMultiplier, s.params.MaxMultiplier)
}

// trendStrength counts consecutive same-direction bars. On a flip bar it
// measures the run that just ended, which gauges whether the reversal broke
// a mature trend or mere noise; otherwise it measures the current run.
func (s *trendFollowing) trendStrength(direction indicator.Series, flipped bool) int {
	end := direction.Len() - 1
	if flipped {
		end--
	}

	ref, ok := direction.At(end)
	if !ok {
		return 0
	}

	count := 0

	for i := end; i >= 0; i-- {
		v, ok := direction.At(i)
		if !ok || v != ref {
			break
		}

		count++
	}

	return count
}

// volumeRatio is the last bar's volume relative to the rolling mean volume.
func (s *trendFollowing) volumeRatio(volumes []float64) float64 {
	n := len(volumes)

	sma := indicator.SMA(volumes, s.params.VolumePeriod)

	mean, ok := sma.At(n - 1)
	if !ok || mean == 0 {
		return 0
	}

	return volumes[n-1] / mean
}
