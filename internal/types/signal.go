package types

import "time"

type SignalAction string

const (
	// SignalActionBuy tells the executor to open a long position
	SignalActionBuy SignalAction = "BUY"
	// SignalActionSell tells the executor to exit the current position
	SignalActionSell SignalAction = "SELL"
	// SignalActionHold tells the executor to take no action
	SignalActionHold SignalAction = "HOLD"
)

// Signal is the output of one strategy evaluation. It is produced fresh on
// every cycle and consumed immediately by the risk manager; it is never
// persisted by the engine itself.
type Signal struct {
	// Action is the directional decision
	Action SignalAction `json:"action" yaml:"action"`
	// Confidence is in [0,1]; 0 for every HOLD caused by missing data
	Confidence float64 `json:"confidence" yaml:"confidence"`
	// ReferencePrice is the close the signal was derived from
	ReferencePrice float64 `json:"reference_price" yaml:"reference_price"`
	// StopPrice is an indicator-derived stop (e.g. the Supertrend line).
	// Zero when the strategy does not supply one.
	StopPrice float64 `json:"stop_price" yaml:"stop_price"`
	// Rationale is a human-readable reason for the decision
	Rationale string `json:"rationale" yaml:"rationale"`
	// Indicators carries the indicator values backing the decision.
	// Nil when the series was too short to compute them.
	Indicators map[string]float64 `json:"indicators" yaml:"indicators"`
	// GeneratedAt is the evaluation time
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// Hold returns a HOLD signal with confidence 0 and the given rationale.
func Hold(rationale string, at time.Time) Signal {
	return Signal{
		Action:      SignalActionHold,
		Confidence:  0,
		Rationale:   rationale,
		GeneratedAt: at,
	}
}
