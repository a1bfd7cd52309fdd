package indicator

import "github.com/rxtech-lab/argo-executor/internal/types"

// SupertrendResult holds the Supertrend line, the discrete trend direction
// (+1 up, -1 down), and the two ratcheted bands.
type SupertrendResult struct {
	Line      Series
	Direction Series
	UpperBand Series
	LowerBand Series
}

// Supertrend computes the Supertrend indicator. Bands are the bar midpoint
// plus/minus multiplier times a smoothed ATR. The line and direction are
// computed sequentially: index 0 seeds direction +1 with the upper band as
// the line; on later bars the direction flips when the close crosses the
// previous bar's ratcheted band, and each band is ratcheted before the
// active line is selected. The ratchet compares against the previous
// already-ratcheted band, so a lower band never decreases during an
// up-direction segment and an upper band never increases during a
// down-direction segment.
func Supertrend(bars []types.Bar, period int, multiplier float64) SupertrendResult {
	n := len(bars)
	result := SupertrendResult{
		Line:      NewSeries(n),
		Direction: NewSeries(n),
		UpperBand: NewSeries(n),
		LowerBand: NewSeries(n),
	}

	if n == 0 || period <= 0 {
		return result
	}

	atr := wilderATR(bars, period)

	upper := make([]float64, n)
	lower := make([]float64, n)

	for i, b := range bars {
		mid := (b.High + b.Low) / 2
		upper[i] = mid + multiplier*atr[i]
		lower[i] = mid - multiplier*atr[i]
	}

	direction := make([]float64, n)
	line := make([]float64, n)

	direction[0] = 1
	line[0] = upper[0]

	for i := 1; i < n; i++ {
		close := bars[i].Close

		switch {
		case close > upper[i-1]:
			direction[i] = 1
		case close < lower[i-1]:
			direction[i] = -1
		default:
			direction[i] = direction[i-1]
		}

		// Ratchet the bands in place so the next bar compares against the
		// ratcheted value.
		if direction[i] == 1 && lower[i] < lower[i-1] {
			lower[i] = lower[i-1]
		}

		if direction[i] == -1 && upper[i] > upper[i-1] {
			upper[i] = upper[i-1]
		}

		if direction[i] == 1 {
			line[i] = lower[i]
		} else {
			line[i] = upper[i]
		}
	}

	for i := 0; i < n; i++ {
		result.Line.Set(i, line[i])
		result.Direction.Set(i, direction[i])
		result.UpperBand.Set(i, upper[i])
		result.LowerBand.Set(i, lower[i])
	}

	return result
}
