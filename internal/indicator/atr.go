package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-executor/internal/types"
)

// trueRange computes the per-bar True Range series. The first bar has no
// previous close, so its range is simply high minus low.
func trueRange(bars []types.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			tr[i] = b.High - b.Low
			continue
		}

		prevClose := bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}

	return tr
}

// ATR computes the Average True Range as a rolling mean of the True Range.
// The first period-1 points are undefined.
func ATR(bars []types.Bar, period int) Series {
	out := NewSeries(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}

	tr := trueRange(bars)

	var sum float64
	for i, v := range tr {
		sum += v
		if i >= period {
			sum -= tr[i-period]
		}

		if i >= period-1 {
			out.Set(i, sum/float64(period))
		}
	}

	return out
}

// wilderATR computes the exponentially smoothed ATR with alpha 1/period,
// seeded by the first True Range. Used by Supertrend, where the band must be
// defined from the first bar.
func wilderATR(bars []types.Bar, period int) []float64 {
	tr := trueRange(bars)
	out := make([]float64, len(tr))

	if len(tr) == 0 || period <= 0 {
		return out
	}

	alpha := 1.0 / float64(period)

	out[0] = tr[0]
	for i := 1; i < len(tr); i++ {
		out[i] = alpha*tr[i] + (1-alpha)*out[i-1]
	}

	return out
}
