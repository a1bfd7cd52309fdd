package indicator

import "github.com/rxtech-lab/argo-executor/internal/types"

// StochasticResult holds the %K and %D series of the stochastic oscillator.
type StochasticResult struct {
	K Series
	D Series
}

// Stochastic computes the stochastic oscillator: %K positions the close
// within the rolling high-low range of the last kPeriod bars, and %D is the
// SMA of %K over dPeriod. A point where the rolling range is zero is
// undefined.
func Stochastic(bars []types.Bar, kPeriod, dPeriod int) StochasticResult {
	n := len(bars)
	result := StochasticResult{
		K: NewSeries(n),
		D: NewSeries(n),
	}

	if kPeriod <= 0 || dPeriod <= 0 || n < kPeriod {
		return result
	}

	for i := kPeriod - 1; i < n; i++ {
		lowest := bars[i-kPeriod+1].Low
		highest := bars[i-kPeriod+1].High

		for j := i - kPeriod + 2; j <= i; j++ {
			if bars[j].Low < lowest {
				lowest = bars[j].Low
			}

			if bars[j].High > highest {
				highest = bars[j].High
			}
		}

		if highest == lowest {
			continue
		}

		result.K.Set(i, 100*(bars[i].Close-lowest)/(highest-lowest))
	}

	// %D is the rolling mean of %K over windows with no undefined points.
	for i := kPeriod + dPeriod - 2; i < n; i++ {
		var sum float64

		defined := true

		for j := i - dPeriod + 1; j <= i; j++ {
			v, ok := result.K.At(j)
			if !ok {
				defined = false
				break
			}

			sum += v
		}

		if defined {
			result.D.Set(i, sum/float64(dPeriod))
		}
	}

	return result
}
