package indicator

// RSI computes the Relative Strength Index over a rolling window of price
// deltas, scaled to 0-100. The first period points are undefined because the
// delta at index 0 does not exist. When the average loss over the window is
// zero, the RSI saturates to 100 rather than dividing by zero.
func RSI(values []float64, period int) Series {
	out := NewSeries(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))

	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	// Rolling means over the last period deltas; the window is full starting
	// at index period.
	var gainSum, lossSum float64

	for i := 1; i < len(values); i++ {
		gainSum += gains[i]
		lossSum += losses[i]

		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}

		if i < period {
			continue
		}

		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		if avgLoss == 0 {
			out.Set(i, 100)
			continue
		}

		rs := avgGain / avgLoss
		out.Set(i, 100-100/(1+rs))
	}

	return out
}
