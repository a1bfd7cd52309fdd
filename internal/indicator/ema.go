package indicator

// EMA computes the exponential moving average of values with smoothing
// factor 2/(period+1). The first value seeds the recursion, so every point
// is defined once the series is non-empty.
func EMA(values []float64, period int) Series {
	out := NewSeries(len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}

	alpha := 2.0 / (float64(period) + 1.0)

	prev := values[0]
	out.Set(0, prev)

	for i := 1; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out.Set(i, prev)
	}

	return out
}

// emaSeries runs the EMA recursion over another indicator series, skipping
// leading invalid points. Used for the MACD signal line.
func emaSeries(in Series, period int) Series {
	out := NewSeries(in.Len())
	if period <= 0 {
		return out
	}

	alpha := 2.0 / (float64(period) + 1.0)
	seeded := false

	var prev float64

	for i := 0; i < in.Len(); i++ {
		v, ok := in.At(i)
		if !ok {
			continue
		}

		if !seeded {
			prev = v
			seeded = true
		} else {
			prev = alpha*v + (1-alpha)*prev
		}

		out.Set(i, prev)
	}

	return out
}

// SMA computes the simple moving average over a rolling window. The first
// period-1 points are undefined.
func SMA(values []float64, period int) Series {
	out := NewSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out.Set(i, sum/float64(period))
		}
	}

	return out
}
