package indicator

// MACDResult holds the three output series of the MACD indicator.
type MACDResult struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// MACD computes the Moving Average Convergence Divergence: the difference of
// a fast and a slow EMA, its own EMA as the signal line, and the histogram
// between the two. A series shorter than the slow period yields entirely
// undefined output.
func MACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	n := len(values)
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 || n < slowPeriod {
		return MACDResult{
			MACD:      NewSeries(n),
			Signal:    NewSeries(n),
			Histogram: NewSeries(n),
		}
	}

	fast := EMA(values, fastPeriod)
	slow := EMA(values, slowPeriod)

	macd := NewSeries(n)
	for i := 0; i < n; i++ {
		f, okF := fast.At(i)
		s, okS := slow.At(i)

		if okF && okS {
			macd.Set(i, f-s)
		}
	}

	signal := emaSeries(macd, signalPeriod)

	hist := NewSeries(n)
	for i := 0; i < n; i++ {
		m, okM := macd.At(i)
		s, okS := signal.At(i)

		if okM && okS {
			hist.Set(i, m-s)
		}
	}

	return MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: hist,
	}
}
