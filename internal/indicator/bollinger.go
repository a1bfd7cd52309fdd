package indicator

import "math"

// BollingerResult holds the three Bollinger Band series.
type BollingerResult struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// BollingerBands computes the rolling SMA plus/minus stdDevMultiplier times
// the rolling sample standard deviation. The first period-1 points are
// undefined; the period must be at least 2 for the sample deviation to
// exist.
func BollingerBands(values []float64, period int, stdDevMultiplier float64) BollingerResult {
	n := len(values)
	result := BollingerResult{
		Upper:  NewSeries(n),
		Middle: NewSeries(n),
		Lower:  NewSeries(n),
	}

	if period < 2 || n < period {
		return result
	}

	sma := SMA(values, period)

	for i := period - 1; i < n; i++ {
		mean, _ := sma.At(i)

		var sumSq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			sumSq += d * d
		}

		std := math.Sqrt(sumSq / float64(period-1))

		result.Middle.Set(i, mean)
		result.Upper.Set(i, mean+stdDevMultiplier*std)
		result.Lower.Set(i, mean-stdDevMultiplier*std)
	}

	return result
}
