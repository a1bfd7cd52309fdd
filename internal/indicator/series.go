// Package indicator provides pure, reentrant technical indicator functions.
// Every function takes a price or bar series and returns one or more Series
// aligned index-for-index with the input. Points with insufficient history
// are explicitly marked invalid rather than reported as zero; callers must
// treat an invalid point as "no value".
package indicator

import "github.com/rxtech-lab/argo-executor/internal/types"

// Series is a derived numeric sequence aligned with its input bar series.
type Series struct {
	values []float64
	valid  []bool
}

// NewSeries creates a series of length n with every point marked invalid.
func NewSeries(n int) Series {
	return Series{
		values: make([]float64, n),
		valid:  make([]bool, n),
	}
}

// Len returns the number of points in the series.
func (s Series) Len() int {
	return len(s.values)
}

// Set stores a valid value at index i.
func (s *Series) Set(i int, v float64) {
	s.values[i] = v
	s.valid[i] = true
}

// At returns the value at index i and whether it is defined.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.values) || !s.valid[i] {
		return 0, false
	}

	return s.values[i], true
}

// IsValid reports whether the point at index i is defined.
func (s Series) IsValid(i int) bool {
	return i >= 0 && i < len(s.valid) && s.valid[i]
}

// Last returns the final value of the series and whether it is defined.
func (s Series) Last() (float64, bool) {
	if len(s.values) == 0 {
		return 0, false
	}

	return s.At(len(s.values) - 1)
}

// AnyValid reports whether the series contains at least one defined point.
func (s Series) AnyValid() bool {
	for _, v := range s.valid {
		if v {
			return true
		}
	}

	return false
}

// Closes extracts the close prices from a bar series.
func Closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}

	return out
}

// Volumes extracts the volumes from a bar series.
func Volumes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}

	return out
}
