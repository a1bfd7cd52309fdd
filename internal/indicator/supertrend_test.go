package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SupertrendTestSuite struct {
	suite.Suite
}

func TestSupertrendSuite(t *testing.T) {
	suite.Run(t, new(SupertrendTestSuite))
}

func (suite *SupertrendTestSuite) TestSeedBar() {
	bars := barsFromCloses(100, 100, 100)
	result := Supertrend(bars, 10, 3.0)

	dir, ok := result.Direction.At(0)
	suite.True(ok)
	suite.Equal(1.0, dir)

	line, ok := result.Line.At(0)
	suite.True(ok)

	upper, ok := result.UpperBand.At(0)
	suite.True(ok)
	suite.Equal(upper, line)
}

func (suite *SupertrendTestSuite) TestFlatSeriesKeepsDirection() {
	bars := barsFromCloses(100, 100, 100, 100, 100)
	result := Supertrend(bars, 10, 3.0)

	for i := 0; i < len(bars); i++ {
		dir, ok := result.Direction.At(i)
		suite.True(ok)
		suite.Equal(1.0, dir)
	}
}

func (suite *SupertrendTestSuite) TestDirectionFlips() {
	// Flat, then a crash through the lower band, then a rally through the
	// upper band
	bars := barsFromCloses(100, 100, 100, 100, 100, 90, 115)
	result := Supertrend(bars, 10, 3.0)

	dir, _ := result.Direction.At(4)
	suite.Equal(1.0, dir)

	dir, _ = result.Direction.At(5)
	suite.Equal(-1.0, dir)

	dir, _ = result.Direction.At(6)
	suite.Equal(1.0, dir)
}

func (suite *SupertrendTestSuite) TestLineFollowsDirection() {
	bars := barsFromCloses(100, 100, 100, 100, 100, 90, 115)
	result := Supertrend(bars, 10, 3.0)

	for i := 1; i < len(bars); i++ {
		dir, _ := result.Direction.At(i)
		line, _ := result.Line.At(i)

		if dir == 1 {
			lower, _ := result.LowerBand.At(i)
			suite.Equal(lower, line)
		} else {
			upper, _ := result.UpperBand.At(i)
			suite.Equal(upper, line)
		}
	}
}

func (suite *SupertrendTestSuite) TestRatchetProperty() {
	// Deterministic zig-zag with drift; the ratchet must keep the lower band
	// non-decreasing inside every up segment and the upper band
	// non-increasing inside every down segment
	closes := make([]float64, 120)
	for i := range closes {
		wiggle := float64((i*37)%11) - 5
		closes[i] = 100 + float64(i)*0.8 + wiggle*2
	}

	bars := barsFromCloses(closes...)
	result := Supertrend(bars, 10, 3.0)

	for i := 1; i < len(bars); i++ {
		dir, _ := result.Direction.At(i)
		prevDir, _ := result.Direction.At(i - 1)

		if dir != prevDir {
			continue
		}

		if dir == 1 {
			lower, _ := result.LowerBand.At(i)
			prevLower, _ := result.LowerBand.At(i - 1)
			suite.GreaterOrEqual(lower, prevLower)
		} else {
			upper, _ := result.UpperBand.At(i)
			prevUpper, _ := result.UpperBand.At(i - 1)
			suite.LessOrEqual(upper, prevUpper)
		}
	}
}

func (suite *SupertrendTestSuite) TestEmptyInput() {
	result := Supertrend(nil, 10, 3.0)
	suite.Equal(0, result.Line.Len())
	suite.False(result.Direction.AnyValid())
}
