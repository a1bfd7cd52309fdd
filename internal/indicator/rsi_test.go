package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type RSITestSuite struct {
	suite.Suite
}

func TestRSISuite(t *testing.T) {
	suite.Run(t, new(RSITestSuite))
}

func (suite *RSITestSuite) TestRSISaturatesAt100WithoutLosses() {
	// Strictly rising prices have zero average loss in every window
	rsi := RSI([]float64{10, 11, 12, 13, 14, 15}, 3)

	for i := 3; i < rsi.Len(); i++ {
		v, ok := rsi.At(i)
		suite.True(ok)
		suite.Equal(100.0, v)
	}
}

func (suite *RSITestSuite) TestRSIAlternatingDeltasIs50() {
	rsi := RSI([]float64{10, 11, 10, 11, 10}, 2)

	v, ok := rsi.At(2)
	suite.True(ok)
	suite.InDelta(50.0, v, 1e-9)

	v, ok = rsi.At(3)
	suite.True(ok)
	suite.InDelta(50.0, v, 1e-9)
}

func (suite *RSITestSuite) TestRSIBounded() {
	values := []float64{50, 52, 48, 55, 47, 60, 42, 65, 40, 70, 38, 75}
	rsi := RSI(values, 4)

	for i := 0; i < rsi.Len(); i++ {
		v, ok := rsi.At(i)
		if !ok {
			continue
		}

		suite.GreaterOrEqual(v, 0.0)
		suite.LessOrEqual(v, 100.0)
	}
}

func (suite *RSITestSuite) TestRSIWarmup() {
	// The delta at index 0 does not exist, so the first period points are
	// undefined
	rsi := RSI([]float64{10, 11, 12, 13, 14, 15}, 3)
	suite.False(rsi.IsValid(0))
	suite.False(rsi.IsValid(1))
	suite.False(rsi.IsValid(2))
	suite.True(rsi.IsValid(3))
}

func (suite *RSITestSuite) TestRSIShortSeriesAllUndefined() {
	rsi := RSI([]float64{10, 11, 12}, 14)
	suite.False(rsi.AnyValid())
}
