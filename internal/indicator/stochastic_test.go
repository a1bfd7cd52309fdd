package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type StochasticTestSuite struct {
	suite.Suite
}

func TestStochasticSuite(t *testing.T) {
	suite.Run(t, new(StochasticTestSuite))
}

func (suite *StochasticTestSuite) TestKBounded() {
	bars := barsFromCloses(100, 105, 95, 110, 90, 115, 85, 120)
	result := Stochastic(bars, 3, 2)

	for i := 0; i < len(bars); i++ {
		v, ok := result.K.At(i)
		if !ok {
			continue
		}

		suite.GreaterOrEqual(v, 0.0)
		suite.LessOrEqual(v, 100.0)
	}
}

func (suite *StochasticTestSuite) TestCloseAtRangeTop() {
	// Rising closes put the last close at the top of the rolling range minus
	// the 1-point bar padding
	bars := barsFromCloses(100, 102, 104)
	result := Stochastic(bars, 3, 1)

	// Range is low(99)..high(105); close 104 sits at (104-99)/(105-99)
	v, ok := result.K.At(2)
	suite.True(ok)
	suite.InDelta(100*5.0/6.0, v, 1e-9)
}

func (suite *StochasticTestSuite) TestZeroRangeUndefined() {
	bars := barsFromCloses(100, 100, 100, 100)
	// All highs and lows are equal, so the rolling range is zero
	result := Stochastic(bars, 3, 2)
	suite.False(result.K.AnyValid())
	suite.False(result.D.AnyValid())
}

func (suite *StochasticTestSuite) TestShortSeriesAllUndefined() {
	bars := barsFromCloses(100, 101)
	result := Stochastic(bars, 14, 3)
	suite.False(result.K.AnyValid())
}
