package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ATRTestSuite struct {
	suite.Suite
}

func TestATRSuite(t *testing.T) {
	suite.Run(t, new(ATRTestSuite))
}

func (suite *ATRTestSuite) TestATRFlatBars() {
	// Every bar has the same 2-point range, so the rolling mean is 2
	bars := barsFromCloses(100, 100, 100, 100, 100)
	atr := ATR(bars, 3)

	suite.False(atr.IsValid(0))
	suite.False(atr.IsValid(1))

	for i := 2; i < len(bars); i++ {
		v, ok := atr.At(i)
		suite.True(ok)
		suite.InDelta(2.0, v, 1e-9)
	}
}

func (suite *ATRTestSuite) TestATRUsesGapFromPreviousClose() {
	// A gap up makes the true range span from the previous close
	bars := barsFromCloses(100, 110, 110)
	atr := ATR(bars, 3)

	// TR = [2, max(2, |111-100|, |109-100|), 2] = [2, 11, 2]
	v, ok := atr.At(2)
	suite.True(ok)
	suite.InDelta(5.0, v, 1e-9)
}

func (suite *ATRTestSuite) TestATRShortSeriesAllUndefined() {
	bars := barsFromCloses(100, 101)
	atr := ATR(bars, 14)
	suite.False(atr.AnyValid())
}
