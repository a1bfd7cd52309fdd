package indicator

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/stretchr/testify/suite"
)

// barsFromCloses builds a bar series with a fixed 1-point range around each
// close, spaced one minute apart.
func barsFromCloses(closes ...float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol:    "BTCUSDT",
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}

	return bars
}

type SeriesTestSuite struct {
	suite.Suite
}

func TestSeriesSuite(t *testing.T) {
	suite.Run(t, new(SeriesTestSuite))
}

func (suite *SeriesTestSuite) TestNewSeriesAllInvalid() {
	s := NewSeries(5)
	suite.Equal(5, s.Len())
	suite.False(s.AnyValid())

	for i := 0; i < 5; i++ {
		suite.False(s.IsValid(i))
	}
}

func (suite *SeriesTestSuite) TestSetAndAt() {
	s := NewSeries(3)
	s.Set(1, 42.5)

	v, ok := s.At(1)
	suite.True(ok)
	suite.Equal(42.5, v)

	_, ok = s.At(0)
	suite.False(ok)
}

func (suite *SeriesTestSuite) TestAtOutOfRange() {
	s := NewSeries(2)

	_, ok := s.At(-1)
	suite.False(ok)

	_, ok = s.At(2)
	suite.False(ok)
}

func (suite *SeriesTestSuite) TestLast() {
	s := NewSeries(0)
	_, ok := s.Last()
	suite.False(ok)

	s = NewSeries(3)
	s.Set(2, 7)

	v, ok := s.Last()
	suite.True(ok)
	suite.Equal(7.0, v)
}

func (suite *SeriesTestSuite) TestClosesAndVolumes() {
	bars := barsFromCloses(1, 2, 3)
	suite.Equal([]float64{1, 2, 3}, Closes(bars))
	suite.Equal([]float64{1000, 1000, 1000}, Volumes(bars))
}
