package market

import (
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/stretchr/testify/suite"
)

type SymbolTestSuite struct {
	suite.Suite
}

func TestSymbolSuite(t *testing.T) {
	suite.Run(t, new(SymbolTestSuite))
}

func (suite *SymbolTestSuite) TestBinanceSymbol() {
	suite.Equal("BTCUSD", binanceSymbol("BTC/USD"))
	suite.Equal("BTCUSDT", binanceSymbol("btc-usdt"))
	suite.Equal("ETHUSDT", binanceSymbol("ETHUSDT"))
}

func (suite *SymbolTestSuite) TestPolygonTicker() {
	suite.Equal("X:BTCUSD", polygonTicker("BTC/USD"))
	suite.Equal("X:ETHUSD", polygonTicker("ETHUSD"))
}

func (suite *SymbolTestSuite) TestIntervalDuration() {
	d, err := intervalDuration(types.Interval5m)
	suite.NoError(err)
	suite.Equal(5*time.Minute, d)

	d, err = intervalDuration(types.Interval1d)
	suite.NoError(err)
	suite.Equal(24*time.Hour, d)

	_, err = intervalDuration(types.Interval("3w"))
	suite.Error(err)
}

func (suite *SymbolTestSuite) TestPolygonTimespan() {
	multiplier, timespan, err := polygonTimespan(types.Interval15m)
	suite.NoError(err)
	suite.Equal(15, multiplier)
	suite.Equal(models.Minute, timespan)

	_, _, err = polygonTimespan(types.Interval("3w"))
	suite.Error(err)
}

func (suite *SymbolTestSuite) TestProviderConfigValidation() {
	_, err := NewProvider(Config{ProviderType: "kraken"})
	suite.Error(err)

	_, err = NewProvider(Config{ProviderType: ProviderPolygon})
	suite.Error(err)

	p, err := NewProvider(Config{ProviderType: ProviderBinance})
	suite.NoError(err)
	suite.NotNil(p)
}
