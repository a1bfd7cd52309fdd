package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// binanceUnknownSymbolCode is the API error code for an invalid symbol.
const binanceUnknownSymbolCode = -1121

// binancePageSize is the kline API's maximum records per request.
const binancePageSize = 500

type BinanceProvider struct {
	client *binance.Client
}

var _ Provider = (*BinanceProvider)(nil)

// NewBinanceProvider creates a provider against the public Binance market
// data endpoints. No credentials are needed for reads.
func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
	}
}

// GetBars fetches the latest lookback klines for a symbol.
func (p *BinanceProvider) GetBars(ctx context.Context, symbol string, interval types.Interval, lookback int) ([]types.Bar, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(binanceSymbol(symbol)).
		Interval(string(interval)).
		Limit(lookback).
		Do(ctx)
	if err != nil {
		if isUnknownSymbol(err) {
			return nil, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
	}

	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		bar, err := klineToBar(symbol, k)
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// GetLatest returns the 24h rolling ticker as a quote.
func (p *BinanceProvider) GetLatest(ctx context.Context, symbol string) (*types.Quote, error) {
	stats, err := p.client.NewListPriceChangeStatsService().
		Symbol(binanceSymbol(symbol)).
		Do(ctx)
	if err != nil {
		if isUnknownSymbol(err) {
			return nil, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch ticker for %s", symbol)
	}

	if len(stats) == 0 {
		return nil, nil
	}

	s := stats[0]

	price, err := strconv.ParseFloat(s.LastPrice, 64)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse last price %q", s.LastPrice)
	}

	high, _ := strconv.ParseFloat(s.HighPrice, 64)
	low, _ := strconv.ParseFloat(s.LowPrice, 64)
	volume, _ := strconv.ParseFloat(s.Volume, 64)
	changePct, _ := strconv.ParseFloat(s.PriceChangePercent, 64)

	return &types.Quote{
		Symbol:    symbol,
		Price:     price,
		High:      high,
		Low:       low,
		Volume:    volume,
		ChangePct: changePct,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Download pages through historical klines for a date range and hands each
// bar to write.
func (p *BinanceProvider) Download(ctx context.Context, symbol string, interval types.Interval, start, end time.Time, onProgress OnDownloadProgress, write func(types.Bar) error) (int, error) {
	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()
	currentStart := startMillis

	written := 0

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(binanceSymbol(symbol)).
			Interval(string(interval)).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return written, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
		}

		if onProgress != nil {
			onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis), fmt.Sprintf("downloading %s klines", symbol))
		}

		for _, k := range klines {
			bar, err := klineToBar(symbol, k)
			if err != nil {
				return written, err
			}

			if err := write(bar); err != nil {
				return written, errors.Wrap(errors.ErrCodeWriteFailed, "failed to write bar", err)
			}

			written++
		}

		if len(klines) < binancePageSize {
			break
		}

		// Advance past the last kline's close time to avoid duplicates
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return written, nil
}

func klineToBar(symbol string, k *binance.Kline) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse open price %q", k.Open)
	}

	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	closePrice, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	return types.Bar{
		Symbol:    symbol,
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

func isUnknownSymbol(err error) bool {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == binanceUnknownSymbolCode
	}

	return false
}
