package market

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

type PolygonProvider struct {
	client *polygon.Client
}

var _ Provider = (*PolygonProvider)(nil)

// NewPolygonProvider creates a provider against the Polygon crypto
// aggregates API.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon api key is required")
	}

	return &PolygonProvider{
		client: polygon.New(apiKey),
	}, nil
}

// GetBars fetches the latest lookback aggregates for a symbol.
func (p *PolygonProvider) GetBars(ctx context.Context, symbol string, interval types.Interval, lookback int) ([]types.Bar, error) {
	duration, err := intervalDuration(interval)
	if err != nil {
		return nil, err
	}

	multiplier, timespan, err := polygonTimespan(interval)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	from := now.Add(-time.Duration(lookback+1) * duration)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     polygonTicker(symbol),
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(now),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.Bar{
			Symbol:    symbol,
			Timestamp: time.Time(agg.Timestamp).UTC(),
			Open:      agg.Open,
			High:      agg.High,
			Low:       agg.Low,
			Close:     agg.Close,
			Volume:    agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "failed to list aggregates for %s", symbol)
	}

	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	return bars, nil
}

// GetLatest derives the quote from the latest daily aggregate.
func (p *PolygonProvider) GetLatest(ctx context.Context, symbol string) (*types.Quote, error) {
	now := time.Now().UTC()

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     polygonTicker(symbol),
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(now.Add(-48 * time.Hour)),
		To:         models.Millis(now),
	}.WithLimit(10)

	iter := p.client.ListAggs(ctx, params)

	var latest *models.Agg

	for iter.Next() {
		agg := iter.Item()
		latest = &agg
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "failed to fetch daily aggregate for %s", symbol)
	}

	if latest == nil {
		return nil, nil
	}

	changePct := 0.0
	if latest.Open != 0 {
		changePct = (latest.Close - latest.Open) / latest.Open * 100
	}

	return &types.Quote{
		Symbol:    symbol,
		Price:     latest.Close,
		High:      latest.High,
		Low:       latest.Low,
		Volume:    latest.Volume,
		ChangePct: changePct,
		Timestamp: time.Time(latest.Timestamp).UTC(),
	}, nil
}

// Download pages through historical aggregates for a date range and hands
// each bar to write.
func (p *PolygonProvider) Download(ctx context.Context, symbol string, interval types.Interval, start, end time.Time, onProgress OnDownloadProgress, write func(types.Bar) error) (int, error) {
	multiplier, timespan, err := polygonTimespan(interval)
	if err != nil {
		return 0, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     polygonTicker(symbol),
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	total := end.Sub(start).Seconds()
	written := 0

	for iter.Next() {
		agg := iter.Item()
		bar := types.Bar{
			Symbol:    symbol,
			Timestamp: time.Time(agg.Timestamp).UTC(),
			Open:      agg.Open,
			High:      agg.High,
			Low:       agg.Low,
			Close:     agg.Close,
			Volume:    agg.Volume,
		}

		if err := write(bar); err != nil {
			return written, errors.Wrap(errors.ErrCodeWriteFailed, "failed to write bar", err)
		}

		written++

		if onProgress != nil && written%1000 == 0 {
			onProgress(bar.Timestamp.Sub(start).Seconds(), total, "downloading "+symbol)
		}
	}

	if iter.Err() != nil {
		return written, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "failed to list aggregates for %s", symbol)
	}

	return written, nil
}

// polygonTimespan converts an interval to the Polygon multiplier and
// timespan pair.
func polygonTimespan(interval types.Interval) (int, models.Timespan, error) {
	switch interval {
	case types.Interval1m:
		return 1, models.Minute, nil
	case types.Interval5m:
		return 5, models.Minute, nil
	case types.Interval15m:
		return 15, models.Minute, nil
	case types.Interval1h:
		return 1, models.Hour, nil
	case types.Interval4h:
		return 4, models.Hour, nil
	case types.Interval1d:
		return 1, models.Day, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", interval)
	}
}
