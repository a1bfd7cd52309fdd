// Package market provides bar and quote retrieval from external market data
// providers. Symbols may carry a separator ("BTC/USD"); each provider
// normalizes them to its own format. An unlisted symbol yields an empty
// result, never an error.
package market

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
)

// OnDownloadProgress reports backfill progress to the caller.
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider is the market data capability consumed by the engine.
type Provider interface {
	// GetBars returns up to lookback bars at the given interval, ordered
	// ascending by timestamp. An unlisted symbol returns an empty slice.
	GetBars(ctx context.Context, symbol string, interval types.Interval, lookback int) ([]types.Bar, error)
	// GetLatest returns the current quote with the 24h change percent, or
	// nil for an unlisted symbol.
	GetLatest(ctx context.Context, symbol string) (*types.Quote, error)
	// Download fetches historical bars for a date range and hands each one
	// to write. It returns the number of bars written.
	Download(ctx context.Context, symbol string, interval types.Interval, start, end time.Time, onProgress OnDownloadProgress, write func(types.Bar) error) (int, error)
}

// Config selects and configures a provider.
type Config struct {
	ProviderType  ProviderType `json:"provider_type" yaml:"provider_type" validate:"required,oneof=binance polygon"`
	PolygonAPIKey string       `json:"polygon_api_key" yaml:"polygon_api_key" validate:"required_if=ProviderType polygon"`
}

// NewProvider creates a market data provider based on the config.
func NewProvider(config Config) (Provider, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid market data configuration", err)
	}

	switch config.ProviderType {
	case ProviderBinance:
		return NewBinanceProvider(), nil
	case ProviderPolygon:
		return NewPolygonProvider(config.PolygonAPIKey)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", config.ProviderType)
	}
}
