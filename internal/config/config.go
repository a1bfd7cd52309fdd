// Package config loads and validates the executor's YAML configuration.
// Defaults are applied before validation, so a minimal file only needs the
// strategies to run.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-executor/internal/market"
	"github.com/rxtech-lab/argo-executor/internal/risk"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid duration %q", raw)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EngineConfig tunes the polling loop.
type EngineConfig struct {
	// PollInterval is the cadence of the evaluation loop
	PollInterval Duration `yaml:"poll_interval" validate:"required"`
	// Interval is the bar timeframe fetched for evaluation
	Interval types.Interval `yaml:"interval" validate:"required,oneof=1m 5m 15m 1h 4h 1d"`
	// Lookback is the number of bars fetched per evaluation
	Lookback int `yaml:"lookback" validate:"required,gt=0"`
	// BatchSize bounds how many symbols are refreshed before pausing
	BatchSize int `yaml:"batch_size" validate:"required,gt=0"`
	// BatchPause is the rate-limit pause between refresh batches
	BatchPause Duration `yaml:"batch_pause" validate:"gte=0"`
	// SnapshotEvery persists a portfolio valuation every N cycles
	SnapshotEvery int `yaml:"snapshot_every" validate:"required,gt=0"`
	// ErrorThreshold is the consecutive-error count that isolates a symbol
	ErrorThreshold int `yaml:"error_threshold" validate:"required,gt=0"`
	// MaxBackoff caps the loop-level backoff pause
	MaxBackoff Duration `yaml:"max_backoff" validate:"required"`
	// InitialCash seeds the paper ledger in degraded mode
	InitialCash float64 `yaml:"initial_cash" validate:"required,gt=0"`
}

// BrokerConfig holds live trading credentials. Leaving it empty starts the
// engine degraded, with fills simulated against the paper ledger.
type BrokerConfig struct {
	APIKey     string `yaml:"api_key"`
	SecretKey  string `yaml:"secret_key"`
	BaseURL    string `yaml:"base_url"`
	UseTestnet bool   `yaml:"use_testnet"`
}

// Configured reports whether live credentials are present.
func (b BrokerConfig) Configured() bool {
	return b.APIKey != "" && b.SecretKey != ""
}

// StoreConfig locates the DuckDB database.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// StrategyConfig declares one strategy instance to register at startup.
type StrategyConfig struct {
	Symbol string             `yaml:"symbol" validate:"required"`
	Type   types.StrategyType `yaml:"type" validate:"required,oneof=trend_following momentum"`
	// Parameters override the strategy's defaults; unknown keys are ignored
	Parameters map[string]float64 `yaml:"parameters"`
	// Capital is the notional allocated to the instance
	Capital float64 `yaml:"capital" validate:"required,gt=0"`
	// RiskPerTrade overrides the account-level risk fraction when positive
	RiskPerTrade float64 `yaml:"risk_per_trade" validate:"gte=0,lt=1"`
}

// Config is the full executor configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Market     market.Config    `yaml:"market"`
	Broker     BrokerConfig     `yaml:"broker"`
	Risk       risk.Config      `yaml:"risk"`
	Store      StoreConfig      `yaml:"store"`
	Strategies []StrategyConfig `yaml:"strategies" validate:"dive"`
}

// DefaultConfig returns a runnable configuration with no strategies and no
// live credentials.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			PollInterval:   Duration(time.Minute),
			Interval:       types.Interval1h,
			Lookback:       200,
			BatchSize:      5,
			BatchPause:     Duration(500 * time.Millisecond),
			SnapshotEvery:  5,
			ErrorThreshold: 3,
			MaxBackoff:     Duration(5 * time.Minute),
			InitialCash:    10000,
		},
		Market: market.Config{
			ProviderType:  market.ProviderBinance,
			PolygonAPIKey: "",
		},
		Broker: BrokerConfig{
			APIKey:     "",
			SecretKey:  "",
			BaseURL:    "",
			UseTestnet: false,
		},
		Risk: risk.DefaultConfig(),
		Store: StoreConfig{
			Path: "argo-executor.db",
		},
		Strategies: nil,
	}
}

// Load reads a YAML config file, applies defaults for absent fields and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Parse(data)
}

// Parse decodes YAML bytes over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}
