package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-executor/internal/broker"
	"github.com/rxtech-lab/argo-executor/internal/config"
	"github.com/rxtech-lab/argo-executor/internal/engine"
	"github.com/rxtech-lab/argo-executor/internal/logger"
	"github.com/rxtech-lab/argo-executor/internal/market"
	"github.com/rxtech-lab/argo-executor/internal/risk"
	"github.com/rxtech-lab/argo-executor/internal/store"
	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// runAction loads the configuration, wires the collaborators and runs the
// engine until an interrupt arrives.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	level := zapcore.InfoLevel
	if cmd.Bool("debug") {
		level = zapcore.DebugLevel
	}

	appLogger, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	db, err := store.NewDuckDBStore(cfg.Store.Path, appLogger)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	provider, err := market.NewProvider(cfg.Market)
	if err != nil {
		return err
	}

	riskManager, err := risk.NewManager(cfg.Risk)
	if err != nil {
		return err
	}

	executionBroker, err := buildBroker(cfg, provider, db, appLogger)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(engine.Params{
		Config: cfg.Engine,
		Market: provider,
		Broker: executionBroker,
		Risk:   riskManager,
		Store:  db,
		Logger: appLogger,
	})
	if err != nil {
		return err
	}

	for _, spec := range cfg.Strategies {
		id, err := eng.AddStrategy(engine.StrategySpec{
			Symbol:       spec.Symbol,
			Type:         spec.Type,
			Parameters:   spec.Parameters,
			Capital:      spec.Capital,
			RiskPerTrade: spec.RiskPerTrade,
		})
		if err != nil {
			return err
		}

		appLogger.Info("strategy registered",
			zap.String("id", id),
			zap.String("symbol", spec.Symbol),
			zap.String("type", string(spec.Type)))
	}

	if err := eng.Start(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()

	appLogger.Info("shutting down")

	return eng.Shutdown()
}

// buildBroker returns the live Binance broker when credentials are present,
// otherwise the paper broker with its fills persisted to the store.
func buildBroker(cfg config.Config, provider market.Provider, db store.Store, appLogger *logger.Logger) (broker.Broker, error) {
	if cfg.Broker.Configured() {
		return broker.NewBinanceBroker(broker.BinanceConfig{
			APIKey:     cfg.Broker.APIKey,
			SecretKey:  cfg.Broker.SecretKey,
			BaseURL:    cfg.Broker.BaseURL,
			UseTestnet: cfg.Broker.UseTestnet,
		}, provider)
	}

	appLogger.Warn("no broker credentials configured, running degraded with simulated fills")

	paper, err := broker.NewPaperBroker(cfg.Engine.InitialCash, appLogger)
	if err != nil {
		return nil, err
	}

	paper.SetOnTrade(func(trade types.TradeRecord) {
		if err := db.SaveTrade(trade); err != nil {
			appLogger.Warn("failed to persist simulated trade",
				zap.String("trade_id", trade.ID),
				zap.Error(err))
		}
	})

	return paper, nil
}

// backfillAction downloads historical bars for a symbol into the store.
func backfillAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	db, err := store.NewDuckDBStore(cfg.Store.Path, appLogger)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	provider, err := market.NewProvider(cfg.Market)
	if err != nil {
		return err
	}

	symbol := cmd.String("symbol")
	interval := types.Interval(cmd.String("interval"))
	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")

	var bar *progressbar.ProgressBar

	onProgress := func(current, total float64, message string) {
		if bar == nil {
			bar = progressbar.NewOptions64(int64(total),
				progressbar.OptionSetDescription(message),
				progressbar.OptionShowCount())
		}

		bar.Set64(int64(current)) //nolint:errcheck
	}

	written, err := provider.Download(ctx, symbol, interval, start, end, onProgress, func(b types.Bar) error {
		return db.SaveBar(b, interval)
	})
	if err != nil {
		return err
	}

	if bar != nil {
		bar.Finish() //nolint:errcheck
	}

	fmt.Printf("\nDownloaded %d bars for %s into %s\n", written, symbol, cfg.Store.Path)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "argo-executor",
		Usage: "Autonomous crypto strategy execution engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the execution engine with the configured strategies",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML configuration file",
						Value:   "config.yaml",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Enable debug logging",
					},
				},
				Action: runAction,
			},
			{
				Name:  "backfill",
				Usage: "Download historical bars into the local store",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML configuration file",
						Value:   "config.yaml",
					},
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"s"},
						Usage:    "Trading pair to download (e.g. BTCUSDT)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Bar interval (1m, 5m, 15m, 1h, 4h, 1d)",
						Value:   string(types.Interval1h),
					},
					&cli.TimestampFlag{
						Name:     "start",
						Usage:    "Start date in `YYYY-MM-DD` format",
						Required: true,
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "End date in `YYYY-MM-DD` format. Defaults to now.",
						Value: time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
				},
				Action: backfillAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
