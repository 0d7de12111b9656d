// Command krypto tunes a direction predictor with a walk-forward genetic search and can
// paper-trade the winner.
//
// Usage:
//
//	krypto [-config config.yml] [-live] [-serve]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tantralabs/krypto"
	"github.com/tantralabs/krypto/cache"
	"github.com/tantralabs/krypto/database"
	"github.com/tantralabs/krypto/exchanges"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/optimize"
	"github.com/tantralabs/krypto/server"
	"github.com/tantralabs/krypto/settings"
	"golang.org/x/sync/errgroup"
)

func main() {
	path := flag.String("config", settings.DefaultPath, "configuration file, created with defaults when missing")
	live := flag.Bool("live", false, "paper-trade the best configuration after training")
	serve := flag.Bool("serve", false, "serve /status, /history, /best and /metrics")
	flag.Parse()

	cfg, err := settings.Load(*path)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		os.Exit(2)
	}
	cfg.Live.Enabled = cfg.Live.Enabled || *live
	cfg.Server.Enabled = cfg.Server.Enabled || *serve
	if err := cfg.Validate(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(2)
	}
	logger.SetDisplayLevel(cfg.Logging.Level)
	logger.SetLevel(cfg.Logging.Level)
	logger.SetJSON(cfg.Logging.JSON)
	logger.Infof("Loaded %s: %s", *path, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *settings.Config) error {
	store, closeStore, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStore()

	source, loader, closeSource, err := openSource(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer closeSource()

	intervals, _ := cfg.ParsedIntervals()
	datasets, err := loader.LoadAll(ctx, cfg.Symbols, intervals, cfg.Candles)
	if err != nil {
		return err
	}
	evaluator, err := krypto.NewEvaluator(datasets, cfg.WalkForward(), cfg.Fitness, store, cfg.Workers)
	if err != nil {
		return err
	}
	space, err := cfg.Space()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	registry := prometheus.NewRegistry()
	observers := []optimize.Observer{server.NewMetrics(registry)}
	sink, err := krypto.NewInfluxSink(cfg.Influx, runID, "train")
	if err != nil {
		logger.Warnf("influx disabled: %v", err)
	} else if sink != nil {
		defer sink.Close()
		observers = append(observers, sink)
	}
	optimizer := optimize.New(space, cfg.Optimizer(), evaluator, observers...)

	// the status server keeps serving after training until the process is stopped
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		srv := server.New(cfg.Server.Addr, optimizer, registry)
		g.Go(func() error { return srv.Run(gctx) })
	}

	g.Go(func() error {
		best, err := optimizer.Run(gctx)
		if err := krypto.WriteReports(cfg.Report.Dir, optimizer.History(), best); err != nil {
			logger.Errorf("could not write reports: %v", err)
		}
		if err != nil {
			return err
		}
		logger.Logf("Best %s: fitness %.4f sharpe %.4f return %.4f accuracy %.3f",
			best.Settings, best.Fitness, best.Sharpe, best.Return, best.Accuracy)
		if !cfg.Live.Enabled || gctx.Err() != nil {
			return nil
		}
		return trade(gctx, cfg, best.Settings, source, store)
	})
	return g.Wait()
}

// trade runs the paper-trading loop on the best settings until ctx is done.
func trade(ctx context.Context, cfg *settings.Config, best models.AlgorithmSettings, source krypto.MarketSource, store cache.Store) error {
	if stream, ok := source.(*exchanges.Stream); ok && cfg.Live.Stream {
		go func() {
			if err := stream.Run(ctx, best.Symbols, best.Interval); err != nil {
				logger.Errorf("kline stream: %v", err)
			}
		}()
	}
	live, err := krypto.NewLive(best, source, cfg.Live.Window)
	if err != nil {
		return err
	}
	live.Store = store
	live.Poll = cfg.Live.Interval
	live.ReportDir = cfg.Report.Dir
	sink, err := krypto.NewInfluxSink(cfg.Influx, uuid.NewString(), "live")
	if err != nil {
		logger.Warnf("influx disabled for live trading: %v", err)
	}
	defer sink.Close()
	live.Sink = sink
	return live.Run(ctx)
}

func openCache(ctx context.Context, c settings.Cache) (cache.Store, func(), error) {
	noop := func() {}
	memory := func() cache.Store { return cache.NewMemoryCache(c.MaxEntries) }
	switch c.Backend {
	case "none":
		return nil, noop, nil
	case "file":
		fc, err := cache.NewFileCache(c.Dir)
		return fc, noop, err
	case "redis", "layered":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
			TTL:      c.TTL,
		})
		if err != nil {
			logger.Warnf("redis cache unavailable, using memory: %v", err)
			return memory(), noop, nil
		}
		closer := func() { rc.Close() }
		if c.Backend == "layered" {
			return cache.NewLayeredCache(memory(), rc), closer, nil
		}
		return rc, closer, nil
	}
	return memory(), noop, nil
}

// openSource picks the market-data source. Downloaded candles may be persisted to Postgres
// or to the CSV directory.
func openSource(ctx context.Context, cfg *settings.Config, store cache.Store) (krypto.MarketSource, *exchanges.Loader, func(), error) {
	noop := func() {}
	loader := &exchanges.Loader{Cache: store, Name: cfg.Source.Kind, Parallel: 4}

	var db *database.Store
	closer := noop
	if cfg.Source.Kind == "postgres" || (cfg.Source.Kind == "binance" && cfg.Source.Persist) {
		var err error
		db, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, noop, err
		}
		closer = func() { db.Close() }
	}

	var source krypto.MarketSource
	switch cfg.Source.Kind {
	case "csv":
		csv := exchanges.CSVSource{Dir: cfg.Source.Dir}
		loader.Source = csv
		source = csv
	case "postgres":
		loader.Source = db
		source = db
	default:
		client := exchanges.NewClient(cfg.Source.BaseURL)
		client.APIKey = cfg.Source.APIKey
		loader.Source = client
		source = client
		if cfg.Source.Persist {
			loader.Persist = db
		}
		if cfg.Live.Stream {
			source = exchanges.NewStream(client, cfg.Source.StreamURL)
		}
	}
	return source, loader, closer, nil
}
