package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/qtrade-exchange/lpbot/config"
	"github.com/qtrade-exchange/lpbot/internal/adapters/feed"
	"github.com/qtrade-exchange/lpbot/internal/adapters/qtrade"
	"github.com/qtrade-exchange/lpbot/internal/adapters/report"
	"github.com/qtrade-exchange/lpbot/internal/adapters/storage"
	"github.com/qtrade-exchange/lpbot/internal/application/engine"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	dryRun := flag.Bool("dry-run", false, "decide but never touch the exchange (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print the full order table per acted cycle")
	showAllocations := flag.Bool("show-allocations", false, "print current allocations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *dryRun {
		cfg.Engine.DryRun = true
	}
	setupLogger(cfg.Log)

	auth, err := qtrade.LoadAuth(cfg.API.Keyfile)
	if err != nil {
		slog.Error("failed to load credentials", "err", err, "keyfile", cfg.API.Keyfile)
		os.Exit(1)
	}
	client := qtrade.NewClient(cfg.API.Endpoint, auth)
	exchange := qtrade.NewExchange(client)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *showAllocations {
		if err := printAllocations(ctx, exchange, cfg); err != nil {
			slog.Error("show-allocations failed", "err", err)
			os.Exit(1)
		}
		return
	}

	markets := allocatedMarkets(cfg)
	collector := feed.NewCollector(buildScrapers(cfg, client), markets, cfg.FeedPeriod())

	var store *storage.SQLiteStore
	if !*once {
		store, err = storage.Open(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.ApplySchema(ctx); err != nil {
			slog.Error("failed to apply schema", "err", err)
			os.Exit(1)
		}
	}

	reporter := report.NewConsole(*table)

	engCfg := engine.Config{
		MonitorPeriod: cfg.MonitorPeriod(),
		Warmup:        cfg.WarmupPeriod(),
		DryRun:        cfg.Engine.DryRun,
		ReplaceMode:   cfg.Engine.ReplaceMode,
		Allocations:   cfg.AllocationConfig(),
		Intervals:     cfg.IntervalConfig(),
		Tolerances:    cfg.ToleranceConfig(),
	}

	slog.Info("lpbot starting",
		"config", *configPath,
		"endpoint", cfg.API.Endpoint,
		"markets", markets,
		"monitor_period", cfg.MonitorPeriod(),
		"replace_mode", cfg.Engine.ReplaceMode,
		"dry_run", cfg.Engine.DryRun,
		"once", *once,
	)

	if *once {
		// single synchronous scrape stands in for the warm-up wait
		collector.Refresh(ctx)
		eng := engine.New(engCfg, exchange, collector, nil, reporter)
		if _, err := eng.RunOnce(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	go collector.Run(ctx)

	eng := engine.New(engCfg, exchange, collector, store, reporter)
	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("lpbot stopped cleanly")
}

// allocatedMarkets returns the configured market keys in sorted order.
func allocatedMarkets(cfg *config.Config) []string {
	markets := make([]string, 0, len(cfg.Engine.MarketAllocations))
	for m := range cfg.Engine.MarketAllocations {
		markets = append(markets, m)
	}
	sort.Strings(markets)
	return markets
}

func buildScrapers(cfg *config.Config, client *qtrade.Client) []feed.Scraper {
	var scrapers []feed.Scraper
	for _, src := range cfg.Feed.Sources {
		switch src {
		case "qtrade":
			scrapers = append(scrapers, feed.NewQTradeScraper(client))
		case "bittrex":
			scrapers = append(scrapers, feed.NewBittrexScraper(""))
		}
	}
	return scrapers
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
