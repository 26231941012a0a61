package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property-scraper/config"
	"property-scraper/scraper"
	"property-scraper/scraper/registry"
	"property-scraper/services"
	"property-scraper/storage"
	"property-scraper/utils"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs before exit.
func run() int {
	cfg := config.Load()
	logger := newLogger(cfg)
	defer logger.Close()

	logger.Info("=== Property listing ingestion starting ===")
	logger.Info("Config: store %s | sources %q | regions/run %d | pages/region %d | photos %t (x%d) | stale %dh",
		cfg.StoreBackend, cfg.Sources, cfg.RegionsPerRun, cfg.PagesPerRegion,
		cfg.FetchPhotos, cfg.PhotoConcurrency, cfg.StaleHours)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids, err := registry.ParseSources(cfg.Sources)
	if err != nil {
		logger.Error("Invalid SOURCES: %v", err)
		return 1
	}
	sources, err := registry.Build(ids)
	if err != nil {
		logger.Error("Building sources: %v", err)
		return 1
	}

	catalog, err := config.LoadRegions(cfg.RegionsFile)
	if err != nil {
		logger.Error("Loading region catalog: %v", err)
		return 1
	}
	offset := config.RotationOffset(cfg.RegionOffset, cfg.RegionsPerRun, time.Now())
	regions := catalog.Window(offset, cfg.RegionsPerRun)
	logger.Info("Regions this run (%d of %d): %v", len(regions), len(catalog.Regions), regions)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreBackend, err)
		logger.Error("Check the %s connection settings and that the server is reachable", cfg.StoreBackend)
		return 1
	}
	defer store.Close()

	var snapshot storage.SnapshotWriter
	if cfg.CSVOutputPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
			return 1
		}
		defer csvWriter.Close()
		snapshot = csvWriter
	}

	fetchers := scraper.Fetchers{
		scraper.StrategyHTTP:    scraper.NewHTTPFetcher(scraper.FetchJitter, logger),
		scraper.StrategyBrowser: scraper.NewBrowserFetcher(cfg.ChromeBin, scraper.FetchJitter, logger),
	}
	pipeline := services.NewPipeline(
		scraper.NewCrawler(fetchers, logger),
		scraper.NewEnricher(fetchers, scraper.EnrichJitter, logger),
		services.NewReconciler(store, logger, time.Now),
		snapshot,
		services.RunOptions{
			Regions:          regions,
			PagesPerRegion:   cfg.PagesPerRegion,
			FetchPhotos:      cfg.FetchPhotos,
			PhotoConcurrency: cfg.PhotoConcurrency,
			StaleHours:       cfg.StaleHours,
		},
		logger,
	)

	report := pipeline.Run(ctx, sources)
	services.PrintReport(os.Stdout, report)

	totals := report.Totals()
	if cfg.CSVOutputPath != "" {
		fmt.Printf("  Done. Snapshot → %s | Listings → %s\n\n", cfg.CSVOutputPath, cfg.StoreBackend)
	}
	if totals.Inserted+totals.Updated == 0 && (totals.Errors > 0 || report.SweepErr != nil) {
		logger.Error("Nothing was saved this run")
		return 1
	}
	return 0
}

func newLogger(cfg *config.Config) *utils.Logger {
	opts := utils.LoggerOptions{Level: utils.ParseLevel(cfg.LogLevel)}
	if cfg.FluentHost == "" {
		return utils.NewLoggerWithOptions(opts)
	}

	client, err := utils.NewFluentClient(cfg.FluentHost, cfg.FluentPort, "scraper")
	logger := utils.NewLoggerWithOptions(opts)
	if err != nil {
		logger.Warn("Fluent Bit unavailable, logging to console only: %v", err)
		return logger
	}
	opts.Fluent = client
	return utils.NewLoggerWithOptions(opts)
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.ListingStore, error) {
	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: time.Second, Logger: logger}

	switch cfg.StoreBackend {
	case "postgres", "postgresql":
		return storage.NewPostgresStore(ctx, cfg.DSN(), retry)
	case "mongo", "mongodb":
		return storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, retry)
	case "memory":
		logger.Warn("Using in-memory store: nothing will persist after this run")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
