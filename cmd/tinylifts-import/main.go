package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/tinylifts/internal/config"
	"github.com/meltforce/tinylifts/internal/importer"
	"github.com/meltforce/tinylifts/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	exportPath := flag.String("path", "", "path to an Alpha Progression CSV export (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the store")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: tinylifts-import [-config config.yaml] -path export.csv [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*exportPath)
	if err != nil {
		log.Error("cannot open export", "path", *exportPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var store storage.Store
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err = storage.OpenSQLite(cfg.Storage.Path)
	case config.DriverPostgres:
		dsn := cfg.Database.DSN()
		if err = storage.RunMigrations(dsn); err == nil {
			store, err = storage.New(ctx, dsn)
		}
	default:
		err = fmt.Errorf("storage driver %q cannot be imported into", cfg.Storage.Driver)
	}
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("store opened", "driver", cfg.Storage.Driver)

	if _, err := storage.SeedIfEmpty(ctx, store, log); err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		log.Info("DRY RUN mode, nothing will be written")
	}

	// Run import
	stats, err := importer.New(store, log, *dryRun).ImportAlpha(ctx, f)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"sessions_parsed", stats.SessionsParsed,
		"sessions_imported", stats.SessionsImported,
		"sessions_duplicated", stats.SessionsDuplicated,
		"sessions_skipped", stats.SessionsSkipped,
		"sets_imported", stats.SetsImported,
		"sets_skipped", stats.SetsSkipped,
	)
	if len(stats.UnmatchedExercises) > 0 {
		log.Info("exercises without a TinyLifts counterpart", "exercises", stats.UnmatchedExercises)
	}
}
