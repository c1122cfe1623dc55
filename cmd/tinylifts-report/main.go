package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/meltforce/tinylifts/internal/config"
	tlmcp "github.com/meltforce/tinylifts/internal/mcp"
	"github.com/meltforce/tinylifts/internal/progress"
	"github.com/meltforce/tinylifts/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "TinyLifts server URL (e.g. https://tinylifts.tail1234.ts.net)")
	configPath := flag.String("config", "", "read the local store from this config instead of a server")
	count := flag.Int("count", progress.DefaultHistoryCount, "sessions of history per exercise")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("tinylifts-report", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" && *configPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: tinylifts-report -server <URL> | -config config.yaml [-count N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *count < 1 {
		fmt.Fprintf(os.Stderr, "Error: -count must be at least 1\n")
		os.Exit(1)
	}

	var ds tlmcp.DataSource
	if *serverURL != "" {
		ds = tlmcp.NewHTTPClient(*serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		if cfg.Storage.Driver != config.DriverSQLite {
			log.Error("local reports need the sqlite driver", "driver", cfg.Storage.Driver)
			os.Exit(1)
		}
		st, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			log.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		ds = tlmcp.NewStoreSource(st)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := report(ctx, os.Stdout, ds, *count); err != nil {
		log.Error("report failed", "error", err)
		os.Exit(1)
	}
}

// report prints lifetime stats followed by recent history and the
// progression verdict of every exercise.
func report(ctx context.Context, w io.Writer, ds tlmcp.DataSource, count int) error {
	st, err := ds.Stats(ctx)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}
	fmt.Fprintln(w, "=== TinyLifts Report ===")
	fmt.Fprintf(w, "  Sessions:   %d\n", st.TotalSessions)
	fmt.Fprintf(w, "  Sets:       %d\n", st.TotalSets)
	fmt.Fprintf(w, "  Volume:     %s kg\n", kg(st.TotalVolume))
	if st.LatestData != nil {
		fmt.Fprintf(w, "  Last lift:  %s\n", st.LatestData.Format("2006-01-02"))
	}

	exercises, err := ds.ListExercises(ctx)
	if err != nil {
		return fmt.Errorf("loading exercises: %w", err)
	}
	for _, ex := range exercises {
		history, err := ds.ExerciseHistory(ctx, ex.ID, count)
		if err != nil {
			return fmt.Errorf("loading history for %s: %w", ex.ID, err)
		}
		res, err := ds.Progression(ctx, ex.ID)
		if err != nil {
			return fmt.Errorf("loading progression for %s: %w", ex.ID, err)
		}

		fmt.Fprintf(w, "\n%s (%dx%d)\n", ex.Name, ex.EffectiveTargetSets(), ex.EffectiveTargetReps())
		if len(history) == 0 {
			fmt.Fprintln(w, "  no sessions yet")
			continue
		}
		for _, h := range history {
			fmt.Fprintf(w, "  %s  max %6s kg  reps %3d  volume %7s kg\n",
				h.Date.Format("2006-01-02"), kg(h.MaxWeight), h.TotalReps, kg(h.TotalVolume))
		}
		fmt.Fprintf(w, "  → %s\n", verdict(res))
	}
	return nil
}

func verdict(res progress.PlateauResult) string {
	switch {
	case res.IsPlateau && res.SuggestedDeloadWeight != nil:
		scheme := ""
		if res.SuggestedRepScheme != nil {
			scheme = ", " + *res.SuggestedRepScheme
		}
		return fmt.Sprintf("plateau: deload to %s kg%s", kg(*res.SuggestedDeloadWeight), scheme)
	case res.ProgressionSuggestion != nil:
		return *res.ProgressionSuggestion
	default:
		return "not enough sessions for a suggestion"
	}
}

func kg(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
