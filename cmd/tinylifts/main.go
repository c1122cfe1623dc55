package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/tinylifts/internal/config"
	"github.com/meltforce/tinylifts/internal/feedback"
	"github.com/meltforce/tinylifts/internal/logbook"
	tlmcp "github.com/meltforce/tinylifts/internal/mcp"
	"github.com/meltforce/tinylifts/internal/metrics"
	"github.com/meltforce/tinylifts/internal/server"
	"github.com/meltforce/tinylifts/internal/storage"
	"github.com/meltforce/tinylifts/internal/timing"
	"github.com/prometheus/client_golang/prometheus"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	mcpStdio := flag.Bool("mcp-stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	remote := flag.String("remote", "", "with -mcp-stdio: TinyLifts server URL to query instead of the local store")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("tinylifts", Version)
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout belongs to the MCP protocol in stdio mode.
	logOut := os.Stdout
	if *mcpStdio {
		logOut = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("TinyLifts starting", "version", Version, "storage", cfg.Storage.Driver)

	if *mcpStdio && *remote != "" {
		log.Info("mcp stdio against remote server", "url", *remote)
		if err := mcpserver.ServeStdio(tlmcp.New(tlmcp.NewHTTPClient(*remote), Version, log)); err != nil {
			log.Error("mcp stdio failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	if _, err := storage.SeedIfEmpty(ctx, store, log); err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	if *mcpStdio {
		if err := mcpserver.ServeStdio(tlmcp.New(tlmcp.NewStoreSource(store), Version, log)); err != nil {
			log.Error("mcp stdio failed", "error", err)
			os.Exit(1)
		}
		return
	}

	var collectors []prometheus.Collector
	if db, ok := store.(*storage.DB); ok {
		collectors = append(collectors, pgxpoolprometheus.NewCollector(db.Pool, map[string]string{"db_name": cfg.Database.Name}))
	}
	promRegistry := metrics.SetupPrometheus(collectors...)
	m := metrics.NewManager("tinylifts", "main", promRegistry)
	clock := timing.SystemClock{}
	fb := feedback.Log{Logger: log}
	lb := logbook.New(logbook.Config{
		Store:   store,
		Clock:   clock,
		Haptics: fb,
		Audio:   fb,
		Metrics: m,
		Logger:  log,
	})
	defer lb.Close()

	restored, err := lb.Restore(ctx)
	if err != nil {
		log.Error("restoring active session failed", "error", err)
		os.Exit(1)
	}
	if restored {
		log.Info("active session restored")
	}

	// Create server
	srv := server.New(store, lb, clock, m, log)
	srv.SetMetrics(promRegistry)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(tlmcp.New(tlmcp.NewStoreSource(store), Version, log)))

	// Start server (tsnet or plain HTTP)
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openStore opens the configured storage driver with its migrations applied.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return storage.NewMemory(), nil
	case config.DriverSQLite:
		st, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite opened", "path", cfg.Storage.Path)
		return st, nil
	case config.DriverPostgres:
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("database connected")
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
