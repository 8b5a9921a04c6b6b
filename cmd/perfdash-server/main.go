package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/NavarchProject/perfdash/pkg/api"
	"github.com/NavarchProject/perfdash/pkg/client"
	"github.com/NavarchProject/perfdash/pkg/config"
	"github.com/NavarchProject/perfdash/pkg/dashboard"
	"github.com/NavarchProject/perfdash/pkg/metrics"
	"github.com/NavarchProject/perfdash/pkg/retry"
	"github.com/NavarchProject/perfdash/pkg/store"
	"github.com/NavarchProject/perfdash/pkg/ui"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	dsn := flag.String("dsn", "", "Storage DSN (or use DATABASE_URL env)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	} else if env := os.Getenv("DATABASE_URL"); env != "" && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = env
	}

	logger.Info("starting perfdash server",
		slog.String("addr", cfg.Server.Address),
		slog.String("storage", cfg.Storage.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mux, err := newMux(cfg, database, logger)
	if err != nil {
		logger.Error("failed to set up handlers", slog.String("error", err.Error()))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			serverErrChan <- err
		}
	}()

	logger.Info("perfdash ready", slog.String("addr", cfg.Server.Address))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrChan:
		logger.Error("server error triggered shutdown", slog.String("error", err.Error()))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
	}
	if err := database.Close(); err != nil {
		logger.Error("error closing database", slog.String("error", err.Error()))
	}

	logger.Info("perfdash stopped")
}

// newMux wires the API, the dashboard UI, metrics and health endpoints.
func newMux(cfg *config.Config, database store.DB, logger *slog.Logger) (*http.ServeMux, error) {
	pm := metrics.NewPrometheusMetrics(database)
	registry := prometheus.NewRegistry()
	registry.MustRegister(pm)

	sessions, err := dashboard.NewController(
		dashboardConfig(cfg),
		dashboardSource(cfg, database, logger),
		cfg.Dashboard.MaxSessions,
		dashboard.WithRecorder(pm),
		dashboard.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	uiHandler, err := ui.NewHandler(sessions, logger.With(slog.String("component", "ui")))
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	api.NewHandler(database, logger, pm).RegisterRoutes(mux)
	uiHandler.RegisterRoutes(mux)
	mux.Handle("GET /{$}", http.RedirectHandler("/ui/", http.StatusFound))
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", readyzHandler(database, logger))
	if cfg.Server.Metrics {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return mux, nil
}

func dashboardConfig(cfg *config.Config) dashboard.Config {
	return dashboard.Config{
		Charts:     cfg.Dashboard.Charts,
		Table:      cfg.Dashboard.Table,
		FilterMode: cfg.Dashboard.FilterMode,
		AutoSelect: cfg.Dashboard.AutoSelect,
		PageSize:   cfg.Dashboard.PageSize,
	}
}

// dashboardSource reads a remote listing endpoint when one is configured and
// the local store otherwise.
func dashboardSource(cfg *config.Config, database store.DB, logger *slog.Logger) dashboard.Source {
	if cfg.Dashboard.APIURL == "" {
		return dashboard.StoreSource(database)
	}

	logger.Info("dashboard reads remote endpoint", slog.String("api_url", cfg.Dashboard.APIURL))
	return client.New(cfg.Dashboard.APIURL,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}),
		client.WithRetry(retryConfig(cfg.Client.Retries)),
	)
}

func retryConfig(retries int) retry.Config {
	if retries <= 0 {
		return retry.None()
	}
	rc := retry.NetworkConfig()
	rc.MaxAttempts = retries + 1
	return rc
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func readyzHandler(database store.DB, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := database.GetRun(r.Context(), -1); err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	}
}
