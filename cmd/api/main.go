package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver

	"bctvictracker.ca/internal/app"
	"bctvictracker.ca/internal/appconf"
	"bctvictracker.ca/internal/clock"
	"bctvictracker.ca/internal/gtfs"
	"bctvictracker.ca/internal/logging"
	"bctvictracker.ca/internal/metrics"
	"bctvictracker.ca/internal/restapi"
	"bctvictracker.ca/internal/tracker"
	"bctvictracker.ca/internal/webui"
)

func main() {
	cfg, err := appconf.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)
	slog.SetDefault(logger)

	application, err := BuildApplication(cfg)
	if err != nil {
		logging.LogError(logger, "failed to build application", err)
		os.Exit(1)
	}
	defer func() {
		_ = application.GtfsManager.Shutdown()
		application.Metrics.Shutdown()
	}()

	api := restapi.New(application)
	webMux := http.NewServeMux()
	(&webui.WebUI{Application: application}).SetRoutes(webMux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(webMux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit

		logging.LogOperation(logger, "shutting_down_server", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logging.LogError(logger, "graceful shutdown failed", err)
		}
	}()

	logging.LogOperation(logger, "starting_server",
		slog.Int("port", cfg.Port),
		slog.String("env", cfg.Env.String()))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.LogError(logger, "server error", err)
		os.Exit(1)
	}

	<-shutdownDone
}

// BuildApplication assembles the schedule database, realtime manager,
// tracker service and metrics from the loaded configuration.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	logger := slog.Default()

	gtfsConfig := gtfs.Config{
		GtfsSource:             cfg.GtfsSource,
		TripUpdatesURL:         cfg.TripUpdatesURL,
		VehiclePositionsURL:    cfg.VehiclePositionsURL,
		FallbackVehiclesURL:    cfg.FallbackVehiclesURL,
		FallbackTripUpdatesURL: cfg.FallbackTripUpdatesURL,
		DataDir:                cfg.DataDir,
		RefreshInterval:        cfg.RefreshInterval,
		Env:                    cfg.Env,
		Verbose:                cfg.Verbose,
	}

	manager, err := gtfs.InitGtfsManager(gtfsConfig)
	if err != nil {
		return nil, fmt.Errorf("error initializing GTFS manager: %w", err)
	}

	appMetrics := metrics.NewWithLogger(logger)
	manager.SetMetrics(appMetrics)
	appMetrics.StartDBStatsCollector(manager.GtfsDB.DB, 15*time.Second)

	realClock := clock.RealClock{}
	trackerService, err := tracker.NewService(manager.GtfsDB.Queries, realClock, logger)
	if err != nil {
		_ = manager.Shutdown()
		return nil, fmt.Errorf("error initializing tracker: %w", err)
	}

	return &app.Application{
		Config:      cfg,
		GtfsConfig:  gtfsConfig,
		Logger:      logger,
		GtfsManager: manager,
		Tracker:     trackerService,
		Clock:       realClock,
		Metrics:     appMetrics,
	}, nil
}
