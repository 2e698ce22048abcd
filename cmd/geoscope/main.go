package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/geoscope/internal/analysis"
	"github.com/tjfontaine/geoscope/internal/api/openai"
	"github.com/tjfontaine/geoscope/internal/config"
	"github.com/tjfontaine/geoscope/internal/floodrisk"
	"github.com/tjfontaine/geoscope/internal/geocode"
	"github.com/tjfontaine/geoscope/internal/infrascan"
	"github.com/tjfontaine/geoscope/internal/orchestrator"
	"github.com/tjfontaine/geoscope/internal/overpass"
	"github.com/tjfontaine/geoscope/internal/reasoning"
	"github.com/tjfontaine/geoscope/internal/server"
	"github.com/tjfontaine/geoscope/internal/storage"
	"github.com/tjfontaine/geoscope/internal/storage/sqldb"
	"github.com/tjfontaine/geoscope/internal/telemetry"
	"github.com/tjfontaine/geoscope/internal/tools"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("geoscope", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// Fail fast on missing credentials instead of erroring mid-run.
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	httpClient := telemetry.HTTPClient()

	var clientOpts []openai.ClientOption
	clientOpts = append(clientOpts, openai.WithHTTPClient(httpClient))
	if cfg.OpenAI.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	gateway := reasoning.NewGateway(
		openai.NewClient(cfg.OpenAI.APIKey, clientOpts...),
		cfg.OpenAI.Model,
		logger,
	)

	overpassClient := overpass.NewClient(cfg.Geo.OverpassMirrors,
		overpass.WithHTTPClient(httpClient),
		overpass.WithLogger(logger),
	)
	registry := tools.NewRegistry(
		geocode.NewClient(cfg.Geo.GeocodeURL, cfg.Geo.UserAgent, geocode.WithHTTPClient(httpClient)),
		infrascan.NewScanner(overpassClient, logger),
		floodrisk.NewEvaluator(cfg.Geo.ElevationURL, overpassClient, logger, floodrisk.WithHTTPClient(httpClient)),
	)

	runner := orchestrator.New(gateway, registry, cfg.Analysis.MaxIterations, logger)

	var store storage.RunStore = storage.NopStore{}
	if cfg.Storage.Type == "sqlite" {
		store, err = sqldb.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open audit store: %v", err)
		}
	}
	defer store.Close()

	srv := server.New(cfg.Server.Port, logger)
	analysis.NewHandler(runner, store, cfg.OpenAI.Model, logger).Routes(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("geoscope started",
		slog.Int("port", cfg.Server.Port),
		slog.String("model", cfg.OpenAI.Model),
		slog.Int("overpass_mirrors", len(cfg.Geo.OverpassMirrors)),
		slog.Int("max_iterations", cfg.Analysis.MaxIterations),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case <-sigChan:
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("geoscope shutdown complete")
}
