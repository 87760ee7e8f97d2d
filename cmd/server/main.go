// Command server starts the VIDYA risk scoring API.
//
// Usage:
//
//	go run ./cmd/server [flags]
//
// Flags:
//
//	-port    HTTP port to listen on (default: 8080)
//	-config  Path to a JSON configuration file (default: data/config.json)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"vidya/risk-engine/internal/aggregator"
	"vidya/risk-engine/internal/api"
	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/detection"
	"vidya/risk-engine/internal/duplicate"
	"vidya/risk-engine/internal/features"
	"vidya/risk-engine/internal/forensics"
	"vidya/risk-engine/internal/fraud"
	"vidya/risk-engine/internal/media"
	"vidya/risk-engine/internal/ocr"
	"vidya/risk-engine/internal/pipeline"
	"vidya/risk-engine/internal/quality"
	"vidya/risk-engine/internal/state"
	"vidya/risk-engine/internal/verification"
)

const serviceVersion = "1.0.0"

func main() {
	port := flag.Int("port", 8080, "HTTP port")
	configFile := flag.String("config", "data/config.json", "path to JSON configuration file")
	flag.Parse()

	// Railway (and most PaaS platforms) inject PORT as an env var.
	// It takes precedence over the -port flag.
	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}

	// VIDYA_CONFIG_FILE, when set, takes precedence over the -config flag.
	if envConfig := os.Getenv("VIDYA_CONFIG_FILE"); envConfig != "" {
		*configFile = envConfig
	}

	// Structured logging — key=value text records to stdout.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "file", *configFile, "error", err)
		os.Exit(1)
	}

	handler, err := wire(cfg)
	if err != nil {
		slog.Error("failed to wire dependencies", "error", err)
		os.Exit(1)
	}
	router := api.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "port", *port, "config_file", *configFile)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

// wire builds every pipeline stage from cfg and assembles the HTTP handler.
func wire(cfg config.Config) (*api.Handler, error) {
	st, err := state.New(cfg.StateFilePath)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	artifact, err := fraud.LoadLatestModel(cfg.ModelRegistryPath)
	if err != nil {
		return nil, fmt.Errorf("loading fraud model from %s: %w", cfg.ModelRegistryPath, err)
	}
	// artifact is typed *fraud.LinearArtifact; only assign it to the Model
	// interface variable when non-nil, otherwise the interface would hold a
	// non-nil value wrapping a nil pointer and Scorer's nil check would miss.
	var model fraud.Model
	if artifact != nil {
		model = artifact
		slog.Info("loaded fraud model", "version", artifact.Version())
	}

	agg := aggregator.New(cfg.Weights, cfg.Thresholds)

	p := pipeline.New(
		media.New(10*time.Second),
		quality.New(cfg.Quality),
		forensics.New(),
		detection.New(cfg.Detection),
		ocr.New(cfg.OCR),
		verification.NewMockClient(),
		duplicate.New(cfg.Duplicates, st),
		features.New(cfg.FraudRules, st),
		fraud.New(cfg.FraudRules, model),
		agg,
	)

	deps := api.Dependencies{
		ImageDecoder:       true, // stdlib image/jpeg and image/png are always linked in
		DetectionModel:     false,
		OCRProvider:        false,
		GradientBoostModel: model != nil,
	}

	return api.NewHandler(p, agg, serviceVersion, deps), nil
}
