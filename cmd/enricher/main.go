// Command enricher runs the location enrichment service: it consumes raw
// GPS fixes from the source Kafka topic, joins reverse-geocoded address
// data onto them through the geohash proximity cache, and publishes the
// enriched records to the sink topic.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/location-enrichment/internal/adapter/http"
	"github.com/couchcryptid/location-enrichment/internal/adapter/googlemaps"
	kafkaadapter "github.com/couchcryptid/location-enrichment/internal/adapter/kafka"
	"github.com/couchcryptid/location-enrichment/internal/config"
	"github.com/couchcryptid/location-enrichment/internal/domain"
	"github.com/couchcryptid/location-enrichment/internal/enrich"
	"github.com/couchcryptid/location-enrichment/internal/observability"
	"github.com/couchcryptid/location-enrichment/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Geocoding is feature-flagged: without a provider the pipeline still
	// runs, serving whatever the cache already holds.
	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		geocoder = googlemaps.NewClient(cfg.GoogleMapsAPIKey, cfg.GeocodeTimeout, cfg.QueriesPerSecond, logger)
		logger.Info("geocoding enabled", "timeout", cfg.GeocodeTimeout, "qps", cfg.QueriesPerSecond)
	} else {
		logger.Info("geocoding disabled, running cache-only")
	}

	svc, err := enrich.NewService(ctx, cfg, geocoder, logger, metrics, clock)
	if err != nil {
		logger.Error("failed to build enrichment service", "error", err)
		os.Exit(1)
	}
	svc.Start(ctx)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	enricher := pipeline.NewLocationEnricher(svc.Engine(), clock, logger, metrics)

	p := pipeline.New(reader, enricher, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, svc.Store(), logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := svc.Close(shutdownCtx); err != nil {
		logger.Error("cache save on shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}
