package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/water-accounting-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/water-accounting-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/shapefile"
	"github.com/couchcryptid/water-accounting-dashboard/internal/config"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/observability"
	"github.com/couchcryptid/water-accounting-dashboard/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	schemas, err := domain.LoadSchemas(cfg.SchemaFile)
	if err != nil {
		logger.Error("failed to load source schemas", "path", cfg.SchemaFile, "error", err)
		os.Exit(1)
	}

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var opts []pipeline.Option
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	loader := pipeline.NewLoader(schemas, cfg.Paths(), logger)
	p := pipeline.New(loader, logger, metrics, cfg.ReloadInterval, opts...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Data:      p,
		Layers:    shapefile.NewCache(cfg.ShapefileCacheSize, logger),
		Geocoder:  geocoder,
		Region:    cfg.MapboxCountry,
		Metrics:   metrics,
		MaxUpload: cfg.MaxUploadBytes,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the reload loop.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("reloader error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
