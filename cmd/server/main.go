package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/air-quality-classifier/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/air-quality-classifier/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/air-quality-classifier/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-classifier/internal/adapter/sqlite"
	"github.com/couchcryptid/air-quality-classifier/internal/catalog"
	"github.com/couchcryptid/air-quality-classifier/internal/config"
	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"github.com/couchcryptid/air-quality-classifier/internal/observability"
	"github.com/couchcryptid/air-quality-classifier/internal/pipeline"
	"github.com/couchcryptid/air-quality-classifier/internal/prediction"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	var builderOpts []domain.BuilderOption
	if cfg.StrictZones {
		builderOpts = append(builderOpts, domain.WithStrictZones())
	}
	builder, err := cat.FeatureBuilder(builderOpts...)
	if err != nil {
		logger.Error("failed to build feature encoder", "error", err)
		os.Exit(1)
	}

	registry, err := cat.Registry(cacheWrap(cfg.CacheSize, metrics, logger))
	if err != nil {
		logger.Error("failed to load models", "error", err)
		os.Exit(1)
	}
	logger.Info("models loaded", "models", registry.Names(), "cache_size", cfg.CacheSize, "strict_zones", cfg.StrictZones)

	opts := []prediction.Option{prediction.WithInputBounds(cat.InputBounds)}
	var history *sqlite.Store
	if cfg.HistoryDBPath != "" {
		history, err = sqlite.Open(ctx, cfg.HistoryDBPath)
		if err != nil {
			logger.Error("failed to open prediction history", "error", err, "path", cfg.HistoryDBPath)
			os.Exit(1)
		}
		opts = append(opts, prediction.WithHistory(history))
		logger.Info("prediction history enabled", "path", cfg.HistoryDBPath)
	}

	svc := prediction.New(builder, registry, cat.Labels, logger, metrics, opts...)

	checkers := []sharedobs.ReadinessChecker{svc}
	var (
		p      *pipeline.Pipeline
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		if _, err := registry.Lookup(cfg.KafkaModel); err != nil {
			logger.Error("invalid KAFKA_MODEL", "error", err)
			os.Exit(1)
		}
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(svc, cfg.KafkaModel, logger)
		p = pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		checkers = append(checkers, p)
	} else {
		logger.Info("kafka streaming disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, observability.AllReady(checkers...), logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if history != nil {
		if err := history.Close(); err != nil {
			logger.Error("prediction history close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.CatalogPath)
}

// cacheWrap returns a catalog.WrapFunc putting an LRU cache in front of each
// model, or nil when caching is disabled.
func cacheWrap(size int, metrics *observability.Metrics, logger *slog.Logger) catalog.WrapFunc {
	if size <= 0 {
		return nil
	}
	return func(model string, c domain.Classifier) domain.Classifier {
		cached, err := cache.NewCachedClassifier(model, c, size, metrics)
		if err != nil {
			logger.Warn("classifier cache disabled", "model", model, "error", err)
			return c
		}
		return cached
	}
}
