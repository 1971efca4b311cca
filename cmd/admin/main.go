package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"github.com/studio-torajirou/kanrigamen/internal/api"
	"github.com/studio-torajirou/kanrigamen/internal/backend"
	"github.com/studio-torajirou/kanrigamen/internal/config"
	"github.com/studio-torajirou/kanrigamen/internal/database"
	"github.com/studio-torajirou/kanrigamen/internal/domain"
	"github.com/studio-torajirou/kanrigamen/internal/events"
	"github.com/studio-torajirou/kanrigamen/internal/export"
	"github.com/studio-torajirou/kanrigamen/internal/logging"
	"github.com/studio-torajirou/kanrigamen/internal/metrics"
	"github.com/studio-torajirou/kanrigamen/internal/repository"
	"github.com/studio-torajirou/kanrigamen/internal/service"
	"github.com/studio-torajirou/kanrigamen/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := loadColors(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	cache := initSnapshotCache(cfg, &logger)

	backendClient := backend.NewClient(cfg.Backend, &logger)
	eventBus := events.NewEventBus()
	exporter := export.NewExporter(cfg.Exports.Path, &logger)

	svc := service.NewAdminService(backendClient, cache, db, eventBus, exporter, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Reload(ctx); err != nil {
		// The console can still start; the refresher keeps retrying.
		logger.Warn().Err(err).Msg("initial snapshot load failed")
	}

	refresher := worker.NewSnapshotRefresher(
		svc,
		time.Duration(cfg.Snapshot.RefreshIntervalSeconds)*time.Second,
		worker.RetryPolicy{},
		&logger,
	)
	go refresher.Run(ctx)

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, &logger)
	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.WithComponent(baseLogger, "admin-main")

	return cfg, logger, closer, nil
}

// loadColors reads the calendar palette. A missing file keeps whatever
// the main config carries.
func loadColors(cfg *config.Config, logger *zerolog.Logger) error {
	colorsPath := os.Getenv("COLORS_PATH")
	if colorsPath == "" {
		colorsPath = "configs/colors.yaml"
	}

	data, err := os.ReadFile(colorsPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("colors_path", colorsPath).Msg("no palette file, using config colors")
			return nil
		}
		logger.Error().Err(err).Str("colors_path", colorsPath).Msg("read colors")
		return err
	}

	var palette struct {
		Colors []string `yaml:"colors"`
	}
	if err := yaml.Unmarshal(data, &palette); err != nil {
		logger.Error().Err(err).Str("colors_path", colorsPath).Msg("parse colors")
		return err
	}
	if err := config.ValidateColors(palette.Colors); err != nil {
		return fmt.Errorf("invalid palette: %w", err)
	}

	cfg.Colors = palette.Colors
	return nil
}

// initSnapshotCache builds the cache stack: in-memory always, redis in
// front of it when configured and reachable.
func initSnapshotCache(cfg *config.Config, logger *zerolog.Logger) domain.SnapshotCache {
	ttl := time.Duration(cfg.Snapshot.CacheTTLSeconds) * time.Second
	memory := repository.NewMemorySnapshotCache(ttl)

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with memory cache")
		return memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	primary := repository.NewRedisSnapshotCache(redisClient, ttl)
	return repository.NewFailoverSnapshotCache(primary, memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			logger.Warn().Msg("HTTP API disabled in config")
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("admin console started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("admin console stopped")
	return nil
}
