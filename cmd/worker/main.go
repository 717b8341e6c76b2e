// Command worker consumes analysis submissions, runs the similarity and
// bioactivity pipeline per job and aggregates the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/compound-analysis/internal/application/aggregator"
	"github.com/turtacn/compound-analysis/internal/application/orchestrator"
	"github.com/turtacn/compound-analysis/internal/application/registry"
	"github.com/turtacn/compound-analysis/internal/application/worker"
	"github.com/turtacn/compound-analysis/internal/config"
	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/infrastructure/chembl"
	"github.com/turtacn/compound-analysis/internal/infrastructure/database/postgres"
	"github.com/turtacn/compound-analysis/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/turtacn/compound-analysis/internal/infrastructure/database/redis"
	"github.com/turtacn/compound-analysis/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/compound-analysis/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/compound-analysis/internal/interfaces/http"
	"github.com/turtacn/compound-analysis/internal/interfaces/http/handlers"
	"github.com/turtacn/compound-analysis/internal/interfaces/http/middleware"
)

var version = "dev"

const (
	defaultHealthPort = 9091
	startupTimeout    = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: CPDA_* environment)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port of the health and metrics endpoint (0 disables it)")
	workerID := flag.String("id", "", "worker id used in logs and metrics (default: hostname)")
	flag.Parse()

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logger.Sync()

	if *configPath != "" {
		reload := func(c *config.Config) { logging.SetLevel(logger, c.Log.Level) }
		if err := config.Watch(*configPath, logger, reload); err != nil {
			logger.Warn("configuration hot reload disabled", logging.Err(err))
		}
	}

	id := *workerID
	if id == "" {
		if h, err := os.Hostname(); err == nil {
			id = h
		}
	}

	if err := run(cfg, logger, id, *healthPort); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger, workerID string, healthPort int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger = logger.With(logging.String("worker_id", workerID))
	logger.Info("starting compound analysis worker",
		logging.String("version", version),
		logging.Int("compound_concurrency", cfg.Worker.CompoundConcurrency),
		logging.String("topic", cfg.Kafka.SubmissionTopic))

	var (
		appMetrics *prometheus.AppMetrics
		collector  prometheus.MetricsCollector
	)
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics, "worker"), logger)
		if err != nil {
			return err
		}
		collector = c
		appMetrics = prometheus.NewAppMetrics(c)
	}

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	rc, err := redisinfra.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer rc.Close()

	var archive result.Archive
	checkers := []handlers.HealthChecker{conn, rc}
	if cfg.MinIO.Enabled {
		startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		mc, err := minio.NewClient(startCtx, cfg.MinIO, logger)
		cancel()
		if err != nil {
			return err
		}
		defer mc.Close()
		archive = minio.NewArchive(mc, logger)
		checkers = append(checkers, mc)
	}

	source, err := chembl.NewClient(cfg.ChEMBL, logger,
		chembl.WithCache(redisinfra.NewRedisCache(rc, logger,
			redisinfra.WithNamespace("chembl"),
			redisinfra.WithDefaultTTL(cfg.ChEMBL.CacheTTL))),
		chembl.WithMetrics(appMetrics),
		chembl.WithMaxSimilar(cfg.Analysis.MaxSimilar))
	if err != nil {
		return err
	}
	checkers = append(checkers, source)

	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
	if err != nil {
		return err
	}
	defer producer.Close()
	publisher := kafka.NewEventPublisher(producer, cfg.Kafka.SubmissionTopic, cfg.Kafka.VisualizeTopic)

	reg := registry.NewService(repositories.NewPostgresCompoundRepo(conn, logger), logger)
	// The worker never submits, so the orchestrator gets no publisher.
	orch := orchestrator.NewService(repositories.NewPostgresJobRepo(conn, logger), reg, nil,
		orchestrator.Options{DefaultThreshold: cfg.Analysis.DefaultThreshold, Metrics: appMetrics}, logger)
	store := redisinfra.NewResultStore(rc, logger, redisinfra.WithResultTTL(cfg.Redis.ResultTTL))
	results := aggregator.NewService(store, archive, cfg.MinIO.PresignExpiry, logger)

	processor := worker.NewProcessor(orch, reg, results,
		worker.Sources{Similarity: source, Activities: source, Toolkit: source, Resolver: source},
		publisher,
		worker.Options{
			WorkerID:            workerID,
			CompoundConcurrency: cfg.Worker.CompoundConcurrency,
			CollaboratorTimeout: cfg.Worker.CollaboratorTimeout,
			JobTimeout:          cfg.Worker.JobTimeout,
			ArchiveResults:      cfg.Worker.ArchiveResults && archive != nil,
			DefaultThreshold:    cfg.Analysis.DefaultThreshold,
			Filter: bioactivity.Filter{
				ActivityTypes: cfg.Analysis.ActivityTypes,
				Units:         cfg.Analysis.AcceptedUnits,
			},
			Metrics: appMetrics,
		}, logger)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(cfg.Kafka), logger)
	if err != nil {
		return err
	}
	defer consumer.Close()
	consumer.Subscribe(cfg.Kafka.SubmissionTopic, processor.Handler())

	var health *httpserver.Server
	if healthPort > 0 {
		healthCfg := cfg.Server
		healthCfg.Port = healthPort
		health = httpserver.NewServer(healthCfg, httpserver.NewRouter(httpserver.RouterConfig{
			HealthHandler:    handlers.NewHealthHandler(version, checkers...),
			Logging:          middleware.DefaultLoggingConfig(),
			Logger:           logger,
			Metrics:          appMetrics,
			MetricsCollector: collector,
			MetricsPath:      cfg.Metrics.Path,
			Mode:             gin.ReleaseMode,
		}), logger)
		go func() {
			if err := health.Start(); err != nil {
				logger.Error("health server failed", logging.Err(err))
			}
		}()
	}

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	if err := consumer.Close(); err != nil {
		logger.Warn("consumer close failed", logging.Err(err))
	}
	if health != nil {
		if err := health.Stop(context.Background()); err != nil {
			logger.Warn("health server shutdown failed", logging.Err(err))
		}
	}
	logger.Info("worker stopped")
	return nil
}

//Personal.AI order the ending
