// Command apiserver serves the compound analysis query surface: job
// submission, status, results, cliffs and exports over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/compound-analysis/internal/application/aggregator"
	"github.com/turtacn/compound-analysis/internal/application/orchestrator"
	"github.com/turtacn/compound-analysis/internal/application/query"
	"github.com/turtacn/compound-analysis/internal/application/registry"
	"github.com/turtacn/compound-analysis/internal/config"
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
	"github.com/turtacn/compound-analysis/migrations"
)

var version = "dev"

const (
	rateLimiterIdle  = 10 * time.Minute
	topicPartitions  = 6
	topicReplication = 1
	startupTimeout   = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: CPDA_* environment)")
	migrate := flag.Bool("migrate", false, "apply pending schema migrations before serving")
	ensureTopics := flag.Bool("ensure-topics", false, "create the pipeline kafka topics when missing")
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

	if err := run(cfg, logger, *migrate, *ensureTopics); err != nil {
		logger.Error("api server exited with error", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger, migrate, ensureTopics bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting compound analysis API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()))

	var (
		appMetrics *prometheus.AppMetrics
		collector  prometheus.MetricsCollector
	)
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics, "apiserver"), logger)
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

	if migrate {
		mg, err := postgres.NewMigrator(conn, postgres.MigrationSource{FS: migrations.FS}, logger)
		if err != nil {
			return err
		}
		err = mg.Up()
		_ = mg.Close()
		if err != nil {
			return err
		}
	}

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

	// Readiness only; the worker does the lookups.
	source, err := chembl.NewClient(cfg.ChEMBL, logger, chembl.WithMetrics(appMetrics))
	if err != nil {
		return err
	}
	checkers = append(checkers, source)

	if ensureTopics {
		if err := provisionTopics(ctx, cfg.Kafka, logger); err != nil {
			return err
		}
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
	if err != nil {
		return err
	}
	defer producer.Close()
	publisher := kafka.NewEventPublisher(producer, cfg.Kafka.SubmissionTopic, cfg.Kafka.VisualizeTopic)

	reg := registry.NewService(repositories.NewPostgresCompoundRepo(conn, logger), logger)
	orch := orchestrator.NewService(repositories.NewPostgresJobRepo(conn, logger), reg, publisher,
		orchestrator.Options{DefaultThreshold: cfg.Analysis.DefaultThreshold, Metrics: appMetrics}, logger)
	store := redisinfra.NewResultStore(rc, logger, redisinfra.WithResultTTL(cfg.Redis.ResultTTL))
	results := aggregator.NewService(store, archive, cfg.MinIO.PresignExpiry, logger)
	reportCache := redisinfra.NewRedisCache(rc, logger, redisinfra.WithNamespace("reports"))
	queries := query.NewService(orch, results, reportCache, cfg.Analysis.CliffThreshold, logger)

	var limiter middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		kl := middleware.NewKeyedLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, rateLimiterIdle)
		defer kl.Stop()
		limiter = kl
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		JobHandler:       handlers.NewJobHandler(orch, queries, results, logger),
		CompoundHandler:  handlers.NewCompoundHandler(reg, orch, queries),
		MetricsHandler:   handlers.NewMetricsHandler(queries),
		HealthHandler:    handlers.NewHealthHandler(version, checkers...),
		RateLimiter:      limiter,
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger,
		Metrics:          appMetrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
		Mode:             ginMode(cfg.Server.Mode),
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return errors.New("http server stopped unexpectedly")
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	logger.Info("api server stopped")
	return nil
}

func provisionTopics(ctx context.Context, cfg config.KafkaConfig, logger logging.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	tm, err := kafka.NewTopicManager(ctx, cfg.Brokers, kafka.SecurityConfigFrom(cfg), logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafka.PipelineTopics(cfg, topicPartitions, topicReplication))
}

func ginMode(mode string) string {
	switch mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

//Personal.AI order the ending
