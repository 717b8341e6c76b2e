// Package config defines the configuration structures of the compound
// analysis pipeline. Only plain data types and validation live here; loading
// is in loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP query surface tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second per client, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection parameters for the relational
// store (compounds, jobs, relations).
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	MigrationPath    string        `mapstructure:"migration_path"`
}

// RedisConfig holds parameters for the result document store and the
// collaborator response cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	ResultTTL    time.Duration `mapstructure:"result_ttl"` // 0 keeps result documents forever
}

// KafkaConfig holds queue parameters.
type KafkaConfig struct {
	Brokers           []string      `mapstructure:"brokers"`
	GroupID           string        `mapstructure:"group_id"`
	SubmissionTopic   string        `mapstructure:"submission_topic"`
	VisualizeTopic    string        `mapstructure:"visualize_topic"`
	DeadLetterTopic   string        `mapstructure:"dead_letter_topic"` // empty disables dead-lettering
	MaxRetries        int           `mapstructure:"max_retries"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	MaxWait           time.Duration `mapstructure:"max_wait"`
	SASLUsername      string        `mapstructure:"sasl_username"`
	SASLPassword      string        `mapstructure:"sasl_password"`
	SASLMechanism     string        `mapstructure:"sasl_mechanism"` // "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"
	TLSEnabled        bool          `mapstructure:"tls_enabled"`
	TLSCAFile         string        `mapstructure:"tls_ca_file"`
	ProducerBatchSize int           `mapstructure:"producer_batch_size"`
}

// MinIOConfig holds object storage parameters for result archives.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	RetentionDays int           `mapstructure:"retention_days"` // 0 keeps archives forever
	Enabled       bool          `mapstructure:"enabled"`
}

// ChEMBLConfig holds parameters of the bioactivity / similarity collaborator.
type ChEMBLConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RateLimit        float64       `mapstructure:"rate_limit"` // requests per second
	Burst            int           `mapstructure:"burst"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryWait        time.Duration `mapstructure:"retry_wait"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	BreakerFailRatio float64       `mapstructure:"breaker_fail_ratio"`
	BreakerMinReqs   uint32        `mapstructure:"breaker_min_requests"`
	BreakerOpenFor   time.Duration `mapstructure:"breaker_open_for"`
	PageLimit        int           `mapstructure:"page_limit"`
}

// WorkerConfig holds job processing tunables.
type WorkerConfig struct {
	CompoundConcurrency int           `mapstructure:"compound_concurrency"`
	CollaboratorTimeout time.Duration `mapstructure:"collaborator_timeout"`
	JobTimeout          time.Duration `mapstructure:"job_timeout"`
	ArchiveResults      bool          `mapstructure:"archive_results"`
}

// AnalysisConfig holds the domain parameters of the analysis.
type AnalysisConfig struct {
	DefaultThreshold float64  `mapstructure:"default_threshold"`
	ActivityTypes    []string `mapstructure:"activity_types"`
	AcceptedUnits    []string `mapstructure:"accepted_units"`
	CliffThreshold   float64  `mapstructure:"cliff_threshold"`
	MaxSimilar       int      `mapstructure:"max_similar"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration of every binary.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	ChEMBL   ChEMBLConfig      `mapstructure:"chembl"`
	Worker   WorkerConfig      `mapstructure:"worker"`
	Analysis AnalysisConfig    `mapstructure:"analysis"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Log      logging.LogConfig `mapstructure:"log"`
}

// Validate reports the first invalid setting. It expects ApplyDefaults to
// have run.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database.db_name is required")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) exceeds max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must contain at least one broker")
	}
	if c.Kafka.SubmissionTopic == "" || c.Kafka.VisualizeTopic == "" {
		return fmt.Errorf("kafka.submission_topic and kafka.visualize_topic are required")
	}
	switch strings.ToUpper(c.Kafka.SASLMechanism) {
	case "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
	default:
		return fmt.Errorf("kafka.sasl_mechanism %q is not supported", c.Kafka.SASLMechanism)
	}

	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		return fmt.Errorf("minio.endpoint and minio.bucket are required when minio is enabled")
	}

	if c.ChEMBL.BaseURL == "" {
		return fmt.Errorf("chembl.base_url is required")
	}
	if c.ChEMBL.BreakerFailRatio <= 0 || c.ChEMBL.BreakerFailRatio > 1 {
		return fmt.Errorf("chembl.breaker_fail_ratio must be in (0,1], got %v", c.ChEMBL.BreakerFailRatio)
	}

	if c.Worker.CompoundConcurrency < 1 {
		return fmt.Errorf("worker.compound_concurrency must be >= 1, got %d", c.Worker.CompoundConcurrency)
	}

	if c.Analysis.DefaultThreshold < 0 || c.Analysis.DefaultThreshold > 100 {
		return fmt.Errorf("analysis.default_threshold must be in 0..100, got %v", c.Analysis.DefaultThreshold)
	}
	if len(c.Analysis.ActivityTypes) == 0 {
		return fmt.Errorf("analysis.activity_types must not be empty")
	}
	if c.Analysis.CliffThreshold <= 0 {
		return fmt.Errorf("analysis.cliff_threshold must be positive, got %v", c.Analysis.CliffThreshold)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}
	return nil
}

//Personal.AI order the ending
