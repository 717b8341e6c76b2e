package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default values
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second
	DefaultServerRateBurst       = 20

	DefaultDBHost             = "localhost"
	DefaultDBPort             = 5432
	DefaultDBUser             = "postgres"
	DefaultDBName             = "compound_analysis"
	DefaultDBSSLMode          = "disable"
	DefaultDBMaxOpenConns     = 25
	DefaultDBMaxIdleConns     = 10
	DefaultDBConnMaxLifetime  = 30 * time.Minute
	DefaultDBConnMaxIdleTime  = 5 * time.Minute
	DefaultDBStatementTimeout = 30 * time.Second
	DefaultDBMigrationPath    = "migrations"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 20
	DefaultRedisKeyPrefix = "cpda:"
	DefaultRedisTimeout   = 3 * time.Second

	DefaultKafkaBroker          = "localhost:9092"
	DefaultKafkaGroupID         = "compound-analysis-workers"
	DefaultKafkaSubmissionTopic = "compound.analysis.requested"
	DefaultKafkaVisualizeTopic  = "compound.analysis.visualization-ready"
	DefaultKafkaSessionTimeout  = 30 * time.Second
	DefaultKafkaMaxWait         = 500 * time.Millisecond
	DefaultKafkaBatchSize       = 100

	DefaultMinIOEndpoint      = "localhost:9000"
	DefaultMinIOBucket        = "compound-analysis"
	DefaultMinIORegion        = "us-east-1"
	DefaultMinIOPresignExpiry = 15 * time.Minute

	DefaultChEMBLBaseURL          = "https://www.ebi.ac.uk/chembl/api/data"
	DefaultChEMBLTimeout          = 30 * time.Second
	DefaultChEMBLRateLimit        = 5.0
	DefaultChEMBLBurst            = 5
	DefaultChEMBLMaxRetries       = 3
	DefaultChEMBLRetryWait        = 500 * time.Millisecond
	DefaultChEMBLCacheTTL         = 24 * time.Hour
	DefaultChEMBLBreakerFailRatio = 0.6
	DefaultChEMBLBreakerMinReqs   = 10
	DefaultChEMBLBreakerOpenFor   = 30 * time.Second
	DefaultChEMBLPageLimit        = 1000

	DefaultWorkerCompoundConcurrency = 5
	DefaultWorkerCollaboratorTimeout = 30 * time.Second
	DefaultWorkerJobTimeout          = 30 * time.Minute

	DefaultAnalysisThreshold      = 80.0
	DefaultAnalysisCliffThreshold = 1.0
	DefaultAnalysisMaxSimilar     = 100

	DefaultMetricsNamespace = "cpda"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultActivityTypes are the bioactivity standard types fetched per compound.
var DefaultActivityTypes = []string{"IC50", "EC50", "Ki", "Kd", "AC50", "GI50", "MIC"}

// DefaultAcceptedUnits are the standard units whose values are used for metrics.
var DefaultAcceptedUnits = []string{"nM"}

// ApplyDefaults fills every zero-value field in cfg. Explicit settings win.
// Boolean switches are defaulted through viper in loader.go because their zero
// value is meaningful.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = DefaultServerRateBurst
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDBConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = DefaultDBConnMaxIdleTime
	}
	if cfg.Database.StatementTimeout == 0 {
		cfg.Database.StatementTimeout = DefaultDBStatementTimeout
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultDBMigrationPath
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.SubmissionTopic == "" {
		cfg.Kafka.SubmissionTopic = DefaultKafkaSubmissionTopic
	}
	if cfg.Kafka.VisualizeTopic == "" {
		cfg.Kafka.VisualizeTopic = DefaultKafkaVisualizeTopic
	}
	if cfg.Kafka.SessionTimeout == 0 {
		cfg.Kafka.SessionTimeout = DefaultKafkaSessionTimeout
	}
	if cfg.Kafka.MaxWait == 0 {
		cfg.Kafka.MaxWait = DefaultKafkaMaxWait
	}
	if cfg.Kafka.ProducerBatchSize == 0 {
		cfg.Kafka.ProducerBatchSize = DefaultKafkaBatchSize
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Region == "" {
		cfg.MinIO.Region = DefaultMinIORegion
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = DefaultMinIOPresignExpiry
	}

	// ── ChEMBL ────────────────────────────────────────────────────────────────
	if cfg.ChEMBL.BaseURL == "" {
		cfg.ChEMBL.BaseURL = DefaultChEMBLBaseURL
	}
	if cfg.ChEMBL.Timeout == 0 {
		cfg.ChEMBL.Timeout = DefaultChEMBLTimeout
	}
	if cfg.ChEMBL.RateLimit == 0 {
		cfg.ChEMBL.RateLimit = DefaultChEMBLRateLimit
	}
	if cfg.ChEMBL.Burst == 0 {
		cfg.ChEMBL.Burst = DefaultChEMBLBurst
	}
	if cfg.ChEMBL.MaxRetries == 0 {
		cfg.ChEMBL.MaxRetries = DefaultChEMBLMaxRetries
	}
	if cfg.ChEMBL.RetryWait == 0 {
		cfg.ChEMBL.RetryWait = DefaultChEMBLRetryWait
	}
	if cfg.ChEMBL.CacheTTL == 0 {
		cfg.ChEMBL.CacheTTL = DefaultChEMBLCacheTTL
	}
	if cfg.ChEMBL.BreakerFailRatio == 0 {
		cfg.ChEMBL.BreakerFailRatio = DefaultChEMBLBreakerFailRatio
	}
	if cfg.ChEMBL.BreakerMinReqs == 0 {
		cfg.ChEMBL.BreakerMinReqs = DefaultChEMBLBreakerMinReqs
	}
	if cfg.ChEMBL.BreakerOpenFor == 0 {
		cfg.ChEMBL.BreakerOpenFor = DefaultChEMBLBreakerOpenFor
	}
	if cfg.ChEMBL.PageLimit == 0 {
		cfg.ChEMBL.PageLimit = DefaultChEMBLPageLimit
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.CompoundConcurrency == 0 {
		cfg.Worker.CompoundConcurrency = DefaultWorkerCompoundConcurrency
	}
	if cfg.Worker.CollaboratorTimeout == 0 {
		cfg.Worker.CollaboratorTimeout = DefaultWorkerCollaboratorTimeout
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = DefaultWorkerJobTimeout
	}

	// ── Analysis ──────────────────────────────────────────────────────────────
	if cfg.Analysis.DefaultThreshold == 0 {
		cfg.Analysis.DefaultThreshold = DefaultAnalysisThreshold
	}
	if len(cfg.Analysis.ActivityTypes) == 0 {
		cfg.Analysis.ActivityTypes = append([]string(nil), DefaultActivityTypes...)
	}
	if len(cfg.Analysis.AcceptedUnits) == 0 {
		cfg.Analysis.AcceptedUnits = append([]string(nil), DefaultAcceptedUnits...)
	}
	if cfg.Analysis.CliffThreshold == 0 {
		cfg.Analysis.CliffThreshold = DefaultAnalysisCliffThreshold
	}
	if cfg.Analysis.MaxSimilar == 0 {
		cfg.Analysis.MaxSimilar = DefaultAnalysisMaxSimilar
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending
