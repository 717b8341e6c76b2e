package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "CPDA"

// newViper builds a Viper instance with YAML file type, CPDA_ env prefix and
// a "." → "_" key replacer so "database.host" resolves to CPDA_DATABASE_HOST.
// Every known key is registered with a default so AutomaticEnv can override
// keys that are absent from the file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)
	return v
}

func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", DefaultServerRateBurst)

	v.SetDefault("database.host", DefaultDBHost)
	v.SetDefault("database.port", DefaultDBPort)
	v.SetDefault("database.user", DefaultDBUser)
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", DefaultDBName)
	v.SetDefault("database.ssl_mode", DefaultDBSSLMode)
	v.SetDefault("database.migration_path", DefaultDBMigrationPath)

	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", DefaultRedisKeyPrefix)
	v.SetDefault("redis.result_ttl", 0)

	v.SetDefault("kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("kafka.group_id", DefaultKafkaGroupID)
	v.SetDefault("kafka.submission_topic", DefaultKafkaSubmissionTopic)
	v.SetDefault("kafka.visualize_topic", DefaultKafkaVisualizeTopic)
	v.SetDefault("kafka.dead_letter_topic", "")
	v.SetDefault("kafka.max_retries", 0)
	v.SetDefault("kafka.sasl_username", "")
	v.SetDefault("kafka.sasl_password", "")
	v.SetDefault("kafka.sasl_mechanism", "")
	v.SetDefault("kafka.tls_enabled", false)
	v.SetDefault("kafka.tls_ca_file", "")

	v.SetDefault("minio.enabled", true)
	v.SetDefault("minio.endpoint", DefaultMinIOEndpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", DefaultMinIOBucket)

	v.SetDefault("chembl.base_url", DefaultChEMBLBaseURL)
	v.SetDefault("chembl.rate_limit", DefaultChEMBLRateLimit)
	v.SetDefault("chembl.cache_ttl", DefaultChEMBLCacheTTL)

	v.SetDefault("worker.compound_concurrency", DefaultWorkerCompoundConcurrency)
	v.SetDefault("worker.collaborator_timeout", DefaultWorkerCollaboratorTimeout)
	v.SetDefault("worker.archive_results", true)

	v.SetDefault("analysis.default_threshold", DefaultAnalysisThreshold)
	v.SetDefault("analysis.activity_types", DefaultActivityTypes)
	v.SetDefault("analysis.cliff_threshold", DefaultAnalysisCliffThreshold)
	v.SetDefault("analysis.max_similar", DefaultAnalysisMaxSimilar)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// Load reads the YAML file at configPath, merges CPDA_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from CPDA_<SECTION>_<FIELD> environment
// variables and defaults, with no file.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOptional loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise. The CLI uses it so a config file stays optional.
func LoadOptional(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and hands the new
// Config to onChange. Invalid revisions are logged and skipped. Callers apply
// only the settings that are safe to change at runtime (log level).
func Watch(configPath string, log logging.Logger, onChange func(*Config)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			log.Warn("ignoring invalid configuration change",
				logging.String("file", e.Name), logging.Err(err))
			return
		}
		log.Info("configuration reloaded", logging.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad panics when Load fails. For use in main().
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
