// Package config defines the configuration structures for EconSOM.  No I/O
// or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
)

// Version is the release reported by binaries and the health endpoint.
const Version = "1.0.0"

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// RateLimit is the sustained requests per second allowed per client on
	// training endpoints; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"` // "postgres" (lib/pq) | "pgx"
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
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection parameters.  Redis is optional: when
// disabled, renders are not cached and run history is not kept.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	// HistorySize caps the number of run summaries kept.
	HistorySize int           `mapstructure:"history_size"`
	HistoryTTL  time.Duration `mapstructure:"history_ttl"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Brokers           []string      `mapstructure:"brokers"`
	GroupID           string        `mapstructure:"group_id"`
	ClientID          string        `mapstructure:"client_id"`
	RequestTopic      string        `mapstructure:"request_topic"`
	CompletedTopic    string        `mapstructure:"completed_topic"`
	DeadLetterTopic   string        `mapstructure:"dead_letter_topic"`
	AutoCreateTopics  bool          `mapstructure:"auto_create_topics"`
	NumPartitions     int           `mapstructure:"num_partitions"`
	ReplicationFactor int           `mapstructure:"replication_factor"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BatchTimeout      time.Duration `mapstructure:"batch_timeout"`
	// SASLMechanism is empty, PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	HealthPort     int           `mapstructure:"health_port"`
}

// AnalysisConfig holds the SOM pipeline parameters.  Zero values take the
// reference defaults.
type AnalysisConfig struct {
	Profile string `mapstructure:"profile"` // "full" | "minimal"

	Rows          int           `mapstructure:"rows"`
	Cols          int           `mapstructure:"cols"`
	Iterations    int           `mapstructure:"iterations"`
	Seed          int64         `mapstructure:"seed"`
	Sigma         float64       `mapstructure:"sigma"`
	LearningRate  float64       `mapstructure:"learning_rate"`
	DecayFloor    float64       `mapstructure:"decay_floor"`
	Selection     string        `mapstructure:"selection"` // "cyclic" | "random"
	MaxIterations int           `mapstructure:"max_iterations"`
	TimeBudget    time.Duration `mapstructure:"time_budget"`

	// MinYear, RowCoverage and ColumnCoverage are pointers so that an
	// explicit 0 (no year floor, no coverage filter) survives ApplyDefaults.
	MinYear        *int     `mapstructure:"min_year"`
	FetchLimit     int      `mapstructure:"fetch_limit"`
	RowCoverage    *float64 `mapstructure:"row_coverage"`
	ColumnCoverage *float64 `mapstructure:"column_coverage"`
	DedupPolicy    string   `mapstructure:"dedup_policy"` // "latest_last_seen" | "latest_mean"

	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	SampleSize     int           `mapstructure:"sample_size"`
	RenderCacheTTL time.Duration `mapstructure:"render_cache_ttl"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Every infrastructure component
// and the analysis service read their settings from the relevant sub-struct.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Worker   WorkerConfig      `mapstructure:"worker"`
	Log      logging.LogConfig `mapstructure:"log"`
	Analysis AnalysisConfig    `mapstructure:"analysis"`
}

// NewDefaultConfig returns a Config with every default applied.  It does not
// validate: the database user is still empty.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must be >= 0, got %g", c.Server.RateLimit)
	}

	// Database
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("config: database.driver %q is invalid; expected postgres|pgx", c.Database.Driver)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("config: database.max_open_conns must be >= 1, got %d", c.Database.MaxOpenConns)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		switch c.Kafka.SASLMechanism {
		case "":
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
			if c.Kafka.SASLUsername == "" || c.Kafka.SASLPassword == "" {
				return fmt.Errorf("config: kafka.sasl_username and kafka.sasl_password are required for %s", c.Kafka.SASLMechanism)
			}
		default:
			return fmt.Errorf("config: kafka.sasl_mechanism %q is invalid; expected PLAIN|SCRAM-SHA-256|SCRAM-SHA-512", c.Kafka.SASLMechanism)
		}
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required")
		}
	}

	// Metrics
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("config: metrics.port %d is out of range [1, 65535]", c.Metrics.Port)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return c.Analysis.validate()
}

func (a AnalysisConfig) validate() error {
	switch a.Profile {
	case "full", "minimal":
	default:
		return fmt.Errorf("config: analysis.profile %q is invalid; expected full|minimal", a.Profile)
	}
	if a.Rows < 1 || a.Cols < 1 {
		return fmt.Errorf("config: analysis grid %dx%d must be at least 1x1", a.Rows, a.Cols)
	}
	if a.Iterations < 1 {
		return fmt.Errorf("config: analysis.iterations must be >= 1, got %d", a.Iterations)
	}
	if a.Sigma <= 0 || a.LearningRate <= 0 {
		return fmt.Errorf("config: analysis.sigma and analysis.learning_rate must be positive")
	}
	if a.DecayFloor <= 0 || a.DecayFloor > 1 {
		return fmt.Errorf("config: analysis.decay_floor must be within (0, 1], got %g", a.DecayFloor)
	}
	switch a.Selection {
	case "cyclic", "random":
	default:
		return fmt.Errorf("config: analysis.selection %q is invalid; expected cyclic|random", a.Selection)
	}
	if a.MinYear != nil && *a.MinYear < 0 {
		return fmt.Errorf("config: analysis.min_year must be >= 0, got %d", *a.MinYear)
	}
	for name, c := range map[string]*float64{"row_coverage": a.RowCoverage, "column_coverage": a.ColumnCoverage} {
		if c != nil && (*c < 0 || *c > 1) {
			return fmt.Errorf("config: analysis.%s must be within [0, 1], got %g", name, *c)
		}
	}
	switch a.DedupPolicy {
	case "latest_last_seen", "latest_mean":
	default:
		return fmt.Errorf("config: analysis.dedup_policy %q is invalid; expected latest_last_seen|latest_mean", a.DedupPolicy)
	}
	if a.MaxConcurrent < 1 {
		return fmt.Errorf("config: analysis.max_concurrent must be >= 1, got %d", a.MaxConcurrent)
	}
	return nil
}

//Personal.AI order the ending
