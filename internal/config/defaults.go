package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBDriver   = "postgres"
	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "econsom"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "econsom:"
	DefaultHistorySize    = 200

	DefaultKafkaBroker     = "localhost:9092"
	DefaultKafkaGroupID    = "econsom-worker"
	DefaultRequestTopic    = "econsom.analysis.requested"
	DefaultCompletedTopic  = "econsom.analysis.completed"
	DefaultDeadLetterTopic = "econsom.dead_letter"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "econsom-artifacts"

	DefaultMetricsPort      = 9091
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "econsom"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 2
	DefaultWorkerHealthPort  = 8081

	DefaultAnalysisProfile = "full"
	DefaultGridSize        = 6
	DefaultIterations      = 500
	DefaultSeed            = 42
	DefaultMinYear         = 2018
	DefaultFetchLimit      = 1000
	DefaultCoverage        = 0.5
	DefaultMaxConcurrent   = 4
)

// ApplyDefaults fills every zero-value field in cfg with the default.
// Fields that have already been set (non-zero values) are left unchanged so
// that explicit configuration always wins.  Booleans are never defaulted.
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
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Training runs inside the request.
		cfg.Server.WriteTimeout = 2 * time.Minute
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 5
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDBDriver
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.StatementTimeout == 0 {
		cfg.Database.StatementTimeout = 30 * time.Second
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.HistorySize == 0 {
		cfg.Redis.HistorySize = DefaultHistorySize
	}
	if cfg.Redis.HistoryTTL == 0 {
		cfg.Redis.HistoryTTL = 7 * 24 * time.Hour
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = "econsom"
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultRequestTopic
	}
	if cfg.Kafka.CompletedTopic == "" {
		cfg.Kafka.CompletedTopic = DefaultCompletedTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultDeadLetterTopic
	}
	if cfg.Kafka.NumPartitions == 0 {
		cfg.Kafka.NumPartitions = 3
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 10 * time.Millisecond
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = time.Hour
	}
	if cfg.MinIO.RetentionDays == 0 {
		cfg.MinIO.RetentionDays = 30
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.HandlerTimeout == 0 {
		cfg.Worker.HandlerTimeout = 5 * time.Minute
	}
	if cfg.Worker.LockTTL == 0 {
		cfg.Worker.LockTTL = 10 * time.Minute
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	applyAnalysisDefaults(&cfg.Analysis)
}

func applyAnalysisDefaults(a *AnalysisConfig) {
	if a.Profile == "" {
		a.Profile = DefaultAnalysisProfile
	}
	if a.Rows == 0 {
		a.Rows = DefaultGridSize
	}
	if a.Cols == 0 {
		a.Cols = DefaultGridSize
	}
	if a.Iterations == 0 {
		a.Iterations = DefaultIterations
	}
	if a.Seed == 0 {
		a.Seed = DefaultSeed
	}
	if a.Sigma == 0 {
		a.Sigma = 1.0
	}
	if a.LearningRate == 0 {
		a.LearningRate = 0.5
	}
	if a.DecayFloor == 0 {
		a.DecayFloor = 0.01
	}
	if a.Selection == "" {
		a.Selection = "cyclic"
	}
	if a.MaxIterations == 0 {
		a.MaxIterations = 100000
	}
	if a.MinYear == nil {
		a.MinYear = intPtr(DefaultMinYear)
	}
	if a.FetchLimit == 0 {
		a.FetchLimit = DefaultFetchLimit
	}
	if a.RowCoverage == nil {
		a.RowCoverage = float64Ptr(DefaultCoverage)
	}
	if a.ColumnCoverage == nil {
		a.ColumnCoverage = float64Ptr(DefaultCoverage)
	}
	if a.DedupPolicy == "" {
		a.DedupPolicy = "latest_last_seen"
	}
	if a.MaxConcurrent == 0 {
		a.MaxConcurrent = DefaultMaxConcurrent
	}
	if a.SampleSize == 0 {
		a.SampleSize = 10
	}
	if a.RenderCacheTTL == 0 {
		a.RenderCacheTTL = 10 * time.Minute
	}
	if a.HistoryLimit == 0 {
		a.HistoryLimit = 20
	}
}

func intPtr(v int) *int { return &v }

func float64Ptr(v float64) *float64 { return &v }

//Personal.AI order the ending
