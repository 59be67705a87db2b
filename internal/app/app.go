// Package app assembles the infrastructure clients and the analysis service
// shared by the apiserver, worker and somctl binaries.
package app

import (
	"context"
	"database/sql"

	"github.com/turtacn/EconSOM/internal/application/analysis"
	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/infrastructure/database/postgres"
	"github.com/turtacn/EconSOM/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/EconSOM/internal/infrastructure/database/redis"
	"github.com/turtacn/EconSOM/internal/infrastructure/export"
	"github.com/turtacn/EconSOM/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/EconSOM/internal/infrastructure/storage/minio"
	"github.com/turtacn/EconSOM/internal/intelligence/kohonen"
	"github.com/turtacn/EconSOM/internal/interfaces/http/handlers"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// Option adjusts how New builds the infrastructure.
type Option func(*options)

type options struct {
	db        *sql.DB
	service   string
	skipKafka bool
}

// WithDB reuses an open pool instead of dialing PostgreSQL.
func WithDB(db *sql.DB) Option { return func(o *options) { o.db = db } }

// WithServiceName labels the metrics of the running binary.
func WithServiceName(name string) Option { return func(o *options) { o.service = name } }

// WithoutKafka skips the producer even when kafka is enabled, as somctl
// does: local runs publish nothing.
func WithoutKafka() Option { return func(o *options) { o.skipKafka = true } }

// App holds every client a binary needs.  Optional components are nil when
// their section is disabled.
type App struct {
	Config *config.Config
	Logger logging.Logger

	DB           *postgres.Connection
	Observations repositories.ObservationRepository
	Redis        *redis.Client
	Locks        redis.LockFactory
	MinIO        *minio.MinIOClient
	Producer     *kafka.Producer
	Jobs         *kafka.RequestPublisher

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	Service   analysis.Service

	closers []func() error
}

// New connects the configured backends and wires the analysis service.
// On failure everything opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*App, error) {
	o := &options{service: "econsom"}
	for _, opt := range opts {
		opt(o)
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.init(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, o *options) (err error) {
	cfg, logger := a.Config, a.Logger

	a.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics, o.service), logger)
	if err != nil {
		return err
	}
	a.Metrics = prometheus.NewAppMetrics(a.Collector)

	if err = a.initPostgres(o); err != nil {
		return err
	}
	svcOpts := []analysis.Option{analysis.WithMetrics(a.Metrics)}

	if cfg.Redis.Enabled {
		if a.Redis, err = redis.NewClient(redis.FromConfig(cfg.Redis), logger); err != nil {
			return err
		}
		a.closers = append(a.closers, a.Redis.Close)
		a.Locks = redis.NewLockFactory(a.Redis, logger)
		cache := redis.NewRedisCache(a.Redis, logger,
			redis.WithDefaultTTL(cfg.Analysis.RenderCacheTTL),
			redis.WithCacheMetrics(a.Metrics))
		history := redis.NewRunHistory(a.Redis, logger, cfg.Redis.HistorySize, cfg.Redis.HistoryTTL)
		svcOpts = append(svcOpts, analysis.WithCache(cache), analysis.WithHistory(history))
	}

	if cfg.MinIO.Enabled {
		if a.MinIO, err = minio.NewMinIOClient(minio.FromConfig(cfg.MinIO), logger); err != nil {
			return err
		}
		svcOpts = append(svcOpts,
			analysis.WithArtifactStore(minio.NewArtifactRepository(a.MinIO, logger)),
			analysis.WithWorkbookWriter(export.NewWorkbookWriter()))
	}

	if cfg.Kafka.Enabled && !o.skipKafka {
		if err = a.initKafka(ctx); err != nil {
			return err
		}
		svcOpts = append(svcOpts, analysis.WithPublisher(kafka.NewRunPublisher(a.Producer, cfg.Kafka.CompletedTopic)))
	}

	acfg := AnalysisConfig(cfg.Analysis)
	if cfg.MinIO.PresignExpiry > 0 {
		acfg.PresignExpiry = cfg.MinIO.PresignExpiry
	}
	a.Service, err = analysis.NewService(a.Observations, logger, acfg, svcOpts...)
	if err != nil {
		return err
	}
	logger.Info("application wired",
		logging.Bool("redis", a.Redis != nil),
		logging.Bool("minio", a.MinIO != nil),
		logging.Bool("kafka", a.Producer != nil))
	return nil
}

func (a *App) initPostgres(o *options) error {
	if o.db != nil {
		a.DB = postgres.NewConnectionWithDB(o.db, a.Logger)
	} else {
		conn, err := postgres.NewConnection(postgres.FromConfig(a.Config.Database), a.Logger)
		if err != nil {
			return err
		}
		a.DB = conn
	}
	a.closers = append(a.closers, a.DB.Close)
	if a.Config.Database.AutoMigrate {
		if err := a.DB.RunMigrations(); err != nil {
			return err
		}
	}
	a.Observations = repositories.NewPostgresObservationRepo(a.DB, a.Logger)
	return nil
}

func (a *App) initKafka(ctx context.Context) error {
	pcfg := kafka.ProducerConfigFrom(a.Config.Kafka)
	if a.Config.Kafka.AutoCreateTopics {
		tm, err := kafka.NewTopicManager(a.Config.Kafka.Brokers, pcfg.Security, a.Logger)
		if err != nil {
			return err
		}
		err = tm.EnsureTopics(ctx, kafka.PipelineTopics(a.Config.Kafka))
		_ = tm.Close()
		if err != nil {
			return err
		}
	}
	p, err := kafka.NewProducer(pcfg, a.Logger)
	if err != nil {
		return err
	}
	a.Producer = p
	a.closers = append(a.closers, p.Close)
	a.Jobs = kafka.NewRequestPublisher(p, a.Config.Kafka.RequestTopic)
	return nil
}

// JobSubmitter returns the request publisher, or nil when kafka is off so
// the jobs route answers FeatureDisabled.
func (a *App) JobSubmitter() handlers.JobSubmitter {
	if a.Jobs == nil {
		return nil
	}
	return a.Jobs
}

// HealthCheckers lists a probe per connected backend.
func (a *App) HealthCheckers() []handlers.HealthChecker {
	checkers := []handlers.HealthChecker{
		handlers.CheckFunc{Component: "postgres", Fn: a.DB.HealthCheck},
	}
	if a.Redis != nil {
		checkers = append(checkers, handlers.CheckFunc{Component: "redis", Fn: a.Redis.HealthCheck})
	}
	if a.MinIO != nil {
		checkers = append(checkers, handlers.CheckFunc{Component: "minio", Fn: func(ctx context.Context) error {
			st, err := a.MinIO.HealthCheck(ctx)
			if err != nil {
				return err
			}
			if !st.Healthy {
				return errors.New(errors.ErrCodeServiceUnavailable, "minio bucket unavailable")
			}
			return nil
		}})
	}
	return checkers
}

// Close releases the clients in reverse order of creation.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// AnalysisConfig maps the analysis section onto the service configuration.
// Zero fields keep the service defaults; the pointer fields are copied
// whenever they are set, zero included.
func AnalysisConfig(c config.AnalysisConfig) *analysis.Config {
	cfg := analysis.DefaultConfig()
	if c.Profile != "" {
		cfg.Profile = analysis.Profile(c.Profile)
	}
	if c.MinYear != nil {
		cfg.MinYear = *c.MinYear
	}
	if c.FetchLimit != 0 {
		cfg.FetchLimit = c.FetchLimit
	}
	if c.DedupPolicy != "" {
		cfg.Dedup = observation.DedupPolicy(c.DedupPolicy)
	}
	if c.RowCoverage != nil {
		cfg.Matrix.RowCoverage = *c.RowCoverage
	}
	if c.ColumnCoverage != nil {
		cfg.Matrix.ColumnCoverage = *c.ColumnCoverage
	}

	t := &cfg.Train
	setInt(&t.Rows, c.Rows)
	setInt(&t.Cols, c.Cols)
	setInt(&t.Iterations, c.Iterations)
	setInt(&t.MaxIterations, c.MaxIterations)
	if c.Seed != 0 {
		t.Seed = c.Seed
	}
	if c.Sigma != 0 {
		t.Sigma = c.Sigma
	}
	if c.LearningRate != 0 {
		t.LearningRate = c.LearningRate
	}
	if c.DecayFloor != 0 {
		t.DecayFloor = c.DecayFloor
	}
	if c.Selection != "" {
		t.Selection = kohonen.Selection(c.Selection)
	}
	t.TimeBudget = c.TimeBudget

	setInt(&cfg.MaxConcurrent, c.MaxConcurrent)
	setInt(&cfg.SampleSize, c.SampleSize)
	setInt(&cfg.HistoryLimit, c.HistoryLimit)
	if c.RenderCacheTTL != 0 {
		cfg.RenderCacheTTL = c.RenderCacheTTL
	}
	return cfg
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

//Personal.AI order the ending
