// Command worker consumes queued analysis requests from Kafka and runs them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/EconSOM/internal/app"
	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/EconSOM/internal/interfaces/http"
	"github.com/turtacn/EconSOM/internal/interfaces/http/handlers"
	"github.com/turtacn/EconSOM/internal/interfaces/worker"
	"github.com/turtacn/EconSOM/pkg/errors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	concurrency := flag.Int("workers", 0, "number of concurrent handlers (overrides config)")
	flag.Parse()

	opts := []config.Option{config.WithSearchPaths(".", "./configs", "/etc/econsom")}
	if *configPath != "" {
		opts = []config.Option{config.WithConfigPath(*configPath)}
	}
	if *concurrency > 0 {
		opts = append(opts, config.WithOverrides(map[string]interface{}{"worker.concurrency": *concurrency}))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return errors.New(errors.ErrCodeFeatureDisabled, "worker requires kafka.enabled")
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting EconSOM worker",
		logging.String("version", config.Version),
		logging.String("topic", cfg.Kafka.RequestTopic),
		logging.Int("concurrency", cfg.Worker.Concurrency))

	a, err := app.New(ctx, cfg, logger, app.WithServiceName("worker"))
	if err != nil {
		return err
	}
	defer a.Close()

	h := worker.NewHandler(a.Service, a.Locks, a.Metrics, worker.Options{
		Timeout: cfg.Worker.HandlerTimeout,
		LockTTL: cfg.Worker.LockTTL,
	}, logger)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(cfg.Kafka, cfg.Worker), a.Producer, logger)
	if err != nil {
		return err
	}
	consumer.Subscribe(cfg.Kafka.RequestTopic, h.Handle)

	probe := httpserver.NewServer(probeConfig(cfg), probeRouter(a, consumer), logger)
	if err := probe.Listen(); err != nil {
		return err
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(probe.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("draining in-flight messages")
		cerr := consumer.Close()
		if err := probe.Shutdown(context.Background()); err != nil && cerr == nil {
			cerr = err
		}
		return cerr
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", logging.Err(err))
		return err
	}
	logger.Info("worker stopped", logging.Any("handled", consumer.Snapshot()))
	return nil
}

func probeConfig(cfg *config.Config) config.ServerConfig {
	return config.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Worker.HealthPort,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// probeRouter serves /healthz, /readyz and /metrics.  Readiness includes
// the consumer loop.
func probeRouter(a *app.App, consumer *kafka.Consumer) *chi.Mux {
	checkers := append(a.HealthCheckers(), handlers.CheckFunc{
		Component: "consumer",
		Fn: func(context.Context) error {
			if !consumer.Running() {
				return errors.New(errors.ErrCodeServiceUnavailable, "consumer is not running")
			}
			return nil
		},
	})
	health := handlers.NewHealthHandler(config.Version, a.Metrics, checkers...)

	r := chi.NewRouter()
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	if a.Config.Metrics.Enabled {
		r.Handle("/metrics", a.Collector.Handler())
	}
	return r
}

//Personal.AI order the ending
