// Command apiserver serves the EconSOM HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/EconSOM/internal/app"
	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/EconSOM/internal/interfaces/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *port)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting EconSOM API server",
		logging.String("version", config.Version),
		logging.String("addr", cfg.Server.Addr()),
		logging.String("mode", cfg.Server.Mode))

	a, err := app.New(ctx, cfg, logger, app.WithServiceName("apiserver"))
	if err != nil {
		return err
	}
	defer a.Close()

	handler, limiter := buildRouter(cfg, a, logger)
	srv := httpserver.NewServer(cfg.Server, handler, logger)
	if err := srv.Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	limiter.StartCleanup(gctx.Done())
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", logging.Err(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

// loadConfig reads the file when given, otherwise searches the usual
// locations and the environment.
func loadConfig(path string, port int) (*config.Config, error) {
	opts := []config.Option{config.WithSearchPaths(".", "./configs", "/etc/econsom")}
	if path != "" {
		opts = []config.Option{config.WithConfigPath(path)}
	}
	if port > 0 {
		opts = append(opts, config.WithOverrides(map[string]interface{}{"server.port": port}))
	}
	return config.Load(opts...)
}

//Personal.AI order the ending
