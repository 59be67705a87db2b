package app

import (
	"context"

	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/interfaces/cli"
)

// NewCLIBackend is the somctl backend factory.  Runs started from the CLI
// still record history and store exports, but publish no events.
func NewCLIBackend(ctx context.Context, cfg *config.Config, logger logging.Logger) (*cli.Backend, error) {
	a, err := New(ctx, cfg, logger, WithServiceName("somctl"), WithoutKafka())
	if err != nil {
		return nil, err
	}
	return a.Backend(), nil
}

// Backend exposes the app to the CLI commands.
func (a *App) Backend() *cli.Backend {
	return &cli.Backend{
		Service:  a.Service,
		Migrator: a.DB,
		Importer: a.Observations,
		Close:    a.Close,
	}
}

//Personal.AI order the ending
