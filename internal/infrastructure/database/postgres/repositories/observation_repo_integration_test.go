//go:build integration

package repositories_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/infrastructure/database/postgres"
	"github.com/turtacn/EconSOM/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/testutil"
)

// startPostgres launches a PostgreSQL 16 container and returns a migrated
// connection.
func startPostgres(t *testing.T, driver string) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "econsom_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	conn, err := postgres.NewConnection(postgres.PostgresConfig{
		Driver:   driver,
		Host:     host,
		Port:     p,
		Database: "econsom_test",
		Username: "test",
		Password: "test",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.RunMigrations())
	return conn
}

func TestObservationRepo_RoundTrip(t *testing.T) {
	for _, driver := range []string{postgres.DriverPQ, postgres.DriverPGX} {
		t.Run(driver, func(t *testing.T) {
			conn := startPostgres(t, driver)
			repo := repositories.NewPostgresObservationRepo(conn, logging.NewNopLogger())
			ctx := context.Background()

			state, err := conn.MigrationStatus()
			require.NoError(t, err)
			assert.Equal(t, uint(2), state.Version)
			assert.False(t, state.Dirty)

			rows := testutil.EconomicObservations()
			stats, err := repo.ImportObservations(ctx, rows)
			require.NoError(t, err)
			assert.Equal(t, 5, stats.Indicators)
			assert.Equal(t, 1, stats.Skipped)

			// A second import only updates.
			again, err := repo.ImportObservations(ctx, rows)
			require.NoError(t, err)
			assert.Zero(t, again.Inserted)

			got, err := repo.FetchObservations(ctx, observation.Query{MinYear: 2018, Limit: 1000})
			require.NoError(t, err)
			require.NotEmpty(t, got)
			assert.Equal(t, "Country 00", got[0].Country)
			for _, o := range got {
				assert.GreaterOrEqual(t, o.Year, 2018)
			}

			n, err := repo.CountObservations(ctx, observation.Query{MinYear: 2018})
			require.NoError(t, err)
			assert.Equal(t, int64(len(got)), n)

			asm, err := observation.Assemble(got, observation.AssembleOptions{MinYear: 2018})
			require.NoError(t, err)
			assert.Equal(t, 96, asm.Stats.Accepted)

			inds, err := repo.ListIndicators(ctx)
			require.NoError(t, err)
			assert.Len(t, inds, 5)

			require.NoError(t, conn.RollbackMigration(1))
			state, err = conn.MigrationStatus()
			require.NoError(t, err)
			assert.Equal(t, uint(1), state.Version)
		})
	}
}

//Personal.AI order the ending
