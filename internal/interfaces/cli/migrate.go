package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/EconSOM/pkg/errors"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the observation store schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				if err := m.RunMigrations(); err != nil {
					return err
				}
				st, err := m.MigrationStatus()
				if err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("schema at version %d", st.Version))
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				st, err := m.MigrationStatus()
				if err != nil {
					return err
				}
				c, _ := GetCLIContext(cmd)
				if c != nil && c.OutputFormat == OutputJSON {
					return PrintResult(cmd, st)
				}
				return PrintResult(cmd, keyValues{
					"version": fmt.Sprintf("%d", st.Version),
					"dirty":   fmt.Sprintf("%t", st.Dirty),
				})
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return errors.InvalidParam("--steps must be >= 1")
			}
			return withMigrator(cmd, func(m Migrator) error {
				if err := m.RollbackMigration(steps); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, status, down)
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(Migrator) error) error {
	return withBackend(cmd, func(_ context.Context, _ *CLIContext, b *Backend) error {
		if b.Migrator == nil {
			return errors.New(errors.ErrCodeFeatureDisabled, "migrations are not available")
		}
		return fn(b.Migrator)
	})
}

//Personal.AI order the ending
