// Package cli implements somctl, the operator command line: it runs the
// pipeline in-process against the configured stores, manages the schema and
// bulk-loads observations.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/EconSOM/internal/application/analysis"
	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/infrastructure/database/postgres"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/intelligence/kohonen"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputText  = "text"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// Migrator manages the observation schema.
type Migrator interface {
	RunMigrations() error
	MigrationStatus() (postgres.MigrationState, error)
	RollbackMigration(steps int) error
}

// Backend is what commands run against.  Close releases every connection.
type Backend struct {
	Service  analysis.Service
	Migrator Migrator
	Importer observation.Importer
	Close    func() error
}

// BackendFactory connects the stores named in cfg.
type BackendFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Backend, error)

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration

	factory BackendFactory
	backend *Backend
}

// Backend connects on first use.
func (c *CLIContext) Backend(ctx context.Context) (*Backend, error) {
	if c.backend != nil {
		return c.backend, nil
	}
	if c.factory == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "no backend configured")
	}
	b, err := c.factory(ctx, c.Config, c.Logger)
	if err != nil {
		return nil, err
	}
	c.backend = b
	return b, nil
}

func (c *CLIContext) close() error {
	if c.backend == nil || c.backend.Close == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	return err
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand(factory BackendFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "somctl",
		Short: "EconSOM CLI: self-organizing map analysis of economic indicators",
		Long: "somctl trains self-organizing maps over the economic observation store,\n" +
			"renders and exports the results, and manages the store itself.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, factory)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c, err := GetCLIContext(cmd); err == nil {
				return c.close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: search ./, ~/.econsom, /etc/econsom)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputTable, "output format (table, json, text)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "global operation timeout")

	cmd.AddCommand(
		newAnalyzeCmd(),
		newRetrainCmd(),
		newRenderCmd(),
		newExportCmd(),
		newHistoryCmd(),
		newMigrateCmd(),
		newImportCmd(),
	)
	return cmd
}

// persistentPreRun initializes config and logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, factory BackendFactory) error {
	switch opts.OutputFormat {
	case OutputTable, OutputJSON, OutputText:
	default:
		return errors.InvalidParam(fmt.Sprintf("unknown output format %q", opts.OutputFormat))
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		Verbose:      opts.Verbose,
		Timeout:      opts.Timeout,
		factory:      factory,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads configuration with priority: env > file > defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.LoadFromFile(opts.ConfigPath)
	}
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".econsom"))
	}
	dirs = append(dirs, "/etc/econsom")
	return config.Load(config.WithSearchPaths(dirs...))
}

// initLogger logs to stderr so stdout stays parseable.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.InvalidParam("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.InvalidParam("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// withBackend resolves the context and backend and applies the timeout.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, c *CLIContext, b *Backend) error) error {
	c, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	b, err := c.Backend(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, c, b)
}

// Execute is the main entry point for the CLI application.
func Execute(factory BackendFactory) error {
	rootCmd := NewRootCommand(factory)
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

// tableProvider is implemented by results with a tabular form.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := OutputJSON
	if c, err := GetCLIContext(cmd); err == nil {
		format = c.OutputFormat
	}
	switch format {
	case OutputJSON:
		return printJSON(cmd.OutOrStdout(), data)
	case OutputTable:
		if tp, ok := data.(tableProvider); ok {
			renderTable(cmd.OutOrStdout(), tp.TableHeaders(), tp.TableRows())
			return nil
		}
		return printText(cmd.OutOrStdout(), data)
	default:
		return printText(cmd.OutOrStdout(), data)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(w, v)
	case fmt.Stringer:
		fmt.Fprintln(w, v.String())
	case tableProvider:
		for _, row := range v.TableRows() {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
	default:
		return printJSON(w, v)
	}
	return nil
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()
}

// keyValues is a two-column table of sorted keys.
type keyValues map[string]string

func (kv keyValues) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

func (kv keyValues) TableRows() [][]string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, kv[k]})
	}
	return rows
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK:"), msg)
}

// qualityColor highlights the training quality label.
func qualityColor(q string) string {
	switch kohonen.Quality(q) {
	case kohonen.QualityExcellent, kohonen.QualityGood:
		return color.GreenString(q)
	case kohonen.QualityFair:
		return color.YellowString(q)
	case "":
		return "-"
	default:
		return color.RedString(q)
	}
}

//Personal.AI order the ending
