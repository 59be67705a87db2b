package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/EconSOM/internal/application/analysis"
	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/infrastructure/rendering"
	"github.com/turtacn/EconSOM/pkg/errors"
)

type gridFlags struct {
	profile    string
	rows       int
	cols       int
	iterations int
}

func (g *gridFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&g.profile, "profile", "", "result profile: full|minimal (default from config)")
	cmd.Flags().IntVar(&g.rows, "rows", 0, "map rows (default from config)")
	cmd.Flags().IntVar(&g.cols, "cols", 0, "map columns (default from config)")
	cmd.Flags().IntVar(&g.iterations, "iterations", 0, "training iterations (default from config)")
}

func (g *gridFlags) request() *analysis.AnalyzeRequest {
	return &analysis.AnalyzeRequest{Profile: g.profile, Rows: g.rows, Cols: g.cols, Iterations: g.iterations}
}

// summaryView renders a run summary as a field table.
type summaryView struct{ *run.Summary }

func (v summaryView) TableHeaders() []string { return keyValues{}.TableHeaders() }

func (v summaryView) TableRows() [][]string {
	s := v.Summary
	kv := keyValues{
		"run_id":   s.ID,
		"status":   string(s.Status),
		"profile":  s.Profile,
		"grid":     fmt.Sprintf("%dx%d", s.Rows, s.Cols),
		"duration": (time.Duration(s.DurationMS) * time.Millisecond).String(),
	}
	if s.Succeeded() {
		kv["iterations"] = strconv.Itoa(s.Iterations)
		kv["countries"] = strconv.Itoa(s.Countries)
		kv["indicators"] = strconv.Itoa(s.Indicators)
		kv["quantization_error"] = strconv.FormatFloat(s.QuantizationError, 'f', 4, 64)
		kv["topographic_error"] = strconv.FormatFloat(s.TopographicError, 'f', 4, 64)
		kv["quality"] = qualityColor(s.Quality)
		kv["fingerprint"] = s.Fingerprint
	} else {
		kv["code"] = s.Code
		kv["message"] = s.Message
	}
	return kv.TableRows()
}

func newAnalyzeCmd() *cobra.Command {
	var (
		grid    gridFlags
		payload bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Train a map over the stored observations",
		Long: "analyze runs the whole pipeline in-process and prints the run summary.\n" +
			"With --payload it prints the same envelope GET /api/v1/kohonen/analysis returns.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, c *CLIContext, b *Backend) error {
				if payload {
					env, err := b.Service.Analyze(ctx, grid.request())
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), env)
				}
				return runAnalyze(ctx, cmd, c.Logger, b.Service, grid)
			})
		},
	}
	grid.register(cmd)
	cmd.Flags().BoolVar(&payload, "payload", false, "print the full analysis envelope as JSON")
	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, logger logging.Logger, svc analysis.Service, grid gridFlags) error {
	if err := grid.request().Validate(); err != nil {
		return err
	}
	req := run.NewRequest(run.SourceCLI, grid.profile, grid.rows, grid.cols, grid.iterations)
	logger.Info("starting analysis", logging.String("run_id", req.ID))

	summary, err := svc.Execute(ctx, req)
	if err != nil {
		return err
	}
	if err := PrintResult(cmd, summaryView{summary}); err != nil {
		return err
	}
	if !summary.Succeeded() {
		return errors.New(errors.ErrorCode(summary.Code), summary.Message)
	}
	return nil
}

func newRetrainCmd() *cobra.Command {
	var (
		rows, cols int
		iterations int
	)
	cmd := &cobra.Command{
		Use:   "retrain",
		Short: "Retrain with a new grid and iteration count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &analysis.RetrainRequest{}
			if cmd.Flags().Changed("iterations") {
				req.Iterations = &iterations
			}
			if rows > 0 || cols > 0 {
				req.MapSize = []int{rows, cols}
			}
			return withBackend(cmd, func(ctx context.Context, c *CLIContext, b *Backend) error {
				resp, err := b.Service.Retrain(ctx, req)
				if err != nil {
					return err
				}
				if resp.Status != analysis.StatusSuccess {
					_ = PrintResult(cmd, resp)
					return errors.New(errors.ErrorCode(resp.Code), resp.Message)
				}
				kv := keyValues{
					"run_id":  resp.RunID,
					"status":  resp.Status,
					"quality": qualityColor(resp.Quality),
				}
				if p := resp.NewParameters; p != nil {
					kv["map_size"] = fmt.Sprintf("%dx%d", p.MapSize[0], p.MapSize[1])
					kv["iterations"] = strconv.Itoa(p.Iterations)
				}
				if c.OutputFormat == OutputJSON {
					return PrintResult(cmd, resp)
				}
				return PrintResult(cmd, kv)
			})
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "map rows")
	cmd.Flags().IntVar(&cols, "cols", 0, "map columns")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "training iterations (>= 100)")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "render distance|hit",
		Short:     "Render the distance or hit map as PNG",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(rendering.KindDistance), string(rendering.KindHit)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := rendering.ParseMapKind(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("som_%s_map.png", kind)
			}
			return withBackend(cmd, func(ctx context.Context, c *CLIContext, b *Backend) error {
				png, err := b.Service.Render(ctx, kind)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, png, 0o644); err != nil {
					return errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to write image")
				}
				PrintSuccess(cmd, fmt.Sprintf("wrote %s (%d bytes)", out, len(png)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "f", "", "output file (default som_<kind>_map.png)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var grid gridFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build the XLSX report and upload it to object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, c *CLIContext, b *Backend) error {
				res, err := b.Service.Export(ctx, grid.request())
				if err != nil {
					return err
				}
				if c.OutputFormat == OutputJSON {
					return PrintResult(cmd, res)
				}
				return PrintResult(cmd, keyValues{
					"run_id":     res.RunID,
					"key":        res.Key,
					"size":       strconv.Itoa(res.Size),
					"url":        res.URL,
					"expires_at": res.ExpiresAt.Format(time.RFC3339),
				})
			})
		},
	}
	grid.register(cmd)
	return cmd
}

//Personal.AI order the ending
