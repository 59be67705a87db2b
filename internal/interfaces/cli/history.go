package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/EconSOM/internal/domain/run"
)

// historyView lists run summaries one per row.
type historyView []*run.Summary

func (h historyView) TableHeaders() []string {
	return []string{"RUN", "STARTED", "SOURCE", "PROFILE", "GRID", "STATUS", "QE", "TE", "QUALITY"}
}

func (h historyView) TableRows() [][]string {
	rows := make([][]string, 0, len(h))
	for _, s := range h {
		qe, te := "-", "-"
		status := string(s.Status)
		if s.Succeeded() {
			qe = strconv.FormatFloat(s.QuantizationError, 'f', 4, 64)
			te = strconv.FormatFloat(s.TopographicError, 'f', 4, 64)
		} else if s.Code != "" {
			status = fmt.Sprintf("%s (%s)", s.Status, s.Code)
		}
		rows = append(rows, []string{
			s.ID,
			s.StartedAt.Format("2006-01-02 15:04:05"),
			string(s.Source),
			s.Profile,
			fmt.Sprintf("%dx%d", s.Rows, s.Cols),
			status,
			qe,
			te,
			qualityColor(s.Quality),
		})
	}
	return rows
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analysis runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, c *CLIContext, b *Backend) error {
				runs, err := b.Service.History(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 && c.OutputFormat != OutputJSON {
					fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
					return nil
				}
				if runs == nil {
					runs = []*run.Summary{}
				}
				return PrintResult(cmd, historyView(runs))
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

//Personal.AI order the ending
