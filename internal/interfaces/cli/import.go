package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// importColumns are the recognised header names.  country, indicator_name,
// year and value are required.
var importColumns = []string{"country", "indicator_name", "year", "value", "unit", "category"}

// parsedRows is the result of reading an import file.
type parsedRows struct {
	Rows    []observation.Observation
	Skipped int
}

func newImportCmd() *cobra.Command {
	var (
		batch  int
		dryRun bool
		sheet  string
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Bulk-load observations from a CSV or XLSX file",
		Long: "import upserts rows on (indicator, country, year).  The first row is a header\n" +
			"naming the columns country, indicator_name, year, value and optionally unit and\n" +
			"category.  Values are stored verbatim; the pipeline decides what is numeric.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if batch < 1 {
				return errors.InvalidParam("--batch must be >= 1")
			}
			parsed, err := readObservationFile(args[0], sheet)
			if err != nil {
				return err
			}
			if dryRun {
				return PrintResult(cmd, keyValues{
					"rows":    strconv.Itoa(len(parsed.Rows)),
					"skipped": strconv.Itoa(parsed.Skipped),
				})
			}
			return withBackend(cmd, func(ctx context.Context, c *CLIContext, b *Backend) error {
				if b.Importer == nil {
					return errors.New(errors.ErrCodeFeatureDisabled, "import is not available")
				}
				total, err := importBatches(ctx, b.Importer, parsed.Rows, batch, c.Logger)
				if err != nil {
					return err
				}
				total.Skipped += parsed.Skipped
				if c.OutputFormat == OutputJSON {
					return PrintResult(cmd, total)
				}
				return PrintResult(cmd, keyValues{
					"indicators": strconv.Itoa(total.Indicators),
					"inserted":   strconv.Itoa(total.Inserted),
					"updated":    strconv.Itoa(total.Updated),
					"skipped":    strconv.Itoa(total.Skipped),
				})
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 500, "rows per transaction")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the file without writing")
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet to read from an XLSX file (default: first)")
	return cmd
}

// importBatches writes rows in chunks and sums the stats.  Indicators is the
// largest per-batch count, since batches share indicators.
func importBatches(ctx context.Context, imp observation.Importer, rows []observation.Observation, size int, logger logging.Logger) (*observation.ImportStats, error) {
	total := &observation.ImportStats{}
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		st, err := imp.ImportObservations(ctx, rows[start:end])
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("import failed at row %d", start+1))
		}
		total.Indicators = max(total.Indicators, st.Indicators)
		total.Inserted += st.Inserted
		total.Updated += st.Updated
		total.Skipped += st.Skipped
		logger.Debug("imported batch", logging.Int("from", start), logging.Int("to", end))
	}
	return total, nil
}

// readObservationFile dispatches on the file extension.
func readObservationFile(path, sheet string) (*parsedRows, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.InvalidParam("cannot open import file").WithDetail(err.Error())
		}
		defer f.Close()
		return readCSV(f)
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, errors.InvalidParam("cannot open workbook").WithDetail(err.Error())
		}
		defer f.Close()
		return readWorkbook(f, sheet)
	default:
		return nil, errors.InvalidParam(fmt.Sprintf("unsupported import file %q; expected .csv or .xlsx", filepath.Base(path)))
	}
}

func readCSV(r io.Reader) (*parsedRows, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.New(errors.ErrCodeDataSourceParseError, "malformed CSV").WithDetail(err.Error())
	}
	return parseRecords(records)
}

func readWorkbook(f *excelize.File, sheet string) (*parsedRows, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.InvalidParam("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.InvalidParam(fmt.Sprintf("cannot read sheet %q", sheet)).WithDetail(err.Error())
	}
	return parseRecords(records)
}

// parseRecords maps the header row to columns and converts the rest.  Rows
// without a country, indicator or integer year are skipped.
func parseRecords(records [][]string) (*parsedRows, error) {
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyData, "import file is empty")
	}
	idx := make(map[string]int, len(importColumns))
	for i, h := range records[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range importColumns[:4] {
		if _, ok := idx[required]; !ok {
			return nil, errors.InvalidParam(fmt.Sprintf("missing column %q", required))
		}
	}

	cell := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := &parsedRows{Rows: make([]observation.Observation, 0, len(records)-1)}
	for _, rec := range records[1:] {
		country, indicator := cell(rec, "country"), cell(rec, "indicator_name")
		year, err := strconv.Atoi(cell(rec, "year"))
		if country == "" || indicator == "" || err != nil {
			out.Skipped++
			continue
		}
		out.Rows = append(out.Rows, observation.Observation{
			Country:       country,
			IndicatorName: indicator,
			Year:          year,
			Value:         cell(rec, "value"),
			Unit:          cell(rec, "unit"),
			Category:      cell(rec, "category"),
		})
	}
	return out, nil
}

//Personal.AI order the ending
