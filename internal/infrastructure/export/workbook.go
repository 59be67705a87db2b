// Package export writes finished analyses to spreadsheet workbooks.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/turtacn/EconSOM/internal/application/analysis"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetRegional    = "Regional"
	SheetClusters    = "Clusters"
	SheetDistanceMap = "Distance Map"
	SheetHitMap      = "Hit Map"
)

const (
	nameColumnWidth  = 24
	valueColumnWidth = 14
)

// WorkbookWriter renders reports as .xlsx files.
type WorkbookWriter struct{}

// NewWorkbookWriter returns a writer.
func NewWorkbookWriter() *WorkbookWriter { return &WorkbookWriter{} }

// WriteWorkbook builds the five report sheets and returns the file bytes.
func (w *WorkbookWriter) WriteWorkbook(report *analysis.Report) ([]byte, error) {
	if report == nil || report.Result == nil {
		return nil, errors.New(errors.ErrCodeExportFailed, "nothing to export").WithDetail("report has no result")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, wrap(err, SheetSummary)
	}
	for _, name := range []string{SheetRegional, SheetClusters, SheetDistanceMap, SheetHitMap} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, wrap(err, name)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, wrap(err, "style")
	}
	b := &book{f: f, header: header}

	b.summary(report)
	b.regional(report.Result)
	b.clusters(report.Result)
	b.grid(SheetDistanceMap, len(report.Result.SOMAnalysis.DistanceMap), func(r int) []interface{} {
		row := report.Result.SOMAnalysis.DistanceMap[r]
		out := make([]interface{}, len(row))
		for c, v := range row {
			out[c] = v
		}
		return out
	})
	b.grid(SheetHitMap, len(report.Result.SOMAnalysis.HitMap), func(r int) []interface{} {
		row := report.Result.SOMAnalysis.HitMap[r]
		out := make([]interface{}, len(row))
		for c, v := range row {
			out[c] = v
		}
		return out
	})
	if b.err != nil {
		return nil, b.err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, wrap(err, "write")
	}
	return buf.Bytes(), nil
}

// book accumulates the first write error so sheet builders stay linear.
type book struct {
	f      *excelize.File
	header int
	err    error
}

func (b *book) row(sheet string, r int, values []interface{}) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err == nil {
		err = b.f.SetSheetRow(sheet, cell, &values)
	}
	if err != nil {
		b.err = wrap(err, sheet)
	}
}

func (b *book) headerRow(sheet string, r int, names []string) {
	values := make([]interface{}, len(names))
	for i, n := range names {
		values[i] = n
	}
	b.row(sheet, r, values)
	if b.err != nil || len(names) == 0 {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, r)
	last, _ := excelize.CoordinatesToCellName(len(names), r)
	if err := b.f.SetCellStyle(sheet, first, last, b.header); err != nil {
		b.err = wrap(err, sheet)
	}
}

func (b *book) widths(sheet string, cols int) {
	if b.err != nil {
		return
	}
	if err := b.f.SetColWidth(sheet, "A", "A", nameColumnWidth); err != nil {
		b.err = wrap(err, sheet)
		return
	}
	if cols > 1 {
		last, _ := excelize.ColumnNumberToName(cols)
		if err := b.f.SetColWidth(sheet, "B", last, valueColumnWidth); err != nil {
			b.err = wrap(err, sheet)
		}
	}
}

func (b *book) summary(rep *analysis.Report) {
	res := rep.Result
	s := res.Summary
	rows := [][]interface{}{
		{"Run", rep.RunID},
		{"Generated", rep.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Profile", string(rep.Profile)},
		{"Seed", rep.Seed},
		{"Map size", fmt.Sprintf("%dx%d", res.SOMAnalysis.MapSize[0], res.SOMAnalysis.MapSize[1])},
		{"Iterations", res.SOMAnalysis.TrainingIterations},
		{"Countries", s.TotalCountries},
		{"Indicators", s.TotalIndicators},
		{"Data coverage", s.DataCoverage},
		{"Imputed cells", s.ImputedCells},
		{"Clusters found", s.ClustersFound},
		{"Quantization error", res.SOMAnalysis.QuantizationError},
		{"Topographic error", res.SOMAnalysis.TopographicError},
		{"Training quality", s.TrainingQuality},
		{"Dropped countries", strings.Join(s.DroppedCountries, ", ")},
		{"Dropped indicators", strings.Join(s.DroppedIndicators, ", ")},
	}
	b.headerRow(SheetSummary, 1, []string{"Field", "Value"})
	for i, r := range rows {
		b.row(SheetSummary, i+2, r)
	}
	b.widths(SheetSummary, 2)
}

func (b *book) regional(res *analysis.AnalysisResult) {
	cols := append([]string{"Country", "Row", "Col", "Cluster"}, res.Indicators...)
	b.headerRow(SheetRegional, 1, cols)
	for i, e := range res.RegionalData {
		values := []interface{}{e.Country, e.SOMPosition[0], e.SOMPosition[1], e.ClusterID}
		for _, ind := range res.Indicators {
			values = append(values, e.Indicators[ind])
		}
		b.row(SheetRegional, i+2, values)
	}
	b.widths(SheetRegional, len(cols))
}

// clusters writes one row per non-empty cell, ordered by cluster id.
// Averages with no observed value are left blank.
func (b *book) clusters(res *analysis.AnalysisResult) {
	cols := append([]string{"Cluster", "Row", "Col", "Size", "Countries"}, res.Indicators...)
	b.headerRow(SheetClusters, 1, cols)

	stats := make([]analysis.ClusterStats, 0, len(res.ClusterStats))
	for _, st := range res.ClusterStats {
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ClusterID < stats[j].ClusterID })

	for i, st := range stats {
		values := []interface{}{st.ClusterID, st.Position[0], st.Position[1], st.Size, strings.Join(st.Countries, ", ")}
		for _, ind := range res.Indicators {
			if avg := st.AvgIndicators[ind]; avg != nil {
				values = append(values, *avg)
			} else {
				values = append(values, nil)
			}
		}
		b.row(SheetClusters, i+2, values)
	}
	b.widths(SheetClusters, len(cols))
}

// grid writes a [row][col] map with a header row of column indices.
func (b *book) grid(sheet string, rows int, row func(r int) []interface{}) {
	if rows == 0 {
		return
	}
	width := len(row(0))
	names := make([]string, width+1)
	names[0] = "row \\ col"
	for c := 0; c < width; c++ {
		names[c+1] = fmt.Sprint(c)
	}
	b.headerRow(sheet, 1, names)
	for r := 0; r < rows; r++ {
		b.row(sheet, r+2, append([]interface{}{r}, row(r)...))
	}
}

func wrap(err error, where string) error {
	return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to build workbook").WithDetail(where)
}

//Personal.AI order the ending
