package analysis

import (
	"time"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/intelligence/kohonen"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ============================================================================
// Envelopes
// ============================================================================

// Envelope is the transport shape of every analysis response.  Data is
// already normalized.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Succeeded reports whether the envelope carries data.
func (e *Envelope) Succeeded() bool { return e != nil && e.Status == StatusSuccess }

func successEnvelope(runID string, data any) (*Envelope, error) {
	clean, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{Status: StatusSuccess, RunID: runID, Data: clean}, nil
}

// ErrorEnvelope renders err as {status:"error", message, code, details}.
func ErrorEnvelope(err error) *Envelope {
	env := &Envelope{Status: StatusError, Message: err.Error()}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		env.Message = appErr.Message
		env.Code = appErr.Code.String()
		env.Details = appErr.Detail
	}
	return env
}

// RetrainParameters echoes the parameters a retrain used.
type RetrainParameters struct {
	MapSize    [2]int `json:"map_size"`
	Iterations int    `json:"iterations"`
}

// RetrainResponse confirms a retrain.
type RetrainResponse struct {
	Status        string             `json:"status"`
	Message       string             `json:"message"`
	Code          string             `json:"code,omitempty"`
	Details       string             `json:"details,omitempty"`
	RunID         string             `json:"run_id,omitempty"`
	NewParameters *RetrainParameters `json:"new_parameters,omitempty"`
	Quality       string             `json:"training_quality,omitempty"`
}

// VisualizationResponse carries a rendered map as a data URI.
type VisualizationResponse struct {
	Status  string `json:"status"`
	Image   string `json:"image,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// HealthReport describes data availability.
type HealthReport struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	DataAvailable bool   `json:"data_available"`
	DataCount     int64  `json:"data_count"`
	Version       string `json:"version"`
}

// ExportResult points at a stored report.
type ExportResult struct {
	Status    string    `json:"status"`
	RunID     string    `json:"run_id"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ============================================================================
// Analysis result
// ============================================================================

// SOMAnalysis holds the map-level outputs.  Maps are indexed [row][col].
type SOMAnalysis struct {
	DistanceMap        [][]float64 `json:"distance_map"`
	HitMap             [][]int     `json:"hit_map"`
	MapSize            [2]int      `json:"map_size"`
	TrainingIterations int         `json:"training_iterations"`
	QuantizationError  float64     `json:"quantization_error"`
	TopographicError   float64     `json:"topographic_error"`
	TrainingQuality    string      `json:"training_quality"`
}

// RegionalEntry places one country on the map.  Indicators holds the
// country's values after imputation.
type RegionalEntry struct {
	Country     string             `json:"country"`
	SOMPosition [2]int             `json:"som_position"`
	ClusterID   int                `json:"cluster_id"`
	Indicators  map[string]float64 `json:"indicators"`
}

// ClusterMember is a country inside a cluster.
type ClusterMember struct {
	Country    string             `json:"country"`
	Position   [2]int             `json:"position"`
	Indicators map[string]float64 `json:"indicators"`
}

// ClusterStats aggregates one non-empty cell.
type ClusterStats struct {
	ClusterID     int                 `json:"cluster_id"`
	Position      [2]int              `json:"position"`
	Size          int                 `json:"size"`
	Countries     []string            `json:"countries"`
	AvgIndicators map[string]*float64 `json:"avg_indicators"`
}

// Summary is the run-level headline.
type Summary struct {
	TotalCountries    int                       `json:"total_countries"`
	TotalIndicators   int                       `json:"total_indicators"`
	DataCoverage      int                       `json:"data_coverage"`
	TrainingQuality   string                    `json:"training_quality"`
	ClustersFound     int                       `json:"clusters_found"`
	ImputedCells      int                       `json:"imputed_cells"`
	DroppedCountries  []string                  `json:"dropped_countries"`
	DroppedIndicators []string                  `json:"dropped_indicators"`
	Assembly          observation.AssemblyStats `json:"assembly"`
}

// AnalysisResult is the full profile payload.  Clusters and ClusterStats
// are keyed "row_col".
type AnalysisResult struct {
	SOMAnalysis  SOMAnalysis                `json:"som_analysis"`
	RegionalData []RegionalEntry            `json:"regional_data"`
	Clusters     map[string][]ClusterMember `json:"clusters"`
	ClusterStats map[string]ClusterStats    `json:"cluster_stats"`
	Indicators   []string                   `json:"indicators"`
	Countries    []string                   `json:"countries"`
	Summary      Summary                    `json:"summary"`
}

// MinimalSummary is the minimal profile headline.
type MinimalSummary struct {
	TotalCountries    int     `json:"total_countries"`
	TotalIndicators   int     `json:"total_indicators"`
	DataCoverage      int     `json:"data_coverage"`
	SOMSize           [2]int  `json:"som_size"`
	ClustersFound     int     `json:"clusters_found"`
	QuantizationError float64 `json:"quantization_error"`
	TopographicError  float64 `json:"topographic_error"`
	TrainingQuality   string  `json:"training_quality"`
}

// MinimalResult is the minimal profile payload: stats plus a sample of the
// axes.
type MinimalResult struct {
	SummaryStats MinimalSummary `json:"summary_stats"`
	Countries    []string       `json:"countries"`
	Indicators   []string       `json:"indicators"`
	MapSize      [2]int         `json:"map_size"`
}

// Report bundles a result with its run parameters for export.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Profile     Profile
	Seed        int64
	Result      *AnalysisResult
}

// BuildResult flattens a trained map, its analysis and inputs into the full
// response payload.
func BuildResult(x *kohonen.Matrix, m *kohonen.Map, a *kohonen.Analysis, asm *observation.Assembly) *AnalysisResult {
	res := &AnalysisResult{
		SOMAnalysis: SOMAnalysis{
			DistanceMap:        a.DistanceMap,
			HitMap:             a.HitMap,
			MapSize:            [2]int{m.Rows, m.Cols},
			TrainingIterations: m.Iterations,
			QuantizationError:  a.QuantizationError,
			TopographicError:   a.TopographicError,
			TrainingQuality:    string(a.Quality),
		},
		RegionalData: make([]RegionalEntry, len(a.Assignments)),
		Clusters:     make(map[string][]ClusterMember, len(a.Clusters)),
		ClusterStats: make(map[string]ClusterStats, len(a.Clusters)),
		Indicators:   append([]string(nil), x.Indicators...),
		Countries:    append([]string(nil), x.Countries...),
		Summary: Summary{
			TotalCountries:    x.Rows(),
			TotalIndicators:   x.Cols(),
			DataCoverage:      x.Rows() * x.Cols(),
			TrainingQuality:   string(a.Quality),
			ClustersFound:     len(a.Clusters),
			ImputedCells:      x.ImputedCells(),
			DroppedCountries:  x.DroppedCountries,
			DroppedIndicators: x.DroppedIndicators,
		},
	}
	if asm != nil {
		res.Summary.Assembly = asm.Stats
	}

	indicatorsOf := func(i int) map[string]float64 {
		out := make(map[string]float64, x.Cols())
		for j, name := range x.Indicators {
			out[name] = x.Raw[i][j]
		}
		return out
	}

	for i, as := range a.Assignments {
		res.RegionalData[i] = RegionalEntry{
			Country:     as.Country,
			SOMPosition: [2]int{as.Row, as.Col},
			ClusterID:   as.ClusterID,
			Indicators:  indicatorsOf(i),
		}
	}

	for _, cl := range a.Clusters {
		pos := [2]int{cl.Row, cl.Col}
		members := make([]ClusterMember, len(cl.Members))
		for k, i := range cl.Members {
			members[k] = ClusterMember{Country: x.Countries[i], Position: pos, Indicators: indicatorsOf(i)}
		}
		res.Clusters[cl.Key()] = members
		res.ClusterStats[cl.Key()] = ClusterStats{
			ClusterID:     cl.ID,
			Position:      pos,
			Size:          cl.Size(),
			Countries:     cl.Countries,
			AvgIndicators: cl.AvgIndicators,
		}
	}

	return res
}

// BuildMinimal derives the minimal profile payload from a full result,
// keeping at most sample countries and indicators.
func BuildMinimal(res *AnalysisResult, sample int) *MinimalResult {
	return &MinimalResult{
		SummaryStats: MinimalSummary{
			TotalCountries:    res.Summary.TotalCountries,
			TotalIndicators:   res.Summary.TotalIndicators,
			DataCoverage:      res.Summary.DataCoverage,
			SOMSize:           res.SOMAnalysis.MapSize,
			ClustersFound:     res.Summary.ClustersFound,
			QuantizationError: res.SOMAnalysis.QuantizationError,
			TopographicError:  res.SOMAnalysis.TopographicError,
			TrainingQuality:   res.SOMAnalysis.TrainingQuality,
		},
		Countries:  head(res.Countries, sample),
		Indicators: head(res.Indicators, sample),
		MapSize:    res.SOMAnalysis.MapSize,
	}
}

func head(s []string, n int) []string {
	if n >= 0 && len(s) > n {
		s = s[:n]
	}
	return append([]string(nil), s...)
}

//Personal.AI order the ending
