package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/EconSOM/pkg/types/common"
)

const (
	kohonenPath = "/api/v1/kohonen"
	debugPath   = "/api/v1/debug"

	StatusSuccess = "success"
	StatusError   = "error"

	MapDistance = "distance"
	MapHit      = "hit"
)

// KohonenClient calls the /api/v1/kohonen endpoints.
type KohonenClient struct {
	client *Client
}

// DebugClient calls the /api/v1/debug endpoints.
type DebugClient struct {
	client *Client
}

// AnalyzeOptions selects the profile and grid of a run. Zero fields take the
// server defaults.
type AnalyzeOptions struct {
	Profile    string `json:"profile,omitempty"`
	Rows       int    `json:"rows,omitempty"`
	Cols       int    `json:"cols,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
}

func (o *AnalyzeOptions) query() string {
	if o == nil {
		return ""
	}
	q := url.Values{}
	if o.Profile != "" {
		q.Set("profile", o.Profile)
	}
	for name, v := range map[string]int{"rows": o.Rows, "cols": o.Cols, "iterations": o.Iterations} {
		if v > 0 {
			q.Set(name, strconv.Itoa(v))
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Envelope is the {status, message, code, details, run_id, data} wrapper.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
	Details string          `json:"details,omitempty"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DecodeData unmarshals the data payload into v.
func (e *Envelope) DecodeData(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("econsom: envelope has no data")
	}
	return json.Unmarshal(e.Data, v)
}

func (e *Envelope) err(status int) error {
	if e.Status == StatusSuccess {
		return nil
	}
	return &APIError{StatusCode: status, Code: e.Code, Message: e.Message, Details: e.Details}
}

// Health is the analysis health report.
type Health struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	DataAvailable bool   `json:"data_available"`
	DataCount     int64  `json:"data_count"`
	Version       string `json:"version"`
}

// Summary is the dataset and training summary of a full run.
type Summary struct {
	TotalCountries    int      `json:"total_countries"`
	TotalIndicators   int      `json:"total_indicators"`
	DataCoverage      int      `json:"data_coverage"`
	TrainingQuality   string   `json:"training_quality"`
	ClustersFound     int      `json:"clusters_found"`
	ImputedCells      int      `json:"imputed_cells"`
	DroppedCountries  []string `json:"dropped_countries"`
	DroppedIndicators []string `json:"dropped_indicators"`
}

// ClusterMember is one country placed on a node.
type ClusterMember struct {
	Country    string             `json:"country"`
	Position   [2]int             `json:"position"`
	Indicators map[string]float64 `json:"indicators"`
}

// ClusterStats aggregates the members of one node. Averages are nil where
// no member had a value.
type ClusterStats struct {
	ClusterID     int                 `json:"cluster_id"`
	Position      [2]int              `json:"position"`
	Size          int                 `json:"size"`
	Countries     []string            `json:"countries"`
	AvgIndicators map[string]*float64 `json:"avg_indicators"`
}

// Clusters is the payload of the clusters endpoint.
type Clusters struct {
	Clusters     map[string][]ClusterMember `json:"clusters"`
	ClusterStats map[string]ClusterStats    `json:"cluster_stats"`
	Summary      Summary                    `json:"summary"`
}

// RetrainRequest overrides the grid and iteration count of a retrain.
type RetrainRequest struct {
	MapSize    []int `json:"map_size,omitempty"`
	Iterations int   `json:"iterations,omitempty"`
}

// RetrainResult echoes the parameters a retrain used.
type RetrainResult struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Code          string `json:"code,omitempty"`
	Details       string `json:"details,omitempty"`
	RunID         string `json:"run_id,omitempty"`
	NewParameters *struct {
		MapSize    [2]int `json:"map_size"`
		Iterations int    `json:"iterations"`
	} `json:"new_parameters,omitempty"`
	Quality string `json:"training_quality,omitempty"`
}

// Visualization is a rendered map as a PNG data URI.
type Visualization struct {
	Status  string `json:"status"`
	Image   string `json:"image,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

const dataURIPrefix = "data:image/png;base64,"

// PNG decodes the image data URI.
func (v *Visualization) PNG() ([]byte, error) {
	if !strings.HasPrefix(v.Image, dataURIPrefix) {
		return nil, fmt.Errorf("econsom: image is not a PNG data URI")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(v.Image, dataURIPrefix))
}

// Export describes a workbook uploaded to object storage.
type Export struct {
	Status    string    `json:"status"`
	RunID     string    `json:"run_id"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Run is one recorded analysis run.
type Run struct {
	ID                string    `json:"id"`
	Profile           string    `json:"profile"`
	Source            string    `json:"source"`
	Status            string    `json:"status"`
	Code              string    `json:"code,omitempty"`
	Message           string    `json:"message,omitempty"`
	Rows              int       `json:"rows"`
	Cols              int       `json:"cols"`
	Iterations        int       `json:"iterations"`
	Seed              int64     `json:"seed"`
	Countries         int       `json:"countries"`
	Indicators        int       `json:"indicators"`
	QuantizationError float64   `json:"quantization_error"`
	TopographicError  float64   `json:"topographic_error"`
	Quality           string    `json:"quality,omitempty"`
	Fingerprint       string    `json:"fingerprint,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	DurationMS        int64     `json:"duration_ms"`
}

// Job acknowledges a queued analysis.
type Job struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
	// RequestID is the server-side id of the submitting request.
	RequestID string `json:"-"`
}

// Test pings the route group.
func (k *KohonenClient) Test(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := k.client.get(ctx, kohonenPath+"/test", &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Health returns the analysis health report. An unhealthy service answers
// with an *APIError.
func (k *KohonenClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := k.client.get(ctx, kohonenPath+"/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Analysis runs the pipeline. The server answers pipeline failures with a
// 200 and an error envelope; those come back as an *APIError.
func (k *KohonenClient) Analysis(ctx context.Context, opts *AnalyzeOptions) (*Envelope, error) {
	var env Envelope
	if err := k.client.get(ctx, kohonenPath+"/analysis"+opts.query(), &env); err != nil {
		return nil, err
	}
	if err := env.err(http.StatusOK); err != nil {
		return nil, err
	}
	return &env, nil
}

// Clusters runs a full analysis and returns only the cluster view.
func (k *KohonenClient) Clusters(ctx context.Context) (*Clusters, error) {
	var out Clusters
	if err := k.envelope(ctx, kohonenPath+"/clusters", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary runs a full analysis and returns only its summary.
func (k *KohonenClient) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := k.envelope(ctx, kohonenPath+"/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (k *KohonenClient) envelope(ctx context.Context, path string, v interface{}) error {
	var env Envelope
	if err := k.client.get(ctx, path, &env); err != nil {
		return err
	}
	if err := env.err(http.StatusOK); err != nil {
		return err
	}
	return env.DecodeData(v)
}

// Retrain trains a fresh map with the given overrides.
func (k *KohonenClient) Retrain(ctx context.Context, req *RetrainRequest) (*RetrainResult, error) {
	if req == nil {
		req = &RetrainRequest{}
	}
	var out RetrainResult
	if err := k.client.post(ctx, kohonenPath+"/retrain", req, &out); err != nil {
		return nil, err
	}
	if out.Status != StatusSuccess {
		return nil, &APIError{StatusCode: http.StatusOK, Code: out.Code, Message: out.Message, Details: out.Details}
	}
	return &out, nil
}

// Visualization renders the distance or hit map of the last run.
func (k *KohonenClient) Visualization(ctx context.Context, mapType string) (*Visualization, error) {
	var out Visualization
	if err := k.client.get(ctx, kohonenPath+"/visualization/"+url.PathEscape(mapType), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export runs an analysis and uploads the workbook.
func (k *KohonenClient) Export(ctx context.Context, opts *AnalyzeOptions) (*Export, error) {
	if opts == nil {
		opts = &AnalyzeOptions{}
	}
	var out common.APIResponse[Export]
	if err := k.client.post(ctx, kohonenPath+"/export", opts, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// History lists recent runs, newest first. limit <= 0 takes the server default.
func (k *KohonenClient) History(ctx context.Context, limit int) ([]Run, error) {
	path := kohonenPath + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out common.APIResponse[[]Run]
	if err := k.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SubmitJob queues an analysis for the worker.
func (k *KohonenClient) SubmitJob(ctx context.Context, opts *AnalyzeOptions) (*Job, error) {
	if opts == nil {
		opts = &AnalyzeOptions{}
	}
	var out common.APIResponse[Job]
	if err := k.client.post(ctx, kohonenPath+"/jobs", opts, &out); err != nil {
		return nil, err
	}
	out.Data.RequestID = out.RequestID
	return &out.Data, nil
}

// Data samples the raw observation rows.
func (d *DebugClient) Data(ctx context.Context) (*Envelope, error) {
	return d.get(ctx, debugPath+"/data")
}

// Matrix reports assembly and matrix statistics without training.
func (d *DebugClient) Matrix(ctx context.Context) (*Envelope, error) {
	return d.get(ctx, debugPath+"/matrix")
}

func (d *DebugClient) get(ctx context.Context, path string) (*Envelope, error) {
	var env Envelope
	if err := d.client.get(ctx, path, &env); err != nil {
		return nil, err
	}
	if err := env.err(http.StatusOK); err != nil {
		return nil, err
	}
	return &env, nil
}

//Personal.AI order the ending
