package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/EconSOM/internal/application/analysis"
	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/infrastructure/rendering"
	"github.com/turtacn/EconSOM/pkg/errors"
)

type mockService struct{ mock.Mock }

func (m *mockService) envelope(args mock.Arguments) (*analysis.Envelope, error) {
	env, _ := args.Get(0).(*analysis.Envelope)
	return env, args.Error(1)
}

func (m *mockService) Analyze(ctx context.Context, req *analysis.AnalyzeRequest) (*analysis.Envelope, error) {
	return m.envelope(m.Called(ctx, req))
}
func (m *mockService) Clusters(ctx context.Context) (*analysis.Envelope, error) {
	return m.envelope(m.Called(ctx))
}
func (m *mockService) Summary(ctx context.Context) (*analysis.Envelope, error) {
	return m.envelope(m.Called(ctx))
}
func (m *mockService) DebugData(ctx context.Context) (*analysis.Envelope, error) {
	return m.envelope(m.Called(ctx))
}
func (m *mockService) DebugMatrix(ctx context.Context) (*analysis.Envelope, error) {
	return m.envelope(m.Called(ctx))
}
func (m *mockService) Retrain(ctx context.Context, req *analysis.RetrainRequest) (*analysis.RetrainResponse, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*analysis.RetrainResponse)
	return r, args.Error(1)
}
func (m *mockService) Render(ctx context.Context, kind rendering.MapKind) ([]byte, error) {
	args := m.Called(ctx, kind)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}
func (m *mockService) Visualize(ctx context.Context, mapType string) (*analysis.VisualizationResponse, error) {
	args := m.Called(ctx, mapType)
	r, _ := args.Get(0).(*analysis.VisualizationResponse)
	return r, args.Error(1)
}
func (m *mockService) Execute(ctx context.Context, req *run.Request) (*run.Summary, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*run.Summary)
	return s, args.Error(1)
}
func (m *mockService) Export(ctx context.Context, req *analysis.AnalyzeRequest) (*analysis.ExportResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*analysis.ExportResult)
	return r, args.Error(1)
}
func (m *mockService) History(ctx context.Context, limit int) ([]*run.Summary, error) {
	args := m.Called(ctx, limit)
	s, _ := args.Get(0).([]*run.Summary)
	return s, args.Error(1)
}
func (m *mockService) Health(ctx context.Context) (*analysis.HealthReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*analysis.HealthReport)
	return r, args.Error(1)
}

type stubSubmitter struct {
	got *run.Request
	err error
}

func (s *stubSubmitter) Submit(_ context.Context, req *run.Request) (string, error) {
	s.got = req
	if s.err != nil {
		return "", s.err
	}
	return req.ID, nil
}

type KohonenHandlerSuite struct {
	suite.Suite
	svc    *mockService
	jobs   *stubSubmitter
	router chi.Router
}

func (s *KohonenHandlerSuite) SetupTest() {
	s.svc = &mockService{}
	s.jobs = &stubSubmitter{}
	s.router = chi.NewRouter()
	s.router.Route("/api/v1/kohonen", NewKohonenHandler(s.svc, s.jobs, logging.NewNopLogger()).Routes)
	s.router.Route("/api/v1/debug", NewDebugHandler(s.svc).Routes)
}

func (s *KohonenHandlerSuite) do(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (s *KohonenHandlerSuite) TestTest() {
	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/test", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("success", body["status"])
}

func (s *KohonenHandlerSuite) TestHealth() {
	s.svc.On("Health", mock.Anything).Return(&analysis.HealthReport{Status: "healthy", DataAvailable: true, DataCount: 12, Version: analysis.Version}, nil).Once()
	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/health", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, body["data_available"])
	s.Equal(float64(12), body["data_count"])

	s.svc.On("Health", mock.Anything).Return(nil, errors.New(errors.ErrCodeDataSourceUnavailable, "db down")).Once()
	rec, body = s.do(http.MethodGet, "/api/v1/kohonen/health", "")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("error", body["status"])
}

func (s *KohonenHandlerSuite) TestAnalysis_PassesQuery() {
	s.svc.On("Analyze", mock.Anything, &analysis.AnalyzeRequest{Profile: "minimal", Rows: 4, Cols: 5}).
		Return(&analysis.Envelope{Status: analysis.StatusSuccess, RunID: "r1"}, nil)

	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/analysis?profile=minimal&rows=4&cols=5", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("r1", body["run_id"])
}

func (s *KohonenHandlerSuite) TestAnalysis_OutcomeIs200() {
	env := analysis.ErrorEnvelope(errors.New(errors.ErrCodeEmptyData, "no economic data available for analysis"))
	s.svc.On("Analyze", mock.Anything, mock.Anything).Return(env, nil)

	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/analysis", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("error", body["status"])
	s.Equal("SOM_001", body["code"])
}

func (s *KohonenHandlerSuite) TestAnalysis_BadQuery() {
	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/analysis?rows=abc", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("error", body["status"])
	s.svc.AssertNotCalled(s.T(), "Analyze", mock.Anything, mock.Anything)
}

func (s *KohonenHandlerSuite) TestAnalysis_InternalErrorIsMasked() {
	s.svc.On("Analyze", mock.Anything, mock.Anything).Return(nil, assertErr("connection reset"))
	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/analysis", "")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("internal server error", body["message"])
}

func (s *KohonenHandlerSuite) TestClusters_OutcomeIs400() {
	s.svc.On("Clusters", mock.Anything).Return(analysis.ErrorEnvelope(errors.New(errors.ErrCodeInsufficientMatrix, "too small")), nil)
	rec, _ := s.do(http.MethodGet, "/api/v1/kohonen/clusters", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *KohonenHandlerSuite) TestSummary_Success() {
	s.svc.On("Summary", mock.Anything).Return(&analysis.Envelope{Status: analysis.StatusSuccess, Data: map[string]interface{}{"total_countries": 3}}, nil)
	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/summary", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(float64(3), body["data"].(map[string]interface{})["total_countries"])
}

func (s *KohonenHandlerSuite) TestRetrain() {
	s.svc.On("Retrain", mock.Anything, &analysis.RetrainRequest{MapSize: []int{5, 5}, Iterations: intPtr(200)}).
		Return(&analysis.RetrainResponse{Status: analysis.StatusSuccess, Message: "SOM retrained successfully"}, nil)

	rec, body := s.do(http.MethodPost, "/api/v1/kohonen/retrain", `{"map_size":[5,5],"iterations":200}`)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("SOM retrained successfully", body["message"])
}

func (s *KohonenHandlerSuite) TestRetrain_OutcomeIs200() {
	s.svc.On("Retrain", mock.Anything, &analysis.RetrainRequest{}).
		Return(&analysis.RetrainResponse{Status: analysis.StatusError, Code: "SOM_002", Message: "not enough data"}, nil)

	rec, body := s.do(http.MethodPost, "/api/v1/kohonen/retrain", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("error", body["status"])
	s.Equal("SOM_002", body["code"])
}

func (s *KohonenHandlerSuite) TestRetrain_ExplicitZeroIterations() {
	s.svc.On("Retrain", mock.Anything, &analysis.RetrainRequest{Iterations: intPtr(0)}).
		Return(nil, errors.InvalidParam("iterations must be an integer >= 100"))

	rec, body := s.do(http.MethodPost, "/api/v1/kohonen/retrain", `{"iterations":0}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("iterations must be an integer >= 100", body["message"])
}

func (s *KohonenHandlerSuite) TestRetrain_TypeErrors() {
	rec, body := s.do(http.MethodPost, "/api/v1/kohonen/retrain", `{"map_size":"6x6"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("map_size must be a list of two integers", body["message"])

	rec, body = s.do(http.MethodPost, "/api/v1/kohonen/retrain", `{"iterations":150.5}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("iterations must be an integer >= 100", body["message"])
}

func (s *KohonenHandlerSuite) TestRetrain_ValidationFromService() {
	s.svc.On("Retrain", mock.Anything, mock.Anything).Return(nil, errors.New(errors.ErrCodeInvalidGrid, "map_size must be a list of two integers"))
	rec, body := s.do(http.MethodPost, "/api/v1/kohonen/retrain", `{"map_size":[5]}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("SOM_005", body["code"])
}

func (s *KohonenHandlerSuite) TestVisualization() {
	s.svc.On("Visualize", mock.Anything, "hit").Return(&analysis.VisualizationResponse{Status: analysis.StatusSuccess, Image: "data:image/png;base64,AAAA"}, nil)
	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/visualization/hit", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("data:image/png;base64,AAAA", body["image"])
}

func (s *KohonenHandlerSuite) TestVisualization_InvalidType() {
	s.svc.On("Visualize", mock.Anything, "heat").Return(nil, errors.New(errors.ErrCodeUnsupportedMapType, "invalid map type"))
	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/visualization/heat", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid map type. Use 'distance' or 'hit'", body["message"])
}

func (s *KohonenHandlerSuite) TestVisualization_NothingToDraw() {
	s.svc.On("Visualize", mock.Anything, "distance").Return(&analysis.VisualizationResponse{Status: analysis.StatusError, Message: "no data"}, nil)
	rec, _ := s.do(http.MethodGet, "/api/v1/kohonen/visualization/distance", "")
	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *KohonenHandlerSuite) TestExport() {
	s.svc.On("Export", mock.Anything, &analysis.AnalyzeRequest{}).Return(&analysis.ExportResult{Status: analysis.StatusSuccess, Key: "exports/r.xlsx"}, nil).Once()
	rec, body := s.do(http.MethodPost, "/api/v1/kohonen/export", "")
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("success", body["status"])
	s.Equal("exports/r.xlsx", dataOf(s.T(), body)["key"])

	s.svc.On("Export", mock.Anything, mock.Anything).Return(nil, errors.New(errors.ErrCodeFeatureDisabled, "export is not configured")).Once()
	rec, _ = s.do(http.MethodPost, "/api/v1/kohonen/export", "{}")
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *KohonenHandlerSuite) TestHistory() {
	s.svc.On("History", mock.Anything, 5).Return([]*run.Summary{{ID: "a"}, {ID: "b"}}, nil).Once()
	rec, body := s.do(http.MethodGet, "/api/v1/kohonen/history?limit=5", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("success", body["status"])
	s.Len(body["data"], 2)
	s.NotEmpty(body["timestamp"])

	s.svc.On("History", mock.Anything, 0).Return(nil, nil).Once()
	rec, body = s.do(http.MethodGet, "/api/v1/kohonen/history", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]interface{}{}, body["data"])
}

func (s *KohonenHandlerSuite) TestSubmitJob() {
	rec, body := s.do(http.MethodPost, "/api/v1/kohonen/jobs", `{"profile":"minimal","iterations":300}`)
	s.Equal(http.StatusAccepted, rec.Code)
	s.Require().NotNil(s.jobs.got)
	job := dataOf(s.T(), body)
	s.Equal("queued", job["status"])
	s.Equal(s.jobs.got.ID, job["run_id"])
	s.Equal(run.SourceHTTP, s.jobs.got.Source)
	s.Equal(300, s.jobs.got.Iterations)

	rec, _ = s.do(http.MethodPost, "/api/v1/kohonen/jobs", `{"profile":"huge"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *KohonenHandlerSuite) TestDebugRoutes() {
	s.svc.On("DebugData", mock.Anything).Return(&analysis.Envelope{Status: analysis.StatusSuccess}, nil)
	s.svc.On("DebugMatrix", mock.Anything).Return(nil, errors.New(errors.ErrCodeDataSourceQuery, "bad query"))

	rec, _ := s.do(http.MethodGet, "/api/v1/debug/data", "")
	s.Equal(http.StatusOK, rec.Code)
	rec, body := s.do(http.MethodGet, "/api/v1/debug/matrix", "")
	s.GreaterOrEqual(rec.Code, 500)
	s.Equal("DATA_002", body["code"])
}

func TestKohonenHandlerSuite(t *testing.T) {
	suite.Run(t, new(KohonenHandlerSuite))
}

func TestSubmitJob_Disabled(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/k", NewKohonenHandler(&mockService{}, nil, logging.NewNopLogger()).Routes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/k/jobs", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "COMMON_015")
}

func TestHistory_CarriesRequestID(t *testing.T) {
	svc := &mockService{}
	svc.On("History", mock.Anything, 0).Return([]*run.Summary{{ID: "a"}}, nil)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Route("/k", NewKohonenHandler(svc, nil, logging.NewNopLogger()).Routes)

	req := httptest.NewRequest(http.MethodGet, "/k/history", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string         `json:"status"`
		RequestID string         `json:"request_id"`
		Data      []*run.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "req-42", body.RequestID)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "a", body.Data[0].ID)
}

func intPtr(v int) *int { return &v }

func dataOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "body has no data object: %v", body)
	return data
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

//Personal.AI order the ending
