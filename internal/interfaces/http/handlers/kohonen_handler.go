package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/EconSOM/internal/application/analysis"
	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// JobSubmitter queues an analysis for the worker.
type JobSubmitter interface {
	Submit(ctx context.Context, req *run.Request) (string, error)
}

// JobAccepted acknowledges a queued analysis.
type JobAccepted struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

// KohonenHandler serves /api/v1/kohonen.
type KohonenHandler struct {
	svc    analysis.Service
	jobs   JobSubmitter
	logger logging.Logger
}

// NewKohonenHandler wires the handler.  jobs may be nil when Kafka is
// disabled; the jobs route then reports the feature as disabled.
func NewKohonenHandler(svc analysis.Service, jobs JobSubmitter, logger logging.Logger) *KohonenHandler {
	return &KohonenHandler{svc: svc, jobs: jobs, logger: logger.Named("kohonen")}
}

// Routes mounts every endpoint on r.
func (h *KohonenHandler) Routes(r chi.Router) {
	r.Get("/test", h.Test)
	r.Get("/health", h.Health)
	r.Get("/analysis", h.Analysis)
	r.Get("/clusters", h.Clusters)
	r.Get("/summary", h.Summary)
	r.Post("/retrain", h.Retrain)
	r.Get("/visualization/{mapType}", h.Visualization)
	r.Post("/export", h.Export)
	r.Get("/history", h.History)
	r.Post("/jobs", h.SubmitJob)
}

func (h *KohonenHandler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Kohonen routes working!", "status": analysis.StatusSuccess})
}

func (h *KohonenHandler) Health(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Health(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error("kohonen health check failed", logging.Err(err))
		env := analysis.ErrorEnvelope(err)
		env.Message = "Kohonen service health check failed"
		writeJSON(w, r, http.StatusInternalServerError, env)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

// Analysis answers pipeline outcomes with 200 and an error envelope.
func (h *KohonenHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	req, err := analyzeRequestFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("analysis failed", logging.Err(err))
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, env)
}

// Clusters and Summary answer pipeline outcomes with 400.
func (h *KohonenHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	h.derived(w, r, h.svc.Clusters)
}

func (h *KohonenHandler) Summary(w http.ResponseWriter, r *http.Request) {
	h.derived(w, r, h.svc.Summary)
}

func (h *KohonenHandler) derived(w http.ResponseWriter, r *http.Request, fn func(context.Context) (*analysis.Envelope, error)) {
	env, err := fn(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !env.Succeeded() {
		writeJSON(w, r, http.StatusBadRequest, env)
		return
	}
	writeJSON(w, r, http.StatusOK, env)
}

func (h *KohonenHandler) Retrain(w http.ResponseWriter, r *http.Request) {
	var req analysis.RetrainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		switch typeErrorField(err) {
		case "map_size":
			writeError(w, r, errors.New(errors.ErrCodeInvalidGrid, "map_size must be a list of two integers"))
		case "iterations":
			writeError(w, r, errors.InvalidParam("iterations must be an integer >= 100"))
		default:
			writeError(w, r, errors.InvalidParam("invalid JSON body").WithDetail(err.Error()))
		}
		return
	}
	resp, err := h.svc.Retrain(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *KohonenHandler) Visualization(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Visualize(r.Context(), chi.URLParam(r, "mapType"))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeUnsupportedMapType) {
			writeJSON(w, r, http.StatusBadRequest, &analysis.VisualizationResponse{
				Status:  analysis.StatusError,
				Message: "Invalid map type. Use 'distance' or 'hit'",
				Code:    errors.ErrCodeUnsupportedMapType.String(),
			})
			return
		}
		writeError(w, r, err)
		return
	}
	if resp.Status != analysis.StatusSuccess {
		writeJSON(w, r, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *KohonenHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req analysis.AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, errors.InvalidParam("invalid JSON body").WithDetail(err.Error()))
		return
	}
	res, err := h.svc.Export(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, res)
}

func (h *KohonenHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	runs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*run.Summary{}
	}
	writeData(w, r, http.StatusOK, runs)
}

// SubmitJob queues an analysis and answers 202 with its run id.
func (h *KohonenHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, r, errors.New(errors.ErrCodeFeatureDisabled, "job queue is not configured"))
		return
	}
	var body analysis.AnalyzeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, errors.InvalidParam("invalid JSON body").WithDetail(err.Error()))
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	req := run.NewRequest(run.SourceHTTP, body.Profile, body.Rows, body.Cols, body.Iterations)
	id, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, JobAccepted{Status: "queued", RunID: id})
}

func analyzeRequestFromQuery(r *http.Request) (*analysis.AnalyzeRequest, error) {
	req := &analysis.AnalyzeRequest{Profile: r.URL.Query().Get("profile")}
	var err error
	if req.Rows, err = queryInt(r, "rows"); err != nil {
		return nil, err
	}
	if req.Cols, err = queryInt(r, "cols"); err != nil {
		return nil, err
	}
	if req.Iterations, err = queryInt(r, "iterations"); err != nil {
		return nil, err
	}
	return req, nil
}

//Personal.AI order the ending
