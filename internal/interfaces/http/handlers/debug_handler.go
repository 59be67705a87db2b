package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/EconSOM/internal/application/analysis"
)

// DebugHandler exposes pipeline diagnostics under /api/v1/debug.
type DebugHandler struct {
	svc analysis.Service
}

func NewDebugHandler(svc analysis.Service) *DebugHandler {
	return &DebugHandler{svc: svc}
}

func (h *DebugHandler) Routes(r chi.Router) {
	r.Get("/data", h.Data)
	r.Get("/matrix", h.Matrix)
}

// Data samples the raw rows the pipeline would fetch.
func (h *DebugHandler) Data(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.svc.DebugData)
}

// Matrix runs assembly and matrix building without training.
func (h *DebugHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.svc.DebugMatrix)
}

func (h *DebugHandler) serve(w http.ResponseWriter, r *http.Request, fn func(context.Context) (*analysis.Envelope, error)) {
	env, err := fn(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, env)
}

//Personal.AI order the ending
