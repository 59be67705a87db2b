package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/turtacn/EconSOM/internal/application/analysis"
	"github.com/turtacn/EconSOM/pkg/errors"
	"github.com/turtacn/EconSOM/pkg/types/common"
)

// maxBodyBytes caps request bodies; every body here is a few fields.
const maxBodyBytes = 1 << 20

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// writeData wraps data in the success response carrying the request id.
func writeData[T any](w http.ResponseWriter, r *http.Request, status int, data T) {
	writeJSON(w, r, status, common.NewSuccessResponse(data, chimw.GetReqID(r.Context())))
}

// writeError maps err to its HTTP status and an error envelope.  Errors
// that are not AppErrors are masked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		writeJSON(w, r, http.StatusInternalServerError, analysis.ErrorEnvelope(errors.Internal("internal server error")))
		return
	}
	status := errors.HTTPStatusForCode(code)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	writeJSON(w, r, status, analysis.ErrorEnvelope(err))
}

// decodeJSON reads an optional JSON body into dst.  An empty body leaves
// dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// typeErrorField names the JSON field a decode error is about, if any.
func typeErrorField(err error) string {
	var te *json.UnmarshalTypeError
	if stderrors.As(err, &te) {
		return te.Field
	}
	return ""
}

// queryInt reads a non-negative integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.InvalidParam(name + " must be a non-negative integer").WithDetail(v)
	}
	return n, nil
}

//Personal.AI order the ending
