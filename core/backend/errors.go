package backend

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/autotrack-work/backend/core/logger"
	"github.com/autotrack-work/backend/core/schema"
)

// errorEnvelope is the uniform error body of all api routes.
//
//	{"error": "...", "details": [{"field": "...", "description": "..."}]}
//
// Details are only present for schema validation failures.
type errorEnvelope struct {
	Error   string              `json:"error"`
	Details []schema.FieldError `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, obj interface{}) {
	data, err := json.Marshal(obj)
	if err != nil {
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorEnvelope{Error: message})
}

// invalidParameter reports a malformed path parameter, e.g. a
// non-numeric car_id.
func invalidParameter(w http.ResponseWriter, name string) {
	errorResponse(w, http.StatusBadRequest, "invalid "+name)
}

func notFound(w http.ResponseWriter, what string) {
	errorResponse(w, http.StatusNotFound, what+" not found")
}

// referenceNotFound reports a write against a parent entity that does
// not exist. Unlike notFound this is a client error, not a miss.
func referenceNotFound(w http.ResponseWriter, what string) {
	errorResponse(w, http.StatusBadRequest, what+" not found")
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).WithError(err).Errorln("internal error")
	errorResponse(w, http.StatusInternalServerError, "Internal Server Error")
}

// schemaID expands the short name of an embedded request schema to
// its full $id
func schemaID(name string) string {
	return "https://autotrack.work/schemas/" + name + ".json"
}

// decodeBody reads the request body, validates it against the named
// schema and unmarshals it into dst. It writes the error response
// itself and reports whether the caller should proceed.
func (b *Backend) decodeBody(w http.ResponseWriter, r *http.Request, name string, dst interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "cannot read body")
		return false
	}
	if err := b.jsonValidator.ValidateBytes(body, schemaID(name)); err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, errorEnvelope{Error: "Invalid input", Details: verr.Details})
		} else {
			errorResponse(w, http.StatusBadRequest, "invalid json data")
		}
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid json data")
		return false
	}
	return true
}
