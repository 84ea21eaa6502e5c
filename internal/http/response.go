package http

import (
	"encoding/json"
	"net/http"

	"budget/internal/log"
	"budget/internal/middleware/trace"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{
		Error:     msg,
		RequestID: trace.GetRequestID(r.Context()),
	})
}

func writeFieldErrors(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	writeJSON(w, r, http.StatusUnprocessableEntity, errorBody{
		Error:     "validation failed",
		Fields:    fields,
		RequestID: trace.GetRequestID(r.Context()),
	})
}
