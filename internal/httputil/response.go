package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeJSONAPI = "application/vnd.api+json"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, ContentTypeJSON, status, data)
}

// WriteJSONAPI writes data with the JSON:API content type.
func WriteJSONAPI(w http.ResponseWriter, status int, data interface{}) {
	write(w, ContentTypeJSONAPI, status, data)
}

func write(w http.ResponseWriter, contentType string, status int, data interface{}) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.String("content_type", contentType), slog.String("error", err.Error()))
	}
}

// WriteJSONAPIError writes a single-error JSON:API document.
func WriteJSONAPIError(w http.ResponseWriter, status int, code, title, detail string) {
	WriteJSONAPIErrorResponse(w, status, []JSONAPIErrorObject{NewJSONAPIError(status, code, title, detail)})
}
