package httputil

import (
	"net/http"
)

// JSONAPIResource is a single JSON:API resource object.
type JSONAPIResource struct {
	Type       string      `json:"type"`
	ID         string      `json:"id"`
	Attributes interface{} `json:"attributes"`
}

// JSONAPIErrorObject is a single JSON:API error.
type JSONAPIErrorObject struct {
	Status int               `json:"status,omitempty"`
	Code   string            `json:"code,omitempty"`
	Title  string            `json:"title,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Source map[string]string `json:"source,omitempty"` // e.g. {"pointer": "/data/attributes/event_type"}
}

func NewJSONAPIError(status int, code, title, detail string) JSONAPIErrorObject {
	return JSONAPIErrorObject{
		Status: status,
		Code:   code,
		Title:  title,
		Detail: detail,
	}
}

// WriteJSONAPIResource writes a single resource document.
//
// Example:
//
//	httputil.WriteJSONAPIResource(w, http.StatusCreated, "debug_event", event.ID, event.AsMap())
func WriteJSONAPIResource(w http.ResponseWriter, status int, resourceType, id string, attributes interface{}) {
	WriteJSONAPI(w, status, map[string]interface{}{
		"data": JSONAPIResource{
			Type:       resourceType,
			ID:         id,
			Attributes: attributes,
		},
	})
}

// WriteJSONAPICollection writes a collection document. Each item's "id" key
// becomes the resource ID and the whole item its attributes. A non-nil
// pagination adds meta.pagination.
func WriteJSONAPICollection(w http.ResponseWriter, status int, resourceType string, items []map[string]interface{}, pagination *Pagination) {
	data := make([]JSONAPIResource, len(items))
	for i, item := range items {
		id, _ := item["id"].(string)
		data[i] = JSONAPIResource{
			Type:       resourceType,
			ID:         id,
			Attributes: item,
		}
	}

	response := map[string]interface{}{
		"data": data,
	}

	if pagination != nil {
		response["meta"] = map[string]interface{}{
			"pagination": map[string]interface{}{
				"page":        pagination.Page,
				"limit":       pagination.Limit,
				"total":       pagination.Total,
				"total_pages": pagination.TotalPages(),
			},
		}
	}

	WriteJSONAPI(w, status, response)
}

func WriteJSONAPIErrorResponse(w http.ResponseWriter, status int, errors []JSONAPIErrorObject) {
	WriteJSONAPI(w, status, map[string]interface{}{
		"errors": errors,
	})
}

func WriteJSONAPIValidationError(w http.ResponseWriter, detail string) {
	WriteJSONAPIError(w, http.StatusBadRequest, "validation_failed", "Validation Failed", detail)
}

func WriteJSONAPINotFoundError(w http.ResponseWriter, resourceType, id string) {
	WriteJSONAPIError(w, http.StatusNotFound, "not_found", "Resource Not Found",
		"The requested "+resourceType+" with ID '"+id+"' was not found")
}

func WriteJSONAPIUnauthorizedError(w http.ResponseWriter, detail string) {
	WriteJSONAPIError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", detail)
}

// WriteJSONAPIInternalError writes a 500. Log the cause before calling it.
func WriteJSONAPIInternalError(w http.ResponseWriter, detail string) {
	WriteJSONAPIError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error", detail)
}
