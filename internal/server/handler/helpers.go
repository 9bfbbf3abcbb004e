package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// rejectionResponse is the body sent when a requested operation would be
// rejected by the on-chain rules.
type rejectionResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	Shortfall int64  `json:"shortfall,omitempty"`
	Required  int64  `json:"required,omitempty"`
}

// writeRejection sends a 409 carrying the rejection reason, and for
// too-low bids the shortfall and required minimum.
func writeRejection(w http.ResponseWriter, rej *domain.Rejection) {
	writeJSON(w, http.StatusConflict, rejectionResponse{
		Error:     rej.Error(),
		Reason:    string(rej.Reason),
		Shortfall: rej.Shortfall,
		Required:  rej.Required,
	})
}

// parseLimit extracts the limit query parameter, clamped to max.
// Defaults to def when absent or invalid.
func parseLimit(r *http.Request, def, max int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
