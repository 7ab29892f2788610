package handler

import (
	"encoding/json"
	"net/http"

	"github.com/bekmuradov/sofra/internal/middleware"
)

// JSON writes v as a JSON response with the given status code.
// Encoding failures after the header is written can only be logged.
func JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.GetLogger(r.Context()).Error("failed to encode response",
			"path", r.URL.Path,
			"error", err,
		)
	}
}

// DecodeJSON reads the request body into dst. The body size is already
// bounded by the MaxBodySize middleware.
func DecodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
