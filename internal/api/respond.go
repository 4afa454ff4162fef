package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/atmx/auction-settlement/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the error taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrConflict):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrInvalid):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrUnavailable):
		slog.Error("store unavailable", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}
