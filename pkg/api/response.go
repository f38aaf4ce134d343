package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v with the given status. The returned error is the body
// encode failure, after the header has already gone out.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) error {
	return WriteJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	if err := WriteJSON(w, status, v); err != nil {
		h.logger.Error("failed to write JSON", "error", err, "status", status)
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, msg string) {
	if err := WriteError(w, status, msg); err != nil {
		h.logger.Error("failed to write JSON", "error", err, "status", status)
	}
}
