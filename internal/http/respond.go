package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/api"
	"fintrack/internal/storage"
)

const maxBodyBytes = 1 << 20 // 1MB; profile pictures arrive base64-encoded

// decodeJSON parses a request body into v, rejecting oversized payloads.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError sends the standard failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.StatusResponse{Success: false, Message: message})
}

// writeStorageError maps repository failures onto the error taxonomy.
func writeStorageError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, storage.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	default:
		slog.ErrorContext(r.Context(), "Storage operation failed", "error", err, "operation", op)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}
