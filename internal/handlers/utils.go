package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gallery-server/internal/gallery"
	"gallery-server/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// listingErrorStatus maps a listing failure to an HTTP status. Broken
// source configuration is our fault (500); an unreachable or misbehaving
// upstream listing is a bad gateway (502).
func listingErrorStatus(err error) int {
	if errors.Is(err, gallery.ErrMissingBaseURL) || errors.Is(err, gallery.ErrMissingFolder) {
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}
