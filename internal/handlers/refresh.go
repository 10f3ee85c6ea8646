package handlers

import (
	"net/http"

	"gallery-server/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

// adminTokenHeader carries the plaintext token checked against the
// configured bcrypt hash.
const adminTokenHeader = "X-Admin-Token"

// RefreshResponse is the payload for POST /api/gallery/refresh.
type RefreshResponse struct {
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint"`
}

// RefreshGallery forces a fresh enumeration of both sources, which also
// sweeps cache entries made stale by the new fingerprint. Gated behind
// ADMIN_TOKEN_HASH; the endpoint is unavailable when no hash is configured.
func (h *Handlers) RefreshGallery(w http.ResponseWriter, r *http.Request) {
	if h.config.AdminTokenHash == "" {
		writeJSONError(w, "refresh is not enabled", http.StatusServiceUnavailable)
		return
	}

	token := r.Header.Get(adminTokenHeader)
	if token == "" {
		writeJSONError(w, "missing admin token", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.config.AdminTokenHash), []byte(token)); err != nil {
		logging.Warn("refresh rejected: invalid admin token from %s", r.RemoteAddr)
		writeJSONError(w, "invalid admin token", http.StatusForbidden)
		return
	}

	snap, err := h.getListing(r.Context(), true)
	if err != nil {
		logging.Error("forced refresh failed: %v", err)
		writeJSONError(w, "failed to enumerate image sources", listingErrorStatus(err))
		return
	}

	logging.Info("gallery refreshed, fingerprint %s", snap.fingerprint)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, RefreshResponse{
		Status:      "refreshed",
		Fingerprint: snap.fingerprint,
	})
}
