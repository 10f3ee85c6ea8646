package handlers

import (
	"net/http"

	"gallery-server/internal/cache"
	"gallery-server/internal/exifmeta"
	"gallery-server/internal/logging"
)

// MetadataResponse is the payload for GET /api/gallery/metadata. Metadata
// is null for images without embedded metadata; the absence is cached too,
// so repeated lookups of a bare image stay cheap.
type MetadataResponse struct {
	Metadata *exifmeta.Info `json:"metadata"`
	Cached   bool           `json:"cached"`
}

// GetMetadata returns embedded image metadata for a single image URL.
func (h *Handlers) GetMetadata(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		writeJSONError(w, "missing required url parameter", http.StatusBadRequest)
		return
	}

	snap, err := h.getListing(r.Context(), false)
	if err != nil {
		logging.Error("metadata listing failed: %v", err)
		writeJSONError(w, "failed to enumerate image sources", listingErrorStatus(err))
		return
	}

	// Only images from the current listing are fetched and cached; the
	// endpoint is not a general-purpose fetch proxy.
	if !snap.contains(imageURL) {
		writeJSONError(w, "unknown image url", http.StatusNotFound)
		return
	}

	res := h.metaCache.Load(snap.fingerprint, imageURL)
	if res.Status == cache.StatusHit {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, MetadataResponse{Metadata: res.Value, Cached: true})
		return
	}

	data, err := exifmeta.Resolve(r.Context(), imageURL, h.roots, h.client)
	if err != nil {
		logging.Error("failed to fetch image bytes for %s: %v", imageURL, err)
		writeJSONError(w, "failed to fetch image", http.StatusBadGateway)
		return
	}

	var info *exifmeta.Info
	if data != nil {
		info = exifmeta.Extract(data)
	}

	h.metaCache.Save(snap.fingerprint, imageURL, info)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, MetadataResponse{Metadata: info, Cached: false})
}
