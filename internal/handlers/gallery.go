package handlers

import (
	"net/http"
	"strconv"

	"gallery-server/internal/cache"
	"gallery-server/internal/gallery"
	"gallery-server/internal/logging"
	"gallery-server/internal/optimize"
)

// GalleryResponse is the payload for GET /api/gallery.
type GalleryResponse struct {
	SplashScreens []gallery.MediaItem `json:"splashScreens"`
	Screenshots   []gallery.MediaItem `json:"screenshots"`
	Fingerprint   string              `json:"fingerprint"`
	Cached        bool                `json:"cached"`
}

// GetGallery returns both image categories with optimized URLs. The
// optimization mapping is cached per (fingerprint, options) pair; a source
// change produces a new fingerprint, which misses the cache and triggers
// re-optimization.
//
// Query parameters width, quality and format override the configured
// optimization defaults for this request.
func (h *Handlers) GetGallery(w http.ResponseWriter, r *http.Request) {
	opts, err := h.optionsFromQuery(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.getListing(r.Context(), false)
	if err != nil {
		logging.Error("gallery listing failed: %v", err)
		writeJSONError(w, "failed to enumerate image sources", listingErrorStatus(err))
		return
	}

	optionsKey := optimize.Key(opts)

	res := h.optCache.Load(snap.fingerprint, optionsKey, snap.splash, snap.screenshots)
	if res.Status == cache.StatusHit {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, GalleryResponse{
			SplashScreens: res.Value.SplashScreens,
			Screenshots:   res.Value.Screenshots,
			Fingerprint:   snap.fingerprint,
			Cached:        true,
		})
		return
	}

	splash := h.optimizer.OptimizeAll(r.Context(), snap.splash, opts)
	screenshots := h.optimizer.OptimizeAll(r.Context(), snap.screenshots, opts)
	h.optCache.Save(snap.fingerprint, optionsKey, splash, screenshots)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, GalleryResponse{
		SplashScreens: splash,
		Screenshots:   screenshots,
		Fingerprint:   snap.fingerprint,
		Cached:        false,
	})
}

// optionsFromQuery applies width/quality/format query overrides on top of
// the configured defaults.
func (h *Handlers) optionsFromQuery(r *http.Request) (optimize.Options, error) {
	opts := h.config.Optimization

	q := r.URL.Query()
	if v := q.Get("width"); v != "" {
		width, err := strconv.Atoi(v)
		if err != nil || width <= 0 {
			return opts, errInvalidParam("width", v)
		}
		opts.Width = width
	}
	if v := q.Get("quality"); v != "" {
		quality, err := strconv.Atoi(v)
		if err != nil || quality < 1 || quality > 100 {
			return opts, errInvalidParam("quality", v)
		}
		opts.Quality = quality
	}
	if v := q.Get("format"); v != "" {
		switch v {
		case "webp", "jpeg", "jpg", "png":
			opts.Format = v
		default:
			return opts, errInvalidParam("format", v)
		}
	}

	return opts, nil
}

type paramError struct {
	name  string
	value string
}

func (e paramError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}

func errInvalidParam(name, value string) error {
	return paramError{name: name, value: value}
}
