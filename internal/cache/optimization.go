package cache

import (
	"encoding/json"

	"gallery-server/internal/gallery"
	"gallery-server/internal/logging"
	"gallery-server/internal/metrics"
)

const optimizationCacheName = "optimization"

// OptimizedRef maps one original URL to its optimized counterpart.
type OptimizedRef struct {
	OriginalURL  string `json:"originalUrl"`
	OptimizedURL string `json:"optimizedUrl"`
}

type optimizationEntry struct {
	SplashScreens []OptimizedRef `json:"splashScreens"`
	Screenshots   []OptimizedRef `json:"screenshots"`
}

// GallerySet is a loaded optimization mapping applied to the caller's
// current items.
type GallerySet struct {
	SplashScreens []gallery.MediaItem `json:"splashScreens"`
	Screenshots   []gallery.MediaItem `json:"screenshots"`
}

// OptimizationCache persists original-to-optimized URL mappings keyed by
// (fingerprint, optionsKey). Entries for other fingerprints are stale and
// swept on any fingerprint-aware call.
type OptimizationCache struct {
	store Store
}

// NewOptimizationCache wraps a store.
func NewOptimizationCache(store Store) *OptimizationCache {
	return &OptimizationCache{store: store}
}

func optimizationKey(fingerprint, optionsKey string) string {
	return fingerprint + "-" + optionsKey
}

// HasCached reports whether an entry exists for the composite key. It never
// returns an error; any I/O problem reads as false.
func (c *OptimizationCache) HasCached(fingerprint, optionsKey string) bool {
	_, err := c.store.Get(optimizationKey(fingerprint, optionsKey))
	return err == nil
}

// Load reads the entry for (fingerprint, optionsKey) and re-attaches the
// optimized URLs onto the caller-supplied original items. Items with no
// mapping keep their URL and receive a self-referencing OriginalURL, so
// zoom-to-original always has a valid target. A miss or decode failure is
// returned as such; callers recompute rather than fail.
func (c *OptimizationCache) Load(fingerprint, optionsKey string, splashItems, screenshotItems []gallery.MediaItem) Result[GallerySet] {
	data, err := c.store.Get(optimizationKey(fingerprint, optionsKey))
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(optimizationCacheName, "load", "miss").Inc()
		return Miss[GallerySet]()
	}

	var entry optimizationEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		logging.Warn("Optimization cache: corrupt entry for %s: %v", fingerprint, err)
		metrics.CacheOperationsTotal.WithLabelValues(optimizationCacheName, "load", "error").Inc()
		return Fault[GallerySet](err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(optimizationCacheName, "load", "hit").Inc()
	return Hit(GallerySet{
		SplashScreens: applyMapping(splashItems, entry.SplashScreens),
		Screenshots:   applyMapping(screenshotItems, entry.Screenshots),
	})
}

// Save writes a fresh entry for (fingerprint, optionsKey) derived from the
// optimized items. Write failures are logged and swallowed: caching is
// never load-bearing for correctness.
func (c *OptimizationCache) Save(fingerprint, optionsKey string, splashItems, screenshotItems []gallery.MediaItem) {
	entry := optimizationEntry{
		SplashScreens: toRefs(splashItems),
		Screenshots:   toRefs(screenshotItems),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logging.Warn("Optimization cache: marshal failed: %v", err)
		metrics.CacheOperationsTotal.WithLabelValues(optimizationCacheName, "save", "error").Inc()
		return
	}

	if err := c.store.Put(optimizationKey(fingerprint, optionsKey), data); err != nil {
		logging.Warn("Optimization cache: write failed: %v", err)
		metrics.CacheOperationsTotal.WithLabelValues(optimizationCacheName, "save", "error").Inc()
		return
	}
	metrics.CacheOperationsTotal.WithLabelValues(optimizationCacheName, "save", "ok").Inc()
}

// InvalidateStale removes every entry not belonging to the current
// fingerprint.
func (c *OptimizationCache) InvalidateStale(currentFingerprint string) {
	sweepStale(c.store, optimizationCacheName, currentFingerprint)
}

func applyMapping(items []gallery.MediaItem, refs []OptimizedRef) []gallery.MediaItem {
	byOriginal := make(map[string]string, len(refs))
	for _, ref := range refs {
		byOriginal[ref.OriginalURL] = ref.OptimizedURL
	}

	out := make([]gallery.MediaItem, len(items))
	for i, item := range items {
		item.OriginalURL = item.URL
		if optimized, ok := byOriginal[item.URL]; ok {
			item.URL = optimized
		}
		out[i] = item
	}
	return out
}

func toRefs(items []gallery.MediaItem) []OptimizedRef {
	refs := make([]OptimizedRef, 0, len(items))
	for _, item := range items {
		original := item.OriginalURL
		if original == "" {
			original = item.URL
		}
		refs = append(refs, OptimizedRef{OriginalURL: original, OptimizedURL: item.URL})
	}
	return refs
}
