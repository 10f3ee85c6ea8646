package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"gallery-server/internal/exifmeta"
	"gallery-server/internal/logging"
	"gallery-server/internal/metrics"
)

const metadataCacheName = "metadata"

// metadataEntry wraps the stored metadata with an explicit resolution
// marker. The marker distinguishes "checked, found nothing" (Metadata nil,
// Cached true) from a true cache miss, so images without embedded metadata
// are not re-downloaded and re-parsed on every gallery view.
type metadataEntry struct {
	Metadata *exifmeta.Info `json:"metadata"`
	Cached   bool           `json:"_cached"`
}

// MetadataCache persists extracted image metadata keyed by
// (fingerprint, hash(imageURL)). It shares the fingerprint epoch with the
// optimization cache but lives in a disjoint key space.
type MetadataCache struct {
	store Store
}

// NewMetadataCache wraps a store.
func NewMetadataCache(store Store) *MetadataCache {
	return &MetadataCache{store: store}
}

func metadataKey(fingerprint, imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return fingerprint + "-" + hex.EncodeToString(sum[:])
}

// HasCached reports whether a resolved entry exists for the image URL under
// the given fingerprint. Never errors.
func (c *MetadataCache) HasCached(fingerprint, imageURL string) bool {
	_, err := c.store.Get(metadataKey(fingerprint, imageURL))
	return err == nil
}

// Load returns the cached metadata for an image URL. A Hit with a nil value
// means the image was previously resolved and has no metadata; a Miss means
// it was never checked.
func (c *MetadataCache) Load(fingerprint, imageURL string) Result[*exifmeta.Info] {
	data, err := c.store.Get(metadataKey(fingerprint, imageURL))
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metadataCacheName, "load", "miss").Inc()
		return Miss[*exifmeta.Info]()
	}

	var entry metadataEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		logging.Warn("Metadata cache: corrupt entry for %s: %v", imageURL, err)
		metrics.CacheOperationsTotal.WithLabelValues(metadataCacheName, "load", "error").Inc()
		return Fault[*exifmeta.Info](err)
	}

	if !entry.Cached {
		// Legacy on-disk format: the metadata object stored unwrapped,
		// without the resolution marker.
		var legacy exifmeta.Info
		if err := json.Unmarshal(data, &legacy); err == nil && !legacy.IsZero() {
			metrics.CacheOperationsTotal.WithLabelValues(metadataCacheName, "load", "hit").Inc()
			return Hit(&legacy)
		}
		metrics.CacheOperationsTotal.WithLabelValues(metadataCacheName, "load", "miss").Inc()
		return Miss[*exifmeta.Info]()
	}

	metrics.CacheOperationsTotal.WithLabelValues(metadataCacheName, "load", "hit").Inc()
	return Hit(entry.Metadata)
}

// Save persists the metadata for an image URL, including an explicit nil
// for images that resolved to no metadata. Write failures are logged and
// swallowed.
func (c *MetadataCache) Save(fingerprint, imageURL string, info *exifmeta.Info) {
	data, err := json.Marshal(metadataEntry{Metadata: info, Cached: true})
	if err != nil {
		logging.Warn("Metadata cache: marshal failed for %s: %v", imageURL, err)
		metrics.CacheOperationsTotal.WithLabelValues(metadataCacheName, "save", "error").Inc()
		return
	}

	if err := c.store.Put(metadataKey(fingerprint, imageURL), data); err != nil {
		logging.Warn("Metadata cache: write failed for %s: %v", imageURL, err)
		metrics.CacheOperationsTotal.WithLabelValues(metadataCacheName, "save", "error").Inc()
		return
	}
	metrics.CacheOperationsTotal.WithLabelValues(metadataCacheName, "save", "ok").Inc()
}

// InvalidateStale removes every entry not belonging to the current
// fingerprint.
func (c *MetadataCache) InvalidateStale(currentFingerprint string) {
	sweepStale(c.store, metadataCacheName, currentFingerprint)
}
