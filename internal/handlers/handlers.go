package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gallery-server/internal/cache"
	"gallery-server/internal/exifmeta"
	"gallery-server/internal/gallery"
	"gallery-server/internal/optimize"
	"gallery-server/internal/startup"
)

// ImageOptimizer produces optimized renditions for a set of media items.
// Satisfied by [optimize.Optimizer].
type ImageOptimizer interface {
	OptimizeAll(ctx context.Context, items []gallery.MediaItem, opts optimize.Options) []gallery.MediaItem
}

// listingSnapshot is one enumeration of both sources plus its fingerprint.
type listingSnapshot struct {
	splash      []gallery.MediaItem
	screenshots []gallery.MediaItem
	fingerprint string
	taken       time.Time
	known       map[string]bool
}

// contains reports whether url names an image in this snapshot.
func (s *listingSnapshot) contains(url string) bool {
	return s.known[url]
}

type Handlers struct {
	lister    *gallery.Lister
	optimizer ImageOptimizer
	optCache  *cache.OptimizationCache
	metaCache *cache.MetadataCache
	roots     exifmeta.Roots
	client    *http.Client
	config    *startup.Config
	startTime time.Time

	mu       sync.Mutex
	snapshot *listingSnapshot
}

func New(lister *gallery.Lister, optimizer ImageOptimizer, optCache *cache.OptimizationCache, metaCache *cache.MetadataCache, roots exifmeta.Roots, client *http.Client, config *startup.Config) *Handlers {
	if client == nil {
		client = http.DefaultClient
	}
	return &Handlers{
		lister:    lister,
		optimizer: optimizer,
		optCache:  optCache,
		metaCache: metaCache,
		roots:     roots,
		client:    client,
		config:    config,
		startTime: time.Now(),
	}
}

// InvalidateListing drops the cached source listing so the next request
// re-enumerates. Called by the filesystem watcher and the refresh endpoint.
func (h *Handlers) InvalidateListing() {
	h.mu.Lock()
	h.snapshot = nil
	h.mu.Unlock()
}

// getListing returns the current listing snapshot, re-enumerating both
// sources when none exists or the previous one has expired. A fresh
// enumeration also sweeps stale entries from both caches, which is the only
// place eviction happens.
func (h *Handlers) getListing(ctx context.Context, force bool) (*listingSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !force && h.snapshot != nil && time.Since(h.snapshot.taken) < h.config.ListingTTL {
		return h.snapshot, nil
	}

	splash, err := h.lister.List(ctx, h.config.SplashSource)
	if err != nil {
		return nil, err
	}
	screenshots, err := h.lister.List(ctx, h.config.ScreenshotSource)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(splash)+len(screenshots))
	for _, item := range splash {
		known[item.URL] = true
	}
	for _, item := range screenshots {
		known[item.URL] = true
	}

	snap := &listingSnapshot{
		splash:      splash,
		screenshots: screenshots,
		fingerprint: gallery.Fingerprint(splash, screenshots),
		taken:       time.Now(),
		known:       known,
	}

	h.optCache.InvalidateStale(snap.fingerprint)
	h.metaCache.InvalidateStale(snap.fingerprint)

	h.snapshot = snap
	return snap, nil
}
