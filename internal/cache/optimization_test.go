package cache

import (
	"os"
	"path/filepath"
	"testing"

	"gallery-server/internal/gallery"
)

func newOptimizationCache(t *testing.T) (*OptimizationCache, *FileStore) {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	return NewOptimizationCache(store), store
}

func optimizedItems() ([]gallery.MediaItem, []gallery.MediaItem) {
	splash := []gallery.MediaItem{
		{URL: "/optimized/aaa.webp", OriginalURL: "https://cdn.example.com/splash/a.png", Name: "a.png"},
	}
	screenshots := []gallery.MediaItem{
		{URL: "/optimized/ccc.webp", OriginalURL: "https://cdn.example.com/shots/c.png", Name: "c.png"},
		// never optimized, no OriginalURL yet
		{URL: "https://cdn.example.com/shots/d.png", Name: "d.png"},
	}
	return splash, screenshots
}

func originalItems() ([]gallery.MediaItem, []gallery.MediaItem) {
	splash := []gallery.MediaItem{
		{URL: "https://cdn.example.com/splash/a.png", Name: "a.png"},
	}
	screenshots := []gallery.MediaItem{
		{URL: "https://cdn.example.com/shots/c.png", Name: "c.png"},
		{URL: "https://cdn.example.com/shots/d.png", Name: "d.png"},
	}
	return splash, screenshots
}

func TestOptimizationCacheSaveLoad(t *testing.T) {
	cache, _ := newOptimizationCache(t)

	optSplash, optShots := optimizedItems()
	cache.Save("fp1", "opts1", optSplash, optShots)

	origSplash, origShots := originalItems()
	res := cache.Load("fp1", "opts1", origSplash, origShots)
	if res.Status != StatusHit {
		t.Fatalf("Load() status = %v, expected hit", res.Status)
	}

	set := res.Value
	if len(set.SplashScreens) != 1 || len(set.Screenshots) != 2 {
		t.Fatalf("Unexpected set sizes: %d splash, %d screenshots", len(set.SplashScreens), len(set.Screenshots))
	}

	if set.SplashScreens[0].URL != "/optimized/aaa.webp" {
		t.Errorf("Splash URL = %s, expected optimized URL", set.SplashScreens[0].URL)
	}
	if set.SplashScreens[0].OriginalURL != "https://cdn.example.com/splash/a.png" {
		t.Errorf("Splash OriginalURL = %s", set.SplashScreens[0].OriginalURL)
	}

	// d.png had no optimization; it keeps its URL and gets a
	// self-referencing originalUrl so zoom-to-original stays valid.
	unmatched := set.Screenshots[1]
	if unmatched.URL != "https://cdn.example.com/shots/d.png" {
		t.Errorf("Unmatched item URL changed: %s", unmatched.URL)
	}
	if unmatched.OriginalURL != unmatched.URL {
		t.Errorf("Unmatched item OriginalURL = %s, expected self-reference", unmatched.OriginalURL)
	}
}

func TestOptimizationCacheLoadMissing(t *testing.T) {
	cache, _ := newOptimizationCache(t)

	splash, shots := originalItems()
	res := cache.Load("fp1", "never-saved", splash, shots)
	if res.Status != StatusMiss {
		t.Errorf("Load() on missing entry = %v, expected miss", res.Status)
	}
}

func TestOptimizationCacheLoadCorrupt(t *testing.T) {
	cache, store := newOptimizationCache(t)

	if err := store.Put("fp1-opts1", []byte("{not json")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	splash, shots := originalItems()
	res := cache.Load("fp1", "opts1", splash, shots)
	if res.Status != StatusError {
		t.Errorf("Load() on corrupt entry = %v, expected error status", res.Status)
	}
	if res.Err == nil {
		t.Error("Error status should carry the decode error")
	}
}

func TestOptimizationCacheHasCached(t *testing.T) {
	cache, _ := newOptimizationCache(t)

	if cache.HasCached("fp1", "opts1") {
		t.Error("HasCached before save should be false")
	}

	splash, shots := optimizedItems()
	cache.Save("fp1", "opts1", splash, shots)

	if !cache.HasCached("fp1", "opts1") {
		t.Error("HasCached after save should be true")
	}
	if cache.HasCached("fp2", "opts1") {
		t.Error("HasCached for another fingerprint should be false")
	}
}

func TestOptimizationCacheInvalidateStale(t *testing.T) {
	cache, store := newOptimizationCache(t)

	splash, shots := optimizedItems()
	cache.Save("oldfp", "opts1", splash, shots)
	cache.Save("oldfp", "opts2", splash, shots)
	cache.Save("newfp", "opts1", splash, shots)

	cache.InvalidateStale("newfp")

	if cache.HasCached("oldfp", "opts1") || cache.HasCached("oldfp", "opts2") {
		t.Error("Stale entries should be removed")
	}
	if !cache.HasCached("newfp", "opts1") {
		t.Error("Current-fingerprint entry should survive the sweep")
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Expected exactly 1 surviving entry, got %v", keys)
	}
}

func TestOptimizationCacheSweepIgnoresBookkeeping(t *testing.T) {
	cache, store := newOptimizationCache(t)

	splash, shots := optimizedItems()
	cache.Save("fp", "opts", splash, shots)

	marker := filepath.Join(store.Dir(), ".gitkeep")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatalf("Failed to write bookkeeping file: %v", err)
	}

	cache.InvalidateStale("fp")

	if _, err := os.Stat(marker); err != nil {
		t.Errorf("Sweep should not touch bookkeeping files: %v", err)
	}
}

func TestOptimizationCacheSaveWithoutOriginalURL(t *testing.T) {
	cache, _ := newOptimizationCache(t)

	// Items that were never optimized save a self-mapping
	splash := []gallery.MediaItem{{URL: "https://cdn.example.com/splash/a.png", Name: "a.png"}}
	cache.Save("fp", "opts", splash, nil)

	res := cache.Load("fp", "opts", splash, nil)
	if res.Status != StatusHit {
		t.Fatalf("Load() status = %v, expected hit", res.Status)
	}
	item := res.Value.SplashScreens[0]
	if item.URL != "https://cdn.example.com/splash/a.png" || item.OriginalURL != item.URL {
		t.Errorf("Self-mapped item should keep its URL: %+v", item)
	}
}
