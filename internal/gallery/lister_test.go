package gallery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const autoindexListing = `<html><head><title>Index of /media</title></head><body>
<h1>Index of /media</h1><hr><pre><a href="../">../</a>
<a href="splashscreen1.png">splashscreen1.png</a>                19-Nov-2023 20:12              104857
<a href="screenshot1.png">screenshot1.png</a>                  20-Nov-2023 08:31              204812
<a href="other.txt">other.txt</a>                        18-Nov-2023 11:00                 512
</pre><hr></body></html>`

const plainListing = `<html><body>
<ul>
<li><a href="../">Parent Directory</a></li>
<li><a href="screenshot2.png">screenshot2.png</a></li>
<li><a href="notes.txt">notes.txt</a></li>
<li><a href="?C=M;O=A">Sort by date</a></li>
</ul>
</body></html>`

func TestListURLStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); accept != "text/html" {
			t.Errorf("Expected Accept: text/html, got %q", accept)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(autoindexListing))
	}))
	defer srv.Close()

	lister := NewLister(srv.Client())
	items, err := lister.List(context.Background(), SourceConfig{
		SourceType: SourceURL,
		BaseURL:    srv.URL + "/media/",
		Patterns:   []string{"*.png", "*.jpg"},
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d: %+v", len(items), items)
	}

	// screenshot1.png is newer, so it sorts first
	if items[0].Name != "screenshot1.png" || items[1].Name != "splashscreen1.png" {
		t.Errorf("Unexpected order: %s, %s", items[0].Name, items[1].Name)
	}

	first := items[0]
	if first.URL != srv.URL+"/media/screenshot1.png" {
		t.Errorf("Unexpected URL: %s", first.URL)
	}
	if first.Size == nil || *first.Size != 204812 {
		t.Errorf("Expected size 204812, got %v", first.Size)
	}
	if first.LastModified != "20-Nov-2023 08:31" {
		t.Errorf("Unexpected lastModified: %q", first.LastModified)
	}
	if first.Alt != "screenshot1" {
		t.Errorf("Unexpected alt: %q", first.Alt)
	}
}

func TestListURLAnchorFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(plainListing))
	}))
	defer srv.Close()

	lister := NewLister(srv.Client())
	items, err := lister.List(context.Background(), SourceConfig{
		SourceType: SourceURL,
		BaseURL:    srv.URL + "/",
		Patterns:   []string{"*.png"},
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d: %+v", len(items), items)
	}
	if items[0].Name != "screenshot2.png" {
		t.Errorf("Expected screenshot2.png, got %s", items[0].Name)
	}
	if items[0].Size != nil || items[0].LastModified != "" {
		t.Error("Anchor-only parse should not attach size or modification time")
	}
}

func TestListURLMaxImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(autoindexListing))
	}))
	defer srv.Close()

	lister := NewLister(srv.Client())
	items, err := lister.List(context.Background(), SourceConfig{
		SourceType: SourceURL,
		BaseURL:    srv.URL,
		Patterns:   []string{"*.png"},
		MaxImages:  1,
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item after truncation, got %d", len(items))
	}
}

func TestListURLNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	lister := NewLister(srv.Client())
	_, err := lister.List(context.Background(), SourceConfig{
		SourceType: SourceURL,
		BaseURL:    srv.URL,
	})
	if err == nil {
		t.Fatal("Expected error for non-2xx listing response")
	}
}

func TestListURLNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // connection refused from here on

	lister := NewLister(&http.Client{Timeout: time.Second})
	_, err := lister.List(context.Background(), SourceConfig{
		SourceType: SourceURL,
		BaseURL:    srv.URL,
	})
	if err == nil {
		t.Fatal("Expected error for unreachable listing server")
	}
}

func TestListConfigurationErrors(t *testing.T) {
	lister := NewLister(nil)

	_, err := lister.List(context.Background(), SourceConfig{SourceType: SourceURL})
	if !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("Expected ErrMissingBaseURL, got %v", err)
	}

	_, err = lister.List(context.Background(), SourceConfig{SourceType: SourceFolder})
	if !errors.Is(err, ErrMissingFolder) {
		t.Errorf("Expected ErrMissingFolder, got %v", err)
	}

	_, err = lister.List(context.Background(), SourceConfig{SourceType: "carrier-pigeon"})
	if err == nil {
		t.Error("Expected error for unknown source type")
	}
}

func TestListFolder(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(name string, content []byte, mtime time.Time) {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("Failed to set mtime on %s: %v", name, err)
		}
	}

	now := time.Now().Truncate(time.Second)
	writeFile("old.png", []byte("old image"), now.Add(-time.Hour))
	writeFile("new.png", []byte("newer image data"), now)
	writeFile("skip.txt", []byte("not an image"), now)
	writeFile(".hidden.png", []byte("hidden"), now)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}

	lister := NewLister(nil)
	items, err := lister.List(context.Background(), SourceConfig{
		SourceType:  SourceFolder,
		LocalFolder: dir,
		PublicPath:  "/screenshots",
		Patterns:    []string{"*.png"},
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].Name != "new.png" {
		t.Errorf("Expected new.png first (newest), got %s", items[0].Name)
	}
	if items[0].URL != "/screenshots/new.png" {
		t.Errorf("Unexpected URL: %s", items[0].URL)
	}
	if items[0].Size == nil || *items[0].Size != int64(len("newer image data")) {
		t.Errorf("Unexpected size: %v", items[0].Size)
	}
	if _, ok := parseModTime(items[0].LastModified); !ok {
		t.Errorf("Folder items should carry a parseable modification time, got %q", items[0].LastModified)
	}
}

func TestListFolderMissingDirectory(t *testing.T) {
	lister := NewLister(nil)
	_, err := lister.List(context.Background(), SourceConfig{
		SourceType:  SourceFolder,
		LocalFolder: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	if err == nil {
		t.Fatal("Expected error for missing folder")
	}
}

func TestSortItemsFallsBackToName(t *testing.T) {
	items := []MediaItem{
		{Name: "b.png"},
		{Name: "a.png", LastModified: "2024-01-01T00:00:00Z"},
		{Name: "c.png"},
	}
	sortItems(items)

	// Only one item has a modification time, so every comparison falls
	// back to the name ordering.
	if items[0].Name != "a.png" || items[1].Name != "b.png" || items[2].Name != "c.png" {
		t.Errorf("Unexpected order: %s, %s, %s", items[0].Name, items[1].Name, items[2].Name)
	}
}
