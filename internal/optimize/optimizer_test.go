package optimize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"gallery-server/internal/gallery"
)

// testPNG renders a small gradient so encoders have real pixels to work on.
func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func staticSource(data []byte) ByteSource {
	return func(context.Context, string) ([]byte, error) {
		return data, nil
	}
}

func TestEncodeFallbackResizes(t *testing.T) {
	data := testPNG(t, 1200, 600)

	encoded, ext, err := encodeFallback(data, Options{Width: 300, Quality: 80, Format: "jpeg"})
	if err != nil {
		t.Fatalf("encodeFallback() error: %v", err)
	}
	if ext != "jpg" {
		t.Errorf("Expected jpg extension, got %s", ext)
	}

	if _, err := png.Decode(bytes.NewReader(encoded)); err == nil {
		t.Fatal("Output decoded as PNG, expected JPEG")
	}

	decoded, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if got := decoded.Bounds().Dx(); got != 300 {
		t.Errorf("Output width = %d, expected 300", got)
	}
}

func TestEncodeFallbackNoUpscale(t *testing.T) {
	data := testPNG(t, 100, 50)

	encoded, _, err := encodeFallback(data, Options{Width: 600, Quality: 80, Format: "png"})
	if err != nil {
		t.Fatalf("encodeFallback() error: %v", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if got := decoded.Bounds().Dx(); got != 100 {
		t.Errorf("Output width = %d, small images must not be upscaled", got)
	}
}

func TestEncodeFallbackWebpDegradesToJPEG(t *testing.T) {
	data := testPNG(t, 64, 64)

	_, ext, err := encodeFallback(data, Options{}.WithDefaults())
	if err != nil {
		t.Fatalf("encodeFallback() error: %v", err)
	}
	if ext != "jpg" {
		t.Errorf("Pure-Go path should degrade webp to jpg, got %s", ext)
	}
}

func TestEncodeFallbackGarbage(t *testing.T) {
	_, _, err := encodeFallback([]byte("not an image"), Options{}.WithDefaults())
	if err == nil {
		t.Fatal("Expected error for undecodable input")
	}
}

func TestOptimizeWritesRendition(t *testing.T) {
	data := testPNG(t, 800, 400)
	opt, err := New(t.TempDir(), "/optimized", staticSource(data), 0)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	url, err := opt.Optimize(context.Background(), "https://cdn.example.com/a.png", Options{})
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if !strings.HasPrefix(url, "/optimized/") {
		t.Errorf("Optimized URL %s should live under the public prefix", url)
	}
}

func TestOptimizeReusesExistingRendition(t *testing.T) {
	data := testPNG(t, 800, 400)

	var fetches atomic.Int64
	source := func(ctx context.Context, url string) ([]byte, error) {
		fetches.Add(1)
		return data, nil
	}

	opt, err := New(t.TempDir(), "/optimized", source, 0)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	first, err := opt.Optimize(context.Background(), "https://cdn.example.com/a.png", Options{})
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	second, err := opt.Optimize(context.Background(), "https://cdn.example.com/a.png", Options{})
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}

	if first != second {
		t.Errorf("Renditions should be content-addressed: %s != %s", first, second)
	}
	if fetches.Load() != 1 {
		t.Errorf("Expected a single source fetch, got %d", fetches.Load())
	}
}

func TestOptimizeAllKeepsOriginalOnFailure(t *testing.T) {
	data := testPNG(t, 400, 200)
	source := func(ctx context.Context, url string) ([]byte, error) {
		if strings.Contains(url, "bad") {
			return nil, errors.New("fetch refused")
		}
		return data, nil
	}

	opt, err := New(t.TempDir(), "/optimized", source, 0)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	items := []gallery.MediaItem{
		{URL: "https://cdn.example.com/good.png", Name: "good.png"},
		{URL: "https://cdn.example.com/bad.png", Name: "bad.png"},
	}

	out := opt.OptimizeAll(context.Background(), items, Options{})
	if len(out) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(out))
	}

	good, bad := out[0], out[1]
	if !strings.HasPrefix(good.URL, "/optimized/") {
		t.Errorf("good.png should be optimized, got %s", good.URL)
	}
	if good.OriginalURL != "https://cdn.example.com/good.png" {
		t.Errorf("good.png OriginalURL = %s", good.OriginalURL)
	}

	if bad.URL != "https://cdn.example.com/bad.png" {
		t.Errorf("Failed item should keep its URL, got %s", bad.URL)
	}
	if bad.OriginalURL != bad.URL {
		t.Errorf("Failed item should self-reference OriginalURL, got %s", bad.OriginalURL)
	}

	// Inputs are never mutated
	if items[0].OriginalURL != "" {
		t.Error("OptimizeAll must not mutate its input slice")
	}
}

func TestOptimizeAllBatching(t *testing.T) {
	data := testPNG(t, 64, 64)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	block := make(chan struct{})

	source := func(ctx context.Context, url string) ([]byte, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		<-block

		mu.Lock()
		inFlight--
		mu.Unlock()
		return data, nil
	}

	opt, err := New(t.TempDir(), "/optimized", source, 2)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	items := make([]gallery.MediaItem, 6)
	for i := range items {
		items[i] = gallery.MediaItem{URL: fmt.Sprintf("https://cdn.example.com/%d.png", i), Name: fmt.Sprintf("%d.png", i)}
	}

	done := make(chan struct{})
	go func() {
		opt.OptimizeAll(context.Background(), items, Options{})
		close(done)
	}()

	close(block)
	<-done

	if peak > 2 {
		t.Errorf("Peak concurrent fetches = %d, batch size 2 should bound it", peak)
	}
}
