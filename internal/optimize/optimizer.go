package optimize

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"gallery-server/internal/gallery"
	"gallery-server/internal/logging"
	"gallery-server/internal/metrics"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DefaultBatchSize bounds how many optimization calls run at once. Batches
// execute sequentially; items within a batch run in parallel and are
// awaited together before the next batch starts.
const DefaultBatchSize = 5

// ByteSource fetches the raw bytes for a media item URL.
type ByteSource func(ctx context.Context, url string) ([]byte, error)

// Optimizer produces width/quality/format-reduced renditions of source
// images, written content-addressed under an output directory that the
// server exposes at publicPrefix.
type Optimizer struct {
	outputDir    string
	publicPrefix string
	fetch        ByteSource
	batchSize    int
}

// New creates an Optimizer. The output directory is created if missing.
// batchSize values below 1 fall back to DefaultBatchSize.
func New(outputDir, publicPrefix string, fetch ByteSource, batchSize int) (*Optimizer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create optimized output dir %s: %w", outputDir, err)
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Optimizer{
		outputDir:    outputDir,
		publicPrefix: publicPrefix,
		fetch:        fetch,
		batchSize:    batchSize,
	}, nil
}

// OptimizeAll returns a copy of items with URLs rewritten to optimized
// renditions. Items that fail to optimize keep their original URL; per-item
// failures are logged, never returned.
func (o *Optimizer) OptimizeAll(ctx context.Context, items []gallery.MediaItem, opts Options) []gallery.MediaItem {
	opts = opts.WithDefaults()

	out := make([]gallery.MediaItem, len(items))
	copy(out, items)

	for start := 0; start < len(out); start += o.batchSize {
		end := start + o.batchSize
		if end > len(out) {
			end = len(out)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				o.optimizeItem(ctx, &out[i], opts)
			}(i)
		}
		wg.Wait()
	}

	return out
}

func (o *Optimizer) optimizeItem(ctx context.Context, item *gallery.MediaItem, opts Options) {
	start := time.Now()

	optimizedURL, err := o.Optimize(ctx, item.URL, opts)
	if err != nil {
		logging.Warn("Optimization failed for %s: %v", item.URL, err)
		metrics.OptimizationsTotal.WithLabelValues("error").Inc()
		item.OriginalURL = item.URL
		return
	}

	metrics.OptimizationsTotal.WithLabelValues("success").Inc()
	metrics.OptimizationDuration.Observe(time.Since(start).Seconds())

	item.OriginalURL = item.URL
	item.URL = optimizedURL
}

// Optimize fetches one source image, produces its rendition and returns the
// public URL of the result. Renditions are content-addressed by source URL
// and options, so re-optimizing an unchanged image reuses the existing
// file.
func (o *Optimizer) Optimize(ctx context.Context, sourceURL string, opts Options) (string, error) {
	opts = opts.WithDefaults()

	sum := sha256.Sum256([]byte(sourceURL + "|" + Key(opts)))
	base := hex.EncodeToString(sum[:16])

	// The extension depends on the encoder actually used, so probe for an
	// existing rendition under any of them.
	for _, ext := range []string{opts.Format, "webp", "jpg", "png"} {
		name := base + "." + normalizeExt(ext)
		if _, err := os.Stat(filepath.Join(o.outputDir, name)); err == nil {
			return path.Join(o.publicPrefix, name), nil
		}
	}

	data, err := o.fetch(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("fetch source image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("source image %s is empty or unavailable", sourceURL)
	}

	encoded, ext, err := encode(data, opts)
	if err != nil {
		return "", fmt.Errorf("encode rendition: %w", err)
	}

	if saved := int64(len(data)) - int64(len(encoded)); saved > 0 {
		metrics.OptimizationBytesSaved.Add(float64(saved))
	}

	name := base + "." + ext
	if err := os.WriteFile(filepath.Join(o.outputDir, name), encoded, 0o644); err != nil {
		return "", fmt.Errorf("write rendition: %w", err)
	}

	logging.Debug("Optimized %s -> %s (%d -> %d bytes)", sourceURL, name, len(data), len(encoded))
	return path.Join(o.publicPrefix, name), nil
}

// encode prefers libvips and falls back to pure-Go decoding when vips is
// not available in this process.
func encode(data []byte, opts Options) ([]byte, string, error) {
	if IsVipsAvailable() {
		return encodeWithVips(data, opts)
	}
	return encodeFallback(data, opts)
}

// encodeFallback is the pure-Go path. It cannot produce webp output, so
// webp requests degrade to jpeg.
func encodeFallback(data []byte, opts Options) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode source image: %w", err)
	}

	if img.Bounds().Dx() > opts.Width {
		img = imaging.Resize(img, opts.Width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch opts.Format {
	case "png":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "png", nil
	default:
		// jpeg, jpg and the webp degradation all land here
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "jpg", nil
	}
}

func normalizeExt(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
