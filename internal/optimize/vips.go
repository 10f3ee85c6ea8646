package optimize

import (
	"sync"

	"gallery-server/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes the libvips library.
// This should be called once at startup.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Route vips logging through our logger, configured before Startup()
	// so LOG_LEVEL is respected.
	var vipsLogLevel vips.LogLevel
	var logHandler func(string, vips.LogLevel, string)

	if logging.IsDebugEnabled() {
		vipsLogLevel = vips.LogLevelInfo
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	} else {
		vipsLogLevel = vips.LogLevelWarning
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}

	vips.LoggingSettings(logHandler, vipsLogLevel)

	// Conservative memory settings; optimization runs are bursty and the
	// batcher already bounds parallelism.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// encodeWithVips shrinks the image to targetWidth (preserving aspect ratio,
// never upscaling) and exports it in the requested format. Decode-time
// shrinking keeps peak memory far below a decode-then-resize pipeline.
func encodeWithVips(data []byte, opts Options) ([]byte, string, error) {
	params := vips.NewImportParams()
	ref, err := vips.LoadImageFromBuffer(data, params)
	if err != nil {
		return nil, "", err
	}
	defer ref.Close()

	if ref.Width() > opts.Width {
		scale := float64(opts.Width) / float64(ref.Width())
		if err := ref.Resize(scale, vips.KernelLanczos3); err != nil {
			return nil, "", err
		}
	}

	switch opts.Format {
	case "jpeg", "jpg":
		out, _, err := ref.ExportJpeg(&vips.JpegExportParams{
			Quality:        opts.Quality,
			StripMetadata:  true,
			OptimizeCoding: true,
		})
		return out, "jpg", err
	case "png":
		out, _, err := ref.ExportPng(vips.NewPngExportParams())
		return out, "png", err
	default: // webp
		out, _, err := ref.ExportWebp(&vips.WebpExportParams{
			Quality:       opts.Quality,
			StripMetadata: true,
		})
		return out, "webp", err
	}
}
