// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all application configuration and provides consistent
// logging throughout the application lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - SPLASH_SOURCE_TYPE / SCREENSHOT_SOURCE_TYPE: "url" or "folder" (default: folder)
//   - SPLASH_BASE_URL / SCREENSHOT_BASE_URL: directory-listing URL, required for url sources
//   - SPLASH_FOLDER / SCREENSHOT_FOLDER: local directory for folder sources
//   - SPLASH_PUBLIC_PATH / SCREENSHOT_PUBLIC_PATH: URL prefix folder items are served under
//   - SPLASH_PATTERNS / SCREENSHOT_PATTERNS: comma-separated glob filters
//     (default: *.png,*.jpg,*.jpeg,*.webp)
//   - SPLASH_MAX_IMAGES / SCREENSHOT_MAX_IMAGES: cap on returned items (default: unlimited)
//   - CACHE_DIR: Path to cache directory (default: /cache)
//   - OPTIMIZED_DIR: Path for optimized renditions (default: CACHE_DIR/optimized)
//   - CACHE_BACKEND: Cache persistence backend, file or sqlite (default: file)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LISTING_TTL: How long a source listing is reused as Go duration (default: 5m)
//   - OPT_WIDTH, OPT_QUALITY, OPT_FORMAT: optimization defaults (600, 80, webp)
//   - ADMIN_TOKEN_HASH: bcrypt hash gating POST /api/gallery/refresh
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Directory Setup
//
// The cache directory is required and must be writable; startup fails
// otherwise. Folder sources are created if missing but problems are only
// warned about, so a server pointed at an empty mount still starts.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
package startup
