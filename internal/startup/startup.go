package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gallery-server/internal/gallery"
	"gallery-server/internal/logging"
	"gallery-server/internal/optimize"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// CacheBackend selects the persistence layer for the image caches.
type CacheBackend string

const (
	BackendFile   CacheBackend = "file"
	BackendSQLite CacheBackend = "sqlite"
)

// Config holds all application configuration
type Config struct {
	SplashSource     gallery.SourceConfig
	ScreenshotSource gallery.SourceConfig

	CacheDir     string
	OptimizedDir string
	Port         string
	MetricsPort  string

	CacheBackend CacheBackend
	DatabasePath string

	// Derived per-cache file store directories (file backend only)
	OptimizationCacheDir string
	MetadataCacheDir     string

	Optimization optimize.Options
	ListingTTL   time.Duration

	AdminTokenHash  string
	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool
}

var defaultPatterns = []string{"*.png", "*.jpg", "*.jpeg", "*.webp"}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	splash, err := loadSource("SPLASH", "/media/splash")
	if err != nil {
		return nil, err
	}
	screenshots, err := loadSource("SCREENSHOT", "/media/screenshots")
	if err != nil {
		return nil, err
	}

	cacheDir := getEnv("CACHE_DIR", "/cache")
	optimizedDir := getEnv("OPTIMIZED_DIR", "")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	backend := getEnv("CACHE_BACKEND", "file")
	listingTTLStr := getEnv("LISTING_TTL", "5m")
	adminTokenHash := getEnv("ADMIN_TOKEN_HASH", "")
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	optWidth := getEnvInt("OPT_WIDTH", optimize.DefaultWidth)
	optQuality := getEnvInt("OPT_QUALITY", optimize.DefaultQuality)
	optFormat := getEnv("OPT_FORMAT", optimize.DefaultFormat)

	logging.Info("  CACHE_DIR:           %s", cacheDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  CACHE_BACKEND:       %s", backend)
	logging.Info("  LISTING_TTL:         %s", listingTTLStr)
	logging.Info("  OPT_WIDTH:           %d", optWidth)
	logging.Info("  OPT_QUALITY:         %d", optQuality)
	logging.Info("  OPT_FORMAT:          %s", optFormat)
	logging.Info("  LOG_STATIC_FILES:    %v", logStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	if adminTokenHash == "" {
		logging.Warn("  ADMIN_TOKEN_HASH not set, /api/gallery/refresh will be disabled")
	}
	logSource("SPLASH", splash)
	logSource("SCREENSHOT", screenshots)

	switch CacheBackend(backend) {
	case BackendFile, BackendSQLite:
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q (expected %q or %q)", backend, BackendFile, BackendSQLite)
	}

	switch optFormat {
	case "webp", "jpeg", "jpg", "png":
	default:
		return nil, fmt.Errorf("invalid OPT_FORMAT %q (expected webp, jpeg, or png)", optFormat)
	}

	listingTTL, err := time.ParseDuration(listingTTLStr)
	if err != nil {
		logging.Warn("  Invalid LISTING_TTL, using default: 5m")
		listingTTL = 5 * time.Minute
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	cacheDir, err = filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	if optimizedDir == "" {
		optimizedDir = filepath.Join(cacheDir, "optimized")
	}
	optimizedDir, err = filepath.Abs(optimizedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve optimized directory path: %w", err)
	}
	logging.Info("  Optimized directory (absolute): %s", optimizedDir)

	if err := ensureDirectory(cacheDir, "cache"); err != nil {
		return nil, fmt.Errorf("cache directory error: %w", err)
	}
	if err := ensureDirectory(optimizedDir, "optimized"); err != nil {
		return nil, fmt.Errorf("optimized directory error: %w", err)
	}

	logging.Debug("  Testing cache directory write access...")
	if err := testWriteAccess(cacheDir); err != nil {
		return nil, fmt.Errorf("cache directory is not writable: %w", err)
	}
	logging.Info("  [OK] Cache directory is writable")

	if splash.SourceType == gallery.SourceFolder {
		if err := ensureDirectory(splash.LocalFolder, "splash"); err != nil {
			logging.Warn("  Splash directory issue: %v", err)
		}
	}
	if screenshots.SourceType == gallery.SourceFolder {
		if err := ensureDirectory(screenshots.LocalFolder, "screenshot"); err != nil {
			logging.Warn("  Screenshot directory issue: %v", err)
		}
	}

	config := &Config{
		SplashSource:         splash,
		ScreenshotSource:     screenshots,
		CacheDir:             cacheDir,
		OptimizedDir:         optimizedDir,
		Port:                 port,
		MetricsPort:          metricsPort,
		CacheBackend:         CacheBackend(backend),
		DatabasePath:         filepath.Join(cacheDir, "gallery.db"),
		OptimizationCacheDir: filepath.Join(cacheDir, "optimization"),
		MetadataCacheDir:     filepath.Join(cacheDir, "metadata"),
		Optimization: optimize.Options{
			Width:   optWidth,
			Quality: optQuality,
			Format:  optFormat,
		},
		ListingTTL:      listingTTL,
		AdminTokenHash:  adminTokenHash,
		LogStaticFiles:  logStaticFiles,
		LogHealthChecks: logHealthChecks,
		MetricsEnabled:  metricsEnabled,
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Optimization:  ENABLED (required)")
	logging.Info("    Cache backend: %s", config.CacheBackend)
	logging.Info("    Admin refresh: %s", enabledString(config.AdminTokenHash != ""))
	logging.Info("    Metrics:       %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// loadSource reads one media source from <prefix>_* environment variables.
// Missing required fields for the selected source type are a configuration
// error and fail startup.
func loadSource(prefix, defaultFolder string) (gallery.SourceConfig, error) {
	sourceType := gallery.SourceType(getEnv(prefix+"_SOURCE_TYPE", string(gallery.SourceFolder)))
	cfg := gallery.SourceConfig{
		SourceType:  sourceType,
		BaseURL:     getEnv(prefix+"_BASE_URL", ""),
		LocalFolder: getEnv(prefix+"_FOLDER", ""),
		PublicPath:  getEnv(prefix+"_PUBLIC_PATH", ""),
		Patterns:    splitPatterns(getEnv(prefix+"_PATTERNS", strings.Join(defaultPatterns, ","))),
		MaxImages:   getEnvInt(prefix+"_MAX_IMAGES", 0),
	}

	switch sourceType {
	case gallery.SourceURL:
		if cfg.BaseURL == "" {
			return cfg, fmt.Errorf("%s_SOURCE_TYPE is %q but %s_BASE_URL is not set", prefix, gallery.SourceURL, prefix)
		}
	case gallery.SourceFolder:
		if cfg.LocalFolder == "" {
			cfg.LocalFolder = defaultFolder
		}
	default:
		return cfg, fmt.Errorf("invalid %s_SOURCE_TYPE %q (expected %q or %q)", prefix, sourceType, gallery.SourceURL, gallery.SourceFolder)
	}

	if cfg.SourceType == gallery.SourceFolder {
		abs, err := filepath.Abs(cfg.LocalFolder)
		if err != nil {
			return cfg, fmt.Errorf("failed to resolve %s_FOLDER path: %w", prefix, err)
		}
		cfg.LocalFolder = abs
		if cfg.PublicPath == "" {
			cfg.PublicPath = "/" + filepath.Base(cfg.LocalFolder)
		}
	}

	return cfg, nil
}

func logSource(prefix string, cfg gallery.SourceConfig) {
	logging.Info("  %s source:", prefix)
	logging.Info("    Type:       %s", cfg.SourceType)
	if cfg.SourceType == gallery.SourceURL {
		logging.Info("    Base URL:   %s", cfg.BaseURL)
	} else {
		logging.Info("    Folder:     %s", cfg.LocalFolder)
		if cfg.PublicPath != "" {
			logging.Info("    Public:     %s", cfg.PublicPath)
		}
	}
	logging.Info("    Patterns:   %s", strings.Join(cfg.Patterns, ", "))
	if cfg.MaxImages > 0 {
		logging.Info("    Max images: %d", cfg.MaxImages)
	}
}

func splitPatterns(s string) []string {
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogCacheInit logs cache layer initialization
func LogCacheInit(backend CacheBackend, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CACHE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] %s cache backend initialized in %v", backend, duration)
}

// LogOptimizerInit logs image optimizer initialization
func LogOptimizerInit(vipsAvailable bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("OPTIMIZER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if vipsAvailable {
		logging.Info("  [OK] libvips is available")
	} else {
		logging.Warn("  libvips unavailable, using pure-Go image pipeline")
		logging.Warn("  WebP output will fall back to JPEG")
	}
}

// LogWatcherInit logs filesystem watcher initialization
func LogWatcherInit(folders []string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WATCHER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if len(folders) == 0 {
		logging.Info("  No local folders configured, watcher disabled")
		return
	}
	for _, f := range folders {
		logging.Info("  Watching: %s", f)
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   ______       ____
  / ____/____ _/ / /__  _______  __
 / / __/ __ '/ / / _ \/ ___/ / / /
/ /_/ / /_/ / / /  __/ /  / /_/ /
\____/\__,_/_/_/\___/_/   \__, /
                         /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Write access was confirmed, the leftover file is harmless
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
