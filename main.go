package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery-server/internal/cache"
	"gallery-server/internal/exifmeta"
	"gallery-server/internal/gallery"
	"gallery-server/internal/handlers"
	"gallery-server/internal/logging"
	"gallery-server/internal/middleware"
	"gallery-server/internal/optimize"
	"gallery-server/internal/startup"
	"gallery-server/internal/workers"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize image processing
	if err := optimize.InitVips(); err != nil {
		logging.Warn("libvips initialization failed: %v", err)
	}
	startup.LogOptimizerInit(optimize.IsVipsAvailable())

	// Initialize cache stores
	cacheStart := time.Now()
	optStore, metaStore, closeStores, err := buildStores(config)
	if err != nil {
		startup.LogFatal("Failed to initialize cache backend: %v", err)
	}
	startup.LogCacheInit(config.CacheBackend, time.Since(cacheStart))

	optCache := cache.NewOptimizationCache(optStore)
	metaCache := cache.NewMetadataCache(metaStore)

	// Map public URL prefixes to local folders so image bytes for
	// folder-sourced items are read from disk instead of fetched over HTTP
	roots := exifmeta.Roots{}
	for _, src := range []gallery.SourceConfig{config.SplashSource, config.ScreenshotSource} {
		if src.SourceType == gallery.SourceFolder && src.PublicPath != "" {
			roots[src.PublicPath] = src.LocalFolder
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}
	fetch := func(ctx context.Context, url string) ([]byte, error) {
		return exifmeta.Resolve(ctx, url, roots, client)
	}

	// Optimization mixes downloads with CPU-heavy encoding; cap the batch
	// size so one gallery refresh cannot saturate the host
	batchSize := workers.ForMixed(optimize.DefaultBatchSize)
	optimizer, err := optimize.New(config.OptimizedDir, "/optimized", fetch, batchSize)
	if err != nil {
		startup.LogFatal("Failed to initialize optimizer: %v", err)
	}

	// Initialize handlers
	h := handlers.New(gallery.NewLister(client), optimizer, optCache, metaCache, roots, client, config)

	// Watch local source folders so additions and removals invalidate the
	// cached listing without waiting for the TTL
	watcher := setupWatcher(config, h)

	// Setup router
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(loggedHandler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, watcher, closeStores)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

// buildStores constructs the two cache stores for the configured backend
// and returns a close function for shutdown.
func buildStores(config *startup.Config) (cache.Store, cache.Store, func(), error) {
	switch config.CacheBackend {
	case startup.BackendSQLite:
		optStore, err := cache.NewSQLStore(config.DatabasePath, "optimization_cache")
		if err != nil {
			return nil, nil, nil, err
		}
		metaStore, err := cache.NewSQLStore(config.DatabasePath, "metadata_cache")
		if err != nil {
			optStore.Close()
			return nil, nil, nil, err
		}
		closeStores := func() {
			if err := optStore.Close(); err != nil {
				logging.Warn("Failed to close optimization store: %v", err)
			}
			if err := metaStore.Close(); err != nil {
				logging.Warn("Failed to close metadata store: %v", err)
			}
		}
		return optStore, metaStore, closeStores, nil
	default:
		optStore, err := cache.NewFileStore(config.OptimizationCacheDir)
		if err != nil {
			return nil, nil, nil, err
		}
		metaStore, err := cache.NewFileStore(config.MetadataCacheDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return optStore, metaStore, func() {}, nil
	}
}

// setupWatcher starts a filesystem watcher over all folder-mode sources.
// Returns nil when no folder sources are configured or the watcher cannot
// be created; the TTL still bounds listing staleness in that case.
func setupWatcher(config *startup.Config, h *handlers.Handlers) *gallery.Watcher {
	var folders []string
	for _, src := range []gallery.SourceConfig{config.SplashSource, config.ScreenshotSource} {
		if src.SourceType == gallery.SourceFolder {
			folders = append(folders, src.LocalFolder)
		}
	}
	startup.LogWatcherInit(folders)
	if len(folders) == 0 {
		return nil
	}

	watcher, err := gallery.NewWatcher(h.InvalidateListing)
	if err != nil {
		logging.Warn("Failed to create filesystem watcher: %v", err)
		return nil
	}
	for _, folder := range folders {
		if err := watcher.Add(folder); err != nil {
			logging.Warn("Failed to watch %s: %v", folder, err)
		}
	}
	watcher.Start()
	return watcher
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Gallery API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/gallery", h.GetGallery).Methods("GET")
	api.HandleFunc("/gallery/metadata", h.GetMetadata).Methods("GET")
	api.HandleFunc("/gallery/refresh", h.RefreshGallery).Methods("POST")

	// Optimized renditions and local source folders
	r.PathPrefix("/optimized/").Handler(
		http.StripPrefix("/optimized/", http.FileServer(http.Dir(config.OptimizedDir))))
	for _, src := range []gallery.SourceConfig{config.SplashSource, config.ScreenshotSource} {
		if src.SourceType == gallery.SourceFolder && src.PublicPath != "" {
			r.PathPrefix(src.PublicPath + "/").Handler(
				http.StripPrefix(src.PublicPath+"/", http.FileServer(http.Dir(src.LocalFolder))))
		}
	}

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, watcher *gallery.Watcher, closeStores func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if watcher != nil {
		startup.LogShutdownStep("Stopping filesystem watcher")
		watcher.Stop()
		startup.LogShutdownStepComplete("Filesystem watcher stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Closing cache stores")
	closeStores()
	startup.LogShutdownStepComplete("Cache stores closed")

	startup.LogShutdownStep("Shutting down image processing")
	optimize.ShutdownVips()
	startup.LogShutdownStepComplete("Image processing stopped")

	startup.LogShutdownComplete()
}
