package handlers

import (
	"net/http"
	"runtime"
	"time"

	"gallery-server/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Listing state
	Fingerprint string `json:"fingerprint,omitempty"`
	LastListed  string `json:"lastListed,omitempty"`
	SplashCount int    `json:"splashCount"`
	ScreenCount int    `json:"screenshotCount"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	h.mu.Lock()
	if h.snapshot != nil {
		response.Fingerprint = h.snapshot.fingerprint
		response.LastListed = h.snapshot.taken.Format("2006-01-02T15:04:05Z07:00")
		response.SplashCount = len(h.snapshot.splash)
		response.ScreenCount = len(h.snapshot.screenshots)
	} else {
		response.Status = statusStarting
	}
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSONStatus(w, "alive")
	}
}

// ReadinessCheck returns 200 once the handlers are serving. Sources are
// enumerated lazily, so readiness does not depend on upstream listings.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, "ready")
}
