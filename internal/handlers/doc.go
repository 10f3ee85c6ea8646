// Package handlers implements the HTTP API.
//
// The gallery endpoints share one listing snapshot: both image sources are
// enumerated at most once per LISTING_TTL, and every fresh enumeration
// computes the source fingerprint and sweeps stale cache entries. The
// filesystem watcher and the admin refresh endpoint drop the snapshot to
// force re-enumeration.
//
// Endpoints:
//
//   - GET  /api/gallery            - both categories with optimized URLs
//   - GET  /api/gallery/metadata   - embedded metadata for one listed image (?url=)
//   - POST /api/gallery/refresh    - force re-enumeration (admin token)
//   - GET  /health, /healthz       - detailed health status
//   - GET  /livez, /readyz         - liveness and readiness probes
//   - GET  /version                - build information
package handlers
