// Package workers provides utilities for determining worker pool sizes in
// containerized environments.
//
// Go 1.19+ sets GOMAXPROCS from container CPU limits, while runtime.NumCPU()
// still reports the host CPU count. The helpers here derive worker counts
// from GOMAXPROCS so batch work (image optimization, remote fetches) stays
// within the container's allotment. The count can be overridden with the
// GALLERY_WORKERS environment variable.
package workers
