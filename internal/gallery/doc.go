// Package gallery enumerates and fingerprints the media items shown in the
// site gallery.
//
// Items come from one of two source kinds: a remote HTTP directory listing
// (parsed from autoindex-style HTML) or a local folder. Both are filtered by
// glob patterns, sorted newest-first and truncated to a configured maximum.
//
// Fingerprint summarizes the current item set as a stable hash. The caches
// in gallery-server/internal/cache use it as their invalidation epoch: any
// added, removed or modified source file changes the fingerprint and
// strands every dependent cache entry.
package gallery
