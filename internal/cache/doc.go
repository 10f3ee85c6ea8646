// Package cache implements the fingerprint-keyed memoization layers for the
// gallery: the optimization cache (original URL → optimized URL mappings)
// and the metadata cache (image URL → extracted descriptive metadata, with
// negative caching).
//
// Both caches share the same invalidation model: entry keys are prefixed by
// the media-state fingerprint, and any fingerprint-aware call sweeps every
// entry carrying a different prefix. There is no TTL and no LRU eviction.
//
// The backing Store is swappable. FileStore keeps one JSON file per key;
// SQLStore keeps entries in a SQLite table. Neither takes locks: the cache
// is reconstructable from the source images, so last-write-wins races are
// accepted. Cache failures are always folded into misses and never
// propagate to request handlers.
package cache
