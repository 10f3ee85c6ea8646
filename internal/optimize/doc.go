// Package optimize produces reduced renditions of gallery images.
//
// The primary encoder is libvips (via govips); when vips is unavailable the
// package degrades to a pure-Go path built on disintegration/imaging, at
// the cost of webp output. Renditions are content-addressed by source URL
// and transform options and written to a directory the server exposes
// under a public prefix.
//
// OptimizeAll processes items in fixed-size sequential batches with in-batch
// parallelism, bounding simultaneous source fetches and encodes.
package optimize
