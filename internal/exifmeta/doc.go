// Package exifmeta extracts the site's descriptive image metadata from the
// EXIF user-comment field.
//
// The comment field carries a base64-encoded JSON payload (title,
// description, author, source links) written by the screenshot publishing
// tooling. Extraction is deliberately infallible: malformed EXIF, bad
// base64, bad JSON and unreachable remote images all collapse to "no
// metadata", which the UI renders identically to an image that never had a
// payload.
package exifmeta
