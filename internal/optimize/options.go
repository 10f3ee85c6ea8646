package optimize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Defaults applied to unset optimization options before hashing and
// processing.
const (
	DefaultWidth   = 600
	DefaultQuality = 80
	DefaultFormat  = "webp"
)

// Options are the image transform parameters. The zero value means
// "defaults for everything".
type Options struct {
	Width   int    `json:"width"`
	Quality int    `json:"quality"`
	Format  string `json:"format"`
}

// WithDefaults returns the options with defaults applied to unset fields.
func (o Options) WithDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	return o
}

// Key hashes the defaulted options into the secondary cache key used
// alongside the media-state fingerprint. Key(Options{}) equals the key of
// the explicit defaults.
func Key(opts Options) string {
	encoded, err := json.Marshal(opts.WithDefaults())
	if err != nil {
		panic(err) // three scalar fields cannot fail to marshal
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
