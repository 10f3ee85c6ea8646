package gallery

import (
	"path"
	"strings"
)

// SourceType selects where media items are enumerated from.
type SourceType string

const (
	// SourceURL enumerates items from a remote HTTP directory listing.
	SourceURL SourceType = "url"
	// SourceFolder enumerates items from a local directory.
	SourceFolder SourceType = "folder"
)

// SourceConfig describes one media source.
type SourceConfig struct {
	SourceType  SourceType
	BaseURL     string
	LocalFolder string
	// PublicPath is the URL prefix folder-mode items are served under.
	// Defaults to "/" plus the folder's base name.
	PublicPath string
	Patterns   []string
	MaxImages  int
}

// MediaItem represents one discoverable image.
//
// URL is the location the item is currently reachable at; it is rewritten
// to an optimized URL once optimization has run, at which point OriginalURL
// holds the pre-optimization location.
type MediaItem struct {
	URL          string `json:"url"`
	OriginalURL  string `json:"originalUrl,omitempty"`
	Name         string `json:"name"`
	Alt          string `json:"alt"`
	Size         *int64 `json:"size,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// AltFromName derives a human-readable label from a file name by stripping
// the extension and replacing separator characters with spaces.
func AltFromName(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	base = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
