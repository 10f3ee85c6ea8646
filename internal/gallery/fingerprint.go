package gallery

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// itemProjection is the field-selected view of a MediaItem that participates
// in the fingerprint. Adding or removing fields here changes every
// fingerprint and therefore invalidates all caches on upgrade.
type itemProjection struct {
	URL          string `json:"url"`
	Name         string `json:"name"`
	Size         *int64 `json:"size"`
	LastModified string `json:"lastModified"`
}

type fingerprintState struct {
	SplashScreens []itemProjection `json:"splashScreens"`
	Screenshots   []itemProjection `json:"screenshots"`
}

// Fingerprint produces a stable hex fingerprint of the current set of source
// items. It is order-independent on its inputs: both lists are projected to
// (url, name, size, lastModified) and sorted by URL before hashing. Any
// change to a projected field of any item yields a different fingerprint.
func Fingerprint(splashItems, screenshotItems []MediaItem) string {
	state := fingerprintState{
		SplashScreens: project(splashItems),
		Screenshots:   project(screenshotItems),
	}

	// encoding/json emits struct fields in declaration order, so the
	// serialized form is deterministic.
	encoded, err := json.Marshal(state)
	if err != nil {
		// Marshalling plain strings and ints cannot fail; keep the
		// signature pure rather than returning an error nobody can act on.
		panic(err)
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

func project(items []MediaItem) []itemProjection {
	projected := make([]itemProjection, 0, len(items))
	for _, item := range items {
		projected = append(projected, itemProjection{
			URL:          item.URL,
			Name:         item.Name,
			Size:         item.Size,
			LastModified: item.LastModified,
		})
	}
	sort.Slice(projected, func(i, j int) bool {
		return projected[i].URL < projected[j].URL
	})
	return projected
}
