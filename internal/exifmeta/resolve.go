package exifmeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gallery-server/internal/logging"
)

// maxImageBytes bounds how much of a remote image is read for extraction.
const maxImageBytes = 64 << 20

// Roots maps URL path prefixes to local directories, e.g.
// "/screenshots" to "/srv/media/screenshots". Site-relative image URLs under
// a registered prefix are read from disk instead of fetched.
type Roots map[string]string

// Resolve obtains the raw bytes for an image reference. Site-relative paths
// under a registered root are read from the local filesystem; everything
// else goes over HTTP. A non-2xx response resolves to (nil, nil) so callers
// treat the image as having no metadata rather than failing the request.
func Resolve(ctx context.Context, imageURL string, roots Roots, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	if local, ok := roots.localPath(imageURL); ok {
		data, err := os.ReadFile(local)
		if err == nil {
			return data, nil
		}
		logging.Debug("Local read failed for %s: %v", local, err)
	}

	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("image %q is neither locally resolvable nor an HTTP URL", imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Debug("Image fetch %s returned %s", imageURL, resp.Status)
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	return data, nil
}

// localPath maps a site-relative image URL onto a registered local root.
// Path escapes outside the root do not map.
func (r Roots) localPath(imageURL string) (string, bool) {
	if len(r) == 0 || !strings.HasPrefix(imageURL, "/") {
		return "", false
	}

	unescaped, err := url.PathUnescape(imageURL)
	if err != nil {
		unescaped = imageURL
	}

	for prefix, dir := range r {
		rest, ok := strings.CutPrefix(unescaped, prefix+"/")
		if !ok {
			continue
		}

		joined := filepath.Join(dir, filepath.FromSlash(rest))

		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		absJoined, err := filepath.Abs(joined)
		if err != nil {
			continue
		}
		if absJoined != absDir && !strings.HasPrefix(absJoined, absDir+string(filepath.Separator)) {
			continue
		}
		return joined, true
	}
	return "", false
}
