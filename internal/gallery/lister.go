package gallery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gallery-server/internal/logging"
	"gallery-server/internal/metrics"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Configuration errors surfaced immediately, never retried.
var (
	ErrMissingBaseURL = errors.New("url source requires a base URL")
	ErrMissingFolder  = errors.New("folder source requires a local folder")
)

// Lister enumerates candidate media items from a source descriptor.
type Lister struct {
	client *http.Client
}

// NewLister creates a Lister. A nil client falls back to http.DefaultClient.
func NewLister(client *http.Client) *Lister {
	if client == nil {
		client = http.DefaultClient
	}
	return &Lister{client: client}
}

// List produces the ordered media items for one source. Items are filtered
// by the source's glob patterns, sorted newest-first where modification
// times are known (by name otherwise), and truncated to MaxImages when it
// is positive.
func (l *Lister) List(ctx context.Context, cfg SourceConfig) ([]MediaItem, error) {
	start := time.Now()

	var items []MediaItem
	var err error

	switch cfg.SourceType {
	case SourceURL:
		items, err = l.listURL(ctx, cfg)
	case SourceFolder:
		items, err = l.listFolder(cfg)
	default:
		err = fmt.Errorf("unknown source type %q", cfg.SourceType)
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ListingsTotal.WithLabelValues(string(cfg.SourceType), status).Inc()
	metrics.ListingDuration.WithLabelValues(string(cfg.SourceType)).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	metrics.ListingItemsReturned.WithLabelValues(string(cfg.SourceType)).Observe(float64(len(items)))
	return items, nil
}

func (l *Lister) listURL(ctx context.Context, cfg SourceConfig) ([]MediaItem, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch directory listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("directory listing %s: unexpected status %s", cfg.BaseURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse directory listing: %w", err)
	}

	items := parseStructuredListing(doc, base)
	if len(items) == 0 {
		logging.Debug("Structured listing parse found nothing for %s, falling back to anchors", cfg.BaseURL)
		items = parseAnchorListing(doc, base)
	}

	patterns, err := compilePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	filtered := items[:0]
	for _, item := range items {
		if matchesAny(item.Name, patterns) {
			filtered = append(filtered, item)
		}
	}

	sortItems(filtered)
	return truncate(filtered, cfg.MaxImages), nil
}

func (l *Lister) listFolder(cfg SourceConfig) ([]MediaItem, error) {
	if cfg.LocalFolder == "" {
		return nil, ErrMissingFolder
	}

	patterns, err := compilePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(cfg.LocalFolder)
	if err != nil {
		return nil, fmt.Errorf("read media folder %s: %w", cfg.LocalFolder, err)
	}

	publicPath := cfg.PublicPath
	if publicPath == "" {
		publicPath = "/" + filepath.Base(cfg.LocalFolder)
	}

	var items []MediaItem
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !matchesAny(entry.Name(), patterns) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Debug("Skipping %s: %v", entry.Name(), err)
			continue
		}

		size := info.Size()
		items = append(items, MediaItem{
			URL:          path.Join(publicPath, entry.Name()),
			Name:         entry.Name(),
			Alt:          AltFromName(entry.Name()),
			Size:         &size,
			LastModified: info.ModTime().UTC().Format(time.RFC3339),
		})
	}

	sortItems(items)
	return truncate(items, cfg.MaxImages), nil
}

// Trailing date/size columns of common autoindex formats, e.g.
// "19-Nov-2023 20:12      1234567" (nginx) or "2023-11-19 20:12  1234567".
var listingRowPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{2}-[A-Za-z]{3}-\d{4} \d{2}:\d{2})\s+(-|\d+)`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2})\s+(-|\d+)`),
}

// parseStructuredListing handles the classic <pre>-formatted autoindex page:
// one anchor per line followed by modification time and byte size.
func parseStructuredListing(doc *goquery.Document, base *url.URL) []MediaItem {
	var items []MediaItem
	doc.Find("pre a").Each(func(_ int, s *goquery.Selection) {
		item, ok := anchorToItem(s, base)
		if !ok {
			return
		}
		if n := s.Get(0); n.NextSibling != nil && n.NextSibling.Type == html.TextNode {
			if modified, size, ok := parseRowSuffix(n.NextSibling.Data); ok {
				item.LastModified = modified
				item.Size = size
			}
		}
		items = append(items, item)
	})
	return items
}

// parseAnchorListing is the generic fallback: every anchor in the document,
// no date or size information.
func parseAnchorListing(doc *goquery.Document, base *url.URL) []MediaItem {
	var items []MediaItem
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if item, ok := anchorToItem(s, base); ok {
			items = append(items, item)
		}
	})
	return items
}

func anchorToItem(s *goquery.Selection, base *url.URL) (MediaItem, bool) {
	href, ok := s.Attr("href")
	if !ok || href == "" {
		return MediaItem{}, false
	}
	if isNavigationLink(href, s.Text()) {
		return MediaItem{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return MediaItem{}, false
	}

	name := path.Base(ref.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" || name == "." || name == "/" {
		return MediaItem{}, false
	}

	return MediaItem{
		URL:  base.ResolveReference(ref).String(),
		Name: name,
		Alt:  AltFromName(name),
	}, true
}

// isNavigationLink filters parent/self directory markers, subdirectories and
// autoindex sort-column links out of a listing.
func isNavigationLink(href, text string) bool {
	switch href {
	case "..", "../", ".", "./", "/":
		return true
	}
	if strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return true
	}
	if strings.HasSuffix(href, "/") {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(text), "parent directory")
}

func parseRowSuffix(text string) (string, *int64, bool) {
	for _, re := range listingRowPatterns {
		match := re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		var size *int64
		if match[2] != "-" {
			if n, err := strconv.ParseInt(match[2], 10, 64); err == nil {
				size = &n
			}
		}
		return match[1], size, true
	}
	return "", nil, false
}

var modTimeLayouts = []string{
	time.RFC3339,
	"02-Jan-2006 15:04",
	"2006-01-02 15:04",
}

func parseModTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range modTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortItems orders items newest-first when a modification time is known for
// both sides of a comparison, lexicographically by name otherwise.
func sortItems(items []MediaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, iok := parseModTime(items[i].LastModified)
		tj, jok := parseModTime(items[j].LastModified)
		if iok && jok && !ti.Equal(tj) {
			return ti.After(tj)
		}
		return items[i].Name < items[j].Name
	})
}

func truncate(items []MediaItem, max int) []MediaItem {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
