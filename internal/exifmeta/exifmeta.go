package exifmeta

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"gallery-server/internal/logging"
	"gallery-server/internal/metrics"

	"github.com/rwcarlsen/goexif/exif"
)

// Info is the descriptive metadata payload embedded in an image's EXIF
// user-comment field. Author may contain inline markup.
type Info struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Sources     []string `json:"sources,omitempty"`
}

// IsZero reports whether no field carries any content.
func (i Info) IsZero() bool {
	return i.Title == "" && i.Description == "" && i.Author == "" && len(i.Sources) == 0
}

// Displayable reports whether the metadata has content worth rendering.
// A bare title is not considered displayable content.
func Displayable(info *Info) bool {
	if info == nil {
		return false
	}
	return info.Description != "" || info.Author != "" || len(info.Sources) > 0
}

// Extract reads the metadata payload smuggled in the image's EXIF
// user-comment field: a base64-encoded JSON object. It returns nil for
// images without a payload and for every parse failure; extraction is never
// an error condition.
func Extract(imageBytes []byte) *Info {
	info := extract(imageBytes)

	status := "empty"
	if info != nil {
		status = "found"
	}
	metrics.ExtractionsTotal.WithLabelValues(status).Inc()
	return info
}

func extract(imageBytes []byte) *Info {
	x, err := exif.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil
	}

	tag, err := x.Get(exif.UserComment)
	if err != nil {
		return nil
	}

	comment := decodeUserComment(tag.Val)
	if comment == "" {
		// Some writers store the comment as plain ASCII; StringVal
		// handles those.
		if s, err := tag.StringVal(); err == nil {
			comment = s
		}
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil
	}

	payload, err := base64.StdEncoding.DecodeString(comment)
	if err != nil {
		logging.Debug("EXIF comment is not base64: %v", err)
		return nil
	}

	var info Info
	if err := json.Unmarshal(payload, &info); err != nil {
		logging.Debug("EXIF payload is not valid JSON: %v", err)
		return nil
	}

	if info.IsZero() {
		return nil
	}
	return &info
}

// EXIF user comments begin with an 8-byte character-code indicator.
var commentEncodings = [][]byte{
	[]byte("ASCII\x00\x00\x00"),
	[]byte("UNICODE\x00"),
	[]byte("JIS\x00\x00\x00\x00\x00"),
	bytes.Repeat([]byte{0}, 8), // undefined encoding
}

// decodeUserComment strips the 8-byte encoding indicator from a raw
// user-comment value and returns the remaining text. Bytes without a known
// indicator are interpreted as-is.
func decodeUserComment(raw []byte) string {
	trimmed := raw
	if len(raw) >= 8 {
		for _, prefix := range commentEncodings {
			if bytes.HasPrefix(raw, prefix) {
				trimmed = raw[8:]
				break
			}
		}
	}
	return strings.Trim(string(trimmed), "\x00 ")
}
