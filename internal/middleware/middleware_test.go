package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerPassesThrough(t *testing.T) {
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Status = %d, expected %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short" {
		t.Errorf("Body = %q", rec.Body.String())
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"plain", "plain"},
		{"line\nbreak", "line break"},
		{"carriage\rreturn", "carriage return"},
		{"null\x00byte", "nullbyte"},
		{"ansi\x1b[31mred", "ansi[31mred"},
		{"tab\tkept", "tab\tkept"},
	}
	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.expected {
			t.Errorf("sanitizeLogField(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"/", "/"},
		{"/api/gallery", "/api/gallery"},
		{"/api/gallery/metadata", "/api/gallery/metadata"},
		{"/optimized/3fc9b689459d.webp", "/optimized/{file}"},
		{"/optimized/deadbeef0123.jpg", "/optimized/{file}"},
		{"/splash/splashscreen1.png", "/splash/{file}"},
		{"/screenshots/shot one.png", "/screenshots/{file}"},
		{"/a/b/c/d/e", "/a/b/c/d/{path}"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.expected {
			t.Errorf("normalizePath(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestNormalizePathBoundsStaticSeries(t *testing.T) {
	files := []string{
		"/optimized/0a1b2c3d4e5f.webp",
		"/optimized/f5e4d3c2b1a0.webp",
		"/optimized/0123456789ab.webp",
	}
	seen := map[string]bool{}
	for _, f := range files {
		seen[normalizePath(f)] = true
	}
	if len(seen) != 1 {
		t.Errorf("Distinct rendition URLs produced %d label values, expected 1", len(seen))
	}
}

func TestShouldSkip(t *testing.T) {
	config := DefaultLoggingConfig()
	config.LogHealthChecks = false

	if !shouldSkip("/healthz", config) {
		t.Error("Health checks should be skipped when disabled")
	}
	if !shouldSkip("/optimized/abc.webp", config) {
		t.Error("Static image paths should be skipped by default")
	}
	if shouldSkip("/api/gallery", config) {
		t.Error("API paths should not be skipped")
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4567"
	if got := getClientIP(req); got != "10.0.0.1" {
		t.Errorf("getClientIP = %q, expected 10.0.0.1", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := getClientIP(req); got != "203.0.113.7" {
		t.Errorf("getClientIP with XFF = %q, expected 203.0.113.7", got)
	}
}

func TestCompressionCompressesLargeJSON(t *testing.T) {
	payload := strings.Repeat(`{"key":"value"},`, 500)

	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if enc := rec.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("Content-Encoding = %q, expected gzip", enc)
	}

	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("Response body is not gzip: %v", err)
	}
	defer gz.Close()

	decompressed, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("Failed to decompress: %v", err)
	}
	if string(decompressed) != payload {
		t.Error("Decompressed body does not match original payload")
	}
}

func TestCompressionSkipsSmallResponses(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if enc := rec.Header().Get("Content-Encoding"); enc == "gzip" {
		t.Error("Small responses should not be compressed")
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("Body = %q", rec.Body.String())
	}
}

func TestCompressionSkipsWithoutAcceptEncoding(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(payload))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if enc := rec.Header().Get("Content-Encoding"); enc == "gzip" {
		t.Error("Responses must not be compressed without Accept-Encoding: gzip")
	}
	if rec.Body.String() != payload {
		t.Error("Body should pass through unmodified")
	}
}

func TestCompressionSkipsNonCompressibleTypes(t *testing.T) {
	payload := strings.Repeat("b", 4096)
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte(payload))
	}))

	req := httptest.NewRequest(http.MethodGet, "/optimized/a.webp", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if enc := rec.Header().Get("Content-Encoding"); enc == "gzip" {
		t.Error("Already-compressed image types should not be gzipped")
	}
}
