// Package middleware provides the HTTP middleware chain: request logging
// with Prometheus instrumentation, and opportunistic gzip compression for
// large compressible responses.
package middleware
