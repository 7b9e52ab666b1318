// Package log provides slog handlers tailored to crawl logging.
// URLs passed as attribute values are redacted of embedded credentials
// and oversized values are truncated before reaching the output handler.
package log
