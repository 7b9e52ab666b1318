package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

// MaskValue is the string used to replace userinfo in logged URLs.
const MaskValue = "***"

// maxLoggedValue caps the length of string attribute values. Crawl logs
// carry URL lists and HTML fragments that would otherwise drown the
// interesting fields.
const maxLoggedValue = 512

// URLRedactingHandler wraps an slog.Handler so that URLs logged as
// attribute values never leak embedded credentials (user:pass@host) and
// oversized string values are truncated.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Every component that accepts *slog.Logger gets redaction for free
type URLRedactingHandler struct {
	// handler is the underlying slog handler that receives cleaned records.
	handler slog.Handler
}

// NewURLRedactingHandler creates a handler wrapping the given handler.
// If handler is nil, the returned handler wraps slog.Default().Handler().
func NewURLRedactingHandler(handler slog.Handler) *URLRedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &URLRedactingHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *URLRedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle cleans the record's attributes and passes it to the underlying handler.
func (h *URLRedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	cleaned := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		cleaned.AddAttrs(h.cleanAttr(a))
		return true
	})

	return h.handler.Handle(ctx, cleaned)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are cleaned before being added.
func (h *URLRedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleanedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleanedAttrs[i] = h.cleanAttr(a)
	}
	return &URLRedactingHandler{handler: h.handler.WithAttrs(cleanedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *URLRedactingHandler) WithGroup(name string) slog.Handler {
	return &URLRedactingHandler{handler: h.handler.WithGroup(name)}
}

// cleanAttr cleans a single attribute, recursively handling groups.
func (h *URLRedactingHandler) cleanAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		cleanedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			cleanedAttrs[i] = h.cleanAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(cleanedAttrs...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	v := RedactURL(a.Value.String())
	if len(v) > maxLoggedValue {
		v = v[:maxLoggedValue] + "...(truncated)"
	}
	return slog.String(a.Key, v)
}

// RedactURL replaces the userinfo component of a URL-shaped string with
// MaskValue. Non-URL strings and URLs without userinfo are returned
// unchanged.
func RedactURL(s string) string {
	if !strings.Contains(s, "@") || !strings.Contains(s, "://") {
		return s
	}

	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}

	u.User = url.User(MaskValue)
	return u.String()
}

// NewLogger creates a *slog.Logger with URL redaction over a text handler.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(NewURLRedactingHandler(slog.NewTextHandler(w, opts)))
}
