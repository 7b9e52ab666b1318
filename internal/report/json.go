package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitediff/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// BaselineReport wraps a manifest with its storage ID for JSON output.
//
// Design decision: We wrap the manifest rather than adding an ID field
// to it because the ID is derived from storage, not part of the crawl
// record itself.
type BaselineReport struct {
	// BaselineID identifies the saved baseline directory.
	BaselineID string `json:"baseline_id"`

	// Manifest is the full crawl record.
	Manifest *model.Manifest `json:"manifest"`
}

// WriteBaseline outputs the baseline crawl record in JSON format.
func (w *JSONWriter) WriteBaseline(baselineID string, m *model.Manifest) (int, error) {
	return w.writeJSON(&BaselineReport{BaselineID: baselineID, Manifest: m})
}

// WriteComparison outputs the comparison summary in JSON format.
func (w *JSONWriter) WriteComparison(s *model.ComparisonSummary) (int, error) {
	return w.writeJSON(s)
}

// writeJSON marshals the given value and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
