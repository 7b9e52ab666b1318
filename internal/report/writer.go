package report

import (
	"io"

	"github.com/nao1215/sitediff/internal/model"
)

// Writer defines the interface for report output.
// Implementations render run results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WriteBaseline outputs a summary of a saved baseline crawl.
	// Returns the number of bytes written and any error encountered.
	WriteBaseline(baselineID string, m *model.Manifest) (int, error)

	// WriteComparison outputs a comparison summary.
	// Returns the number of bytes written and any error encountered.
	WriteComparison(s *model.ComparisonSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteBaseline outputs the baseline summary to all configured Writers.
// Returns the total bytes written. Stops on first error encountered.
func (m *MultiWriter) WriteBaseline(baselineID string, manifest *model.Manifest) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBaseline(baselineID, manifest)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteComparison outputs the comparison summary to all configured Writers.
func (m *MultiWriter) WriteComparison(s *model.ComparisonSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteComparison(s)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
