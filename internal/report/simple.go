package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitediff/internal/model"
)

// classTitle renders classification values as display labels
// ("matched" -> "Matched").
var classTitle = cases.Title(language.English)

// classLabel returns the display label for a classification.
func classLabel(c model.Classification) string {
	return classTitle.String(string(c))
}

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables per-page detail for matched pages too.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteBaseline outputs the baseline crawl summary in human-readable form.
func (w *SimpleWriter) WriteBaseline(baselineID string, m *model.Manifest) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "BASELINE REPORT")

	sb.WriteString(fmt.Sprintf("Host:       %s\n", m.Hostname))
	sb.WriteString(fmt.Sprintf("Baseline:   %s\n", baselineID))
	sb.WriteString(fmt.Sprintf("Start URL:  %s\n", m.StartURL))
	sb.WriteString(fmt.Sprintf("Captured:   %s\n", m.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Viewport:   %dx%d\n", m.ViewportWidth, m.ViewportHeight))
	sb.WriteString(fmt.Sprintf("Rule:       %s\n", m.ClassifierRule))
	sb.WriteString("\n")

	succeeded, failed, pending := m.CountByStatus()
	writeRule(&sb, "PAGE SUMMARY")
	sb.WriteString(fmt.Sprintf("  Captured: %d\n", succeeded))
	sb.WriteString(fmt.Sprintf("  Failed:   %d\n", failed))
	if pending > 0 {
		sb.WriteString(fmt.Sprintf("  Pending:  %d\n", pending))
	}
	sb.WriteString(fmt.Sprintf("\n  TOTAL:    %d pages\n\n", len(m.Pages)))

	if failed > 0 {
		writeRule(&sb, "FAILED PAGES")
		for _, p := range m.Pages {
			if p.Status != model.StatusError {
				continue
			}
			sb.WriteString(fmt.Sprintf("  * %s\n", p.URL))
			sb.WriteString(fmt.Sprintf("    Error: %s\n", p.ErrorMessage))
		}
		sb.WriteString("\n")
	}

	if w.verbose {
		writeRule(&sb, "CAPTURED PAGES")
		for _, p := range m.Pages {
			if !p.Succeeded() {
				continue
			}
			sb.WriteString(fmt.Sprintf("  * [%s] %s\n", p.Type, p.URL))
			if p.Title != "" {
				sb.WriteString(fmt.Sprintf("    Title: %s\n", p.Title))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// WriteComparison outputs the comparison summary in human-readable form.
func (w *SimpleWriter) WriteComparison(s *model.ComparisonSummary) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "SITE COMPARISON REPORT")

	sb.WriteString(fmt.Sprintf("Host:       %s\n", s.Hostname))
	sb.WriteString(fmt.Sprintf("Baseline:   %s\n", s.BaselineID))
	sb.WriteString(fmt.Sprintf("Start URL:  %s\n", s.StartURL))
	sb.WriteString(fmt.Sprintf("Compared:   %s\n", s.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString("\n")

	writeRule(&sb, "RESULT SUMMARY")
	total := s.Total()
	sb.WriteString(fmt.Sprintf("  %s:  %d (%s)\n", classLabel(model.ClassMatched), s.Matched, percent(s.Matched, total)))
	sb.WriteString(fmt.Sprintf("  %s:  %d (%s)\n", classLabel(model.ClassChanged), s.Changed, percent(s.Changed, total)))
	sb.WriteString(fmt.Sprintf("  %s:  %d (%s)\n", classLabel(model.ClassErrored), s.Errored, percent(s.Errored, total)))
	sb.WriteString(fmt.Sprintf("\n  TOTAL:    %d pages\n", total))
	sb.WriteString(fmt.Sprintf("  Global diff ratio: %.2f%%\n\n", s.GlobalDiffRatio()*100))

	if changed := s.ChangedResults(); len(changed) > 0 {
		writeRule(&sb, "CHANGED PAGES")
		for _, r := range changed {
			sb.WriteString(fmt.Sprintf("  * %s\n", r.URL))
			if r.DiffRatio != nil {
				sb.WriteString(fmt.Sprintf("    Diff: %.2f%% (%d of %d pixels)\n",
					*r.DiffRatio*100, r.DiffPixels, r.ComparedPixels))
			}
			if r.DiffArtifactRef != "" {
				sb.WriteString(fmt.Sprintf("    Artifact: %s\n", r.DiffArtifactRef))
			}
		}
		sb.WriteString("\n")
	}

	if errored := s.ErroredResults(); len(errored) > 0 {
		writeRule(&sb, "ERRORED PAGES")
		for _, r := range errored {
			sb.WriteString(fmt.Sprintf("  * %s\n", r.URL))
			sb.WriteString(fmt.Sprintf("    Error: %s\n", r.ErrorMessage))
		}
		sb.WriteString("\n")
	}

	if w.verbose {
		writeRule(&sb, "MATCHED PAGES")
		for _, r := range s.Results {
			if r.Classification != model.ClassMatched {
				continue
			}
			sb.WriteString(fmt.Sprintf("  * %s\n", r.URL))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeBanner writes the double-ruled report header.
func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := (70 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeRule writes a single-ruled section header.
func writeRule(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// percent formats part/total as a percentage, guarding division by zero.
func percent(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}
