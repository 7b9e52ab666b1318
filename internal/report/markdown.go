package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitediff/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation, pull requests, and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteBaseline outputs the baseline crawl summary in Markdown format.
func (w *MarkdownWriter) WriteBaseline(baselineID string, m *model.Manifest) (int, error) {
	md := markdown.NewMarkdown(w.output)
	succeeded, failed, _ := m.CountByStatus()

	md.H1("Baseline Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Host", "`" + m.Hostname + "`"},
			{"Baseline", "`" + baselineID + "`"},
			{"Start URL", m.StartURL},
			{"Captured", m.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Viewport", fmt.Sprintf("%dx%d", m.ViewportWidth, m.ViewportHeight)},
			{"Pages", strconv.Itoa(len(m.Pages))},
			{"Captured OK", strconv.Itoa(succeeded)},
			{"Failed", strconv.Itoa(failed)},
		},
	})
	md.PlainText("")

	if failed > 0 {
		md.Warningf("%d page(s) failed to capture and will be skipped by comparisons.", failed)
		md.PlainText("")
		w.writeFailedPages(md, m)
	} else {
		md.Tipf("All %d pages captured successfully.", succeeded)
		md.PlainText("")
	}

	w.writePagesTable(md, m)

	return len(md.String()), md.Build()
}

// writeFailedPages lists the baseline pages that could not be captured.
func (w *MarkdownWriter) writeFailedPages(md *markdown.Markdown, m *model.Manifest) {
	md.H2("Failed Pages")
	md.PlainText("")

	rows := make([][]string, 0)
	for _, p := range m.Pages {
		if p.Status != model.StatusError {
			continue
		}
		rows = append(rows, []string{p.URL, truncateString(p.ErrorMessage, 60)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePagesTable lists every captured page with its classification.
func (w *MarkdownWriter) writePagesTable(md *markdown.Markdown, m *model.Manifest) {
	md.H2("Captured Pages")
	md.PlainText("")

	rows := make([][]string, 0, len(m.Pages))
	for _, p := range m.Pages {
		if !p.Succeeded() {
			continue
		}
		rows = append(rows, []string{
			p.URL,
			string(p.Type),
			strconv.Itoa(p.PathDepth),
			truncateString(p.Title, 50),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Type", "Depth", "Title"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteComparison outputs the comparison summary in Markdown format.
func (w *MarkdownWriter) WriteComparison(s *model.ComparisonSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Site Comparison Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Host", "`" + s.Hostname + "`"},
			{"Baseline", "`" + s.BaselineID + "`"},
			{"Start URL", s.StartURL},
			{"Compared", s.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(s.Total())},
			{"Global diff ratio", fmt.Sprintf("%.2f%%", s.GlobalDiffRatio()*100)},
		},
	})
	md.PlainText("")

	w.writeSummary(md, s)
	w.writeChanged(md, s)
	w.writeErrored(md, s)

	return len(md.String()), md.Build()
}

// writeSummary writes the classification counts, pie chart, and verdict.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *model.ComparisonSummary) {
	md.H2("Result Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Classification", "Count"},
		Rows: [][]string{
			{"✅ " + classLabel(model.ClassMatched), strconv.Itoa(s.Matched)},
			{"🔶 " + classLabel(model.ClassChanged), strconv.Itoa(s.Changed)},
			{"❌ " + classLabel(model.ClassErrored), strconv.Itoa(s.Errored)},
			{"**Total**", "**" + strconv.Itoa(s.Total()) + "**"},
		},
	})
	md.PlainText("")

	if s.Total() > 0 {
		w.writePieChart(md, s)
	}

	switch {
	case s.Changed > 0:
		md.Warningf(
			"Visual changes detected on %d page(s). Review the diff artifacts before shipping.",
			s.Changed,
		)
	case s.Errored > 0:
		md.Importantf(
			"%d page(s) could not be compared. The site may have restructured since the baseline.",
			s.Errored,
		)
	default:
		md.Tip("No visual changes detected.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the classification split.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.ComparisonSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Classification"),
		piechart.WithShowData(true),
	)

	if s.Matched > 0 {
		chart.LabelAndIntValue(classLabel(model.ClassMatched), uint64(s.Matched))
	}
	if s.Changed > 0 {
		chart.LabelAndIntValue(classLabel(model.ClassChanged), uint64(s.Changed))
	}
	if s.Errored > 0 {
		chart.LabelAndIntValue(classLabel(model.ClassErrored), uint64(s.Errored))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeChanged writes the table of pages with visual changes.
func (w *MarkdownWriter) writeChanged(md *markdown.Markdown, s *model.ComparisonSummary) {
	changed := s.ChangedResults()
	if len(changed) == 0 {
		return
	}

	md.H2("Changed Pages")
	md.PlainText("")

	rows := make([][]string, len(changed))
	for i, r := range changed {
		ratio := "-"
		if r.DiffRatio != nil {
			ratio = fmt.Sprintf("%.2f%%", *r.DiffRatio*100)
		}
		artifact := "-"
		if r.DiffArtifactRef != "" {
			artifact = "`" + r.DiffArtifactRef + "`"
		}
		rows[i] = []string{
			r.URL,
			ratio,
			strconv.Itoa(r.DiffPixels),
			artifact,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Diff Ratio", "Diff Pixels", "Artifact"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeErrored writes the table of pages that could not be compared.
func (w *MarkdownWriter) writeErrored(md *markdown.Markdown, s *model.ComparisonSummary) {
	errored := s.ErroredResults()
	if len(errored) == 0 {
		return
	}

	md.H2("Errored Pages")
	md.PlainText("")

	rows := make([][]string, len(errored))
	for i, r := range errored {
		rows[i] = []string{r.URL, truncateString(r.ErrorMessage, 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
