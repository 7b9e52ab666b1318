package model

import "time"

// ClassifierRule identifies which main-page classification rule a crawl
// used. Two rules exist in practice; a run picks one and records it here
// so a comparison never mixes rules within a single report.
type ClassifierRule string

const (
	// RuleDepth classifies the start URL and pages with at most one path
	// segment as main pages. This is the default.
	RuleDepth ClassifierRule = "depth"

	// RuleStartURL classifies only the exact start URL as a main page.
	RuleStartURL ClassifierRule = "start-url"
)

// Manifest is the durable record of one baseline crawl: the ordered list
// of pages visited and crawl-level metadata.
//
// A Manifest is owned by exactly one crawl run. It is written once, at
// run completion, and read back unmodified by the comparison pass.
type Manifest struct {
	// Hostname is the host of the start URL; baselines are scoped by it.
	Hostname string `json:"hostname"`

	// StartURL is the normalized URL the crawl was seeded with.
	StartURL string `json:"start_url"`

	// CreatedAt is when the crawl started, in UTC.
	CreatedAt time.Time `json:"created_at"`

	// ClassifierRule is the main-page rule used for every page in this run.
	ClassifierRule ClassifierRule `json:"classifier_rule"`

	// ViewportWidth and ViewportHeight are the capture viewport in
	// logical pixels. Recorded so a comparison can detect baselines
	// captured under a different viewport.
	ViewportWidth  int `json:"viewport_width"`
	ViewportHeight int `json:"viewport_height"`

	// Pages lists every visited page in discovery order.
	Pages []*PageRecord `json:"pages"`
}

// NewManifest creates an empty manifest for a crawl starting now.
func NewManifest(hostname, startURL string, rule ClassifierRule, viewportW, viewportH int) *Manifest {
	return &Manifest{
		Hostname:       hostname,
		StartURL:       startURL,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		ClassifierRule: rule,
		ViewportWidth:  viewportW,
		ViewportHeight: viewportH,
		Pages:          make([]*PageRecord, 0),
	}
}

// AddPage appends a page record in discovery order.
func (m *Manifest) AddPage(p *PageRecord) {
	m.Pages = append(m.Pages, p)
}

// SuccessPages returns the pages that were captured successfully, in
// manifest order. These are the pages a comparison run revisits.
func (m *Manifest) SuccessPages() []*PageRecord {
	pages := make([]*PageRecord, 0, len(m.Pages))
	for _, p := range m.Pages {
		if p.Succeeded() {
			pages = append(pages, p)
		}
	}
	return pages
}

// CountByStatus returns how many pages finished in each status.
func (m *Manifest) CountByStatus() (succeeded, failed, pending int) {
	for _, p := range m.Pages {
		switch p.Status {
		case StatusSuccess:
			succeeded++
		case StatusError:
			failed++
		default:
			pending++
		}
	}
	return succeeded, failed, pending
}
