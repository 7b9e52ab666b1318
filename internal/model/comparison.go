package model

import "time"

// Classification is the verdict for one compared page.
type Classification string

const (
	// ClassMatched means the diff ratio is below the match threshold.
	ClassMatched Classification = "matched"

	// ClassChanged means the diff ratio is at or above the match threshold.
	ClassChanged Classification = "changed"

	// ClassErrored means the page could not be compared: re-capture
	// failed, the baseline snapshot is missing, or the images have
	// different dimensions. An errored page is never counted as changed.
	ClassErrored Classification = "errored"
)

// ComparisonResult is the outcome of comparing one baseline page against
// its freshly captured counterpart.
type ComparisonResult struct {
	// URL is the page that was compared.
	URL string `json:"url"`

	// Classification is matched, changed, or errored.
	Classification Classification `json:"classification"`

	// DiffPixels is the count of pixels that differ beyond the per-pixel
	// threshold. Zero when errored.
	DiffPixels int `json:"diff_pixels"`

	// ComparedPixels is width*height of the compared images. Zero when
	// errored; it feeds the global diff ratio denominator.
	ComparedPixels int `json:"compared_pixels"`

	// DiffRatio is DiffPixels / ComparedPixels. Nil when the page could
	// not be compared at all.
	DiffRatio *float64 `json:"diff_ratio,omitempty"`

	// DiffArtifactRef is the name of the rendered diff image, relative to
	// the comparison run's diffs directory. Empty when errored or when no
	// pixels differ.
	DiffArtifactRef string `json:"diff_artifact_ref,omitempty"`

	// ErrorMessage describes why the comparison errored.
	ErrorMessage string `json:"error_message,omitempty"`
}

// ComparisonSummary aggregates one comparison pass over a baseline.
type ComparisonSummary struct {
	// Hostname is the baseline's hostname.
	Hostname string `json:"hostname"`

	// BaselineID identifies the baseline that was compared against.
	BaselineID string `json:"baseline_id"`

	// StartURL is the baseline's start URL.
	StartURL string `json:"start_url"`

	// CreatedAt is when the comparison pass started, in UTC.
	CreatedAt time.Time `json:"created_at"`

	// Matched, Changed, and Errored are per-classification counts.
	Matched int `json:"matched"`
	Changed int `json:"changed"`
	Errored int `json:"errored"`

	// TotalDiffPixels and TotalComparedPixels accumulate across all
	// successfully compared pages.
	TotalDiffPixels     int `json:"total_diff_pixels"`
	TotalComparedPixels int `json:"total_compared_pixels"`

	// Results lists every per-page result in manifest order.
	Results []*ComparisonResult `json:"results"`
}

// NewComparisonSummary creates an empty summary for a comparison pass
// starting now.
func NewComparisonSummary(hostname, baselineID, startURL string) *ComparisonSummary {
	return &ComparisonSummary{
		Hostname:   hostname,
		BaselineID: baselineID,
		StartURL:   startURL,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		Results:    make([]*ComparisonResult, 0),
	}
}

// Add records one per-page result and updates the aggregate counters.
func (s *ComparisonSummary) Add(r *ComparisonResult) {
	s.Results = append(s.Results, r)
	switch r.Classification {
	case ClassMatched:
		s.Matched++
	case ClassChanged:
		s.Changed++
	case ClassErrored:
		s.Errored++
	}
	s.TotalDiffPixels += r.DiffPixels
	s.TotalComparedPixels += r.ComparedPixels
}

// GlobalDiffRatio is total differing pixels divided by total compared
// pixels across all successfully compared pages. This weights larger
// pages proportionally, unlike an average of per-page ratios.
// Returns 0 when nothing was compared.
func (s *ComparisonSummary) GlobalDiffRatio() float64 {
	if s.TotalComparedPixels == 0 {
		return 0
	}
	return float64(s.TotalDiffPixels) / float64(s.TotalComparedPixels)
}

// Total returns the number of pages the pass attempted to compare.
func (s *ComparisonSummary) Total() int {
	return s.Matched + s.Changed + s.Errored
}

// ChangedResults returns the results classified as changed, in order.
func (s *ComparisonSummary) ChangedResults() []*ComparisonResult {
	return s.filter(ClassChanged)
}

// ErroredResults returns the results classified as errored, in order.
func (s *ComparisonSummary) ErroredResults() []*ComparisonResult {
	return s.filter(ClassErrored)
}

func (s *ComparisonSummary) filter(c Classification) []*ComparisonResult {
	out := make([]*ComparisonResult, 0)
	for _, r := range s.Results {
		if r.Classification == c {
			out = append(out, r)
		}
	}
	return out
}
