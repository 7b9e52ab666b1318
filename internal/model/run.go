package model

// Run is the mutable state threaded through a pipeline execution.
// A baseline run fills Manifest and BaselineID; a compare run loads a
// manifest and fills Summary. Steps append to Errors instead of aborting
// when the pipeline is configured to continue on error.
type Run struct {
	// Target is the start URL (baseline mode) or baseline ID (compare mode).
	Target string `json:"target"`

	// Manifest is the crawl record being built or the baseline being compared.
	Manifest *Manifest `json:"manifest,omitempty"`

	// BaselineID identifies the saved baseline directory once persisted.
	BaselineID string `json:"baseline_id,omitempty"`

	// Summary is the comparison outcome, compare mode only.
	Summary *ComparisonSummary `json:"summary,omitempty"`

	// ResultsDir is where the comparison pass wrote its report and diff
	// artifacts, compare mode only.
	ResultsDir string `json:"results_dir,omitempty"`

	// TimedOut is set when the run was cancelled before completing.
	TimedOut bool `json:"timed_out,omitempty"`

	// Errors collects non-fatal step failures.
	Errors []string `json:"errors,omitempty"`
}

// NewRun creates a run for the given target.
func NewRun(target string) *Run {
	return &Run{Target: target}
}

// AddError records a non-fatal error message on the run.
func (r *Run) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
