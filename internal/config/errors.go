package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no start URL or baseline ID is specified.
	ErrNoTarget = errors.New("no target specified: provide a start URL or baseline ID")

	// ErrInvalidTimeout is returned when the per-page timeout is not positive.
	// A timeout of zero or negative would fail every capture immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when a worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidSurfaces is returned when the render surface pool size is
	// not positive. At least one browser tab is required to capture pages.
	ErrInvalidSurfaces = errors.New("invalid surface count: must be positive")

	// ErrInvalidPixelThreshold is returned when the per-pixel threshold is
	// outside [0,1]. The threshold is a fraction of the maximum color
	// delta, not a pixel count.
	ErrInvalidPixelThreshold = errors.New("invalid pixel threshold: must be in [0,1]")

	// ErrInvalidMatchThreshold is returned when the page-level match
	// threshold is outside [0,1].
	ErrInvalidMatchThreshold = errors.New("invalid match threshold: must be in [0,1]")

	// ErrInvalidMainPageRule is returned when the main-page rule is
	// neither "depth" nor "start-url".
	ErrInvalidMainPageRule = errors.New(`invalid main-page rule: must be "depth" or "start-url"`)

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
