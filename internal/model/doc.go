// Package model defines the core data structures used throughout sitediff.
//
// This package contains the following main types:
//   - PageRecord: One crawled page and its capture outcome
//   - Manifest: The durable record of one baseline crawl
//   - ComparisonResult / ComparisonSummary: Per-page and aggregate diff results
//   - Run: The mutable state threaded through a pipeline execution
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, baseline, compare, report) need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for manifest storage,
// report output, and the history database.
package model
