// Package pipeline orchestrates runs as ordered steps over shared run
// state: crawl and persist a baseline, or load one, re-capture, compare,
// and report. A batch processor executes one pipeline per target with
// bounded concurrency.
package pipeline
