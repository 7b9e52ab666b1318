// Package main provides the entry point for the sitediff CLI.
//
// sitediff is a visual regression tool for websites. It crawls a site,
// captures full-page screenshots as a baseline, and later re-captures
// the same pages to report which ones changed visually.
//
// Usage:
//
//	sitediff baseline <url>
//	sitediff compare <baseline-id|url>
//
// See --help for all available options.
package main

// main is the entry point for sitediff.
func main() {
	Execute()
}
