// Package crawler implements the breadth-first site traversal that feeds
// snapshot capture: URL normalization, the visited/pending frontier,
// page classification, HTML metadata extraction, and the crawl loop
// itself.
package crawler
