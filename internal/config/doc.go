// Package config provides configuration structures and utilities for
// sitediff. It defines the main configuration options for crawling,
// snapshot capture, pixel comparison, and report generation, plus the
// optional YAML file with per-site overrides.
package config
