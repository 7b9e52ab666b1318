package config

// SiteConfig holds site-specific configuration for a single hostname.
// This allows customizing crawl and comparison behavior per site.
type SiteConfig struct {
	// Depth overrides the global crawl depth for this site.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the global page limit for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// PixelThreshold overrides the global per-pixel color delta threshold.
	PixelThreshold float64 `yaml:"pixelThreshold,omitempty"`

	// MatchThreshold overrides the global page-level match threshold.
	MatchThreshold float64 `yaml:"matchThreshold,omitempty"`

	// IgnorePatterns are URL path patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax
	// (e.g., "/admin/*", "*.pdf", "/logout*").
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .sitediff.yaml configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	// Keys are bare hostnames (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific hostname.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(hostname string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[hostname]; ok {
		if siteConfig.Depth != 0 {
			result.Depth = siteConfig.Depth
		}
		if siteConfig.MaxPages != 0 {
			result.MaxPages = siteConfig.MaxPages
		}
		if siteConfig.PixelThreshold != 0 {
			result.PixelThreshold = siteConfig.PixelThreshold
		}
		if siteConfig.MatchThreshold != 0 {
			result.MatchThreshold = siteConfig.MatchThreshold
		}
		if len(siteConfig.IgnorePatterns) > 0 {
			result.IgnorePatterns = siteConfig.IgnorePatterns
		}
		if len(siteConfig.FollowPatterns) > 0 {
			result.FollowPatterns = siteConfig.FollowPatterns
		}
	}

	return result
}
