package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/sitediff/internal/model"
)

// Classify derives a page's type and path depth from its URL.
//
// pathDepth is the number of non-empty path segments. The type depends
// on the rule in force for the run:
//   - model.RuleDepth: the start URL, and any page at most one segment
//     deep, is a main page
//   - model.RuleStartURL: only the exact start URL is a main page
//
// Both rules appear in observed practice; a run picks one and records it
// in the manifest so classification is never mixed within one report.
//
// Classify is a pure function. Degenerate or unparseable URLs classify
// as main with depth 0 rather than failing.
func Classify(pageURL, startURL string, rule model.ClassifierRule) (model.PageType, int) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return model.PageTypeMain, 0
	}

	depth := PathDepth(u.Path)

	if pageURL == startURL {
		return model.PageTypeMain, depth
	}

	switch rule {
	case model.RuleStartURL:
		return model.PageTypeSub, depth
	default: // model.RuleDepth
		if depth <= 1 {
			return model.PageTypeMain, depth
		}
		return model.PageTypeSub, depth
	}
}

// PathDepth counts the non-empty segments of a URL path.
// "/" and "" have depth 0; "/a/b" has depth 2.
func PathDepth(path string) int {
	depth := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}
