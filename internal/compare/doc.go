// Package compare re-captures the pages of a saved baseline and
// classifies each one as matched, changed, or errored by pixel
// comparison. No link discovery happens here: the baseline manifest
// fixes the URL set, so pages added to the site since the baseline are
// invisible and removed pages surface as capture errors.
package compare
