package model

import "fmt"

// PageType classifies a page's position in the site hierarchy.
type PageType string

const (
	// PageTypeMain marks the start page and (under the depth rule)
	// pages at most one path segment deep.
	PageTypeMain PageType = "main"

	// PageTypeSub marks every other page.
	PageTypeSub PageType = "sub"
)

// PageStatus is the capture state of a page.
//
// A PageRecord is created as StatusPending when its URL is dequeued from
// the frontier and transitions exactly once, to StatusSuccess or
// StatusError, after the capture attempt completes. There is no way back.
type PageStatus string

const (
	// StatusPending means the page has been claimed but not yet captured.
	StatusPending PageStatus = "pending"

	// StatusSuccess means navigation, extraction, and screenshot all succeeded.
	StatusSuccess PageStatus = "success"

	// StatusError means the capture attempt failed; ErrorMessage holds why.
	StatusError PageStatus = "error"
)

// PageRecord is one crawled page within a baseline manifest.
//
// Design decision: Go has no sum types, so the success/error variants are
// modeled as a status field plus fields that are only populated for the
// matching status. The MarkSuccess and MarkError methods are the only
// sanctioned transitions and refuse to finalize a record twice, which
// keeps "success with no snapshot" and double transitions out of
// correctly-written code even though the type system cannot forbid them.
type PageRecord struct {
	// URL is the normalized URL of the page.
	URL string `json:"url"`

	// Type is the page classification (main or sub).
	Type PageType `json:"type"`

	// PathDepth is the number of non-empty path segments in the URL.
	PathDepth int `json:"path_depth"`

	// Status is the capture state: pending, success, or error.
	Status PageStatus `json:"status"`

	// Title is the document title. Set only on success.
	Title string `json:"title,omitempty"`

	// CanonicalURL is the page's self-declared canonical link, if any.
	// Set only on success.
	CanonicalURL string `json:"canonical_url,omitempty"`

	// SnapshotRef is the name of the stored screenshot, relative to the
	// baseline's snapshots directory. Set only on success.
	SnapshotRef string `json:"snapshot_ref,omitempty"`

	// ErrorMessage describes why the capture failed. Set only on error.
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewPageRecord creates a pending record for a freshly claimed URL.
func NewPageRecord(url string, pageType PageType, pathDepth int) *PageRecord {
	return &PageRecord{
		URL:       url,
		Type:      pageType,
		PathDepth: pathDepth,
		Status:    StatusPending,
	}
}

// MarkSuccess finalizes the record as successfully captured.
// It returns an error if the record was already finalized.
func (p *PageRecord) MarkSuccess(title, canonicalURL, snapshotRef string) error {
	if p.Status != StatusPending {
		return fmt.Errorf("page %s already finalized as %s", p.URL, p.Status)
	}
	if snapshotRef == "" {
		return fmt.Errorf("page %s: success requires a snapshot reference", p.URL)
	}
	p.Status = StatusSuccess
	p.Title = title
	p.CanonicalURL = canonicalURL
	p.SnapshotRef = snapshotRef
	return nil
}

// MarkError finalizes the record as failed with the given message.
// It returns an error if the record was already finalized.
func (p *PageRecord) MarkError(message string) error {
	if p.Status != StatusPending {
		return fmt.Errorf("page %s already finalized as %s", p.URL, p.Status)
	}
	p.Status = StatusError
	p.ErrorMessage = message
	return nil
}

// Succeeded reports whether the page was captured successfully.
func (p *PageRecord) Succeeded() bool {
	return p.Status == StatusSuccess
}
