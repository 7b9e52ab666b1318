package model

import (
	"strings"
	"testing"
)

// TestPageRecordTransitions tests the pending → success|error lifecycle.
func TestPageRecordTransitions(t *testing.T) {
	t.Parallel()

	t.Run("new record is pending", func(t *testing.T) {
		t.Parallel()

		p := NewPageRecord("https://example.com/a", PageTypeSub, 1)
		if p.Status != StatusPending {
			t.Errorf("expected pending, got %s", p.Status)
		}
		if p.Succeeded() {
			t.Error("pending record must not report success")
		}
	})

	t.Run("mark success", func(t *testing.T) {
		t.Parallel()

		p := NewPageRecord("https://example.com/", PageTypeMain, 0)
		if err := p.MarkSuccess("Home", "https://example.com/", "example_com_index.png"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Status != StatusSuccess {
			t.Errorf("expected success, got %s", p.Status)
		}
		if p.Title != "Home" {
			t.Errorf("expected title 'Home', got %q", p.Title)
		}
		if p.SnapshotRef == "" {
			t.Error("success record must carry a snapshot reference")
		}
	})

	t.Run("success requires snapshot reference", func(t *testing.T) {
		t.Parallel()

		p := NewPageRecord("https://example.com/", PageTypeMain, 0)
		if err := p.MarkSuccess("Home", "", ""); err == nil {
			t.Error("expected error for empty snapshot reference")
		}
	})

	t.Run("mark error", func(t *testing.T) {
		t.Parallel()

		p := NewPageRecord("https://example.com/broken", PageTypeSub, 1)
		if err := p.MarkError("navigate: timeout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Status != StatusError {
			t.Errorf("expected error status, got %s", p.Status)
		}
		if !strings.Contains(p.ErrorMessage, "timeout") {
			t.Errorf("expected error message to carry the cause, got %q", p.ErrorMessage)
		}
	})

	t.Run("records finalize exactly once", func(t *testing.T) {
		t.Parallel()

		p := NewPageRecord("https://example.com/x", PageTypeSub, 1)
		if err := p.MarkError("first failure"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := p.MarkSuccess("late", "", "late.png"); err == nil {
			t.Error("expected error when finalizing twice")
		}
		if err := p.MarkError("second failure"); err == nil {
			t.Error("expected error when marking error twice")
		}
		if p.ErrorMessage != "first failure" {
			t.Errorf("finalized record was mutated: %q", p.ErrorMessage)
		}
	})
}

// TestManifestCounts tests status counting and success filtering.
func TestManifestCounts(t *testing.T) {
	t.Parallel()

	m := NewManifest("example.com", "https://example.com/", RuleDepth, 1920, 1080)

	ok := NewPageRecord("https://example.com/", PageTypeMain, 0)
	if err := ok.MarkSuccess("Home", "", "home.png"); err != nil {
		t.Fatal(err)
	}
	bad := NewPageRecord("https://example.com/broken", PageTypeSub, 1)
	if err := bad.MarkError("boom"); err != nil {
		t.Fatal(err)
	}
	m.AddPage(ok)
	m.AddPage(bad)
	m.AddPage(NewPageRecord("https://example.com/pending", PageTypeSub, 1))

	succeeded, failed, pending := m.CountByStatus()
	if succeeded != 1 || failed != 1 || pending != 1 {
		t.Errorf("expected 1/1/1, got %d/%d/%d", succeeded, failed, pending)
	}

	success := m.SuccessPages()
	if len(success) != 1 || success[0].URL != "https://example.com/" {
		t.Errorf("unexpected success pages: %+v", success)
	}
}
