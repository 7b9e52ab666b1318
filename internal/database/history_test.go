package database

import (
	"context"
	"testing"
	"time"

	"github.com/nao1215/sitediff/internal/model"
)

func openTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	hdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := hdb.Close(); err != nil {
			t.Errorf("Close() unexpected error: %v", err)
		}
	})
	return hdb
}

func recordedManifest(t *testing.T, hostname string, createdAt time.Time) *model.Manifest {
	t.Helper()

	m := model.NewManifest(hostname, "https://"+hostname+"/", model.RuleDepth, 1920, 1080)
	m.CreatedAt = createdAt

	ok := model.NewPageRecord("https://"+hostname+"/", model.PageTypeMain, 0)
	if err := ok.MarkSuccess("Home", "", "home.png"); err != nil {
		t.Fatal(err)
	}
	m.AddPage(ok)

	bad := model.NewPageRecord("https://"+hostname+"/down", model.PageTypeMain, 1)
	if err := bad.MarkError("timeout"); err != nil {
		t.Fatal(err)
	}
	m.AddPage(bad)

	return m
}

func TestHistoryDBBaselines(t *testing.T) {
	t.Parallel()

	hdb := openTestDB(t)
	ctx := context.Background()

	older := recordedManifest(t, "example.com", time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	newer := recordedManifest(t, "example.com", time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC))

	if err := hdb.RecordBaseline(ctx, "example.com-20260105-100000", older); err != nil {
		t.Fatalf("RecordBaseline() unexpected error: %v", err)
	}
	if err := hdb.RecordBaseline(ctx, "example.com-20260205-100000", newer); err != nil {
		t.Fatalf("RecordBaseline() unexpected error: %v", err)
	}

	records, err := hdb.BaselineHistory(ctx, "example.com")
	if err != nil {
		t.Fatalf("BaselineHistory() unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].BaselineID != "example.com-20260205-100000" {
		t.Errorf("records[0].BaselineID = %q, want the newer baseline first", records[0].BaselineID)
	}
	if records[0].Pages != 2 || records[0].Succeeded != 1 || records[0].Failed != 1 {
		t.Errorf("counts = (%d, %d, %d), want (2, 1, 1)",
			records[0].Pages, records[0].Succeeded, records[0].Failed)
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("CreatedAt did not round-trip")
	}

	// Unknown host yields no rows, not an error.
	none, err := hdb.BaselineHistory(ctx, "unknown.test")
	if err != nil {
		t.Fatalf("BaselineHistory(unknown) unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len(none) = %d, want 0", len(none))
	}
}

func TestHistoryDBComparisons(t *testing.T) {
	t.Parallel()

	hdb := openTestDB(t)
	ctx := context.Background()

	summary := model.NewComparisonSummary("example.com", "example.com-20260105-100000", "https://example.com/")
	ratio := 0.25
	summary.Add(&model.ComparisonResult{
		URL:            "https://example.com/",
		Classification: model.ClassChanged,
		DiffPixels:     500,
		ComparedPixels: 2000,
		DiffRatio:      &ratio,
	})
	summary.Add(&model.ComparisonResult{
		URL:            "https://example.com/about",
		Classification: model.ClassErrored,
		ErrorMessage:   "recapture: connection refused",
	})

	if err := hdb.RecordComparison(ctx, summary, "/tmp/results/example.com-20260301-090000"); err != nil {
		t.Fatalf("RecordComparison() unexpected error: %v", err)
	}

	records, err := hdb.ComparisonHistory(ctx, "example.com")
	if err != nil {
		t.Fatalf("ComparisonHistory() unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	r := records[0]
	if r.Matched != 0 || r.Changed != 1 || r.Errored != 1 {
		t.Errorf("counts = (%d, %d, %d), want (0, 1, 1)", r.Matched, r.Changed, r.Errored)
	}
	if r.DiffRatio != 0.25 {
		t.Errorf("DiffRatio = %f, want 0.25", r.DiffRatio)
	}
	if r.ResultsDir == "" {
		t.Error("ResultsDir did not round-trip")
	}

	loaded, err := hdb.ComparisonSummary(ctx, r.ID)
	if err != nil {
		t.Fatalf("ComparisonSummary() unexpected error: %v", err)
	}
	if loaded == nil {
		t.Fatal("ComparisonSummary() returned nil for an existing row")
	}
	if len(loaded.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(loaded.Results))
	}
	if loaded.Results[1].ErrorMessage != "recapture: connection refused" {
		t.Errorf("ErrorMessage = %q did not round-trip", loaded.Results[1].ErrorMessage)
	}

	missing, err := hdb.ComparisonSummary(ctx, 9999)
	if err != nil {
		t.Fatalf("ComparisonSummary(missing) unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("ComparisonSummary(missing) should return nil")
	}
}

func TestHistoryDBListHosts(t *testing.T) {
	t.Parallel()

	hdb := openTestDB(t)
	ctx := context.Background()

	m := recordedManifest(t, "bravo.example", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := hdb.RecordBaseline(ctx, "bravo.example-20260101-000000", m); err != nil {
		t.Fatal(err)
	}
	s := model.NewComparisonSummary("alpha.example", "alpha.example-20260101-000000", "https://alpha.example/")
	if err := hdb.RecordComparison(ctx, s, ""); err != nil {
		t.Fatal(err)
	}

	hosts, err := hdb.ListHosts(ctx)
	if err != nil {
		t.Fatalf("ListHosts() unexpected error: %v", err)
	}
	want := []string{"alpha.example", "bravo.example"}
	if len(hosts) != len(want) || hosts[0] != want[0] || hosts[1] != want[1] {
		t.Errorf("ListHosts() = %v, want %v", hosts, want)
	}
}

func TestOpenRequiresExistingDatabase(t *testing.T) {
	t.Parallel()

	opts := Options{CreateIfNotExists: false}
	if _, err := Open(t.TempDir(), opts); err == nil {
		t.Error("Open() without CreateIfNotExists should fail for a missing database")
	}
}
