package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/nao1215/sitediff/internal/baseline"
	"github.com/nao1215/sitediff/internal/config"
	"github.com/nao1215/sitediff/internal/database"
	"github.com/nao1215/sitediff/internal/model"
	"github.com/nao1215/sitediff/internal/report"
)

// TestNewCompareCmd tests the compare command creation.
func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "compare [baseline-id|url]" {
			t.Errorf("expected use 'compare [baseline-id|url]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	tests := []struct {
		name      string
		shorthand string
	}{
		{"list", "l"},
		{"list-hosts", "L"},
		{"show", "i"},
		{"timeout", "t"},
		{"workers", "w"},
		{"surfaces", "s"},
		{"pixel-threshold", "P"},
		{"match-threshold", "M"},
		{"remote-browser", "e"},
		{"config", "c"},
		{"data-dir", "D"},
		{"json", "j"},
		{"markdown", "m"},
		{"output", "o"},
	}
	for _, tt := range tests {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
		})
	}
}

// TestBuildCompareConfig tests configuration building from compare flags.
func TestBuildCompareConfig(t *testing.T) {
	t.Run("builds config with default thresholds", func(t *testing.T) {
		cmd := NewCompareCmd()
		cfg, err := buildCompareConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.PixelThreshold != config.DefaultPixelThreshold {
			t.Errorf("expected PixelThreshold %v, got %v", config.DefaultPixelThreshold, cfg.PixelThreshold)
		}
		if cfg.MatchThreshold != config.DefaultMatchThreshold {
			t.Errorf("expected MatchThreshold %v, got %v", config.DefaultMatchThreshold, cfg.MatchThreshold)
		}
		if cfg.CompareWorkers != config.DefaultCompareWorkers {
			t.Errorf("expected CompareWorkers %d, got %d", config.DefaultCompareWorkers, cfg.CompareWorkers)
		}
	})

	t.Run("builds config with custom thresholds", func(t *testing.T) {
		cmd := NewCompareCmd()
		_ = cmd.Flags().Set("pixel-threshold", "0.2")
		_ = cmd.Flags().Set("match-threshold", "0.05")
		cfg, err := buildCompareConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.PixelThreshold != 0.2 {
			t.Errorf("expected PixelThreshold 0.2, got %v", cfg.PixelThreshold)
		}
		if cfg.MatchThreshold != 0.05 {
			t.Errorf("expected MatchThreshold 0.05, got %v", cfg.MatchThreshold)
		}
	})
}

// TestHostnameOf tests hostname extraction from compare targets.
func TestHostnameOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"url", "https://Example.com/pricing", "example.com"},
		{"bare hostname", "example.com", "example.com"},
		{"baseline id", "example.com-20260314-092653", "example.com"},
		{"hostname with trailing digits", "cdn42.example.com", "cdn42.example.com"},
		{"id-like but invalid timestamp", "example.com-20269999-999999", "example.com-20269999-999999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := hostnameOf(tt.target); got != tt.want {
				t.Errorf("hostnameOf(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

// TestCompareHistoryListing tests the history operations against a real
// database.
func TestCompareHistoryListing(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() unexpected error: %v", err)
		}
	})

	ctx := context.Background()

	summary := model.NewComparisonSummary("example.com", "example.com-20260314-092653", "https://example.com/")
	summary.Add(&model.ComparisonResult{
		URL:            "https://example.com/",
		Classification: model.ClassMatched,
		ComparedPixels: 100,
	})
	if err := db.RecordComparison(ctx, summary, "/tmp/results"); err != nil {
		t.Fatalf("RecordComparison() unexpected error: %v", err)
	}

	t.Run("lists recorded hosts", func(t *testing.T) {
		if err := listRecordedHosts(ctx, db); err != nil {
			t.Errorf("listRecordedHosts() unexpected error: %v", err)
		}
	})

	t.Run("lists comparison history", func(t *testing.T) {
		if err := listComparisonHistory(ctx, db, "example.com"); err != nil {
			t.Errorf("listComparisonHistory() unexpected error: %v", err)
		}
	})

	t.Run("lists empty history without error", func(t *testing.T) {
		if err := listComparisonHistory(ctx, db, "nowhere.example.org"); err != nil {
			t.Errorf("listComparisonHistory() unexpected error: %v", err)
		}
	})

	t.Run("shows stored summary", func(t *testing.T) {
		records, err := db.ComparisonHistory(ctx, "example.com")
		if err != nil {
			t.Fatalf("ComparisonHistory() unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}

		cfg := config.NewConfig()
		if err := showComparisonSummary(ctx, db, cfg, records[0].ID); err != nil {
			t.Errorf("showComparisonSummary() unexpected error: %v", err)
		}
	})

	t.Run("missing summary is an error", func(t *testing.T) {
		cfg := config.NewConfig()
		err := showComparisonSummary(ctx, db, cfg, 9999)
		if err == nil {
			t.Fatal("expected error for missing comparison ID")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected 'not found' error, got %v", err)
		}
	})
}

// TestFormatComparisonCounts tests the history table result column.
func TestFormatComparisonCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record database.ComparisonRecord
		want   string
	}{
		{
			name:   "all matched",
			record: database.ComparisonRecord{Matched: 5},
			want:   "=5 (0.00% diff)",
		},
		{
			name:   "with changes",
			record: database.ComparisonRecord{Matched: 3, Changed: 2, DiffRatio: 0.1234},
			want:   "=3 ~2 (12.34% diff)",
		},
		{
			name:   "with errors",
			record: database.ComparisonRecord{Matched: 1, Changed: 1, Errored: 2, DiffRatio: 0.5},
			want:   "=1 ~1 !2 (50.00% diff)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatComparisonCounts(tt.record); got != tt.want {
				t.Errorf("formatComparisonCounts() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestCreateComparePipelineStepOrder verifies the report runs before
// the history insert, so a failed insert cannot suppress the report of
// a comparison that already completed.
func TestCreateComparePipelineStepOrder(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	store := baseline.NewStore(cfg.BaselinesDir())
	writer := report.NewSimpleWriter(io.Discard)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := createComparePipeline(cfg, store, nil, nil, logger, config.SiteConfig{}, writer)

	want := []string{"load-baseline", "compare", "report", "record-history"}
	got := p.StepNames()
	if len(got) != len(want) {
		t.Fatalf("StepNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StepNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
