package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/sitediff/internal/model"
)

// markerStep stamps the run so tests can tell which target produced it.
// It fails for targets listed in fail.
type markerStep struct {
	fail map[string]bool
}

func (s *markerStep) Do(_ context.Context, run *model.Run) error {
	if s.fail[run.Target] {
		return errors.New("unreachable host")
	}
	run.BaselineID = "done:" + run.Target
	return nil
}

func (s *markerStep) Name() string { return "marker" }

func TestProcessBatchKeepsTargetOrder(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline {
		p := New()
		p.AddStep(&markerStep{})
		return p
	}
	bp := NewBatchProcessor(factory, WithConcurrency(4))

	targets := []string{
		"https://a.example.com",
		"https://b.example.com",
		"https://c.example.com",
	}
	runs, err := bp.ProcessBatch(context.Background(), targets)
	if err != nil {
		t.Fatalf("ProcessBatch() unexpected error: %v", err)
	}
	if len(runs) != len(targets) {
		t.Fatalf("len(runs) = %d, want %d", len(runs), len(targets))
	}
	for i, target := range targets {
		if runs[i] == nil {
			t.Fatalf("runs[%d] is nil", i)
		}
		if runs[i].Target != target {
			t.Errorf("runs[%d].Target = %q, want %q", i, runs[i].Target, target)
		}
		if want := "done:" + target; runs[i].BaselineID != want {
			t.Errorf("runs[%d].BaselineID = %q, want %q", i, runs[i].BaselineID, want)
		}
	}
}

func TestProcessBatchContinuesPastFailedTarget(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline {
		p := New()
		p.AddStep(&markerStep{fail: map[string]bool{"https://bad.example.com": true}})
		return p
	}
	bp := NewBatchProcessor(factory)

	targets := []string{
		"https://good.example.com",
		"https://bad.example.com",
		"https://also-good.example.com",
	}
	runs, err := bp.ProcessBatch(context.Background(), targets)
	if err != nil {
		t.Fatalf("ProcessBatch() unexpected error: %v", err)
	}

	if runs[0].BaselineID == "" || runs[2].BaselineID == "" {
		t.Error("healthy targets should have completed")
	}
	if len(runs[1].Errors) != 1 {
		t.Fatalf("len(runs[1].Errors) = %d, want 1", len(runs[1].Errors))
	}
	if got := runs[1].Errors[0]; got != "marker: unreachable host" {
		t.Errorf("runs[1].Errors[0] = %q, want %q", got, "marker: unreachable host")
	}
}

func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline {
		p := New()
		p.AddStep(&markerStep{})
		return p
	}
	bp := NewBatchProcessor(factory, WithConcurrency(2))

	targets := []string{"https://a.example.com", "https://b.example.com"}

	var mu sync.Mutex
	seen := make(map[int]string)
	runs, err := bp.ProcessBatchWithCallback(context.Background(), targets, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = run.Target
	})
	if err != nil {
		t.Fatalf("ProcessBatchWithCallback() unexpected error: %v", err)
	}
	if len(runs) != len(targets) {
		t.Fatalf("len(runs) = %d, want %d", len(runs), len(targets))
	}
	for i, target := range targets {
		if seen[i] != target {
			t.Errorf("callback for index %d got %q, want %q", i, seen[i], target)
		}
	}
}

func TestProcessBatchRespectsCancellation(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline {
		p := New()
		p.AddStep(&markerStep{})
		return p
	}
	bp := NewBatchProcessor(factory)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bp.ProcessBatch(ctx, []string{"https://example.com"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ProcessBatch() error = %v, want context.Canceled", err)
	}
}
