package compare

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nao1215/sitediff/internal/crawler"
	"github.com/nao1215/sitediff/internal/model"
)

// solidPNG renders a width x height PNG filled with the given color.
func solidPNG(t *testing.T, width, height int, fill color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeCapturer serves current screenshots from a map.
type fakeCapturer struct {
	shots map[string][]byte
	fail  map[string]bool
}

func (f *fakeCapturer) Capture(_ context.Context, pageURL string) (*crawler.Capture, error) {
	if f.fail[pageURL] {
		return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	shot, ok := f.shots[pageURL]
	if !ok {
		return nil, errors.New("no such page")
	}
	return &crawler.Capture{HTML: "<html></html>", PNG: shot}, nil
}

// fakeSource serves baseline snapshots from a map keyed by ref.
type fakeSource struct {
	snapshots map[string][]byte
}

func (f *fakeSource) Snapshot(_, ref string) ([]byte, error) {
	data, ok := f.snapshots[ref]
	if !ok {
		return nil, errors.New("snapshot not found")
	}
	return data, nil
}

// fakeSink records diff artifacts in memory.
type fakeSink struct {
	mu    sync.Mutex
	diffs map[string][]byte
}

func (f *fakeSink) StoreDiff(pageURL string, png []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.diffs == nil {
		f.diffs = make(map[string][]byte)
	}
	f.diffs[pageURL] = png
	return "diff.png", nil
}

func successPage(t *testing.T, url, ref string) *model.PageRecord {
	t.Helper()
	p := model.NewPageRecord(url, model.PageTypeMain, 1)
	if err := p.MarkSuccess("title", "", ref); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestComparerClassifiesPages(t *testing.T) {
	t.Parallel()

	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	black := color.RGBA{0x00, 0x00, 0x00, 0xff}

	manifest := model.NewManifest("example.com", "https://example.com/", model.RuleDepth, 1920, 1080)
	manifest.AddPage(successPage(t, "https://example.com/same", "same.png"))
	manifest.AddPage(successPage(t, "https://example.com/redesigned", "redesigned.png"))
	manifest.AddPage(successPage(t, "https://example.com/taller", "taller.png"))
	manifest.AddPage(successPage(t, "https://example.com/gone", "gone.png"))
	manifest.AddPage(successPage(t, "https://example.com/lost-snapshot", "lost.png"))

	// A page that failed during the baseline crawl is not revisited.
	skipped := model.NewPageRecord("https://example.com/was-broken", model.PageTypeSub, 2)
	if err := skipped.MarkError("baseline capture failed"); err != nil {
		t.Fatal(err)
	}
	manifest.AddPage(skipped)

	source := &fakeSource{snapshots: map[string][]byte{
		"same.png":       solidPNG(t, 10, 10, white),
		"redesigned.png": solidPNG(t, 10, 10, white),
		"taller.png":     solidPNG(t, 10, 10, white),
		"gone.png":       solidPNG(t, 10, 10, white),
	}}
	capturer := &fakeCapturer{
		shots: map[string][]byte{
			"https://example.com/same":          solidPNG(t, 10, 10, white),
			"https://example.com/redesigned":    solidPNG(t, 10, 10, black),
			"https://example.com/taller":        solidPNG(t, 10, 14, white),
			"https://example.com/lost-snapshot": solidPNG(t, 10, 10, white),
		},
		fail: map[string]bool{"https://example.com/gone": true},
	}
	sink := &fakeSink{}

	c := New(capturer, source, WithArtifacts(sink))
	summary, err := c.Run(context.Background(), "example.com-20260301-120000", manifest)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if summary.Total() != 5 {
		t.Fatalf("Total() = %d, want 5 (baseline error pages are skipped)", summary.Total())
	}
	if summary.Matched != 1 || summary.Changed != 1 || summary.Errored != 3 {
		t.Fatalf("counts = (%d, %d, %d), want (1, 1, 3)", summary.Matched, summary.Changed, summary.Errored)
	}

	// Results stay in manifest order regardless of worker scheduling.
	wantOrder := []string{
		"https://example.com/same",
		"https://example.com/redesigned",
		"https://example.com/taller",
		"https://example.com/gone",
		"https://example.com/lost-snapshot",
	}
	for i, want := range wantOrder {
		if summary.Results[i].URL != want {
			t.Errorf("Results[%d].URL = %q, want %q", i, summary.Results[i].URL, want)
		}
	}

	byURL := make(map[string]*model.ComparisonResult)
	for _, r := range summary.Results {
		byURL[r.URL] = r
	}

	if got := byURL["https://example.com/same"].Classification; got != model.ClassMatched {
		t.Errorf("identical page classified %v, want matched", got)
	}
	if got := byURL["https://example.com/redesigned"].Classification; got != model.ClassChanged {
		t.Errorf("redesigned page classified %v, want changed", got)
	}
	// A dimension mismatch is a compare failure, never a change.
	if got := byURL["https://example.com/taller"].Classification; got != model.ClassErrored {
		t.Errorf("resized page classified %v, want errored", got)
	}
	if got := byURL["https://example.com/gone"].Classification; got != model.ClassErrored {
		t.Errorf("unreachable page classified %v, want errored", got)
	}
	if got := byURL["https://example.com/lost-snapshot"].Classification; got != model.ClassErrored {
		t.Errorf("page with missing snapshot classified %v, want errored", got)
	}

	// Only the changed page produced a diff artifact.
	if len(sink.diffs) != 1 {
		t.Fatalf("sink holds %d diff images, want 1", len(sink.diffs))
	}
	if _, ok := sink.diffs["https://example.com/redesigned"]; !ok {
		t.Error("diff artifact missing for the changed page")
	}
	if byURL["https://example.com/redesigned"].DiffArtifactRef == "" {
		t.Error("changed result has no diff artifact reference")
	}

	// Global ratio weights by pixels: 100 differing out of 200 compared.
	if got := summary.GlobalDiffRatio(); got != 0.5 {
		t.Errorf("GlobalDiffRatio() = %f, want 0.5", got)
	}
}

func TestComparerMatchThresholdBoundary(t *testing.T) {
	t.Parallel()

	white := color.RGBA{0xff, 0xff, 0xff, 0xff}

	// 1 of 100 pixels differs: ratio 0.01, exactly the default match
	// threshold, which classifies as changed.
	current := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			current.SetRGBA(x, y, white)
		}
	}
	current.SetRGBA(0, 0, color.RGBA{0x00, 0x00, 0x00, 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, current); err != nil {
		t.Fatal(err)
	}

	manifest := model.NewManifest("example.com", "https://example.com/", model.RuleDepth, 1920, 1080)
	manifest.AddPage(successPage(t, "https://example.com/", "home.png"))

	source := &fakeSource{snapshots: map[string][]byte{
		"home.png": solidPNG(t, 10, 10, white),
	}}
	capturer := &fakeCapturer{shots: map[string][]byte{
		"https://example.com/": buf.Bytes(),
	}}

	c := New(capturer, source)
	summary, err := c.Run(context.Background(), "example.com-20260301-120000", manifest)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if summary.Changed != 1 {
		t.Errorf("ratio at threshold should classify as changed, got %+v", summary.Results[0])
	}
}

func TestComparerHonorsCancellation(t *testing.T) {
	t.Parallel()

	manifest := model.NewManifest("example.com", "https://example.com/", model.RuleDepth, 1920, 1080)
	manifest.AddPage(successPage(t, "https://example.com/", "home.png"))

	source := &fakeSource{snapshots: map[string][]byte{
		"home.png": solidPNG(t, 2, 2, color.RGBA{0xff, 0xff, 0xff, 0xff}),
	}}
	capturer := &fakeCapturer{fail: map[string]bool{"https://example.com/": true}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(capturer, source)
	if _, err := c.Run(ctx, "example.com-20260301-120000", manifest); err == nil {
		t.Fatal("Run() with canceled context should return an error")
	}
}

func TestDiffDirStoreDiff(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "diffs")
	sink := NewDiffDir(dir)

	ref, err := sink.StoreDiff("https://example.com/about", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("StoreDiff() unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ref))
	if err != nil {
		t.Fatalf("diff file not written: %v", err)
	}
	if !bytes.Equal(data, []byte("png-bytes")) {
		t.Error("diff file contents do not match")
	}
}
