package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/sitediff/internal/baseline"
)

// DiffDir writes diff images into a directory, one PNG per changed
// page, named the same way baseline snapshots are.
type DiffDir struct {
	dir string

	once  sync.Once
	mkErr error
}

// NewDiffDir creates a sink writing into dir. The directory is created
// on first write so a run with no changed pages leaves no empty dir.
func NewDiffDir(dir string) *DiffDir {
	return &DiffDir{dir: dir}
}

// StoreDiff writes the diff image and returns its file name.
func (d *DiffDir) StoreDiff(pageURL string, png []byte) (string, error) {
	d.once.Do(func() {
		d.mkErr = os.MkdirAll(d.dir, 0750)
	})
	if d.mkErr != nil {
		return "", fmt.Errorf("create diffs dir: %w", d.mkErr)
	}

	ref := baseline.SnapshotName(pageURL)
	if err := os.WriteFile(filepath.Join(d.dir, ref), png, 0600); err != nil {
		return "", fmt.Errorf("write diff image: %w", err)
	}
	return ref, nil
}
