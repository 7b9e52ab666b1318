package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/sitediff/internal/model"
)

var (
	// ErrBaselineNotFound is returned when no baseline matches the
	// requested ID or hostname.
	ErrBaselineNotFound = errors.New("baseline not found")

	// ErrSnapshotNotFound is returned when a manifest references a
	// screenshot that is missing from the baseline directory.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrAlreadyCommitted is returned when a staging area is used after
	// Commit or Discard.
	ErrAlreadyCommitted = errors.New("staging area already finalized")
)

const (
	manifestFile = "manifest.json"
	snapshotsDir = "snapshots"
	stagingDir   = ".staging"

	// timestampLayout is the baseline ID timestamp format. Lexicographic
	// order equals chronological order.
	timestampLayout = "20060102-150405"
)

// Store reads and writes baselines under a root directory. Each
// baseline lives in root/{id}/ where id is {hostname}-{timestamp}.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir. The directory is created on
// first write, not here.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// ID builds the baseline ID for a manifest.
func ID(m *model.Manifest) string {
	return m.Hostname + "-" + m.CreatedAt.UTC().Format(timestampLayout)
}

// Begin opens a staging area for a new baseline. Snapshots stream into
// it during the crawl; the baseline appears in the store only when
// Commit succeeds.
func (s *Store) Begin() (*Staging, error) {
	parent := filepath.Join(s.root, stagingDir)
	if err := os.MkdirAll(parent, 0750); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	dir, err := os.MkdirTemp(parent, "run-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, snapshotsDir), 0750); err != nil {
		return nil, fmt.Errorf("create snapshots dir: %w", err)
	}
	return &Staging{store: s, dir: dir}, nil
}

// Load reads the manifest of the baseline with the given ID.
func (s *Store) Load(id string) (*model.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, id, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBaselineNotFound, id)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", id, err)
	}
	return &m, nil
}

// Snapshot reads a screenshot from a baseline by its manifest reference.
func (s *Store) Snapshot(id, ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, id, snapshotsDir, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrSnapshotNotFound, id, ref)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Entry summarizes one stored baseline.
type Entry struct {
	// ID is the baseline directory name, {hostname}-{timestamp}.
	ID string

	// Hostname the baseline was captured from.
	Hostname string

	// CreatedAt is the crawl start time from the manifest.
	CreatedAt time.Time

	// Pages is the total number of page records.
	Pages int

	// Succeeded is the number of successfully captured pages.
	Succeeded int
}

// List returns every stored baseline, newest first.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store root: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		m, err := s.Load(de.Name())
		if err != nil {
			// A directory without a readable manifest is not a baseline.
			continue
		}
		succeeded, _, _ := m.CountByStatus()
		entries = append(entries, Entry{
			ID:        de.Name(),
			Hostname:  m.Hostname,
			CreatedAt: m.CreatedAt,
			Pages:     len(m.Pages),
			Succeeded: succeeded,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Latest returns the most recent baseline for hostname.
func (s *Store) Latest(hostname string) (string, *model.Manifest, error) {
	entries, err := s.List()
	if err != nil {
		return "", nil, err
	}
	for _, e := range entries {
		if strings.EqualFold(e.Hostname, hostname) {
			m, err := s.Load(e.ID)
			if err != nil {
				return "", nil, err
			}
			return e.ID, m, nil
		}
	}
	return "", nil, fmt.Errorf("%w: no baseline for host %s", ErrBaselineNotFound, hostname)
}

// Staging is an in-progress baseline. It implements the crawler's
// snapshot sink; Commit publishes it, Discard removes it.
type Staging struct {
	store *Store
	dir   string
	done  bool
}

// Store writes one screenshot into the staging area and returns its
// manifest reference.
func (st *Staging) Store(pageURL string, png []byte) (string, error) {
	if st.done {
		return "", ErrAlreadyCommitted
	}
	ref := SnapshotName(pageURL)
	if err := os.WriteFile(filepath.Join(st.dir, snapshotsDir, ref), png, 0600); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return ref, nil
}

// Commit writes the manifest and atomically renames the staging
// directory into the store. It returns the new baseline's ID.
func (st *Staging) Commit(m *model.Manifest) (string, error) {
	if st.done {
		return "", ErrAlreadyCommitted
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(st.dir, manifestFile), data, 0600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	id := ID(m)
	target := filepath.Join(st.store.root, id)
	if err := os.Rename(st.dir, target); err != nil {
		return "", fmt.Errorf("publish baseline %s: %w", id, err)
	}
	st.done = true
	return id, nil
}

// Discard removes the staging area and everything captured into it.
func (st *Staging) Discard() error {
	if st.done {
		return nil
	}
	st.done = true
	return os.RemoveAll(st.dir)
}
