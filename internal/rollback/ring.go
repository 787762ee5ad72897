// Package rollback keeps a bounded history of lockfile snapshots on disk.
//
// A snapshot is taken before every differing lockfile write, so any mutation
// can be undone by restoring the previous serialization. The history is
// count-bounded: once more than DefaultCap snapshots exist, the oldest are
// evicted. Identical consecutive writes are deduplicated so idempotent
// operations do not churn the buffer.
package rollback

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/atomicfile"
)

// DefaultCap is the number of snapshots retained per ring.
const DefaultCap = 5

// ErrNotFound is returned when a snapshot index is out of range.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot describes one retained lockfile serialization.
// Index 0 is the most recent snapshot.
type Snapshot struct {
	Index     int
	Name      string
	CreatedAt time.Time
	Size      int64
}

// Ring manages the snapshot directory.
type Ring struct {
	dir string
	cap int
}

// New creates a Ring over dir with the default capacity.
func New(dir string) *Ring {
	return &Ring{dir: dir, cap: DefaultCap}
}

// NewWithCap creates a Ring with an explicit capacity (used in tests).
func NewWithCap(dir string, cap int) *Ring {
	return &Ring{dir: dir, cap: cap}
}

// SnapshotBeforeWrite stores content as the newest snapshot, unless it is
// byte-identical to the current newest, then evicts the oldest snapshots
// until the count is within capacity.
func (r *Ring) SnapshotBeforeWrite(content []byte) error {
	names, err := r.sortedNames()
	if err != nil {
		return err
	}

	if len(names) > 0 {
		newest, err := os.ReadFile(filepath.Join(r.dir, names[0]))
		if err != nil {
			return fmt.Errorf("failed to read newest snapshot: %w", err)
		}
		if bytes.Equal(newest, content) {
			return nil
		}
	}

	name := snapshotName(time.Now().UTC())
	if err := atomicfile.WriteFile(filepath.Join(r.dir, name), content); err != nil {
		return err
	}

	return r.evict()
}

// List returns all snapshots newest-first, each carrying its 0-based
// recency index.
func (r *Ring) List() ([]Snapshot, error) {
	names, err := r.sortedNames()
	if err != nil {
		return nil, err
	}

	snaps := make([]Snapshot, 0, len(names))
	for i, name := range names {
		info, err := os.Stat(filepath.Join(r.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to stat snapshot %s: %w", name, err)
		}
		snaps = append(snaps, Snapshot{
			Index:     i,
			Name:      name,
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}
	return snaps, nil
}

// Read returns the raw content of the snapshot at the given recency index.
func (r *Ring) Read(index int) ([]byte, error) {
	names, err := r.sortedNames()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(names) {
		return nil, fmt.Errorf("%w: index %d (have %d snapshots)", ErrNotFound, index, len(names))
	}
	return os.ReadFile(filepath.Join(r.dir, names[index]))
}

// Restore atomically writes the snapshot at index over targetPath and
// returns the restored content so callers can show it before committing
// to further action.
func (r *Ring) Restore(index int, targetPath string) ([]byte, error) {
	content, err := r.Read(index)
	if err != nil {
		return nil, err
	}
	if err := atomicfile.WriteFile(targetPath, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (r *Ring) evict() error {
	names, err := r.sortedNames()
	if err != nil {
		return err
	}
	for len(names) > r.cap {
		oldest := names[len(names)-1]
		if err := os.Remove(filepath.Join(r.dir, oldest)); err != nil {
			return fmt.Errorf("failed to evict snapshot %s: %w", oldest, err)
		}
		names = names[:len(names)-1]
	}
	return nil
}

// sortedNames lists snapshot filenames newest-first. Filenames embed a
// sortable timestamp, so lexical descending order is recency order.
func (r *Ring) sortedNames() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// snapshotName derives a filesystem-safe filename from a timestamp.
// Colons and periods are not safe on every filesystem, so both are
// replaced before use.
func snapshotName(t time.Time) string {
	ts := t.Format("2006-01-02T15:04:05.000000000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return ts + ".json"
}
