package rollback

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotDedup(t *testing.T) {
	ring := New(t.TempDir())

	if err := ring.SnapshotBeforeWrite([]byte("same")); err != nil {
		t.Fatalf("Failed to snapshot: %v", err)
	}
	if err := ring.SnapshotBeforeWrite([]byte("same")); err != nil {
		t.Fatalf("Failed to snapshot second time: %v", err)
	}

	snaps, err := ring.List()
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Errorf("Expected 1 snapshot after identical writes, got %d", len(snaps))
	}
}

func TestSnapshotEviction(t *testing.T) {
	ring := New(t.TempDir())

	for i := 0; i < 8; i++ {
		content := []byte(fmt.Sprintf("content-%d", i))
		if err := ring.SnapshotBeforeWrite(content); err != nil {
			t.Fatalf("Failed to snapshot %d: %v", i, err)
		}
	}

	snaps, err := ring.List()
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snaps) != DefaultCap {
		t.Fatalf("Expected %d snapshots after eviction, got %d", DefaultCap, len(snaps))
	}

	// Newest-first: index 0 must hold the last write, index 4 the oldest
	// survivor (content-3).
	for i, snap := range snaps {
		if snap.Index != i {
			t.Errorf("Snapshot %d has index %d", i, snap.Index)
		}
		got, err := ring.Read(i)
		if err != nil {
			t.Fatalf("Failed to read snapshot %d: %v", i, err)
		}
		want := fmt.Sprintf("content-%d", 7-i)
		if string(got) != want {
			t.Errorf("Snapshot %d content = %q, want %q", i, got, want)
		}
	}
}

func TestReadOutOfRange(t *testing.T) {
	ring := New(t.TempDir())

	if err := ring.SnapshotBeforeWrite([]byte("only")); err != nil {
		t.Fatalf("Failed to snapshot: %v", err)
	}

	if _, err := ring.Read(5); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for out-of-range index, got %v", err)
	}
	if _, err := ring.Read(-1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for negative index, got %v", err)
	}
}

func TestListEmptyDirectory(t *testing.T) {
	// The snapshot directory may not exist before the first write.
	ring := New(filepath.Join(t.TempDir(), "never-created"))

	snaps, err := ring.List()
	if err != nil {
		t.Fatalf("Failed to list snapshots in missing dir: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("Expected 0 snapshots, got %d", len(snaps))
	}
}

func TestRestore(t *testing.T) {
	tempDir := t.TempDir()
	ring := New(filepath.Join(tempDir, "snapshots"))

	if err := ring.SnapshotBeforeWrite([]byte("v1")); err != nil {
		t.Fatalf("Failed to snapshot v1: %v", err)
	}
	if err := ring.SnapshotBeforeWrite([]byte("v2")); err != nil {
		t.Fatalf("Failed to snapshot v2: %v", err)
	}

	target := filepath.Join(tempDir, "restored.json")
	content, err := ring.Restore(1, target)
	if err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}
	if string(content) != "v1" {
		t.Errorf("Restore returned %q, want %q", content, "v1")
	}

	onDisk, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read restored file: %v", err)
	}
	if string(onDisk) != "v1" {
		t.Errorf("Restored file content = %q, want %q", onDisk, "v1")
	}
}

func TestCustomCap(t *testing.T) {
	ring := NewWithCap(t.TempDir(), 2)

	for i := 0; i < 4; i++ {
		if err := ring.SnapshotBeforeWrite([]byte(fmt.Sprintf("c%d", i))); err != nil {
			t.Fatalf("Failed to snapshot %d: %v", i, err)
		}
	}

	snaps, err := ring.List()
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Errorf("Expected 2 snapshots with cap 2, got %d", len(snaps))
	}
}
