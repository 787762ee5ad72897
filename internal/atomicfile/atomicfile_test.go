package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "out.json")
	content := []byte(`{"hello":"world"}`)

	if err := WriteFile(path, content); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read back file: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Content mismatch: got %q, want %q", got, content)
	}
}

func TestWriteFileLeavesNoTempSibling(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "out.json")

	if err := WriteFile(path, []byte("data")); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("Temp sibling left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("Expected exactly 1 file, got %d", len(entries))
	}
}

func TestWriteFileCreatesParentDirs(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "a", "b", "c", "out.json")

	if err := WriteFile(path, []byte("nested")); err != nil {
		t.Fatalf("Failed to write nested file: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read back nested file: %v", err)
	}
	if string(got) != "nested" {
		t.Errorf("Content mismatch: got %q", got)
	}
}

func TestWriteFileOverwritesExisting(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "out.json")

	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}
	if err := WriteFile(path, []byte("new")); err != nil {
		t.Fatalf("Failed to overwrite file: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("Expected overwritten content, got %q", got)
	}
}

func TestWriteFileErrorType(t *testing.T) {
	// Writing under a path whose parent is a regular file must fail with a
	// WriteError carrying the destination path.
	tempDir := t.TempDir()
	blocker := filepath.Join(tempDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocker file: %v", err)
	}

	path := filepath.Join(blocker, "out.json")
	err := WriteFile(path, []byte("data"))
	if err == nil {
		t.Fatal("Expected error writing under a regular file")
	}

	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Expected WriteError, got %T: %v", err, err)
	}
	if we.Path != path {
		t.Errorf("WriteError path = %q, want %q", we.Path, path)
	}
}
