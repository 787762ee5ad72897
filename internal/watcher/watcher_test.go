package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/reconcile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/rollback"
)

func TestWatcherReportsDrift(t *testing.T) {
	dir := t.TempDir()
	adapter := hosts.NewSingleKeyAdapter(hosts.HostCursor, "Cursor",
		filepath.Join(dir, "host", "config.json"), "mcpServers")
	if err := os.MkdirAll(filepath.Dir(adapter.ConfigPath()), 0755); err != nil {
		t.Fatalf("Failed to create host dir: %v", err)
	}

	store := lockfile.NewStore(filepath.Join(dir, "mcp.lock.json"),
		rollback.New(filepath.Join(dir, "snapshots")))

	w, err := New(store, []*hosts.Adapter{adapter})
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	// An out-of-band edit adds a server the lockfile does not know.
	config := `{"mcpServers":{"stray":{"command":"stray-cmd"}}}`
	if err := os.WriteFile(adapter.ConfigPath(), []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write host config: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Host != hosts.HostCursor {
			t.Errorf("Event host = %s", ev.Host)
		}
		if len(ev.Result.Actions) != 1 || ev.Result.Actions[0].Kind != reconcile.ActionExtra {
			t.Errorf("Expected single extra action, got %+v", ev.Result.Actions)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("No drift event within 3s")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	adapter := hosts.NewSingleKeyAdapter(hosts.HostCursor, "Cursor",
		filepath.Join(dir, "config.json"), "mcpServers")

	store := lockfile.NewStore(filepath.Join(dir, "state", "mcp.lock.json"),
		rollback.New(filepath.Join(dir, "state", "snapshots")))

	w, err := New(store, []*hosts.Adapter{adapter})
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write unrelated file: %v", err)
	}

	select {
	case ev := <-w.Events():
		t.Errorf("Unexpected drift event for unrelated file: %+v", ev)
	case <-time.After(600 * time.Millisecond):
	}
}
