package app

import (
	"strings"
	"testing"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
)

func TestDiffReportsExtrasWithoutMarkingRemoval(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	useTempDataDir(t)

	// A server configured by hand in one host, absent from the lockfile.
	cursor, err := hosts.Get(hosts.HostCursor)
	if err != nil {
		t.Fatalf("Failed to get cursor adapter: %v", err)
	}
	stray := hosts.ServerEntry{Command: "stray-server"}
	if err := cursor.AddServer("stray", stray); err != nil {
		t.Fatalf("Failed to seed stray server: %v", err)
	}

	out, err := captureStdout(t, func() error {
		return runDiff(diffCmd, nil)
	})
	if err != nil {
		t.Fatalf("Diff failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "extra") {
		t.Errorf("Expected the stray server reported as extra, got:\n%s", out)
	}
	if strings.Contains(out, "remove") {
		t.Errorf("Plain diff must not mark anything for removal, got:\n%s", out)
	}

	prev := diffDestructive
	diffDestructive = true
	t.Cleanup(func() { diffDestructive = prev })

	out, err = captureStdout(t, func() error {
		return runDiff(diffCmd, nil)
	})
	if err != nil {
		t.Fatalf("Destructive diff failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "remove") {
		t.Errorf("Destructive diff should preview the removal, got:\n%s", out)
	}
}
