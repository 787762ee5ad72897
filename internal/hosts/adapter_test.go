package hosts

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempAdapter(t *testing.T) *Adapter {
	t.Helper()
	dir := t.TempDir()
	return NewSingleKeyAdapter("testhost", "Test Host",
		filepath.Join(dir, "config.json"), "mcpServers")
}

func TestReadConfigMissingFile(t *testing.T) {
	a := tempAdapter(t)

	servers, err := a.ReadConfig()
	if err != nil {
		t.Fatalf("Failed to read missing config: %v", err)
	}
	if len(servers) != 0 {
		t.Errorf("Expected empty map for missing file, got %d entries", len(servers))
	}
}

func TestReadConfigMalformed(t *testing.T) {
	a := tempAdapter(t)
	if err := os.WriteFile(a.ConfigPath(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to seed config: %v", err)
	}

	_, err := a.ReadConfig()
	if err == nil {
		t.Fatal("Expected error for malformed config")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ParseError, got %T: %v", err, err)
	}
	if pe.Path != a.ConfigPath() {
		t.Errorf("ParseError path = %q, want %q", pe.Path, a.ConfigPath())
	}
}

func TestAddAndRemoveServer(t *testing.T) {
	a := tempAdapter(t)

	entry := ServerEntry{
		Command: "npx",
		Args:    []string{"-y", "@example/search-server"},
		Env:     map[string]string{"API_KEY": "secret"},
	}
	if err := a.AddServer("search", entry); err != nil {
		t.Fatalf("Failed to add server: %v", err)
	}

	servers, err := a.ReadConfig()
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	got, ok := servers["search"]
	if !ok {
		t.Fatal("Expected server 'search' after add")
	}
	if got.Command != "npx" || len(got.Args) != 2 || got.Env["API_KEY"] != "secret" {
		t.Errorf("Round-tripped entry mismatch: %+v", got)
	}

	if err := a.RemoveServer("search"); err != nil {
		t.Fatalf("Failed to remove server: %v", err)
	}
	servers, err = a.ReadConfig()
	if err != nil {
		t.Fatalf("Failed to re-read config: %v", err)
	}
	if _, ok := servers["search"]; ok {
		t.Error("Server still present after remove")
	}
}

func TestRemoveAbsentServerIsNoOp(t *testing.T) {
	a := tempAdapter(t)

	if err := a.RemoveServer("ghost"); err != nil {
		t.Fatalf("Removing absent server returned error: %v", err)
	}
	// The no-op must not create the config file either.
	if _, err := os.Stat(a.ConfigPath()); !os.IsNotExist(err) {
		t.Error("Removing an absent server created the config file")
	}
}

func TestWriteConfigPreservesUnrelatedKeys(t *testing.T) {
	a := tempAdapter(t)
	seed := `{"theme":"dark","mcpServers":{"old":{"command":"old-cmd"}},"telemetry":{"enabled":false}}`
	if err := os.WriteFile(a.ConfigPath(), []byte(seed), 0644); err != nil {
		t.Fatalf("Failed to seed config: %v", err)
	}

	if err := a.AddServer("new", ServerEntry{Command: "new-cmd"}); err != nil {
		t.Fatalf("Failed to add server: %v", err)
	}

	data, err := os.ReadFile(a.ConfigPath())
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to parse written config: %v", err)
	}
	if string(raw["theme"]) != `"dark"` {
		t.Errorf("Unrelated key 'theme' not preserved: %s", raw["theme"])
	}
	if _, ok := raw["telemetry"]; !ok {
		t.Error("Unrelated key 'telemetry' dropped")
	}

	servers, err := a.ReadConfig()
	if err != nil {
		t.Fatalf("Failed to read back servers: %v", err)
	}
	if len(servers) != 2 {
		t.Errorf("Expected 2 servers (old + new), got %d", len(servers))
	}
}

func TestNestedProjection(t *testing.T) {
	dir := t.TempDir()
	a := NewNestedKeyAdapter("editor", "Editor",
		filepath.Join(dir, "settings.json"), "mcp", "servers")

	seed := `{"editor.fontSize":14,"mcp":{"servers":{"db":{"command":"db-server"}},"inputs":[]}}`
	if err := os.WriteFile(a.ConfigPath(), []byte(seed), 0644); err != nil {
		t.Fatalf("Failed to seed settings: %v", err)
	}

	servers, err := a.ReadConfig()
	if err != nil {
		t.Fatalf("Failed to read nested config: %v", err)
	}
	if servers["db"].Command != "db-server" {
		t.Errorf("Nested extract failed: %+v", servers)
	}

	if err := a.AddServer("web", ServerEntry{Command: "web-server"}); err != nil {
		t.Fatalf("Failed to add into nested config: %v", err)
	}

	data, err := os.ReadFile(a.ConfigPath())
	if err != nil {
		t.Fatalf("Failed to read settings file: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to parse settings: %v", err)
	}
	if _, ok := raw["editor.fontSize"]; !ok {
		t.Error("Top-level sibling key dropped")
	}
	var section map[string]json.RawMessage
	if err := json.Unmarshal(raw["mcp"], &section); err != nil {
		t.Fatalf("Failed to parse mcp section: %v", err)
	}
	if _, ok := section["inputs"]; !ok {
		t.Error("Nested sibling key 'inputs' dropped")
	}

	servers, err = a.ReadConfig()
	if err != nil {
		t.Fatalf("Failed to re-read nested config: %v", err)
	}
	if len(servers) != 2 {
		t.Errorf("Expected 2 servers in nested config, got %d", len(servers))
	}
}

func TestIsInstalled(t *testing.T) {
	dir := t.TempDir()
	existing := NewSingleKeyAdapter("yes", "Yes",
		filepath.Join(dir, "config.json"), "mcpServers")
	missing := NewSingleKeyAdapter("no", "No",
		filepath.Join(dir, "nowhere", "config.json"), "mcpServers")

	if !existing.IsInstalled() {
		t.Error("Adapter with existing config dir reported not installed")
	}
	if missing.IsInstalled() {
		t.Error("Adapter with missing config dir reported installed")
	}
}

func TestKnownIDs(t *testing.T) {
	if !IsKnown(HostCursor) {
		t.Error("cursor should be a known host")
	}
	if IsKnown("emacs") {
		t.Error("emacs should not be a known host")
	}
	if len(KnownIDs()) != 5 {
		t.Errorf("Expected 5 known hosts, got %d", len(KnownIDs()))
	}
}
