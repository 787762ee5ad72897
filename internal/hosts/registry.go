package hosts

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

// Stable host identifiers. Lockfile target sets may only reference these.
const (
	HostClaudeCode    = "claude-code"
	HostClaudeDesktop = "claude-desktop"
	HostCursor        = "cursor"
	HostWindsurf      = "windsurf"
	HostVSCode        = "vscode"
)

// KnownIDs returns the fixed set of supported host identifiers, sorted.
func KnownIDs() []string {
	ids := []string{
		HostClaudeCode,
		HostClaudeDesktop,
		HostCursor,
		HostWindsurf,
		HostVSCode,
	}
	sort.Strings(ids)
	return ids
}

// IsKnown reports whether id names a supported host.
func IsKnown(id string) bool {
	for _, known := range KnownIDs() {
		if id == known {
			return true
		}
	}
	return false
}

// All returns adapters for every known host at its platform config path.
func All() ([]*Adapter, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	adapters := []*Adapter{
		NewAdapter(HostClaudeCode, "Claude Code",
			filepath.Join(home, ".claude.json"),
			singleKeyProjection("mcpServers")),
		NewAdapter(HostClaudeDesktop, "Claude Desktop",
			claudeDesktopConfigPath(home),
			singleKeyProjection("mcpServers")),
		NewAdapter(HostCursor, "Cursor",
			filepath.Join(home, ".cursor", "mcp.json"),
			singleKeyProjection("mcpServers")),
		NewAdapter(HostWindsurf, "Windsurf",
			filepath.Join(home, ".codeium", "windsurf", "mcp_config.json"),
			singleKeyProjection("mcpServers")),
		NewAdapter(HostVSCode, "VS Code",
			vscodeSettingsPath(home),
			nestedKeyProjection("mcp", "servers")),
	}
	return adapters, nil
}

// Get returns the adapter for one known host id.
func Get(id string) (*Adapter, error) {
	adapters, err := All()
	if err != nil {
		return nil, err
	}
	for _, a := range adapters {
		if a.ID() == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown host %q (known: %v)", id, KnownIDs())
}

// Installed filters adapters down to hosts that appear present on this
// machine.
func Installed(adapters []*Adapter) []*Adapter {
	var present []*Adapter
	for _, a := range adapters {
		if a.IsInstalled() {
			present = append(present, a)
		}
	}
	return present
}

func claudeDesktopConfigPath(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

func vscodeSettingsPath(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Code", "User", "settings.json")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Code", "User", "settings.json")
	default:
		return filepath.Join(home, ".config", "Code", "User", "settings.json")
	}
}
