package app

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/history"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/probe"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/rollback"
)

// getDataDir returns the state directory, creating it if needed.
func getDataDir() (string, error) {
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
		return dataDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	dir := filepath.Join(home, ".mcpman")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create mcpman directory: %w", err)
	}
	return dir, nil
}

// getLockPath returns the lockfile location.
func getLockPath() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mcp.lock.json"), nil
}

// getSnapshotDir returns the rollback snapshot directory.
func getSnapshotDir() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snapshots"), nil
}

// openLockStore wires the lockfile store to its rollback ring.
func openLockStore() (*lockfile.Store, error) {
	lockPath, err := getLockPath()
	if err != nil {
		return nil, err
	}
	snapshotDir, err := getSnapshotDir()
	if err != nil {
		return nil, err
	}
	return lockfile.NewStore(lockPath, rollback.New(snapshotDir)), nil
}

// openHistory opens the probe-history database, creating its schema.
func openHistory() (*history.Store, error) {
	dir, err := getDataDir()
	if err != nil {
		return nil, err
	}
	st, err := history.New(filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, err
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// resolveAdapters returns adapters for the requested host ids, or all
// known hosts when the filter is empty.
func resolveAdapters(filter []string) ([]*hosts.Adapter, error) {
	all, err := hosts.All()
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return all, nil
	}

	var selected []*hosts.Adapter
	for _, id := range filter {
		found := false
		for _, a := range all {
			if a.ID() == id {
				selected = append(selected, a)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown host %q (known: %v)", id, hosts.KnownIDs())
		}
	}
	return selected, nil
}

// installedAdapters returns adapters for hosts present on this machine.
func installedAdapters() ([]*hosts.Adapter, error) {
	all, err := hosts.All()
	if err != nil {
		return nil, err
	}
	return hosts.Installed(all), nil
}

// liveEntry resolves the entry to probe for a server: the first target
// host that actually has it configured wins, because only host configs
// carry real environment values. Falls back to the reconstructed entry.
func liveEntry(name string, entry lockfile.Entry, adapters []*hosts.Adapter) hosts.ServerEntry {
	for _, adapter := range adapters {
		if !entry.TargetsHost(adapter.ID()) {
			continue
		}
		servers, err := adapter.ReadConfig()
		if err != nil {
			continue
		}
		if live, ok := servers[name]; ok {
			return live
		}
	}
	return entry.ServerEntry()
}

// recordProbes best-effort appends probe results to the history store.
// History failures never fail the foreground command.
func recordProbes(results map[string]probe.Result, mode string) {
	st, err := openHistory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: probe history unavailable: %v\n", err)
		return
	}
	defer st.Close()

	for _, result := range results {
		rec := &history.Record{
			Server:    result.Server,
			Mode:      mode,
			Alive:     result.Alive,
			ErrorTag:  result.ErrTag,
			ToolCount: len(result.Tools),
			CreatedAt: time.Now().UTC(),
		}
		if result.Alive {
			ms := result.Latency.Milliseconds()
			rec.LatencyMS = &ms
		}
		if err := st.InsertProbe(rec); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record probe for %s: %v\n", result.Server, err)
		}
	}
}

// parseEnvFlags splits --env KEY=VALUE pairs into declared names (what
// the lockfile stores) and a value map (what host configs receive).
// Bare KEY entries declare the name with an empty value.
func parseEnvFlags(pairs []string) ([]string, map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil, nil
	}

	names := make([]string, 0, len(pairs))
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			return nil, nil, fmt.Errorf("invalid --env entry %q", pair)
		}
		if _, dup := values[key]; dup {
			return nil, nil, fmt.Errorf("duplicate --env key %q", key)
		}
		names = append(names, key)
		values[key] = value
	}
	sort.Strings(names)
	return names, values, nil
}

// confirm prompts for a yes/no answer on stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
