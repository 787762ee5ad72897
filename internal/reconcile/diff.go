// Package reconcile computes corrective actions between the canonical
// lockfile and host applications' live configuration.
//
// The computation is read-only; applying actions is a separate step so
// commands can render a dry run before touching any host file.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
)

// ActionKind is the kind of corrective action a (server, host) pair needs.
type ActionKind string

const (
	// ActionOK means the host already has the server configured.
	ActionOK ActionKind = "ok"
	// ActionAdd means the server is declared for the host but missing there.
	ActionAdd ActionKind = "add"
	// ActionExtra means the host carries a server the lockfile does not know.
	ActionExtra ActionKind = "extra"
	// ActionRemove is ActionExtra in destructive mode: the extra entry
	// should be deleted from the host.
	ActionRemove ActionKind = "remove"
	// ActionChanged means both sides have the server with differing fields
	// (peer-diff mode only).
	ActionChanged ActionKind = "changed"
)

// Action is one corrective step for a single (server, host) pair.
// Entry is set for add actions; Diffs is set for changed actions.
type Action struct {
	Server string
	Host   string
	Kind   ActionKind
	Entry  *hosts.ServerEntry
	Diffs  []string
}

// SkippedHost records a host whose live config could not be read during a
// pass. The pass continues without it and the result is marked partial.
type SkippedHost struct {
	Host string
	Err  error
}

// Result holds the actions of one reconciliation pass. Partial is true
// when at least one host was skipped; partial results are reported as
// such, never merged with stale data.
type Result struct {
	Actions []Action
	Skipped []SkippedHost
}

// Partial reports whether any host was skipped during the pass.
func (r *Result) Partial() bool { return len(r.Skipped) > 0 }

// Counts returns per-kind action totals for summary rendering.
func (r *Result) Counts() map[ActionKind]int {
	counts := map[ActionKind]int{}
	for _, a := range r.Actions {
		counts[a.Kind]++
	}
	return counts
}

// ComputeDiff runs the primary reconciliation mode: the lockfile is the
// source of truth. Every (server, declared host) pair yields exactly one
// ok or add action; every live server unknown to the lockfile yields one
// extra action, or remove when destructive is set.
func ComputeDiff(state *lockfile.State, adapters []*hosts.Adapter, destructive bool) *Result {
	result := &Result{}

	live := map[string]map[string]hosts.ServerEntry{}
	for _, adapter := range adapters {
		servers, err := adapter.ReadConfig()
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedHost{Host: adapter.ID(), Err: err})
			continue
		}
		live[adapter.ID()] = servers
	}

	for _, name := range sortedNames(state.Servers) {
		entry := state.Servers[name]
		for _, target := range sortedTargets(entry.Targets) {
			servers, ok := live[target]
			if !ok {
				// Host not in this pass (not supplied or skipped).
				continue
			}
			if _, exists := servers[name]; exists {
				result.Actions = append(result.Actions, Action{
					Server: name, Host: target, Kind: ActionOK,
				})
			} else {
				reconstructed := entry.ServerEntry()
				result.Actions = append(result.Actions, Action{
					Server: name, Host: target, Kind: ActionAdd, Entry: &reconstructed,
				})
			}
		}
	}

	extraKind := ActionExtra
	if destructive {
		extraKind = ActionRemove
	}
	for _, adapter := range adapters {
		servers, ok := live[adapter.ID()]
		if !ok {
			continue
		}
		for _, name := range sortedLiveNames(servers) {
			if _, known := state.Servers[name]; !known {
				result.Actions = append(result.Actions, Action{
					Server: name, Host: adapter.ID(), Kind: extraKind,
				})
			}
		}
	}

	return result
}

// ComputeDiffFromClient runs the peer-diff mode: one host's live config is
// the source of truth, compared against every other host. Servers missing
// on a peer yield add actions; servers present on both sides with
// differing fields yield changed actions with a per-field diff list.
//
// The source host is caller-supplied input on every call; it is never
// persisted across runs.
func ComputeDiffFromClient(source *hosts.Adapter, others []*hosts.Adapter) (*Result, error) {
	truth, err := source.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read source host %s: %w", source.ID(), err)
	}

	result := &Result{}
	for _, peer := range others {
		if peer.ID() == source.ID() {
			continue
		}
		servers, err := peer.ReadConfig()
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedHost{Host: peer.ID(), Err: err})
			continue
		}

		for _, name := range sortedLiveNames(truth) {
			want := truth[name]
			got, exists := servers[name]
			switch {
			case !exists:
				entry := want
				result.Actions = append(result.Actions, Action{
					Server: name, Host: peer.ID(), Kind: ActionAdd, Entry: &entry,
				})
			case len(fieldDiffs(want, got)) > 0:
				result.Actions = append(result.Actions, Action{
					Server: name, Host: peer.ID(), Kind: ActionChanged,
					Entry: &want, Diffs: fieldDiffs(want, got),
				})
			default:
				result.Actions = append(result.Actions, Action{
					Server: name, Host: peer.ID(), Kind: ActionOK,
				})
			}
		}
	}

	return result, nil
}

// fieldDiffs lists human-readable differences between two entries.
// Argument order is significant; environment map order is not.
func fieldDiffs(want, got hosts.ServerEntry) []string {
	var diffs []string

	if want.Command != got.Command {
		diffs = append(diffs, fmt.Sprintf("command: %q != %q", got.Command, want.Command))
	}

	if !equalArgs(want.Args, got.Args) {
		diffs = append(diffs, fmt.Sprintf("args: %v != %v", got.Args, want.Args))
	}

	keys := map[string]bool{}
	for k := range want.Env {
		keys[k] = true
	}
	for k := range got.Env {
		keys[k] = true
	}
	var sortedKeys []string
	for k := range keys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Strings(sortedKeys)
	for _, k := range sortedKeys {
		wv, wok := want.Env[k]
		gv, gok := got.Env[k]
		switch {
		case wok && !gok:
			diffs = append(diffs, fmt.Sprintf("env[%s]: missing", k))
		case !wok && gok:
			diffs = append(diffs, fmt.Sprintf("env[%s]: unexpected", k))
		case wv != gv:
			diffs = append(diffs, fmt.Sprintf("env[%s]: value differs", k))
		}
	}

	return diffs
}

func equalArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedNames(servers map[string]lockfile.Entry) []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedLiveNames(servers map[string]hosts.ServerEntry) []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedTargets(targets []string) []string {
	out := append([]string(nil), targets...)
	sort.Strings(out)
	return out
}
