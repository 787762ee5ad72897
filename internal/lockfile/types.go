// Package lockfile owns the canonical record of intended server
// installations. The lockfile, not any host app's config, is what this
// tool considers installed; host configs are derived state reconciled
// against it.
package lockfile

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
)

// Version is the lockfile format version written by this tool.
const Version = 1

// SourceKind classifies where a server's package came from.
type SourceKind string

const (
	SourceNPM    SourceKind = "npm"
	SourcePyPI   SourceKind = "pypi"
	SourceLocal  SourceKind = "local"
	SourceRemote SourceKind = "remote"
)

// ValidSourceKind reports whether k is one of the fixed source kinds.
func ValidSourceKind(k SourceKind) bool {
	switch k {
	case SourceNPM, SourcePyPI, SourceLocal, SourceRemote:
		return true
	}
	return false
}

// RuntimeKind classifies how a server's command is executed.
type RuntimeKind string

const (
	RuntimeNode   RuntimeKind = "node"
	RuntimePython RuntimeKind = "python"
	RuntimeBinary RuntimeKind = "binary"
)

// Entry is one canonical server record. EnvNames lists declared
// environment variable names only; values are never written to the
// lockfile.
type Entry struct {
	Version     string      `json:"version"`
	Source      SourceKind  `json:"source"`
	Locator     string      `json:"locator"`
	Integrity   string      `json:"integrity"`
	Runtime     RuntimeKind `json:"runtime"`
	Command     string      `json:"command"`
	Args        []string    `json:"args,omitempty"`
	EnvNames    []string    `json:"envNames,omitempty"`
	InstalledAt time.Time   `json:"installedAt"`
	Targets     []string    `json:"targets"`
}

// State is the full canonical store content: a name-keyed map of entries.
type State struct {
	LockfileVersion int              `json:"lockfileVersion"`
	Servers         map[string]Entry `json:"servers"`
}

// NewState returns an empty, version-tagged state.
func NewState() *State {
	return &State{
		LockfileVersion: Version,
		Servers:         map[string]Entry{},
	}
}

// Validate checks the invariants an entry must hold before it is admitted
// to the store: a command, a valid source kind, and only known target
// host ids.
func (e Entry) Validate() error {
	if e.Command == "" {
		return fmt.Errorf("entry has no command")
	}
	if !ValidSourceKind(e.Source) {
		return fmt.Errorf("unknown source kind %q", e.Source)
	}
	if len(e.Targets) == 0 {
		return fmt.Errorf("entry declares no target hosts")
	}
	for _, target := range e.Targets {
		if !hosts.IsKnown(target) {
			return fmt.Errorf("unknown target host %q (known: %v)", target, hosts.KnownIDs())
		}
	}
	return nil
}

// TargetsHost reports whether the entry declares host as a target.
func (e Entry) TargetsHost(host string) bool {
	for _, t := range e.Targets {
		if t == host {
			return true
		}
	}
	return false
}

// ServerEntry reconstructs the adapter-facing entry. Environment values
// are not recoverable from canonical state, so each declared name maps to
// an empty placeholder the operator fills in afterwards.
func (e Entry) ServerEntry() hosts.ServerEntry {
	entry := hosts.ServerEntry{
		Command: e.Command,
		Args:    append([]string(nil), e.Args...),
	}
	if len(e.EnvNames) > 0 {
		entry.Env = make(map[string]string, len(e.EnvNames))
		for _, name := range e.EnvNames {
			entry.Env[name] = ""
		}
	}
	return entry
}

// IntegrityDigest computes the integrity field for a resolved locator.
// The digest is a deterministic function of the locator alone.
func IntegrityDigest(locator string) string {
	sum := sha256.Sum256([]byte(locator))
	return fmt.Sprintf("sha256-%x", sum)
}
