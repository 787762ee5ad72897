// Package hosts translates between the uniform server map this tool works
// with and each AI-assistant application's native configuration file.
//
// Every supported host app stores its MCP servers as JSON, but the nesting
// differs: most keep a single top-level "mcpServers" key, while VS Code
// buries the map two levels deep in settings.json. Each adapter carries a
// pair of pure projection functions rather than branching in shared code,
// so a new host shape only needs a new projection.
package hosts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/atomicfile"
)

// ServerEntry is the uniform, adapter-facing server record. It is
// reconstructed from lockfile entries on demand and is never the ground
// truth itself.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ParseError reports a host config file that exists but is not valid JSON.
// A missing config file is never a ParseError; it reads as empty.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// projection maps between a host's raw top-level JSON object and the
// uniform server map. extract and inject must be inverses over the keys
// they own and must leave unrelated top-level keys untouched.
type projection struct {
	extract func(raw map[string]json.RawMessage) (map[string]ServerEntry, error)
	inject  func(raw map[string]json.RawMessage, servers map[string]ServerEntry) error
}

// Adapter reads and writes one host application's config file.
type Adapter struct {
	id         string
	name       string
	configPath string
	proj       projection
}

// NewAdapter builds an adapter for an explicit config path. The production
// registry supplies platform paths; tests supply temp paths.
func NewAdapter(id, name, configPath string, proj projection) *Adapter {
	return &Adapter{id: id, name: name, configPath: configPath, proj: proj}
}

// NewSingleKeyAdapter builds an adapter for a host that keeps its server
// map under one top-level key.
func NewSingleKeyAdapter(id, name, configPath, key string) *Adapter {
	return NewAdapter(id, name, configPath, singleKeyProjection(key))
}

// NewNestedKeyAdapter builds an adapter for a host that nests its server
// map under outer then inner.
func NewNestedKeyAdapter(id, name, configPath, outer, inner string) *Adapter {
	return NewAdapter(id, name, configPath, nestedKeyProjection(outer, inner))
}

// ID returns the stable host identifier used in lockfile target sets.
func (a *Adapter) ID() string { return a.id }

// Name returns the human-readable host name.
func (a *Adapter) Name() string { return a.name }

// ConfigPath returns the adapter's config file path.
func (a *Adapter) ConfigPath() string { return a.configPath }

// IsInstalled reports whether the host application appears present. It is
// a heuristic directory check, not a guarantee the config file exists.
func (a *Adapter) IsInstalled() bool {
	info, err := os.Stat(filepath.Dir(a.configPath))
	return err == nil && info.IsDir()
}

// ReadConfig reads the host's config and projects it into the uniform map.
// A missing file reads as an empty map; malformed JSON is a ParseError.
func (a *Adapter) ReadConfig() (map[string]ServerEntry, error) {
	raw, err := a.readRaw()
	if err != nil {
		return nil, err
	}
	return a.proj.extract(raw)
}

// WriteConfig merges servers back into the host's raw JSON, preserving
// unrelated top-level keys, and persists the result atomically.
func (a *Adapter) WriteConfig(servers map[string]ServerEntry) error {
	raw, err := a.readRaw()
	if err != nil {
		return err
	}
	if err := a.proj.inject(raw, servers); err != nil {
		return err
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config for %s: %w", a.id, err)
	}
	return atomicfile.WriteFile(a.configPath, append(data, '\n'))
}

// AddServer inserts or replaces one server in a single read-merge-write
// round trip.
func (a *Adapter) AddServer(name string, entry ServerEntry) error {
	servers, err := a.ReadConfig()
	if err != nil {
		return err
	}
	servers[name] = entry
	return a.WriteConfig(servers)
}

// RemoveServer deletes one server. Removing an absent name is a no-op and
// does not touch the file.
func (a *Adapter) RemoveServer(name string) error {
	servers, err := a.ReadConfig()
	if err != nil {
		return err
	}
	if _, ok := servers[name]; !ok {
		return nil
	}
	delete(servers, name)
	return a.WriteConfig(servers)
}

func (a *Adapter) readRaw() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(a.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read config for %s: %w", a.id, err)
	}

	raw := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &ParseError{Path: a.configPath, Err: err}
		}
	}
	return raw, nil
}

// singleKeyProjection handles hosts that keep the server map under one
// top-level key.
func singleKeyProjection(key string) projection {
	return projection{
		extract: func(raw map[string]json.RawMessage) (map[string]ServerEntry, error) {
			servers := map[string]ServerEntry{}
			blob, ok := raw[key]
			if !ok {
				return servers, nil
			}
			if err := json.Unmarshal(blob, &servers); err != nil {
				return nil, fmt.Errorf("failed to decode %q section: %w", key, err)
			}
			return servers, nil
		},
		inject: func(raw map[string]json.RawMessage, servers map[string]ServerEntry) error {
			blob, err := json.Marshal(servers)
			if err != nil {
				return err
			}
			raw[key] = blob
			return nil
		},
	}
}

// nestedKeyProjection handles hosts that nest the server map two levels
// deep, under outer then inner. Sibling keys of inner are preserved.
func nestedKeyProjection(outer, inner string) projection {
	return projection{
		extract: func(raw map[string]json.RawMessage) (map[string]ServerEntry, error) {
			servers := map[string]ServerEntry{}
			outerBlob, ok := raw[outer]
			if !ok {
				return servers, nil
			}
			section := map[string]json.RawMessage{}
			if err := json.Unmarshal(outerBlob, &section); err != nil {
				return nil, fmt.Errorf("failed to decode %q section: %w", outer, err)
			}
			innerBlob, ok := section[inner]
			if !ok {
				return servers, nil
			}
			if err := json.Unmarshal(innerBlob, &servers); err != nil {
				return nil, fmt.Errorf("failed to decode %q.%q section: %w", outer, inner, err)
			}
			return servers, nil
		},
		inject: func(raw map[string]json.RawMessage, servers map[string]ServerEntry) error {
			section := map[string]json.RawMessage{}
			if outerBlob, ok := raw[outer]; ok {
				if err := json.Unmarshal(outerBlob, &section); err != nil {
					return fmt.Errorf("failed to decode %q section: %w", outer, err)
				}
			}
			innerBlob, err := json.Marshal(servers)
			if err != nil {
				return err
			}
			section[inner] = innerBlob
			outerBlob, err := json.Marshal(section)
			if err != nil {
				return err
			}
			raw[outer] = outerBlob
			return nil
		},
	}
}
