package lockfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/atomicfile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/rollback"
)

// ParseError reports a lockfile that exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse lockfile %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Store reads and writes the canonical lockfile. Every write snapshots
// the prior content first, so each mutation is individually recoverable
// through the rollback ring.
type Store struct {
	path string
	ring *rollback.Ring
}

// NewStore creates a Store over path, snapshotting into ring before
// each differing write.
func NewStore(path string, ring *rollback.Ring) *Store {
	return &Store{path: path, ring: ring}
}

// Path returns the lockfile location.
func (s *Store) Path() string { return s.path }

// Ring exposes the rollback ring protecting this store.
func (s *Store) Ring() *rollback.Ring { return s.ring }

// Read parses the persisted state. A missing file is an empty,
// version-tagged state, never an error; malformed JSON is a ParseError.
func (s *Store) Read() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &ParseError{Path: s.path, Err: err}
	}
	if state.Servers == nil {
		state.Servers = map[string]Entry{}
	}
	return &state, nil
}

// Write serializes state deterministically, snapshots the prior content,
// then writes atomically.
func (s *Store) Write(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize lockfile: %w", err)
	}
	data = append(data, '\n')

	if prior, err := os.ReadFile(s.path); err == nil {
		if err := s.ring.SnapshotBeforeWrite(prior); err != nil {
			return fmt.Errorf("failed to snapshot lockfile: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read prior lockfile: %w", err)
	}

	return atomicfile.WriteFile(s.path, data)
}

// AddEntry validates entry and inserts or replaces it under name in a
// read-modify-write round trip.
func (s *Store) AddEntry(name string, entry Entry) error {
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid entry for %q: %w", name, err)
	}

	state, err := s.Read()
	if err != nil {
		return err
	}
	state.Servers[name] = entry
	return s.Write(state)
}

// RemoveEntry deletes name from the store. Removing an absent name is a
// no-op.
func (s *Store) RemoveEntry(name string) error {
	state, err := s.Read()
	if err != nil {
		return err
	}
	if _, ok := state.Servers[name]; !ok {
		return nil
	}
	delete(state.Servers, name)
	return s.Write(state)
}
