// Package watcher detects out-of-band edits to host config files.
//
// Host apps and users edit their own config files freely; the watcher
// observes those files and re-runs the reconciliation diff whenever one
// changes, so drift from the lockfile surfaces as it happens instead of
// at the next manual sync.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/reconcile"
)

// debounceWindow coalesces editor write bursts into one recomputation.
const debounceWindow = 250 * time.Millisecond

// DriftEvent reports the reconciliation result for one host after its
// config file changed on disk.
type DriftEvent struct {
	Host   string
	Result *reconcile.Result
}

// Watcher observes host config files and emits drift events.
type Watcher struct {
	store    *lockfile.Store
	adapters []*hosts.Adapter

	fsw    *fsnotify.Watcher
	events chan DriftEvent
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Watcher over the given store and adapters.
func New(store *lockfile.Store, adapters []*hosts.Adapter) (*Watcher, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &Watcher{
		store:    store,
		adapters: adapters,
		events:   make(chan DriftEvent, 4),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching each adapter's config directory. Directories are
// watched rather than files because editors and atomic writers replace
// the file inode on save.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	watched := map[string]bool{}
	for _, adapter := range w.adapters {
		dir := filepath.Dir(adapter.ConfigPath())
		if watched[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		watched[dir] = true
	}

	w.wg.Add(1)
	go w.run()
	return nil
}

// Events returns the drift event stream.
func (w *Watcher) Events() <-chan DriftEvent {
	return w.events
}

// Stop halts watching and closes the event stream.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	if w.fsw != nil {
		w.fsw.Close()
	}
	close(w.events)
}

func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(debounceWindow)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]*hosts.Adapter{}

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			adapter := w.adapterFor(ev.Name)
			if adapter == nil {
				continue
			}
			pending[adapter.ID()] = adapter
			timer.Reset(debounceWindow)

		case <-timer.C:
			for _, adapter := range pending {
				w.emit(adapter)
			}
			pending = map[string]*hosts.Adapter{}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are not fatal to the session; the next
			// event for a healthy directory still flows.
			_ = err
		}
	}
}

func (w *Watcher) emit(adapter *hosts.Adapter) {
	state, err := w.store.Read()
	if err != nil {
		return
	}
	result := reconcile.ComputeDiff(state, []*hosts.Adapter{adapter}, false)

	select {
	case w.events <- DriftEvent{Host: adapter.ID(), Result: result}:
	case <-w.stopCh:
	}
}

func (w *Watcher) adapterFor(path string) *hosts.Adapter {
	clean := filepath.Clean(path)
	for _, adapter := range w.adapters {
		if filepath.Clean(adapter.ConfigPath()) == clean {
			return adapter
		}
	}
	return nil
}
