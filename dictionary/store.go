// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package dictionary

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/danjacques/netcompress/support/logging"

	"github.com/pkg/errors"
)

// ErrLoad is the cause of every error returned by Store.LoadOrGet.
var ErrLoad = errors.New("dictionary load failed")

// loadError wraps a load failure so that errors.Cause yields ErrLoad while the
// message keeps the underlying reason.
type loadError struct {
	path   string
	reason error
}

func (e *loadError) Error() string { return "loading dictionary " + e.path + ": " + e.reason.Error() }
func (e *loadError) Cause() error  { return ErrLoad }

// Store loads dictionaries once and shares them between connections.
//
// At most one Dictionary exists per path. Each LoadOrGet takes a reference
// that must be returned with Release; when the last reference is released,
// the Dictionary is removed from the Store and freed.
//
// Store is safe for concurrent use.
type Store struct {
	// Logger is the logger instance to use. If nil, no logs will be generated.
	Logger logging.L

	// ReadFile, if not nil, is used to load dictionary files. It defaults to
	// the package-level ReadFile.
	ReadFile func(path string) (*Dictionary, error)

	mu      sync.Mutex
	entries map[string]*Dictionary
}

func storeKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// LoadOrGet returns the Dictionary for path, loading it if it is not already
// loaded, and takes a reference on it.
//
// Any failure returns an error whose cause is ErrLoad. Connections cannot
// compress without their dictionaries, so callers should treat this as fatal
// to connection setup.
func (s *Store) LoadOrGet(path string) (*Dictionary, error) {
	key := storeKey(path)
	log := logging.Must(s.Logger)

	// Fast path: already loaded.
	s.mu.Lock()
	if d := s.entries[key]; d != nil {
		d.refs++
		s.mu.Unlock()
		dictionaryShares.Inc()
		return d, nil
	}
	s.mu.Unlock()

	// Load outside of the lock, so other connections aren't held up by disk
	// I/O.
	readFile := s.ReadFile
	if readFile == nil {
		readFile = ReadFile
	}
	loaded, err := readFile(key)
	if err != nil {
		dictionaryLoadErrors.Inc()
		return nil, &loadError{path: path, reason: err}
	}
	loaded.path = key

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another connection may have finished loading the same path first. Its
	// instance wins, so there is still only one per path.
	if d := s.entries[key]; d != nil {
		loaded.free()
		d.refs++
		dictionaryShares.Inc()
		return d, nil
	}

	if s.entries == nil {
		s.entries = make(map[string]*Dictionary)
	}
	loaded.refs = 1
	s.entries[key] = loaded
	dictionaryLoadedGauge.Inc()
	log.Infof("Loaded dictionary %q (%d bytes, hash table size %d).", key, len(loaded.payload), loaded.hashTableSize)
	return loaded, nil
}

// Release returns a reference taken by LoadOrGet. d must not be used by the
// caller afterwards.
//
// Releasing a dictionary that Close already freed only logs a warning.
func (s *Store) Release(d *Dictionary) {
	if d == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d.refs == closedRefs {
		logging.Must(s.Logger).Warnf("Released dictionary %q after the store was closed.", d.path)
		return
	}
	if s.entries[d.path] != d || d.refs <= 0 {
		panic(errors.Errorf("release of unowned dictionary %q", d.path))
	}

	d.refs--
	if d.refs > 0 {
		return
	}

	delete(s.entries, d.path)
	d.free()
	dictionaryLoadedGauge.Dec()
	logging.Must(s.Logger).Debugf("Freed dictionary %q.", d.path)
}

// Len returns the number of loaded dictionaries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Refs returns the number of outstanding references to the dictionary at
// path, or 0 if it is not loaded.
func (s *Store) Refs(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := s.entries[storeKey(path)]; d != nil {
		return d.refs
	}
	return 0
}

// closedRefs marks a Dictionary freed by Close while still referenced.
const closedRefs = -1

// Close frees every loaded dictionary, regardless of outstanding references,
// and returns the paths of those that were still referenced.
//
// Close is called at process shutdown, after all connections are gone.
func (s *Store) Close() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var leaked []string
	for key, d := range s.entries {
		leaked = append(leaked, key)
		d.refs = closedRefs
		d.free()
		dictionaryLoadedGauge.Dec()
	}
	s.entries = nil

	sort.Strings(leaked)
	for _, key := range leaked {
		logging.Must(s.Logger).Warnf("Dictionary %q was still referenced at shutdown.", key)
	}
	return leaked
}
