// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package config reads and writes netcompress settings.
//
// Settings live in a YAML file of sections, each holding scalar keys. Keys are
// addressed as "Section.Key".
package config

import (
	"io/ioutil"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/danjacques/netcompress/support/stagingfile"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Values is a key-value settings capability.
type Values interface {
	// GetBool returns the boolean value of key, and whether it was present and
	// valid.
	GetBool(key string) (bool, bool)
	// GetString returns the string value of key, and whether it was present.
	GetString(key string) (string, bool)

	// SetBool sets key to a boolean value.
	SetBool(key string, v bool)
	// SetString sets key to a string value.
	SetString(key string, v string)
}

// Store is a Values backed by a YAML file.
//
// Store is safe for concurrent use.
type Store struct {
	path string

	mu       sync.Mutex
	sections map[string]map[string]interface{}
}

var _ Values = (*Store)(nil)

// Open loads the Store at path. A missing file yields an empty Store, which
// will be created on Save.
func Open(path string) (*Store, error) {
	s := Store{path: path}

	data, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return &s, nil
	case err != nil:
		return nil, errors.Wrapf(err, "reading config %q", path)
	}

	if err := yaml.Unmarshal(data, &s.sections); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", path)
	}
	return &s, nil
}

// Path returns the path of the Store's file.
func (s *Store) Path() string { return s.path }

func splitKey(key string) (string, string) {
	if idx := strings.IndexByte(key, '.'); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return "", key
}

func (s *Store) get(key string) (interface{}, bool) {
	section, name := splitKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sections[section][name]
	return v, ok
}

func (s *Store) set(key string, v interface{}) {
	section, name := splitKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sections == nil {
		s.sections = make(map[string]map[string]interface{})
	}
	sec := s.sections[section]
	if sec == nil {
		sec = make(map[string]interface{})
		s.sections[section] = sec
	}
	sec[name] = v
}

// GetBool implements Values.
//
// String values are accepted if strconv.ParseBool accepts them.
func (s *Store) GetBool(key string) (bool, bool) {
	switch v, _ := s.get(key); t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		return false, false
	}
}

// GetString implements Values.
func (s *Store) GetString(key string) (string, bool) {
	switch v, ok := s.get(key); t := v.(type) {
	case nil:
		return "", ok
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// SetBool implements Values.
func (s *Store) SetBool(key string, v bool) { s.set(key, v) }

// SetString implements Values.
func (s *Store) SetString(key string, v string) { s.set(key, v) }

// Keys returns every key in the Store, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for section, values := range s.sections {
		for name := range values {
			keys = append(keys, section+"."+name)
		}
	}
	sort.Strings(keys)
	return keys
}

// Save writes the Store back to its file. The file is replaced atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := yaml.Marshal(s.sections)
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}

	sf, err := stagingfile.New(s.path)
	if err != nil {
		return errors.Wrap(err, "creating staging file")
	}
	defer func() {
		_ = sf.Destroy()
	}()

	if _, err := sf.Write(data); err != nil {
		return errors.Wrap(err, "writing config")
	}
	return sf.Commit(s.path, true)
}
