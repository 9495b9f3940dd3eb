// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package stagingfile builds output files in a temporary location and moves
// them into place only once they are complete.
package stagingfile

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrExists is returned by Commit when the destination exists and overwriting
// was not requested.
var ErrExists = errors.New("destination already exists")

// F manages a staging file.
//
// While F is active, it resides next to its destination under a temporary
// name. Once finished, F can either be committed or destroyed. On commit, it
// is atomically renamed onto its destination; on destroy, it is deleted.
type F struct {
	*os.File

	// path is the path of the staging file. It is empty once the file has been
	// committed or destroyed.
	path string
}

// New creates a new staging file for dest.
//
// The staging file is created in dest's directory, so that Commit is a
// same-filesystem rename.
func New(dest string) (*F, error) {
	fd, err := ioutil.TempFile(filepath.Dir(dest), "."+filepath.Base(dest)+".staging")
	if err != nil {
		return nil, err
	}
	return &F{
		File: fd,
		path: fd.Name(),
	}, nil
}

// Path returns the staging path, or an empty string if the file has been
// committed or destroyed.
func (sf *F) Path() string { return sf.path }

// Destroy closes and deletes the staging file. It is a no-op after Commit.
func (sf *F) Destroy() error {
	if sf.path == "" {
		// There is nothing to destroy.
		return nil
	}

	_ = sf.File.Close()
	if err := os.Remove(sf.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	sf.path = ""
	return nil
}

// Commit syncs and closes the staging file, then moves it to dest.
//
// If dest already exists and overwrite is false, Commit returns ErrExists and
// leaves the staging file in place for the caller to Destroy.
func (sf *F) Commit(dest string, overwrite bool) error {
	if sf.path == "" {
		return errors.New("invalid staging file")
	}

	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return ErrExists
		}
	}

	if err := sf.File.Sync(); err != nil {
		return errors.Wrap(err, "syncing staging file")
	}
	if err := sf.File.Close(); err != nil {
		return errors.Wrap(err, "closing staging file")
	}

	// Move the final file into place (atomic).
	if err := os.Rename(sf.path, dest); err != nil {
		return errors.Wrapf(err, "moving staging file into place (%q => %q)", sf.path, dest)
	}
	sf.path = "" // Committed.
	return nil
}
