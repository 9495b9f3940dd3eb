// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package dictionary

import (
	"github.com/danjacques/netcompress/codec"
)

// Dictionary is a loaded compression dictionary. It is immutable once loaded,
// and safe to share between connections.
type Dictionary struct {
	path          string
	hashTableSize uint32
	payload       []byte

	shared  *codec.SharedWindow
	initial *codec.State

	// refs is the number of outstanding LoadOrGet references. It is protected
	// by the owning Store's lock.
	refs int
}

// Path returns the path the dictionary was loaded from.
func (d *Dictionary) Path() string { return d.path }

// HashTableSize returns the size parameter for connection compressor state.
func (d *Dictionary) HashTableSize() uint32 { return d.hashTableSize }

// Bytes returns the raw dictionary payload. It must not be modified.
func (d *Dictionary) Bytes() []byte { return d.payload }

// SharedWindow returns the codec window built from the dictionary payload.
func (d *Dictionary) SharedWindow() *codec.SharedWindow { return d.shared }

// InitialState returns a new compressor state seeded from the dictionary.
// Each call returns an independent copy.
func (d *Dictionary) InitialState() *codec.State { return d.initial.Clone() }

func (d *Dictionary) free() {
	d.payload, d.shared, d.initial = nil, nil, nil
}
