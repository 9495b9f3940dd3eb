// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package dictionary

import (
	"github.com/danjacques/netcompress/codec"

	"github.com/cespare/xxhash/v2"
)

// DefaultHashTableSize is the hash table size Build uses when none is given.
const DefaultHashTableSize = 8 * 1024

// BuildOptions controls dictionary training.
type BuildOptions struct {
	// HashTableSize is the hash table size to record. If zero,
	// DefaultHashTableSize is used.
	HashTableSize uint32

	// MaxPayload caps the payload size. If zero, the payload fills the part of
	// the codec window not reserved for connection history.
	MaxPayload int

	// SeedSize is the number of trailing sample bytes used as the initial
	// compressor state. It is capped at HashTableSize.
	SeedSize int
}

// Build trains a dictionary from sample packets, in capture order.
//
// Packets closest to the end of the capture are preferred, and duplicate
// packets are only included once. The payload is ordered so that the most
// recent samples sit nearest the end of the window, where matches are
// cheapest.
func Build(packets [][]byte, opts BuildOptions) *Spec {
	spec := Spec{HashTableSize: opts.HashTableSize}
	if spec.HashTableSize == 0 {
		spec.HashTableSize = DefaultHashTableSize
	}

	maxPayload := opts.MaxPayload
	if maxPayload <= 0 {
		maxPayload = codec.WindowSize - int(spec.HashTableSize)
		if maxPayload < 0 {
			maxPayload = 0
		}
	}

	// Walk backwards, selecting unique packets until the payload is full.
	seen := make(map[uint64]struct{}, len(packets))
	var selected [][]byte
	size := 0
	for i := len(packets) - 1; i >= 0 && size < maxPayload; i-- {
		pkt := packets[i]
		if len(pkt) == 0 {
			continue
		}

		sum := xxhash.Sum64(pkt)
		if _, ok := seen[sum]; ok {
			continue
		}
		seen[sum] = struct{}{}

		if remaining := maxPayload - size; len(pkt) > remaining {
			pkt = pkt[len(pkt)-remaining:]
		}
		selected = append(selected, pkt)
		size += len(pkt)
	}

	spec.Payload = make([]byte, 0, size)
	for i := len(selected) - 1; i >= 0; i-- {
		spec.Payload = append(spec.Payload, selected[i]...)
	}

	seedSize := opts.SeedSize
	if seedSize > int(spec.HashTableSize) {
		seedSize = int(spec.HashTableSize)
	}
	if seedSize > len(spec.Payload) {
		seedSize = len(spec.Payload)
	}
	if seedSize > 0 {
		spec.Seed = append([]byte(nil), spec.Payload[len(spec.Payload)-seedSize:]...)
	}
	return &spec
}
