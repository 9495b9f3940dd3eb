// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package bufferpool maintains pools of fixed-size packet scratch buffers.
package bufferpool

import (
	"sync"
)

// Pool maintains a pool of buffers. It offers a new buffer when one is
// unavailable.
//
// Pool is safe for concurrent use; the Buffers it returns are not.
type Pool struct {
	// Size is the size of the buffers in this pool. It must not change after
	// the first Get.
	Size int

	base sync.Pool
}

// Get returns a buffer of the pool's Size, allocating one if one is not
// available.
//
// The caller should return the buffer to the pool by calling its Release
// method when done with it.
func (bp *Pool) Get() *Buffer {
	b, ok := bp.base.Get().(*Buffer)
	if !ok || len(b.bytes) != bp.Size {
		b = &Buffer{
			bytes: make([]byte, bp.Size),
		}
	}

	b.pool = bp
	return b
}

// Buffer contains a byte buffer that can be released into a Pool for reuse.
type Buffer struct {
	bytes []byte

	pool *Pool
}

// Bytes returns this buffer's byte slice. Its length is the pool's Size.
func (b *Buffer) Bytes() []byte { return b.bytes }

// Release returns the buffer to its buffer pool.
//
// A Buffer must only be released once, and must not be used afterwards.
func (b *Buffer) Release() {
	pool := b.pool
	if pool == nil {
		panic("buffer released twice")
	}
	b.pool = nil
	pool.base.Put(b)
}
