// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package byteslicereader offers R, a slice-backed reader with zero-copy
// reads.
//
// Standard io.Reader methods require that data be copied into a target
// buffer. Next instead returns data as a slice of R's underlying Buffer, so
// packet payloads can be handed to the codec without an intermediate copy.
// Holding such a slice means the Buffer must not be modified while it is in
// use.
package byteslicereader

import (
	"io"
)

// R reads from a byte slice.
//
// R can be copied, creating a snapshot of its current state.
type R struct {
	// Buffer is the backing buffer for this reader.
	Buffer []byte

	// pos is the R's position within Buffer.
	pos int
}

var _ interface {
	io.Reader
	io.ByteReader
} = (*R)(nil)

func (r *R) remainingSlice() []byte {
	if r.pos >= len(r.Buffer) {
		return nil
	}
	return r.Buffer[r.pos:]
}

// Pos returns the number of bytes consumed so far.
func (r *R) Pos() int { return r.pos }

// Remaining returns the number of bytes remaining in the reader, from the
// current position.
func (r *R) Remaining() int { return len(r.remainingSlice()) }

// Read implements io.Reader.
//
// Note that using Read causes data to be copied.
func (r *R) Read(b []byte) (int, error) {
	remaining := r.remainingSlice()
	if len(remaining) == 0 && len(b) > 0 {
		return 0, io.EOF
	}
	amt := copy(b, remaining)
	r.pos += amt
	return amt, nil
}

// ReadByte implements io.ByteReader.
func (r *R) ReadByte() (byte, error) {
	if r.pos >= len(r.Buffer) {
		return 0, io.EOF
	}

	b := r.Buffer[r.pos]
	r.pos++
	return b, nil
}

// Next returns the next n bytes in r, advancing r.
//
// Next is a zero-copy equivalent to Read, and returns a slice of the
// underlying Buffer.
//
// If there are fewer than n bytes in r, Next will return as many bytes as it
// can and io.ErrUnexpectedEOF. Next will never return an error if all
// requested bytes are returned.
func (r *R) Next(n int) (v []byte, err error) {
	v = r.remainingSlice()
	if n <= len(v) {
		v = v[:n]
	} else {
		err = io.ErrUnexpectedEOF
	}

	r.pos += len(v)
	return
}

// Rest returns all remaining bytes, advancing r to the end.
func (r *R) Rest() []byte {
	v := r.remainingSlice()
	r.pos += len(v)
	return v
}
