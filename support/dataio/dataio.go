// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package dataio contains byte-oriented reader helpers and the record length
// encoding used by capture files.
package dataio

import (
	"encoding/binary"
	"io"
)

// Reader represents a Reader that can read both individual bytes and
// sequences of bytes.
type Reader interface {
	io.Reader
	io.ByteReader
}

// MakeReader returns a Reader for r, wrapping it if it cannot read bytes on
// its own.
func MakeReader(r io.Reader) Reader {
	if dr, ok := r.(Reader); ok {
		return dr
	}
	return &byteReader{Reader: r}
}

type byteReader struct {
	io.Reader
	buf [1]byte
}

func (r *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(r.Reader, r.buf[:]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// WriteUint32 writes v to w as four little-endian bytes.
func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// ReadUint32 reads a four-byte little-endian value from r.
//
// If r is exhausted before the first byte, io.EOF is returned. If it ends
// part-way through the value, io.ErrUnexpectedEOF is returned.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
