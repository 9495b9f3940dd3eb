// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package protostream reads and writes size-prefixed protobuf messages.
//
// Each message is written as a varint size followed by the message's binary
// encoding.
package protostream

import (
	"bytes"
	"io"

	"github.com/danjacques/netcompress/support/dataio"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
)

// The maximum varint size, in bytes. This is the total number of bytes needed
// to encode the largest uint64 using proto.EncodeVarint.
const maxVarintSizeU64 = 10

// ErrTooLarge is returned by Decoder.Read when a message's size prefix
// exceeds the Decoder's MaxSize.
var ErrTooLarge = errors.New("message exceeds maximum size")

// Encoder encodes a protobuf message stream to an io.Writer.
type Encoder struct {
	buf *proto.Buffer
}

// Write writes pb to w, returning the number of bytes written.
func (e *Encoder) Write(w io.Writer, pb proto.Message) (int, error) {
	if e.buf == nil {
		e.buf = proto.NewBuffer(nil)
	} else {
		e.buf.Reset()
	}

	if err := e.buf.EncodeVarint(uint64(proto.Size(pb))); err != nil {
		return 0, err
	}
	if err := e.buf.Marshal(pb); err != nil {
		return 0, err
	}
	return w.Write(e.buf.Bytes())
}

// Decoder is a reusable object which decodes a series of messages from a proto
// stream.
type Decoder struct {
	// MaxSize, if >0, is the largest message the Decoder will accept.
	MaxSize int64

	buf     *proto.Buffer
	dataBuf bytes.Buffer

	sizeBuf [maxVarintSizeU64]byte
}

func (d *Decoder) bufferNextVarint(r dataio.Reader) ([]byte, error) {
	sizeBuf := d.sizeBuf[:0]
	for len(sizeBuf) < maxVarintSizeU64 {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(sizeBuf) > 0 {
				err = io.ErrUnexpectedEOF
			}
			return sizeBuf, err
		}

		sizeBuf = append(sizeBuf, b)
		if (b & 0x80) == 0 {
			// Varint does not have continuation bit set.
			return sizeBuf, nil
		}
	}
	return sizeBuf, errors.New("size prefix is not a valid varint")
}

// Read reads the next message from r into pb, returning the number of bytes
// consumed.
//
// Read consumes the size prefix byte-by-byte; users should use a buffered
// Reader. If r can't read individual bytes, it is wrapped to do so.
func (d *Decoder) Read(src io.Reader, pb proto.Message) (int64, error) {
	if d.buf == nil {
		d.buf = proto.NewBuffer(nil)
	}
	r := dataio.MakeReader(src)

	sizeBuf, err := d.bufferNextVarint(r)
	count := int64(len(sizeBuf))
	if err != nil {
		return count, err
	}

	// sizeBuf was vetted above, so this must decode fully.
	size, amt := proto.DecodeVarint(sizeBuf)
	if amt != len(sizeBuf) {
		panic("incompatible proto varint encoding")
	}
	if d.MaxSize > 0 && size > uint64(d.MaxSize) {
		return count, ErrTooLarge
	}

	d.dataBuf.Reset()
	d.dataBuf.Grow(int(size))
	lr := io.LimitedReader{
		R: r,
		N: int64(size),
	}
	readCount, err := d.dataBuf.ReadFrom(&lr)
	count += readCount
	if err != nil {
		return count, err
	}
	if readCount != int64(size) {
		return count, io.ErrUnexpectedEOF
	}

	d.buf.SetBuf(d.dataBuf.Bytes())
	return count, d.buf.Unmarshal(pb)
}
