// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protocol

import (
	"github.com/danjacques/netcompress/support/byteslicereader"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
)

const (
	// MaxPacketSize is the ceiling on uncompressed packet sizes, in bytes.
	//
	// An uncompressed packet must be strictly smaller than MaxPacketSize. The
	// value keeps the length prefix at two bytes.
	MaxPacketSize = 16383

	// maxLengthPrefixSize is the largest length prefix ReadLength accepts.
	maxLengthPrefixSize = 3
)

// ErrMalformedLength is returned by ReadLength when the length prefix is
// truncated or longer than maxLengthPrefixSize bytes.
var ErrMalformedLength = errors.New("malformed length prefix")

// Packet is a host packet passing through the handler chain.
//
// A Packet carries a bit length, since the host protocol is bit-packed, and a
// bit cursor marking how much of it preceding handlers have consumed.
//
// Packet is not safe for concurrent use.
type Packet struct {
	data []byte
	bits int
	pos  int
	err  bool
}

// NewPacket returns a Packet holding data, with a bit length of len(data)*8.
//
// The Packet takes ownership of data.
func NewPacket(data []byte) *Packet {
	return &Packet{data: data, bits: len(data) * 8}
}

// NewPacketBits returns a Packet holding the first bits bits of data.
func NewPacketBits(data []byte, bits int) *Packet {
	if bits < 0 || bits > len(data)*8 {
		panic(errors.Errorf("bit length %d out of range for %d bytes", bits, len(data)))
	}
	return &Packet{data: data, bits: bits}
}

// Bytes returns the bytes that hold the packet's bits. If the bit length is
// not a multiple of 8, the final byte is partial.
func (p *Packet) Bytes() []byte { return p.data[:p.NumBytes()] }

// NumBits returns the packet's length in bits.
func (p *Packet) NumBits() int { return p.bits }

// NumBytes returns the number of bytes needed to hold the packet's bits.
func (p *Packet) NumBytes() int { return (p.bits + 7) / 8 }

// Pos returns the bit cursor.
func (p *Packet) Pos() int { return p.pos }

// Seek moves the bit cursor to bit.
func (p *Packet) Seek(bit int) {
	if bit < 0 || bit > p.bits {
		panic(errors.Errorf("seek to bit %d outside of %d-bit packet", bit, p.bits))
	}
	p.pos = bit
}

// Reset replaces the packet's contents with data, byte-aligned, and rewinds
// the cursor. The Packet takes ownership of data.
func (p *Packet) Reset(data []byte) {
	p.data, p.bits, p.pos = data, len(data)*8, 0
}

// SetError marks the packet as unusable. The host must drop packets with the
// error set.
func (p *Packet) SetError() { p.err = true }

// IsError returns true if SetError has been called.
func (p *Packet) IsError() bool { return p.err }

// LengthSize returns the number of bytes AppendLength uses to encode n.
func LengthSize(n int) int { return proto.SizeVarint(uint64(n)) }

// LengthBits returns the number of bits AppendLength uses to encode n.
func LengthBits(n int) int { return LengthSize(n) * 8 }

// AppendLength appends the variable-length encoding of n to dst.
func AppendLength(dst []byte, n int) []byte {
	if n < 0 {
		panic("negative length")
	}
	return append(dst, proto.EncodeVarint(uint64(n))...)
}

// ReadLength reads a length prefix written by AppendLength from r.
func ReadLength(r *byteslicereader.R) (int, error) {
	var buf [maxLengthPrefixSize]byte
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return 0, ErrMalformedLength
		}
		buf[i] = b

		if b&0x80 == 0 {
			v, amt := proto.DecodeVarint(buf[:i+1])
			if amt != i+1 {
				return 0, ErrMalformedLength
			}
			return int(v), nil
		}
	}
	return 0, ErrMalformedLength
}
