// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package handler

import (
	"github.com/danjacques/netcompress/codec"
	"github.com/danjacques/netcompress/protocol"
	"github.com/danjacques/netcompress/support/bufferpool"
	"github.com/danjacques/netcompress/support/byteslicereader"
	"github.com/danjacques/netcompress/support/fmtutil"

	"github.com/pkg/errors"
)

// maxFrameSize is the largest frame Outgoing can produce.
var maxFrameSize = protocol.LengthSize(protocol.MaxPacketSize) + codec.EncodeBound(protocol.MaxPacketSize)

// scratchPool holds packet scratch buffers, shared by all connections.
var scratchPool = bufferpool.Pool{Size: maxFrameSize}

// Outgoing processes a packet that is about to be sent.
//
// In Release mode, the packet is replaced with its compressed frame. The
// packet must be smaller than protocol.MaxPacketSize; a larger packet is a
// framing error by the caller and panics.
func (h *Handler) Outgoing(pkt *protocol.Packet) {
	switch h.state {
	case StateCapturing:
		if h.outSink != nil {
			h.outSink.Record(pkt.Bytes())
		}

	case StateRelease:
		h.compress(pkt)
	}
}

func (h *Handler) compress(pkt *protocol.Packet) {
	data := pkt.Bytes()
	if len(data) >= protocol.MaxPacketSize {
		panic(errors.Errorf("outgoing packet size %d exceeds maximum %d", len(data), protocol.MaxPacketSize))
	}

	buf := scratchPool.Get()
	defer buf.Release()

	frame := protocol.AppendLength(buf.Bytes()[:0], len(data))
	prefixSize := len(frame)
	if len(data) > 0 {
		frame = codec.Encode(frame, h.out.state, h.out.window, data)
	}
	if compressed := len(frame) - prefixSize; compressed > codec.EncodeBound(len(data)) {
		panic(errors.Errorf("compressed size %d exceeds bound for %d bytes", compressed, len(data)))
	}

	pkt.Reset(append([]byte(nil), frame...))
	packetsProcessed.WithLabelValues("out").Inc()
	if h.opts.Stats != nil {
		h.opts.Stats.OutgoingStats(len(frame)-prefixSize, len(data))
	}
}

// Incoming processes a packet that has been received.
//
// The Handler must be the first in the packet-processing chain: the packet's
// cursor must be at bit 0, or Incoming panics.
//
// In Release mode, the packet's frame is decompressed in place. If the frame
// can't be decoded, the packet is emptied and marked with SetError, and the
// host must drop it.
func (h *Handler) Incoming(pkt *protocol.Packet) {
	if pos := pkt.Pos(); pos != 0 {
		panic(errors.Errorf("incoming packet cursor is at bit %d, not 0", pos))
	}

	switch h.state {
	case StateCapturing:
		if h.inSink != nil {
			h.inSink.Record(pkt.Bytes())
		}

	case StateRelease:
		h.decompress(pkt)
	}
}

func (h *Handler) decompress(pkt *protocol.Packet) {
	frame := pkt.Bytes()
	r := byteslicereader.R{Buffer: frame}

	size, err := protocol.ReadLength(&r)
	if err != nil {
		h.drop(pkt, "length", err)
		return
	}
	if size >= protocol.MaxPacketSize {
		h.drop(pkt, "size", errors.Errorf("decompressed size %d exceeds maximum %d", size, protocol.MaxPacketSize))
		return
	}

	compressed := r.Rest()
	var data []byte
	if size == 0 {
		// Empty packets have no compressed data.
		if len(compressed) > 0 {
			h.drop(pkt, "trailing", errors.Errorf("%d bytes follow an empty packet", len(compressed)))
			return
		}
		data = []byte{}
	} else {
		buf := scratchPool.Get()
		defer buf.Release()

		decoded, err := codec.Decode(buf.Bytes()[:0], h.in.state, h.in.window, compressed, size)
		if err != nil {
			h.drop(pkt, "decode", err)
			return
		}
		data = append(make([]byte, 0, len(decoded)), decoded...)
	}

	pkt.Reset(data)
	packetsProcessed.WithLabelValues("in").Inc()
	if h.opts.Stats != nil {
		h.opts.Stats.IncomingStats(len(compressed), size)
	}
}

// drop empties pkt and marks it with an error.
func (h *Handler) drop(pkt *protocol.Packet, kind string, err error) {
	packetErrors.WithLabelValues(kind).Inc()
	if h.opts.Capabilities.Diagnostics {
		h.log.Errorf("Dropping incoming packet %s: %s", fmtutil.PacketHex(pkt.Bytes()), err)
	}

	pkt.Reset(nil)
	pkt.SetError()
}
