// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package handler implements the packet compression handler installed in a
// connection's packet-processing chain.
//
// A Handler is created per connection and initialized once. Depending on its
// settings, it then either passes packets through unmodified (Disabled),
// records them to capture files (Capturing), or compresses outgoing packets
// and decompresses incoming ones (Release).
//
// In Release mode, every outgoing packet is rewritten as:
//
//	[uncompressed length varint][compressed data]
//
// Compression is stateful, so a connection's packets must be passed to
// Outgoing in the order they are sent, and to Incoming in the order they are
// received.
package handler
