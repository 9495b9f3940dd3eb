// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package protocol defines the host packet type that handlers transform, and
// the length prefix that compressed packets carry on the wire.
//
// A compressed packet is laid out as:
//
//	[uncompressed length: varint, 1-3 bytes][compressed payload]
//
// With MaxPacketSize at 16383, the length prefix never exceeds two bytes.
package protocol
