// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package fmtutil contains formatting helpers for logging packet data.
package fmtutil

import (
	"bytes"
	"fmt"
)

// DefaultHexLimit is the number of bytes HexPrefix renders when logging a
// packet.
const DefaultHexLimit = 32

// HexSlice is a byte slice that renders as a sequence of hex bytes, instead
// of the default decimal bytes.
//
// Output as: "[4]byte{0x10, 0x20, 0x30, 0x40}"
type HexSlice []byte

func (hs HexSlice) String() string { return formatHex(hs, len(hs)) }

// HexPrefix renders at most Limit bytes of Data as hex, noting how many bytes
// were left out. It is lazy, and costs nothing unless the log is emitted.
type HexPrefix struct {
	Data  []byte
	Limit int
}

// PacketHex returns a HexPrefix for data using DefaultHexLimit.
func PacketHex(data []byte) HexPrefix { return HexPrefix{Data: data, Limit: DefaultHexLimit} }

func (hp HexPrefix) String() string { return formatHex(hp.Data, hp.Limit) }

func formatHex(data []byte, limit int) string {
	shown := data
	if limit >= 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	var sb bytes.Buffer
	sb.Grow((6 * len(shown)) + 32) // 32 is more than we need for static content.
	fmt.Fprintf(&sb, "[%d]byte{", len(data))
	for i, b := range shown {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "0x%02X", b)
	}
	if omitted := len(data) - len(shown); omitted > 0 {
		fmt.Fprintf(&sb, ", ...%d more", omitted)
	}
	sb.WriteString("}")
	return sb.String()
}
