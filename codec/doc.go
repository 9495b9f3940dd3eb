// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package codec implements the stateful, dictionary-primed packet codec.
//
// Each packet is compressed as an independent DEFLATE stream whose preset
// dictionary is the shared dictionary window followed by the connection's
// recent packet history. Because the history grows with every packet, the
// codec adapts to a connection's traffic, and a decoder must observe exactly
// the same packets, in the same order, as the encoder it mirrors. A lost,
// reordered, or failed packet leaves the two States out of sync.
package codec
