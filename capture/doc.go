// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package capture defines a file format to record raw packet traffic for
// offline dictionary training.
//
// A capture file is an append-only stream. It begins with a fixed header and a
// protobuf metadata block, managed by the protostream package:
//
//	[magic "NCAP"][version uint32][metadata size uint32][metadata]
//
// The header is followed by any number of packet records:
//
//	[length uint32][length bytes of packet data]
//
// All integers are little endian. Because records are self-delimiting, a
// truncated capture file is still readable up to its last complete record;
// the truncation is reported as ErrMalformedRecord.
//
// Capture files can be merged. A merged file has its own header, followed by
// the records of each input, in input order.
package capture
