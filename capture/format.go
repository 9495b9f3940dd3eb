// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"bytes"
	"io"
	"time"

	"github.com/danjacques/netcompress/support/protostream"

	"github.com/golang/protobuf/ptypes"
	"github.com/golang/protobuf/ptypes/struct"
	"github.com/google/uuid"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const (
	// FileExt is the extension of capture files.
	FileExt = ".ucap"

	// fileVersion is the current capture file version.
	fileVersion = 1

	// MaxRecordSize is the exclusive upper bound on the size of a single packet
	// record.
	MaxRecordSize = 1024 * 1024

	// maxMetadataSize bounds the metadata block a reader will accept.
	maxMetadataSize = 64 * 1024
)

var (
	// ErrInvalidHeader is returned when a capture file's header can't be read
	// or validated.
	ErrInvalidHeader = errors.New("invalid capture header")

	// ErrMalformedRecord is returned when a packet record is truncated or has
	// an invalid length.
	ErrMalformedRecord = errors.New("malformed capture record")
)

var fileMagic = [4]byte{'N', 'C', 'A', 'P'}

type fileHeader struct {
	Magic        [4]byte
	Version      uint32 `struc:",little"`
	MetadataSize uint32 `struc:",little"`
}

// Direction is the traffic direction a capture file recorded.
type Direction string

const (
	// DirectionIncoming is traffic received by the recording endpoint.
	DirectionIncoming Direction = "Incoming"
	// DirectionOutgoing is traffic sent by the recording endpoint.
	DirectionOutgoing Direction = "Outgoing"
)

// Metadata describes a capture file.
type Metadata struct {
	// Session identifies the capture. Every capture file, including merged
	// ones, gets its own Session.
	Session uuid.UUID
	// Role is the role of the recording endpoint, e.g. "Server".
	Role string
	// Direction is the recorded traffic direction. It is empty for merges of
	// mixed directions.
	Direction Direction
	// Created is the time the capture was created.
	Created time.Time

	// Sources holds the sessions that were merged into this capture. It is
	// empty for captures recorded directly.
	Sources []uuid.UUID
}

// NewMetadata returns Metadata for a new capture session.
func NewMetadata(role string, dir Direction) *Metadata {
	return &Metadata{
		Session:   uuid.New(),
		Role:      role,
		Direction: dir,
		Created:   time.Now(),
	}
}

// SourceSessions returns the sessions that md represents: its Sources if it is
// a merge, otherwise its own Session.
func (md *Metadata) SourceSessions() []uuid.UUID {
	if len(md.Sources) > 0 {
		return md.Sources
	}
	return []uuid.UUID{md.Session}
}

func stringValue(v string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: v}}
}

func (md *Metadata) toStruct() (*structpb.Struct, error) {
	created, err := ptypes.TimestampProto(md.Created)
	if err != nil {
		return nil, errors.Wrap(err, "encoding creation time")
	}

	s := structpb.Struct{
		Fields: map[string]*structpb.Value{
			"session":   stringValue(md.Session.String()),
			"role":      stringValue(md.Role),
			"direction": stringValue(string(md.Direction)),
			"created":   stringValue(ptypes.TimestampString(created)),
		},
	}

	if len(md.Sources) > 0 {
		list := structpb.ListValue{Values: make([]*structpb.Value, len(md.Sources))}
		for i, src := range md.Sources {
			list.Values[i] = stringValue(src.String())
		}
		s.Fields["sources"] = &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: &list}}
	}
	return &s, nil
}

func (md *Metadata) fromStruct(s *structpb.Struct) error {
	str := func(key string) string { return s.Fields[key].GetStringValue() }

	var err error
	if md.Session, err = uuid.Parse(str("session")); err != nil {
		return errors.Wrap(err, "invalid session")
	}
	md.Role = str("role")
	md.Direction = Direction(str("direction"))

	if v := str("created"); v != "" {
		if md.Created, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return errors.Wrap(err, "invalid creation time")
		}
	}

	md.Sources = nil
	for _, v := range s.Fields["sources"].GetListValue().GetValues() {
		src, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return errors.Wrap(err, "invalid source session")
		}
		md.Sources = append(md.Sources, src)
	}
	return nil
}

// writeHeader writes the capture header and metadata block to w.
func writeHeader(w io.Writer, md *Metadata) (int64, error) {
	s, err := md.toStruct()
	if err != nil {
		return 0, err
	}

	var mdBuf bytes.Buffer
	var enc protostream.Encoder
	if _, err := enc.Write(&mdBuf, s); err != nil {
		return 0, errors.Wrap(err, "encoding metadata")
	}

	h := fileHeader{
		Magic:        fileMagic,
		Version:      fileVersion,
		MetadataSize: uint32(mdBuf.Len()),
	}
	if err := struc.Pack(w, &h); err != nil {
		return 0, errors.Wrap(err, "writing header")
	}
	n, err := w.Write(mdBuf.Bytes())
	if err != nil {
		return 0, errors.Wrap(err, "writing metadata")
	}
	return int64(n), nil
}

// readHeader reads and validates the capture header and metadata block from
// r. Any failure has ErrInvalidHeader as its cause.
func readHeader(r io.Reader, md *Metadata) error {
	var h fileHeader
	if err := struc.Unpack(r, &h); err != nil {
		return errors.Wrapf(ErrInvalidHeader, "reading header: %s", err)
	}
	switch {
	case h.Magic != fileMagic:
		return errors.Wrapf(ErrInvalidHeader, "bad magic %q", h.Magic[:])
	case h.Version != fileVersion:
		return errors.Wrapf(ErrInvalidHeader, "unsupported version %d", h.Version)
	case h.MetadataSize > maxMetadataSize:
		return errors.Wrapf(ErrInvalidHeader, "metadata size %d exceeds maximum", h.MetadataSize)
	}

	mdBuf := make([]byte, h.MetadataSize)
	if _, err := io.ReadFull(r, mdBuf); err != nil {
		return errors.Wrapf(ErrInvalidHeader, "reading metadata: %s", err)
	}

	var s structpb.Struct
	dec := protostream.Decoder{MaxSize: maxMetadataSize}
	switch n, err := dec.Read(bytes.NewReader(mdBuf), &s); {
	case err != nil:
		return errors.Wrapf(ErrInvalidHeader, "decoding metadata: %s", err)
	case n != int64(len(mdBuf)):
		return errors.Wrapf(ErrInvalidHeader, "metadata block has %d trailing bytes", int64(len(mdBuf))-n)
	}

	if err := md.fromStruct(&s); err != nil {
		return errors.Wrapf(ErrInvalidHeader, "%s", err)
	}
	return nil
}
