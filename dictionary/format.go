// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package dictionary

import (
	"bufio"
	"io"
	"os"

	"github.com/danjacques/netcompress/codec"
	"github.com/danjacques/netcompress/support/stagingfile"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const (
	// FileExt is the extension of dictionary files.
	FileExt = ".udic"

	// fileVersion is the current dictionary file version.
	fileVersion = 1

	// MaxBlobSize is the largest state or payload blob a dictionary file may
	// declare.
	MaxBlobSize = 64 * 1024 * 1024
)

var fileMagic = [4]byte{'N', 'C', 'D', 'T'}

// fileHeader is the fixed header at the start of every dictionary file.
//
// It is followed by CompactedStateSize bytes of compacted compressor state,
// then DictionarySize bytes of dictionary payload. Checksum is the xxhash of
// both blobs, in file order.
type fileHeader struct {
	Magic              [4]byte
	Version            uint32 `struc:",little"`
	HashTableSize      uint32 `struc:",little"`
	CompactedStateSize uint32 `struc:",little"`
	DictionarySize     uint32 `struc:",little"`
	Checksum           uint64 `struc:",little"`
}

func (h *fileHeader) validate() error {
	switch {
	case h.Magic != fileMagic:
		return errors.Errorf("bad magic %q", h.Magic[:])
	case h.Version != fileVersion:
		return errors.Errorf("unsupported version %d", h.Version)
	case h.CompactedStateSize > MaxBlobSize:
		return errors.Errorf("compacted state size %d exceeds maximum", h.CompactedStateSize)
	case h.DictionarySize > MaxBlobSize:
		return errors.Errorf("dictionary size %d exceeds maximum", h.DictionarySize)
	default:
		return nil
	}
}

// Spec is the uncompacted content of a dictionary file.
type Spec struct {
	// HashTableSize sizes the per-connection compressor state.
	HashTableSize uint32
	// Seed is the initial compressor state copied into each connection.
	Seed []byte
	// Payload is the raw dictionary bytes.
	Payload []byte
}

// Write writes spec to w in dictionary file format.
func Write(w io.Writer, spec *Spec) error {
	compacted := snappy.Encode(nil, spec.Seed)
	if len(compacted) > MaxBlobSize || len(spec.Payload) > MaxBlobSize {
		return errors.New("dictionary too large")
	}

	h := fileHeader{
		Magic:              fileMagic,
		Version:            fileVersion,
		HashTableSize:      spec.HashTableSize,
		CompactedStateSize: uint32(len(compacted)),
		DictionarySize:     uint32(len(spec.Payload)),
		Checksum:           checksum(compacted, spec.Payload),
	}
	if err := struc.Pack(w, &h); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if _, err := w.Write(compacted); err != nil {
		return errors.Wrap(err, "writing compacted state")
	}
	if _, err := w.Write(spec.Payload); err != nil {
		return errors.Wrap(err, "writing payload")
	}
	return nil
}

// WriteFile writes spec to a dictionary file at path.
//
// The file is built in a staging file and only appears at path once it is
// complete. An existing file at path is replaced.
func WriteFile(path string, spec *Spec) error {
	sf, err := stagingfile.New(path)
	if err != nil {
		return errors.Wrap(err, "creating staging file")
	}
	defer func() {
		_ = sf.Destroy()
	}()

	bw := bufio.NewWriter(sf)
	if err := Write(bw, spec); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing dictionary")
	}
	return sf.Commit(path, true)
}

// Read reads and fully constructs a Dictionary from r.
//
// The returned Dictionary has no path and is not owned by a Store.
func Read(r io.Reader) (*Dictionary, error) {
	var h fileHeader
	if err := struc.Unpack(r, &h); err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if err := h.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid header")
	}

	compacted := make([]byte, h.CompactedStateSize)
	if _, err := io.ReadFull(r, compacted); err != nil {
		return nil, errors.Wrap(err, "reading compacted state")
	}
	payload := make([]byte, h.DictionarySize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "reading payload")
	}
	if sum := checksum(compacted, payload); sum != h.Checksum {
		return nil, errors.Errorf("checksum mismatch (%016x != %016x)", sum, h.Checksum)
	}

	seed, err := snappy.Decode(nil, compacted)
	if err != nil {
		return nil, errors.Wrap(err, "uncompacting compressor state")
	}

	return &Dictionary{
		hashTableSize: h.HashTableSize,
		payload:       payload,
		shared:        codec.NewSharedWindow(payload, h.HashTableSize),
		initial:       codec.NewState(seed),
	}, nil
}

// ReadFile reads a Dictionary from the file at path.
func ReadFile(path string) (*Dictionary, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = fd.Close()
	}()

	d, err := Read(bufio.NewReader(fd))
	if err != nil {
		return nil, err
	}
	d.path = path
	return d, nil
}

func checksum(blobs ...[]byte) uint64 {
	h := xxhash.New()
	for _, b := range blobs {
		_, _ = h.Write(b)
	}
	return h.Sum64()
}
