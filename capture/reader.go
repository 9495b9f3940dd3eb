// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"bufio"
	"io"
	"os"

	"github.com/danjacques/netcompress/support/dataio"

	"github.com/pkg/errors"
)

// Reader reads packet records from a capture file.
//
// Like Writer, Reader's errors are sticky.
type Reader struct {
	br     *bufio.Reader
	closer io.Closer
	path   string
	md     Metadata

	err error

	numPackets int64

	// buf is reused between records by readRecord.
	buf []byte
}

// Open opens the capture file at path and validates its header.
func Open(path string) (*Reader, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening capture file %q", path)
	}

	r, err := newReader(fd, fd)
	if err != nil {
		_ = fd.Close()
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	r.path = path
	return r, nil
}

// NewReader reads and validates a capture header from r.
//
// Closing the returned Reader does not close r.
func NewReader(r io.Reader) (*Reader, error) {
	return newReader(r, nil)
}

func newReader(r io.Reader, closer io.Closer) (*Reader, error) {
	cr := Reader{
		br:     bufio.NewReader(r),
		closer: closer,
	}
	if err := readHeader(cr.br, &cr.md); err != nil {
		captureErrors.WithLabelValues("header").Inc()
		return nil, err
	}
	return &cr, nil
}

// Path returns the path of the capture file, or "" if the Reader was not
// created with Open.
func (r *Reader) Path() string { return r.path }

// Metadata returns the capture's header metadata.
func (r *Reader) Metadata() *Metadata { return &r.md }

// NumPackets returns the number of records read so far.
func (r *Reader) NumPackets() int64 { return r.numPackets }

// IsError returns true if the Reader has encountered an error.
func (r *Reader) IsError() bool { return r.err != nil }

// Err returns the Reader's sticky error, or nil if there is none.
func (r *Reader) Err() error { return r.err }

// ReadPacket returns the data of the next record.
//
// At the clean end of the capture, ReadPacket returns io.EOF. A truncated or
// invalid record returns an error whose cause is ErrMalformedRecord.
func (r *Reader) ReadPacket() ([]byte, error) {
	data, err := r.readRecord()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// readRecord is ReadPacket, but the returned slice is only valid until the
// next call.
func (r *Reader) readRecord() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}

	size, err := dataio.ReadUint32(r.br)
	switch err {
	case nil:
	case io.EOF:
		return nil, io.EOF
	case io.ErrUnexpectedEOF:
		return nil, r.fail(errors.Wrap(ErrMalformedRecord, "truncated record length"))
	default:
		return nil, r.fail(errors.Wrap(err, "reading record length"))
	}

	if size >= MaxRecordSize {
		return nil, r.fail(errors.Wrapf(ErrMalformedRecord, "record size %d exceeds maximum", size))
	}

	if cap(r.buf) < int(size) {
		r.buf = make([]byte, size)
	}
	r.buf = r.buf[:size]
	if _, err := io.ReadFull(r.br, r.buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, r.fail(errors.Wrapf(ErrMalformedRecord, "truncated %d-byte record", size))
		}
		return nil, r.fail(errors.Wrap(err, "reading record"))
	}

	r.numPackets++
	return r.buf, nil
}

func (r *Reader) fail(err error) error {
	captureErrors.WithLabelValues("read").Inc()
	r.err = err
	return err
}

// Close closes the Reader's file, if it owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
