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

// Writer appends packet records to a capture file.
//
// Errors are sticky: once an operation fails, every subsequent operation is a
// no-op that returns the original error.
//
// Writer is not safe for concurrent use.
type Writer struct {
	bw     *bufio.Writer
	closer io.Closer
	path   string
	md     Metadata

	err error

	numPackets int64
	numBytes   int64
}

// Create creates a new capture file at path and writes its header.
//
// Create fails if a file already exists at path.
func Create(path string, md *Metadata) (*Writer, error) {
	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		captureErrors.WithLabelValues("create").Inc()
		return nil, errors.Wrapf(err, "creating capture file %q", path)
	}

	w, err := newWriter(fd, fd, md)
	if err != nil {
		_ = fd.Close()
		_ = os.Remove(path)
		return nil, err
	}
	w.path = path
	return w, nil
}

// NewWriter writes a capture header to w and returns a Writer that appends
// records to it.
//
// Closing the returned Writer flushes it, but does not close w.
func NewWriter(w io.Writer, md *Metadata) (*Writer, error) {
	return newWriter(w, nil, md)
}

func newWriter(w io.Writer, closer io.Closer, md *Metadata) (*Writer, error) {
	cw := Writer{
		bw:     bufio.NewWriter(w),
		closer: closer,
		md:     *md,
	}
	if _, err := writeHeader(cw.bw, md); err != nil {
		captureErrors.WithLabelValues("header").Inc()
		return nil, err
	}

	// The header is written immediately, so even an empty capture is valid.
	if err := cw.bw.Flush(); err != nil {
		captureErrors.WithLabelValues("header").Inc()
		return nil, errors.Wrap(err, "flushing header")
	}

	captureWritersGauge.Inc()
	return &cw, nil
}

// Path returns the path of the capture file, or "" if the Writer was not
// created with Create.
func (w *Writer) Path() string { return w.path }

// Metadata returns the metadata written to the capture header.
func (w *Writer) Metadata() *Metadata { return &w.md }

// NumPackets returns the number of packet records written.
func (w *Writer) NumPackets() int64 { return w.numPackets }

// NumBytes returns the number of packet payload bytes written.
func (w *Writer) NumBytes() int64 { return w.numBytes }

// IsError returns true if the Writer has encountered an error.
func (w *Writer) IsError() bool { return w.err != nil }

// Err returns the Writer's sticky error, or nil if there is none.
func (w *Writer) Err() error { return w.err }

func (w *Writer) fail(kind string, err error) error {
	captureErrors.WithLabelValues(kind).Inc()
	w.err = err
	return err
}

// SerializePacket appends a record containing data.
func (w *Writer) SerializePacket(data []byte) error {
	if w.err != nil {
		return w.err
	}

	if len(data) >= MaxRecordSize {
		return w.fail("record", errors.Wrapf(ErrMalformedRecord, "packet size %d exceeds maximum", len(data)))
	}
	if err := dataio.WriteUint32(w.bw, uint32(len(data))); err != nil {
		return w.fail("write", errors.Wrap(err, "writing record length"))
	}
	if _, err := w.bw.Write(data); err != nil {
		return w.fail("write", errors.Wrap(err, "writing record"))
	}

	w.numPackets++
	w.numBytes += int64(len(data))
	capturePackets.Inc()
	captureBytes.Add(float64(len(data)))
	return nil
}

// AppendPacketFile appends every remaining record from r to w.
//
// If r's records can't be read, w's error is set and no further records are
// written. Records appended before the failure remain, so callers producing a
// new file should discard it.
func (w *Writer) AppendPacketFile(r *Reader) error {
	if w.err != nil {
		return w.err
	}
	if r.IsError() {
		return w.fail("append", errors.Wrap(r.Err(), "source capture is in error"))
	}

	for {
		data, err := r.readRecord()
		switch err {
		case nil:
			if err := w.SerializePacket(data); err != nil {
				return err
			}

		case io.EOF:
			return nil

		default:
			return w.fail("append", errors.Wrapf(err, "reading record #%d of %q", r.NumPackets(), r.Path()))
		}
	}
}

// Flush flushes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		return w.fail("write", errors.Wrap(err, "flushing"))
	}
	return nil
}

// Close flushes the Writer and closes its file, if it owns one.
//
// Close returns the Writer's sticky error, if any.
func (w *Writer) Close() error {
	if w.bw == nil {
		return w.err
	}

	err := w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil && err == nil {
			err = w.fail("close", errors.Wrap(cerr, "closing capture file"))
		}
	}

	w.bw, w.closer = nil, nil
	captureWritersGauge.Dec()
	return err
}
