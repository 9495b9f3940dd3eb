// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danjacques/netcompress/support/logging"

	"github.com/pkg/errors"
)

// maxUniqueAttempts bounds the suffixes UniquePath will try.
const maxUniqueAttempts = 100000

// UniquePath returns the first path of the form "dir/base.ext",
// "dir/base_1.ext", "dir/base_2.ext", ... that does not exist.
func UniquePath(dir, base, ext string) (string, error) {
	for i := 0; i < maxUniqueAttempts; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}

		path := filepath.Join(dir, name)
		switch _, err := os.Lstat(path); {
		case os.IsNotExist(err):
			return path, nil
		case err != nil:
			return "", errors.Wrapf(err, "checking %q", path)
		}
	}
	return "", errors.Errorf("no unused name for %q in %q", base+ext, dir)
}

// Sink receives captured packets.
type Sink interface {
	// Record captures a copy of data.
	//
	// Record is observation-only. Failures are handled by the Sink, never
	// surfaced to the packet path.
	Record(data []byte)

	// Close finalizes the Sink, returning any error it encountered.
	Close() error
}

// SinkFactory opens Sinks.
type SinkFactory interface {
	// OpenSink opens a Sink for a new capture. dir and base name the capture;
	// implementations that write files must not overwrite existing ones.
	OpenSink(dir, base string, md *Metadata) (Sink, error)
}

// NopSink is a Sink that discards everything.
type NopSink struct{}

var _ Sink = NopSink{}

// Record implements Sink.
func (NopSink) Record([]byte) {}

// Close implements Sink.
func (NopSink) Close() error { return nil }

// NopSinks is a SinkFactory that opens NopSinks. It is used by deployments
// that do not support capturing.
type NopSinks struct{}

// OpenSink implements SinkFactory.
func (NopSinks) OpenSink(string, string, *Metadata) (Sink, error) { return NopSink{}, nil }

// FileSink is a Sink that writes to a capture file.
type FileSink struct {
	// W is the capture Writer. FileSink takes ownership of it.
	W *Writer
	// Logger, if not nil, receives the first write error.
	Logger logging.L

	reported bool
}

var _ Sink = (*FileSink)(nil)

// Record implements Sink.
func (fs *FileSink) Record(data []byte) {
	if err := fs.W.SerializePacket(data); err != nil && !fs.reported {
		logging.Must(fs.Logger).Errorf("Capture to %q failed, dropping further packets: %s", fs.W.Path(), err)
		fs.reported = true
	}
}

// Close implements Sink.
func (fs *FileSink) Close() error { return fs.W.Close() }

// FileSinks is a SinkFactory that writes capture files.
type FileSinks struct {
	// Logger is passed to each FileSink.
	Logger logging.L
}

// OpenSink implements SinkFactory.
//
// The capture file is created at a unique path derived from dir and base,
// with its header already written.
func (f FileSinks) OpenSink(dir, base string, md *Metadata) (Sink, error) {
	for {
		path, err := UniquePath(dir, base, FileExt)
		if err != nil {
			return nil, err
		}

		w, err := Create(path, md)
		switch {
		case err == nil:
			logging.Must(f.Logger).Infof("Capturing %s packets to %q.", md.Direction, path)
			return &FileSink{W: w, Logger: f.Logger}, nil

		case os.IsExist(errors.Cause(err)):
			// Lost a race for this name; try the next one.
			continue

		default:
			return nil, err
		}
	}
}
