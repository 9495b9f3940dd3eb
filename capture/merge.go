// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danjacques/netcompress/support/logging"
	"github.com/danjacques/netcompress/support/stagingfile"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

var (
	// ErrNotEnoughInputs is returned by Merge when fewer than two inputs are
	// supplied.
	ErrNotEnoughInputs = errors.New("merge requires at least two inputs")

	// ErrOutputExists is returned by Merge when the output exists and
	// overwriting it was not confirmed.
	ErrOutputExists = errors.New("output file already exists")
)

// MergeOptions configures Merge.
type MergeOptions struct {
	// Output is the path of the merged capture.
	Output string
	// Inputs are the captures to merge, in order.
	Inputs []string

	// Overwrite, if true, replaces an existing Output without asking.
	Overwrite bool
	// Confirm, if not nil, is asked whether an existing Output may be
	// replaced. If nil and Overwrite is false, an existing Output is an error.
	Confirm func(path string) bool

	// Logger is the logger instance to use. If nil, no logs will be generated.
	Logger logging.L
}

// MergeResult describes a completed merge.
type MergeResult struct {
	Metadata *Metadata
	Packets  int64
	Bytes    int64
}

// Merge merges the input captures into a new capture at opts.Output.
//
// Every input is opened and its header validated before the output is
// created. The output is built in a staging file and only moved into place
// once every record has been copied, so a failed merge never leaves a partial
// output behind.
func Merge(opts MergeOptions) (res *MergeResult, err error) {
	log := logging.Must(opts.Logger)
	if len(opts.Inputs) < 2 {
		return nil, errors.Wrapf(ErrNotEnoughInputs, "got %d", len(opts.Inputs))
	}

	readers := make([]*Reader, 0, len(opts.Inputs))
	defer func() {
		var merr *multierror.Error
		for _, r := range readers {
			if cerr := r.Close(); cerr != nil {
				merr = multierror.Append(merr, errors.Wrapf(cerr, "closing %q", r.Path()))
			}
		}
		if cerr := merr.ErrorOrNil(); cerr != nil && err == nil {
			res, err = nil, cerr
		}
	}()

	for _, path := range opts.Inputs {
		r, err := Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "opening input")
		}
		readers = append(readers, r)
	}

	if _, err := os.Lstat(opts.Output); err == nil {
		if !opts.Overwrite && (opts.Confirm == nil || !opts.Confirm(opts.Output)) {
			return nil, errors.Wrapf(ErrOutputExists, "%q", opts.Output)
		}
		log.Warnf("Replacing existing output %q.", opts.Output)
	}

	md := mergeMetadata(readers)

	sf, err := stagingfile.New(opts.Output)
	if err != nil {
		return nil, errors.Wrap(err, "creating staging file")
	}
	defer func() {
		_ = sf.Destroy()
	}()

	w, err := NewWriter(sf, md)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = w.Close()
	}()

	for _, r := range readers {
		before := w.NumPackets()
		if err := w.AppendPacketFile(r); err != nil {
			return nil, err
		}
		log.Infof("Merged %d packet(s) from %q.", w.NumPackets()-before, r.Path())
	}

	if err := w.Flush(); err != nil {
		return nil, err
	}
	if err := sf.Commit(opts.Output, true); err != nil {
		return nil, errors.Wrap(err, "committing output")
	}

	mergeCount.Inc()
	return &MergeResult{
		Metadata: md,
		Packets:  w.NumPackets(),
		Bytes:    w.NumBytes(),
	}, nil
}

func mergeMetadata(readers []*Reader) *Metadata {
	first := readers[0].Metadata()
	md := Metadata{
		Session:   uuid.New(),
		Role:      first.Role,
		Direction: first.Direction,
		Created:   first.Created,
	}

	for _, r := range readers {
		rmd := r.Metadata()
		if rmd.Role != md.Role {
			md.Role = ""
		}
		if rmd.Direction != md.Direction {
			md.Direction = ""
		}
		if rmd.Created.Before(md.Created) {
			md.Created = rmd.Created
		}
		md.Sources = append(md.Sources, rmd.SourceSessions()...)
	}
	return &md
}

// ExpandInputs resolves merge input arguments into capture paths.
//
// args is either a list of comma-separated paths ("a,b" "c"), or the form
// "all <dir>", which selects every capture file in dir in name order.
func ExpandInputs(args []string) ([]string, error) {
	if len(args) == 2 && strings.EqualFold(args[0], "all") {
		matches, err := filepath.Glob(filepath.Join(args[1], "*"+FileExt))
		if err != nil {
			return nil, errors.Wrapf(err, "scanning %q", args[1])
		}
		sort.Strings(matches)
		return matches, nil
	}

	var inputs []string
	for _, arg := range args {
		for _, p := range strings.Split(arg, ",") {
			if p = strings.TrimSpace(p); p != "" {
				inputs = append(inputs, p)
			}
		}
	}
	return inputs, nil
}
