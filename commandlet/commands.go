// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package commandlet

import (
	"fmt"
	"io"
	"strings"

	"github.com/danjacques/netcompress/capture"
	"github.com/danjacques/netcompress/config"
	"github.com/danjacques/netcompress/dictionary"
	"github.com/danjacques/netcompress/stats"
	"github.com/danjacques/netcompress/support/fmtutil"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

func init() {
	register(&command{
		name: "enable",
		help: "Enables netcompress in the settings file, installing default settings.",
		flags: func(fs *pflag.FlagSet) func(*app, []string) error {
			var mode config.ModeFlag
			fs.Var(&mode, "mode", "If set, the mode to configure (Release, Capturing).")
			return func(a *app, args []string) error {
				return a.enable(fs.Changed("mode"), mode.Value())
			}
		},
	})

	register(&command{
		name: "merge",
		args: "<output> <input,input,...|all <dir>>",
		help: "Merges capture files into a new capture file.",
		flags: func(fs *pflag.FlagSet) func(*app, []string) error {
			overwrite := fs.Bool("overwrite", false, "Replace an existing output without asking.")
			return func(a *app, args []string) error {
				if err := requireArgs(args, 2, "<output> <inputs>"); err != nil {
					return err
				}
				return a.merge(args[0], args[1:], *overwrite)
			}
		},
	})

	register(&command{
		name: "dump",
		args: "<capture>...",
		help: "Prints the metadata and packets of capture files.",
		flags: func(fs *pflag.FlagSet) func(*app, []string) error {
			limit := fs.Int("hex", fmtutil.DefaultHexLimit, "Number of bytes of each packet to print (-1 prints every byte).")
			return func(a *app, args []string) error {
				if err := requireArgs(args, 1, "<capture>..."); err != nil {
					return err
				}
				for _, path := range args {
					if err := a.dump(path, *limit); err != nil {
						return err
					}
				}
				return nil
			}
		},
	})

	register(&command{
		name: "build-dictionary",
		args: "<output" + dictionary.FileExt + "> <capture>...",
		help: "Trains a dictionary from captured packets.",
		flags: func(fs *pflag.FlagSet) func(*app, []string) error {
			var opts dictionary.BuildOptions
			fs.Uint32Var(&opts.HashTableSize, "hash-table-size", dictionary.DefaultHashTableSize,
				"Per-connection compressor state size.")
			fs.IntVar(&opts.MaxPayload, "max-payload", 0, "Maximum dictionary payload size (0 fills the codec window).")
			fs.IntVar(&opts.SeedSize, "seed-size", 1024, "Size of the initial compressor state.")
			return func(a *app, args []string) error {
				if err := requireArgs(args, 2, "<output> <capture>..."); err != nil {
					return err
				}
				return a.buildDictionary(args[0], args[1:], opts)
			}
		},
	})

	register(&command{
		name: "evaluate",
		args: "<server" + dictionary.FileExt + "> <client" + dictionary.FileExt + "> <capture>...",
		help: "Replays captures through a server and client handler pair, verifying and measuring compression.",
		flags: func(fs *pflag.FlagSet) func(*app, []string) error {
			return func(a *app, args []string) error {
				if err := requireArgs(args, 3, "<server> <client> <capture>..."); err != nil {
					return err
				}
				return a.evaluate(args[0], args[1], args[2:])
			}
		},
	})
}

func (a *app) enable(setMode bool, mode config.Mode) error {
	store, err := config.Open(a.configPath)
	if err != nil {
		return err
	}

	config.EnableDefaults(store)
	if setMode {
		store.SetString(config.KeyMode, mode.String())
	}
	if err := store.Save(); err != nil {
		return errors.Wrap(err, "saving settings")
	}

	settings := config.LoadSettings(store)
	a.log.Infof("Enabled netcompress in %q (mode %s).", a.configPath, settings.Mode)
	return nil
}

func (a *app) merge(output string, inputArgs []string, overwrite bool) error {
	inputs, err := capture.ExpandInputs(inputArgs)
	if err != nil {
		return err
	}

	res, err := capture.Merge(capture.MergeOptions{
		Output:    output,
		Inputs:    inputs,
		Overwrite: overwrite,
		Confirm:   a.confirm,
		Logger:    a.log,
	})
	if err != nil {
		return err
	}

	a.log.Infof("Merged %d capture(s) into %q: %d packet(s), %d byte(s).",
		len(inputs), output, res.Packets, res.Bytes)
	return nil
}

func (a *app) dump(path string, limit int) error {
	r, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	md := r.Metadata()
	fmt.Fprintf(a.stdout, "%s\n  Session: %s\n  Role: %s\n  Direction: %s\n  Created: %s\n",
		path, md.Session, md.Role, md.Direction, md.Created)
	if len(md.Sources) > 0 {
		sources := make([]string, len(md.Sources))
		for i, s := range md.Sources {
			sources[i] = s.String()
		}
		fmt.Fprintf(a.stdout, "  Sources: %s\n", strings.Join(sources, ", "))
	}

	var total int64
	for {
		data, err := r.ReadPacket()
		switch err {
		case nil:
		case io.EOF:
			fmt.Fprintf(a.stdout, "  %d packet(s), %d byte(s)\n", r.NumPackets(), total)
			return nil
		default:
			return errors.Wrapf(err, "after %d packet(s)", r.NumPackets())
		}

		total += int64(len(data))
		var rendered fmt.Stringer = fmtutil.HexPrefix{Data: data, Limit: limit}
		if limit < 0 {
			rendered = fmtutil.HexSlice(data)
		}
		fmt.Fprintf(a.stdout, "  #%d: %s\n", r.NumPackets()-1, rendered)
	}
}

// readPackets reads every packet from the captures at paths, in order.
func readPackets(paths []string) ([][]byte, error) {
	var packets [][]byte
	for _, path := range paths {
		r, err := capture.Open(path)
		if err != nil {
			return nil, err
		}

		for {
			data, err := r.ReadPacket()
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = r.Close()
				return nil, errors.Wrapf(err, "reading %q", path)
			}
			packets = append(packets, data)
		}
		if err := r.Close(); err != nil {
			return nil, err
		}
	}
	return packets, nil
}

func (a *app) buildDictionary(output string, inputs []string, opts dictionary.BuildOptions) error {
	packets, err := readPackets(inputs)
	if err != nil {
		return err
	}
	if len(packets) == 0 {
		return errors.New("no packets to train on")
	}

	spec := dictionary.Build(packets, opts)
	if err := dictionary.WriteFile(output, spec); err != nil {
		return errors.Wrapf(err, "writing %q", output)
	}

	a.log.Infof("Wrote %q: %d-byte payload, %d-byte seed, hash table size %d, from %d packet(s).",
		output, len(spec.Payload), len(spec.Seed), spec.HashTableSize, len(packets))
	return nil
}

func printSnapshot(w io.Writer, name string, snap *stats.Snapshot) {
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  Incoming: %d -> %d byte(s), %.2f%% saved\n",
		snap.InDecompressed, snap.InCompressed, snap.InSavings())
	fmt.Fprintf(w, "  Outgoing: %d -> %d byte(s), %.2f%% saved\n",
		snap.OutUncompressed, snap.OutCompressed, snap.OutSavings())
	fmt.Fprintf(w, "  Total: %.2f%% saved\n", snap.TotalSavings())
}
