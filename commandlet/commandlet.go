// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package commandlet implements the netcompress command-line tool.
//
// The tool manages netcompress configuration, merges and inspects capture
// files, trains dictionaries from captures, and evaluates dictionaries by
// replaying captures through a server and client handler pair.
//
// The tool exits with a non-zero status if any error was logged.
package commandlet

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/danjacques/netcompress/support/logging"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	success = 0
	failure = 1
)

// command is a tool subcommand.
type command struct {
	name  string
	args  string
	help  string
	flags func(fs *pflag.FlagSet) func(a *app, args []string) error
}

var commands = map[string]*command{}

func register(c *command) { commands[c.name] = c }

// app is the state shared by commands.
type app struct {
	log logging.L

	configPath  string
	contentRoot string
	unattended  bool

	stdin  *bufio.Reader
	stdout io.Writer
}

// confirm asks the user whether path may be overwritten. In unattended mode,
// it always declines.
func (a *app) confirm(path string) bool {
	if a.unattended {
		a.log.Warnf("Not overwriting %q in unattended mode.", path)
		return false
	}

	fmt.Fprintf(a.stdout, "%q exists. Overwrite? [y/N] ", path)
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Main is the main entry point.
func Main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, nil))
}

// run runs the tool and returns its exit status. If base is nil, a zap logger
// is built from the command-line flags.
func run(argv []string, stdin io.Reader, stdout io.Writer, base logging.L) int {
	fs := pflag.NewFlagSet("netcompress", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(stdout)

	a := app{
		stdin:  bufio.NewReader(stdin),
		stdout: stdout,
	}
	verbose := false
	fs.StringVar(&a.configPath, "config", "netcompress.yaml", "Path to the settings file.")
	fs.StringVar(&a.contentRoot, "content-root", ".", "Directory that configured dictionary paths are relative to.")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging.")
	fs.BoolVar(&a.unattended, "unattended", false, "Never prompt; decline anything that needs confirmation.")
	fs.Usage = func() { usage(fs, stdout) }

	if err := fs.Parse(argv); err != nil {
		if err == pflag.ErrHelp {
			return success
		}
		return failure
	}

	if base == nil {
		logger, err := newZapLogger(verbose)
		if err != nil {
			fmt.Fprintf(stdout, "Could not create logger: %s\n", err)
			return failure
		}
		defer func() {
			_ = logger.Sync()
		}()
		base = logger.Sugar()
	}
	counting := logging.Counting{Base: base}
	a.log = &counting

	args := fs.Args()
	if len(args) == 0 {
		usage(fs, stdout)
		return failure
	}

	cmd := commands[args[0]]
	if cmd == nil {
		a.log.Errorf("Unknown command %q.", args[0])
		usage(fs, stdout)
		return failure
	}

	cfs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	cfs.SetOutput(stdout)
	runCmd := cmd.flags(cfs)
	if err := cfs.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return success
		}
		return failure
	}

	if err := runCmd(&a, cfs.Args()); err != nil {
		a.log.Errorf("%s failed: %s", cmd.name, err)
	}

	if n := counting.Errors(); n > 0 {
		return failure
	}
	return success
}

func newZapLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func usage(fs *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "Usage: netcompress [flags] <command> [command flags] [args]\n\nFlags:\n%s\nCommands:\n",
		fs.FlagUsages())

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(w, "  %s %s\n      %s\n", c.name, c.args, c.help)
	}
}

func requireArgs(args []string, min int, usage string) error {
	if len(args) < min {
		return errors.Errorf("expected arguments: %s", usage)
	}
	return nil
}
