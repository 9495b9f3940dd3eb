// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package handler

import (
	"fmt"
	"path/filepath"

	"github.com/danjacques/netcompress/capture"
	"github.com/danjacques/netcompress/codec"
	"github.com/danjacques/netcompress/config"
	"github.com/danjacques/netcompress/dictionary"
	"github.com/danjacques/netcompress/protocol"
	"github.com/danjacques/netcompress/support/logging"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrFatal is the cause of every error returned by Initialize. The host must
// not continue running the connection, since it would not be in the
// compression state its configuration demands.
var ErrFatal = errors.New("fatal packet handler error")

func fatalf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(ErrFatal, "%s: %s", fmt.Sprintf(format, args...), err)
}

// State is a Handler's operating state.
type State int

const (
	// StateUninitialized is a Handler that has not been initialized.
	StateUninitialized State = iota
	// StateDisabled passes packets through unmodified.
	StateDisabled
	// StateCapturing records packets to capture sinks.
	StateCapturing
	// StateRelease compresses and decompresses packets.
	StateRelease
	// StateClosed is a Handler that has been closed. It passes packets through
	// unmodified.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateDisabled:
		return "Disabled"
	case StateCapturing:
		return "Capturing"
	case StateRelease:
		return "Release"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Handler is a connection's packet compression handler.
//
// Handler is not safe for concurrent use. Its packet methods must be called
// in packet order.
type Handler struct {
	opts  Options
	log   logging.L
	state State

	// Release mode.
	serverDict *dictionary.Dictionary
	clientDict *dictionary.Dictionary
	out        link
	in         link

	// Capturing mode. Nil on client endpoints.
	outSink capture.Sink
	inSink  capture.Sink
}

// link is the codec context for one direction of a connection.
type link struct {
	window *codec.SharedWindow
	state  *codec.State
}

// New returns a new, uninitialized Handler.
func New(opts Options) *Handler {
	prefix := "netcompress " + opts.Role.String()
	if opts.ID != "" {
		prefix += " " + opts.ID
	}

	return &Handler{
		opts: opts,
		log:  logging.Prefixed(opts.Logger, prefix),
	}
}

// State returns the Handler's current state.
func (h *Handler) State() State { return h.state }

// Role returns the Handler's endpoint role.
func (h *Handler) Role() Role { return h.opts.Role }

// active returns true if handlers in state s are counted as active.
func (s State) active() bool {
	return s == StateDisabled || s == StateCapturing || s == StateRelease
}

func (h *Handler) setState(s State) {
	if h.state.active() {
		handlerStateGauge.WithLabelValues(h.state.String()).Dec()
	}
	h.state = s
	if s.active() {
		handlerStateGauge.WithLabelValues(s.String()).Inc()
	}
}

// Initialize selects the Handler's mode and prepares it.
//
// Any error returned by Initialize has ErrFatal as its cause.
func (h *Handler) Initialize() error {
	if h.state != StateUninitialized {
		return errors.Wrapf(ErrFatal, "handler is already %s", h.state)
	}

	settings := &h.opts.Settings
	if !settings.Enabled {
		h.log.Debugf("Packet compression is disabled.")
		h.setState(StateDisabled)
		return nil
	}

	mode, err := settings.ResolveMode()
	if err != nil {
		h.log.Warnf("Invalid mode (%s), using %s.", err, mode)
	}
	if h.opts.ForceCapture {
		mode = config.ModeCapturing
	}
	if mode == config.ModeCapturing && !h.opts.Capabilities.Capture {
		h.log.Warnf("Capturing is not supported by this deployment, using %s.", config.ModeRelease)
		mode = config.ModeRelease
	}

	switch mode {
	case config.ModeCapturing:
		if err := h.initCapturing(); err != nil {
			return err
		}
		h.setState(StateCapturing)

	default:
		if err := h.initRelease(); err != nil {
			return err
		}
		h.setState(StateRelease)
	}

	h.log.Infof("Initialized in %s mode.", h.state)
	return nil
}

func (h *Handler) initCapturing() error {
	// Only the server captures; it sees the traffic of every client.
	if h.opts.Role != RoleServer {
		return nil
	}

	sinks := h.opts.Sinks
	if sinks == nil {
		sinks = capture.FileSinks{Logger: h.log}
	}

	base := h.opts.Settings.CaptureBaseFilename
	if base == "" {
		base = config.DefaultCaptureBaseFilename
	}
	if h.opts.ID != "" {
		base += "_" + h.opts.ID
	}

	open := func(dir capture.Direction) (capture.Sink, error) {
		md := capture.NewMetadata(h.opts.Role.String(), dir)
		s, err := sinks.OpenSink(h.opts.CaptureDir, base+"_"+string(dir), md)
		if err != nil {
			return nil, fatalf(err, "opening %s capture", dir)
		}
		return s, nil
	}

	var err error
	if h.inSink, err = open(capture.DirectionIncoming); err != nil {
		return err
	}
	if h.outSink, err = open(capture.DirectionOutgoing); err != nil {
		_ = h.inSink.Close()
		h.inSink = nil
		return err
	}
	return nil
}

// resolveDictionaries returns the server and client dictionary paths.
func (h *Handler) resolveDictionaries() (dictionary.Paths, error) {
	settings := &h.opts.Settings

	if settings.UseDictionaryIfPresent {
		rel := h.opts.DictionaryDir
		if rel == "" {
			rel = DefaultDictionaryDir
		}
		dir, err := dictionary.ResolveContentPath(h.opts.ContentRoot, rel)
		if err != nil {
			return dictionary.Paths{}, fatalf(err, "resolving dictionary directory")
		}

		paths, warnings, err := dictionary.Discover(dir, h.opts.Classify)
		switch errors.Cause(err) {
		case nil:
			for _, w := range warnings {
				h.log.Warn(w)
			}
			return paths, nil

		case dictionary.ErrNoDictionaries:
			h.log.Infof("No dictionaries found in %q, using configured paths.", dir)

		default:
			return dictionary.Paths{}, fatalf(err, "discovering dictionaries")
		}
	}

	resolve := func(role, rel string) (string, error) {
		if rel == "" {
			return "", errors.Wrapf(ErrFatal, "no %s dictionary configured", role)
		}
		path, err := dictionary.ResolveContentPath(h.opts.ContentRoot, rel)
		if err != nil {
			return "", fatalf(err, "resolving %s dictionary", role)
		}
		return path, nil
	}

	var paths dictionary.Paths
	var err error
	if paths.Server, err = resolve("server", settings.ServerDictionary); err != nil {
		return paths, err
	}
	if paths.Client, err = resolve("client", settings.ClientDictionary); err != nil {
		return paths, err
	}
	return paths, nil
}

func (h *Handler) initRelease() error {
	if h.opts.Store == nil {
		return errors.Wrap(ErrFatal, "no dictionary store")
	}

	paths, err := h.resolveDictionaries()
	if err != nil {
		return err
	}

	if h.serverDict, err = h.opts.Store.LoadOrGet(paths.Server); err != nil {
		return fatalf(err, "loading server dictionary")
	}
	if h.clientDict, err = h.opts.Store.LoadOrGet(paths.Client); err != nil {
		h.opts.Store.Release(h.serverDict)
		h.serverDict = nil
		return fatalf(err, "loading client dictionary")
	}

	// Each endpoint sends with its own role's dictionary and receives with its
	// peer's.
	own, peer := h.serverDict, h.clientDict
	if h.opts.Role == RoleClient {
		own, peer = peer, own
	}
	h.out = link{window: own.SharedWindow(), state: own.InitialState()}
	h.in = link{window: peer.SharedWindow(), state: peer.InitialState()}

	h.log.Debugf("Using server dictionary %q and client dictionary %q.",
		filepath.Base(h.serverDict.Path()), filepath.Base(h.clientDict.Path()))
	return nil
}

// ProtocolOverheadBits returns the worst-case number of bits the Handler adds
// to a packet.
func (h *Handler) ProtocolOverheadBits() int {
	if h.state != StateRelease {
		return 0
	}
	return protocol.LengthBits(protocol.MaxPacketSize)
}

// BitAlignment returns the bit alignment of the Handler's overhead.
func (h *Handler) BitAlignment() int { return h.ProtocolOverheadBits() % 8 }

// ResetsBitAlignment returns true, since the Handler always leaves packets
// byte-aligned.
func (h *Handler) ResetsBitAlignment() bool { return true }

// Close releases the Handler's resources. In Capturing mode, capture sinks are
// finalized; in Release mode, dictionaries are returned to the Store.
//
// After Close, the Handler passes packets through unmodified.
func (h *Handler) Close() error {
	var merr *multierror.Error

	for _, s := range []*capture.Sink{&h.inSink, &h.outSink} {
		if *s == nil {
			continue
		}
		if err := (*s).Close(); err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, "closing capture"))
		}
		*s = nil
	}

	for _, d := range []**dictionary.Dictionary{&h.serverDict, &h.clientDict} {
		if *d == nil {
			continue
		}
		h.opts.Store.Release(*d)
		*d = nil
	}
	h.out, h.in = link{}, link{}

	h.setState(StateClosed)
	return merr.ErrorOrNil()
}
