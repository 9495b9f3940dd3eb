// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package handler

import (
	"fmt"

	"github.com/danjacques/netcompress/capture"
	"github.com/danjacques/netcompress/config"
	"github.com/danjacques/netcompress/dictionary"
	"github.com/danjacques/netcompress/stats"
	"github.com/danjacques/netcompress/support/logging"
)

// DefaultDictionaryDir is the directory, relative to the content root, that
// is scanned for dictionaries when discovery is enabled.
const DefaultDictionaryDir = "Dictionaries"

// Role is the role of a connection endpoint.
type Role int

const (
	// RoleServer is the server end of a connection.
	RoleServer Role = iota
	// RoleClient is the client end of a connection.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "Server"
	case RoleClient:
		return "Client"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Peer returns the role of the other end of the connection.
func (r Role) Peer() Role {
	if r == RoleServer {
		return RoleClient
	}
	return RoleServer
}

// Capabilities are the features a deployment supports.
type Capabilities struct {
	// Capture allows Capturing mode. Without it, a Capturing configuration
	// falls back to Release.
	Capture bool
	// Diagnostics enables per-packet error logging. Without it, per-packet
	// errors are only counted.
	Diagnostics bool
}

var (
	// Shipping are the capabilities of a production deployment.
	Shipping = Capabilities{}
	// Development are the capabilities of a development deployment.
	Development = Capabilities{Capture: true, Diagnostics: true}
)

// Options configures a Handler.
type Options struct {
	// Role is the role of this connection endpoint.
	Role Role
	// ID identifies the connection in logs and capture file names. It may be
	// empty.
	ID string

	// Settings are the handler settings.
	Settings config.Settings
	// Capabilities are the deployment's capabilities.
	Capabilities Capabilities
	// ForceCapture selects Capturing mode regardless of Settings.Mode, if the
	// deployment supports it.
	ForceCapture bool

	// Store provides dictionaries. It is required in Release mode.
	Store *dictionary.Store
	// ContentRoot is the directory that dictionary paths are resolved
	// against. Resolved paths may not leave it.
	ContentRoot string
	// DictionaryDir is the directory, relative to ContentRoot, scanned when
	// Settings.UseDictionaryIfPresent is set. If empty, DefaultDictionaryDir is
	// used.
	DictionaryDir string
	// Classify picks dictionary roles during discovery. If nil,
	// dictionary.ClassifyRole is used.
	Classify dictionary.ClassifyFunc

	// CaptureDir is the directory capture files are written to.
	CaptureDir string
	// Sinks opens capture sinks. If nil, capture files are written with
	// capture.FileSinks.
	Sinks capture.SinkFactory

	// Stats, if not nil, receives compression statistics.
	Stats *stats.Aggregator

	// Logger is the logger instance to use. If nil, no logs will be generated.
	Logger logging.L
}
