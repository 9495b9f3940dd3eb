// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Section is the config section holding netcompress settings.
const Section = "NetCompress"

// Keys of the netcompress settings.
const (
	KeyEnabled                = Section + ".Enabled"
	KeyMode                   = Section + ".Mode"
	KeyServerDictionary       = Section + ".ServerDictionary"
	KeyClientDictionary       = Section + ".ClientDictionary"
	KeyUseDictionaryIfPresent = Section + ".UseDictionaryIfPresent"
	KeyCaptureBaseFilename    = Section + ".CaptureBaseFilename"
)

// Default values written by EnableDefaults.
const (
	DefaultServerDictionary    = "Dictionaries/Output.udic"
	DefaultClientDictionary    = "Dictionaries/Input.udic"
	DefaultCaptureBaseFilename = "NetCompress"
)

// Mode is the handler operating mode.
type Mode int

const (
	// ModeRelease compresses packets with trained dictionaries.
	ModeRelease Mode = iota
	// ModeCapturing records packets for dictionary training.
	ModeCapturing
)

func (m Mode) String() string {
	switch m {
	case ModeRelease:
		return "Release"
	case ModeCapturing:
		return "Capturing"
	default:
		return "Unknown"
	}
}

// ParseMode parses a mode string. Matching is case-insensitive, and the
// legacy name "Training" is accepted for ModeCapturing.
func ParseMode(v string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "release":
		return ModeRelease, nil
	case "capturing", "training":
		return ModeCapturing, nil
	default:
		return ModeRelease, errors.Errorf("unknown mode %q", v)
	}
}

// ModeFlag is a pflag.Value implementation that stores a Mode.
type ModeFlag Mode

var _ pflag.Value = (*ModeFlag)(nil)

func (mf *ModeFlag) String() string { return Mode(*mf).String() }

// Set implements pflag.Value.
func (mf *ModeFlag) Set(v string) error {
	m, err := ParseMode(v)
	if err != nil {
		return err
	}
	*mf = ModeFlag(m)
	return nil
}

// Type implements pflag.Value.
func (mf *ModeFlag) Type() string { return "config.Mode" }

// Value returns the Mode held by this flag.
func (mf ModeFlag) Value() Mode { return Mode(mf) }

// Settings are the netcompress settings.
type Settings struct {
	// Enabled turns the handler on. When false, packets pass through.
	Enabled bool
	// Mode is the configured mode string. See ParseMode.
	Mode string

	// ServerDictionary and ClientDictionary are dictionary paths, relative
	// to the content root.
	ServerDictionary string
	ClientDictionary string
	// UseDictionaryIfPresent enables discovering dictionaries by scanning the
	// dictionary directory, instead of using the explicit paths.
	UseDictionaryIfPresent bool

	// CaptureBaseFilename is the base name of capture files.
	CaptureBaseFilename string
}

// DefaultSettings returns the settings used for absent keys.
func DefaultSettings() Settings {
	return Settings{
		Mode:                ModeRelease.String(),
		CaptureBaseFilename: DefaultCaptureBaseFilename,
	}
}

// ResolveMode parses the Mode string.
func (s *Settings) ResolveMode() (Mode, error) { return ParseMode(s.Mode) }

// LoadSettings reads Settings from v. Absent keys keep their default values.
func LoadSettings(v Values) Settings {
	s := DefaultSettings()
	if b, ok := v.GetBool(KeyEnabled); ok {
		s.Enabled = b
	}
	if str, ok := v.GetString(KeyMode); ok && str != "" {
		s.Mode = str
	}
	if str, ok := v.GetString(KeyServerDictionary); ok {
		s.ServerDictionary = str
	}
	if str, ok := v.GetString(KeyClientDictionary); ok {
		s.ClientDictionary = str
	}
	if b, ok := v.GetBool(KeyUseDictionaryIfPresent); ok {
		s.UseDictionaryIfPresent = b
	}
	if str, ok := v.GetString(KeyCaptureBaseFilename); ok && str != "" {
		s.CaptureBaseFilename = str
	}
	return s
}

// Save writes s to v.
func (s *Settings) Save(v Values) {
	v.SetBool(KeyEnabled, s.Enabled)
	v.SetString(KeyMode, s.Mode)
	v.SetString(KeyServerDictionary, s.ServerDictionary)
	v.SetString(KeyClientDictionary, s.ClientDictionary)
	v.SetBool(KeyUseDictionaryIfPresent, s.UseDictionaryIfPresent)
	v.SetString(KeyCaptureBaseFilename, s.CaptureBaseFilename)
}

// EnableDefaults enables netcompress in v and installs default values for
// every other setting that is not already present.
func EnableDefaults(v Values) {
	v.SetBool(KeyEnabled, true)

	setString := func(key, value string) {
		if _, ok := v.GetString(key); !ok {
			v.SetString(key, value)
		}
	}
	setString(KeyMode, ModeRelease.String())
	setString(KeyServerDictionary, DefaultServerDictionary)
	setString(KeyClientDictionary, DefaultClientDictionary)
	setString(KeyCaptureBaseFilename, DefaultCaptureBaseFilename)

	if _, ok := v.GetBool(KeyUseDictionaryIfPresent); !ok {
		v.SetBool(KeyUseDictionaryIfPresent, true)
	}
}
