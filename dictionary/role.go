// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package dictionary

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrPathEscapesRoot is returned by ResolveContentPath when a configured
	// path resolves outside of its content root.
	ErrPathEscapesRoot = errors.New("path escapes content root")

	// ErrNoDictionaries is returned by Discover when a directory holds no
	// dictionary files.
	ErrNoDictionaries = errors.New("no dictionary files found")
)

// Role is the connection role a dictionary was trained for.
type Role int

const (
	// RoleUnknown is a dictionary whose role could not be determined.
	RoleUnknown Role = iota
	// RoleServer is a dictionary trained on server-sent (output) traffic.
	RoleServer
	// RoleClient is a dictionary trained on client-sent (input) traffic.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleUnknown:
		return "Unknown"
	case RoleServer:
		return "Server"
	case RoleClient:
		return "Client"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ClassifyFunc determines the Role of a dictionary file from its name.
type ClassifyFunc func(filename string) Role

// ClassifyRole is the default ClassifyFunc.
//
// Names containing "Server" or "Output" are server dictionaries; names
// containing "Client" or "Input" are client dictionaries. A name matching
// both, or neither, is RoleUnknown.
func ClassifyRole(filename string) Role {
	base := filepath.Base(filename)
	server := strings.Contains(base, "Server") || strings.Contains(base, "Output")
	client := strings.Contains(base, "Client") || strings.Contains(base, "Input")

	switch {
	case server && !client:
		return RoleServer
	case client && !server:
		return RoleClient
	default:
		return RoleUnknown
	}
}

// Paths is a resolved pair of dictionary paths.
type Paths struct {
	Server string
	Client string
}

// Discover scans dir for dictionary files and picks a server and client
// dictionary using classify. If classify is nil, ClassifyRole is used.
//
// When the files can't be told apart, Discover falls back to using a single
// dictionary for both roles and reports why in the returned warnings. If dir
// holds no dictionary files, ErrNoDictionaries is returned.
func Discover(dir string, classify ClassifyFunc) (Paths, []string, error) {
	if classify == nil {
		classify = ClassifyRole
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*"+FileExt))
	if err != nil {
		return Paths{}, nil, errors.Wrapf(err, "scanning %q", dir)
	}
	if len(matches) == 0 {
		return Paths{}, nil, errors.Wrapf(ErrNoDictionaries, "in %q", dir)
	}
	sort.Strings(matches)

	var paths Paths
	var warnings []string
	for _, m := range matches {
		switch classify(m) {
		case RoleServer:
			if paths.Server == "" {
				paths.Server = m
			} else {
				warnings = append(warnings, fmt.Sprintf("ignoring extra server dictionary %q", m))
			}
		case RoleClient:
			if paths.Client == "" {
				paths.Client = m
			} else {
				warnings = append(warnings, fmt.Sprintf("ignoring extra client dictionary %q", m))
			}
		}
	}

	switch {
	case paths.Server != "" && paths.Client != "":
		return paths, warnings, nil
	case paths.Server != "":
		paths.Client = paths.Server
	case paths.Client != "":
		paths.Server = paths.Client
	default:
		paths.Server, paths.Client = matches[0], matches[0]
	}
	warnings = append(warnings,
		fmt.Sprintf("could not identify separate server and client dictionaries; using %q for both", paths.Server))
	return paths, warnings, nil
}

// ResolveContentPath resolves rel against the content root, requiring that
// the normalized result remain inside root.
func ResolveContentPath(root, rel string) (string, error) {
	root = filepath.Clean(root)
	resolved := filepath.Join(root, rel)

	relToRoot, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", errors.Wrapf(ErrPathEscapesRoot, "%q: %s", rel, err)
	}
	if relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrPathEscapesRoot, "%q resolves to %q", rel, resolved)
	}
	return resolved, nil
}
