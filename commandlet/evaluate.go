// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package commandlet

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/danjacques/netcompress/capture"
	"github.com/danjacques/netcompress/config"
	"github.com/danjacques/netcompress/dictionary"
	"github.com/danjacques/netcompress/handler"
	"github.com/danjacques/netcompress/protocol"
	"github.com/danjacques/netcompress/stats"
	"github.com/danjacques/netcompress/support/fmtutil"

	"github.com/pkg/errors"
)

// splitRoot splits path into a filesystem root and a path relative to it, so
// that an arbitrary file can be named as a content path.
func splitRoot(path string) (string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	vol := filepath.VolumeName(abs)
	return vol + string(filepath.Separator), strings.TrimLeft(abs[len(vol):], string(filepath.Separator)), nil
}

// contentPath resolves a relative path against the tool's content root.
func (a *app) contentPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.contentRoot, path)
}

// senderRole returns the role that sent the packets in a capture.
func senderRole(md *capture.Metadata) (handler.Role, error) {
	var recorder handler.Role
	switch md.Role {
	case handler.RoleServer.String():
		recorder = handler.RoleServer
	case handler.RoleClient.String():
		recorder = handler.RoleClient
	default:
		return 0, errors.Errorf("unknown recording role %q", md.Role)
	}

	switch md.Direction {
	case capture.DirectionOutgoing:
		return recorder, nil
	case capture.DirectionIncoming:
		return recorder.Peer(), nil
	default:
		return 0, errors.Errorf("unknown capture direction %q", md.Direction)
	}
}

func (a *app) evaluate(serverPath, clientPath string, captures []string) error {
	root, serverRel, err := splitRoot(a.contentPath(serverPath))
	if err != nil {
		return err
	}
	clientRoot, clientRel, err := splitRoot(a.contentPath(clientPath))
	if err != nil {
		return err
	}
	if clientRoot != root {
		return errors.Errorf("dictionaries must share a filesystem root (%q, %q)", root, clientRoot)
	}

	store := dictionary.Store{Logger: a.log}
	defer func() {
		if leaked := store.Close(); len(leaked) > 0 {
			a.log.Errorf("Dictionaries leaked: %s", strings.Join(leaked, ", "))
		}
	}()

	agg := stats.New()
	base := handler.Options{
		Settings: config.Settings{
			Enabled:          true,
			Mode:             config.ModeRelease.String(),
			ServerDictionary: serverRel,
			ClientDictionary: clientRel,
		},
		Capabilities: handler.Development,
		Store:        &store,
		ContentRoot:  root,
		Stats:        agg,
		Logger:       a.log,
	}

	for _, path := range captures {
		opts := base
		opts.ID = filepath.Base(path)

		start := time.Now()
		if err := a.evaluateCapture(path, opts); err != nil {
			return errors.Wrapf(err, "evaluating %q", path)
		}

		snap := agg.UpdateStats(time.Since(start))
		printSnapshot(a.stdout, path, &snap)
	}

	lifetime := agg.Lifetime()
	printSnapshot(a.stdout, "All captures", &stats.Snapshot{Totals: lifetime})
	return nil
}

func (a *app) evaluateCapture(path string, opts handler.Options) error {
	r, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	sendRole, err := senderRole(r.Metadata())
	if err != nil {
		return err
	}

	opts.Role = sendRole
	sender := handler.New(opts)
	opts.Role = sendRole.Peer()
	receiver := handler.New(opts)
	for _, h := range []*handler.Handler{sender, receiver} {
		if err := h.Initialize(); err != nil {
			return err
		}
		defer func(h *handler.Handler) {
			if err := h.Close(); err != nil {
				a.log.Errorf("Closing %s handler: %s", h.Role(), err)
			}
		}(h)
	}

	mismatches := 0
	for {
		data, err := r.ReadPacket()
		switch err {
		case nil:
		case io.EOF:
			if mismatches > 0 {
				a.log.Errorf("%d of %d packet(s) in %q did not round-trip.", mismatches, r.NumPackets(), path)
			}
			return nil
		default:
			return err
		}

		if len(data) >= protocol.MaxPacketSize {
			a.log.Warnf("Skipping packet #%d of %q: %d bytes is too large.", r.NumPackets()-1, path, len(data))
			continue
		}

		pkt := protocol.NewPacket(append([]byte(nil), data...))
		sender.Outgoing(pkt)
		receiver.Incoming(pkt)
		if pkt.IsError() || !bytes.Equal(pkt.Bytes(), data) {
			if mismatches == 0 {
				a.log.Errorf("Packet #%d of %q did not round-trip: %s", r.NumPackets()-1, path, fmtutil.PacketHex(data))
			}
			mismatches++
		}
	}
}
