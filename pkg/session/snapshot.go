// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package session

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/xslot-sdk/xslot-go/pkg/nodetable"
	"github.com/xslot-sdk/xslot-go/pkg/transport"
)

// Snapshot is a point-in-time diagnostic export of the session's mode,
// node table, and active transport health counters. It is never used
// for the wire frame and never persisted across restarts — purely an
// on-demand export for the CLI's monitor and session dump commands.
type Snapshot struct {
	Mode           string            `cbor:"mode"`
	LocalAddr      uint16            `cbor:"local_addr"`
	Nodes          []nodetable.Entry `cbor:"nodes"`
	TransportStats transport.Stats   `cbor:"transport_stats"`
}

// Snapshot captures the session's current state for diagnostic export.
func (s *Session) Snapshot() Snapshot {
	tp := s.currentTransport()
	var stats transport.Stats
	if tp != nil {
		stats = tp.Stats()
	}
	return Snapshot{
		Mode:           s.Mode().String(),
		LocalAddr:      s.cfg.LocalAddr,
		Nodes:          s.GetNodes(),
		TransportStats: stats,
	}
}

// CBOR encodes the snapshot with github.com/fxamacker/cbor/v2.
func (sn Snapshot) CBOR() ([]byte, error) {
	return cbor.Marshal(sn)
}
