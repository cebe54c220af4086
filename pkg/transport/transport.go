// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

// Package transport implements the three X-Slot transports (TPMesh,
// Direct, Null) behind one capability interface, per the design notes'
// preference for a single interface over a deep inheritance hierarchy.
package transport

import (
	"context"
	"sync/atomic"
)

// Transport is the capability set every X-Slot transport implements.
// The session owns exactly one instance at a time.
type Transport interface {
	Start(ctx context.Context) error
	Stop() error
	Send(data []byte) error
	Probe(ctx context.Context) error
	Configure(cell uint8, power int8) error
	SetReceiveCallback(fn func([]byte))
	IsRunning() bool
	Stats() Stats
}

// stats holds the atomic counters backing Stats. It is embedded by every
// transport implementation.
type stats struct {
	framesReceived  atomic.Uint64
	crcFailures     atomic.Uint64
	reframeResyncs  atomic.Uint64
}

// Stats is a point-in-time snapshot of a transport's health counters,
// useful for the monitor TUI and the CBOR diagnostic snapshot. Counting
// CRC failures at this layer is the optional observability hook noted
// for structural wire errors that are otherwise dropped silently.
type Stats struct {
	FramesReceived uint64
	CRCFailures    uint64
	ReframeResyncs uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		FramesReceived: s.framesReceived.Load(),
		CRCFailures:    s.crcFailures.Load(),
		ReframeResyncs: s.reframeResyncs.Load(),
	}
}
