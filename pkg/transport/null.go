// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package transport

import (
	"context"

	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

// Null is the transport installed when neither TPMesh nor Direct probed
// successfully. Every operation except Start/Stop fails with NoDevice,
// matching the session's "mode probe failure is non-fatal" policy.
type Null struct {
	stats
	running bool
}

// NewNull returns a Null transport.
func NewNull() *Null {
	return &Null{}
}

func (n *Null) Start(ctx context.Context) error {
	n.running = true
	return nil
}

func (n *Null) Stop() error {
	n.running = false
	return nil
}

func (n *Null) Send(data []byte) error {
	return xserr.New(xserr.NoDevice, "null transport has no device")
}

func (n *Null) Probe(ctx context.Context) error {
	return xserr.New(xserr.NoDevice, "null transport has no device")
}

func (n *Null) Configure(cell uint8, power int8) error {
	return xserr.New(xserr.NoDevice, "null transport has no device")
}

func (n *Null) SetReceiveCallback(fn func([]byte)) {}

func (n *Null) IsRunning() bool {
	return n.running
}

func (n *Null) Stats() Stats {
	return n.stats.snapshot()
}
