// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package transport

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/xslot-sdk/xslot-go/internal/hal"
	"github.com/xslot-sdk/xslot-go/pkg/attr"
	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

// TPMeshConfig is the mesh radio configuration applied during Start.
type TPMeshConfig struct {
	LocalAddress uint16
	Cell         uint8
	PowerDbm     int8
	LowPower     bool
	WakeupMs     uint16
}

// TPMesh is the AT-driven mesh transport. It owns an attr.Driver and
// translates outbound frame bytes into AT+SEND commands, and inbound
// +NNMI URCs back into frame bytes for the session's receive callback.
type TPMesh struct {
	stats

	driver *attr.Driver
	clock  hal.Clock
	cfg    TPMeshConfig
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	recvFn  func([]byte)
}

// NewTPMesh creates a TPMesh transport over port, configured per cfg.
func NewTPMesh(port hal.Port, clock hal.Clock, cfg TPMeshConfig, logger *slog.Logger) *TPMesh {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.WithGroup("transport.tpmesh")
	t := &TPMesh{
		driver: attr.NewDriver(port, clock, logger),
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
	t.driver.SetURCHandler(t.handleURC)
	return t
}

// Start launches the AT driver's reader, probes the module, and applies
// the configured address/cell/power/wakeup/low-power settings in order.
func (t *TPMesh) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if err := t.driver.Start(ctx); err != nil {
		return err
	}
	if err := t.driver.Probe(ctx); err != nil {
		t.driver.Stop()
		return err
	}
	if err := t.driver.SetAddress(ctx, t.cfg.LocalAddress); err != nil {
		t.driver.Stop()
		return err
	}
	if err := t.driver.SetCell(ctx, t.cfg.Cell); err != nil {
		t.driver.Stop()
		return err
	}
	if err := t.driver.SetPower(ctx, t.cfg.PowerDbm); err != nil {
		t.driver.Stop()
		return err
	}
	if t.cfg.WakeupMs != 0 {
		if err := t.driver.SetWakeup(ctx, t.cfg.WakeupMs); err != nil {
			t.driver.Stop()
			return err
		}
	}
	if err := t.driver.SetLowPower(ctx, t.cfg.LowPower, false); err != nil {
		t.driver.Stop()
		return err
	}

	t.mu.Lock()
	t.running = true
	t.mu.Unlock()
	return nil
}

func (t *TPMesh) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.mu.Unlock()
	return t.driver.Stop()
}

// Send extracts the destination address from bytes[3:5] of an already
// encoded X-Slot frame (the TO field, little-endian per the wire
// header) and fires it as a best-effort AT send.
func (t *TPMesh) Send(data []byte) error {
	if len(data) < 5 {
		return xserr.New(xserr.InvalidParam, "tpmesh: frame too short to carry a destination")
	}
	dest := binary.LittleEndian.Uint16(data[3:5])
	return t.driver.SendData(context.Background(), dest, data, attr.SendBestEffort)
}

func (t *TPMesh) Probe(ctx context.Context) error {
	return t.driver.Probe(ctx)
}

func (t *TPMesh) Configure(cell uint8, power int8) error {
	ctx := context.Background()
	if err := t.driver.SetCell(ctx, cell); err != nil {
		return err
	}
	return t.driver.SetPower(ctx, power)
}

func (t *TPMesh) SetReceiveCallback(fn func([]byte)) {
	t.mu.Lock()
	t.recvFn = fn
	t.mu.Unlock()
}

func (t *TPMesh) receiveCallback() func([]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recvFn
}

func (t *TPMesh) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *TPMesh) Stats() Stats {
	return t.stats.snapshot()
}

// handleURC is the driver's URC callback. Only +NNMI carries a frame;
// every other URC is logged at debug level for diagnostics.
func (t *TPMesh) handleURC(urc attr.URC) {
	if urc.Kind != attr.URCNNMI {
		t.logger.Debug("urc", "kind", urc.Kind, "raw", urc.Raw)
		return
	}
	t.framesReceived.Add(1)
	if fn := t.receiveCallback(); fn != nil {
		fn(urc.Data)
	}
}
