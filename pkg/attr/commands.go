// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package attr

import (
	"context"
	"fmt"
	"time"
)

// Probe sends a bare "AT" and succeeds if the module responds OK.
func (d *Driver) Probe(ctx context.Context) error {
	_, err := d.Submit(ctx, "", DefaultTimeout)
	return err
}

// SetAddress sets the module's local address.
func (d *Driver) SetAddress(ctx context.Context, addr uint16) error {
	_, err := d.Submit(ctx, fmt.Sprintf("+ADDR=%04X", addr), DefaultTimeout)
	return err
}

// SetCell sets the module's cell/network id.
func (d *Driver) SetCell(ctx context.Context, cell uint8) error {
	_, err := d.Submit(ctx, fmt.Sprintf("+CELL=%d", cell), DefaultTimeout)
	return err
}

// SetPower sets the radio transmit power in dBm.
func (d *Driver) SetPower(ctx context.Context, powerDbm int8) error {
	_, err := d.Submit(ctx, fmt.Sprintf("+POWER=%d", powerDbm), DefaultTimeout)
	return err
}

// SetBaud sets the UART baud rate the module expects going forward.
func (d *Driver) SetBaud(ctx context.Context, baud uint32) error {
	_, err := d.Submit(ctx, fmt.Sprintf("+BAUD=%d", baud), DefaultTimeout)
	return err
}

// SetWakeup sets the periodic wakeup interval in milliseconds.
func (d *Driver) SetWakeup(ctx context.Context, periodMs uint16) error {
	_, err := d.Submit(ctx, fmt.Sprintf("+WAKEUP=%d", periodMs), DefaultTimeout)
	return err
}

// QueryVersion returns the module's firmware version string.
func (d *Driver) QueryVersion(ctx context.Context) (string, error) {
	return d.queryOne(ctx, "+VER?")
}

// QueryESN returns the module's electronic serial number.
func (d *Driver) QueryESN(ctx context.Context) (string, error) {
	return d.queryOne(ctx, "+ESN?")
}

// QueryAddress returns the module's currently configured local address.
func (d *Driver) QueryAddress(ctx context.Context) (string, error) {
	return d.queryOne(ctx, "+ADDR?")
}

// QueryCell returns the module's currently configured cell id.
func (d *Driver) QueryCell(ctx context.Context) (string, error) {
	return d.queryOne(ctx, "+CELL?")
}

// QueryPower returns the module's currently configured transmit power.
func (d *Driver) QueryPower(ctx context.Context) (string, error) {
	return d.queryOne(ctx, "+POWER?")
}

func (d *Driver) queryOne(ctx context.Context, cmd string) (string, error) {
	resp, err := d.Submit(ctx, cmd, DefaultTimeout)
	if err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", nil
	}
	return resp[0], nil
}

// SendData fire-and-forgets addr/data over the mesh: the physical send's
// completion arrives later as a +SEND: URC, never as the AT command's
// own OK/ERROR (that only acknowledges the command was accepted).
func (d *Driver) SendData(ctx context.Context, addr uint16, data []byte, kind SendType) error {
	cmd := fmt.Sprintf("+SEND=%04X,%d,%s,%d", addr, len(data), hexEncodeUpper(data), uint8(kind))
	_, err := d.Submit(ctx, cmd, DefaultTimeout)
	return err
}

// SetLowPower transitions the module's power mode. The change resets the
// module, so the driver sleeps ~3s afterward and re-probes for up to 5s
// before declaring the module ready. If current already equals target,
// the set is skipped (idempotent).
func (d *Driver) SetLowPower(ctx context.Context, low bool, current bool) error {
	if low == current {
		return nil
	}
	val := 3
	if low {
		val = 2
	}
	if _, err := d.Submit(ctx, fmt.Sprintf("+LP=%d", val), DefaultTimeout); err != nil {
		return err
	}

	sleepMs(d.clock, 3000)

	deadline := d.clock.NowMs() + 5000
	for {
		if err := d.Probe(ctx); err == nil {
			return nil
		}
		if d.clock.NowMs() >= deadline {
			return fmt.Errorf("attr: module not ready within 5s after low-power change")
		}
		sleepMs(d.clock, 250)
	}
}

// sleepMs is a real wall-clock sleep; the clock parameter exists so
// tests can substitute a fake that advances instantly instead of
// blocking, without this function needing to know which.
func sleepMs(clock interface{ NowMs() int64 }, ms int64) {
	if fc, ok := clock.(interface{ Advance(int64) }); ok {
		fc.Advance(ms)
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
