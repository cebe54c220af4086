// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package hal

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// RealProvider opens actual serial ports via go.bug.st/serial and
// supplies a monotonic millisecond clock built on time.Since.
type RealProvider struct{}

// NewRealProvider returns the production hal.Provider.
func NewRealProvider() *RealProvider {
	return &RealProvider{}
}

// OpenPort opens name at the given baud rate, 8 data bits, no parity,
// one stop bit — the configuration every X-Slot transport expects.
func (p *RealProvider) OpenPort(name string, baud uint32) (Port, error) {
	mode := &serial.Mode{
		BaudRate: int(baud),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("hal: open serial port %s: %w", name, err)
	}
	return &realPort{port: port}, nil
}

// Clock returns the monotonic Clock.
func (p *RealProvider) Clock() Clock {
	return monoClock{}
}

type realPort struct {
	port serial.Port
}

func (p *realPort) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *realPort) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *realPort) Close() error                { return p.port.Close() }
func (p *realPort) Flush() error                { return p.port.ResetOutputBuffer() }

// clockEpoch anchors monoClock; time.Since reads Go's monotonic clock, so
// NowMs is milliseconds since process start and never jumps with
// wall-clock adjustments.
var clockEpoch = time.Now()

type monoClock struct{}

func (monoClock) NowMs() int64 {
	return time.Since(clockEpoch).Milliseconds()
}
