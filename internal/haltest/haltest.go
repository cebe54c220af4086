// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

// Package haltest provides an in-memory hal.Provider for tests: ports are
// connected io.Pipe pairs and the clock is a settable fake instead of
// wall-clock time.
package haltest

import (
	"io"
	"sync"

	"github.com/xslot-sdk/xslot-go/internal/hal"
)

// Clock is a manually advanced hal.Clock for deterministic tests.
type Clock struct {
	mu  sync.Mutex
	now int64
}

// NowMs returns the clock's current value.
func (c *Clock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the clock's current value.
func (c *Clock) Set(ms int64) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

// Advance moves the clock forward by delta milliseconds.
func (c *Clock) Advance(delta int64) {
	c.mu.Lock()
	c.now += delta
	c.mu.Unlock()
}

// Port is an in-memory hal.Port backed by two pipes: Remote() exposes the
// other end, so a test can write bytes the code under test will read, and
// read bytes the code under test wrote.
type Port struct {
	readR *io.PipeReader
	readW *io.PipeWriter
	writeR *io.PipeReader
	writeW *io.PipeWriter
}

// NewPort creates a connected pair of in-memory ports: p is handed to the
// code under test, and the returned Remote is driven by the test.
func NewPort() (p *Port, remote *Port) {
	toCode := newPipe()
	toTest := newPipe()
	p = &Port{readR: toCode.r, readW: toCode.w, writeR: toTest.r, writeW: toTest.w}
	remote = &Port{readR: toTest.r, readW: toTest.w, writeR: toCode.r, writeW: toCode.w}
	return p, remote
}

type pipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newPipe() pipe {
	r, w := io.Pipe()
	return pipe{r: r, w: w}
}

func (p *Port) Read(b []byte) (int, error)  { return p.readR.Read(b) }
func (p *Port) Write(b []byte) (int, error) { return p.writeW.Write(b) }
func (p *Port) Flush() error                { return nil }

// Close closes both directions of this end of the pipe pair.
func (p *Port) Close() error {
	_ = p.readR.Close()
	_ = p.writeW.Close()
	return nil
}

// Provider is a hal.Provider backed entirely by in-memory ports and a
// fake clock, for use in tests that need hal.Provider without touching
// real hardware.
type Provider struct {
	Clk   *Clock
	ports map[string]*Port
	mu    sync.Mutex
}

// NewProvider returns an empty fake provider. Use Register to wire in a
// port for a given name before the code under test calls OpenPort.
func NewProvider() *Provider {
	return &Provider{Clk: &Clock{}, ports: make(map[string]*Port)}
}

// Register makes port available under name for a subsequent OpenPort.
func (p *Provider) Register(name string, port *Port) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ports[name] = port
}

// OpenPort returns the port registered under name.
func (p *Provider) OpenPort(name string, baud uint32) (hal.Port, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	port, ok := p.ports[name]
	if !ok {
		return nil, io.ErrClosedPipe
	}
	return port, nil
}

// Clock returns the fake clock.
func (p *Provider) Clock() hal.Clock {
	return p.Clk
}
