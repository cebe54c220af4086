// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

// Package session implements the X-Slot session manager: transport mode
// probing, outbound message construction, inbound dispatch with
// automatic PONG/WRITE_ACK replies, and the node table's timeout sweep.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/xslot-sdk/xslot-go/internal/hal"
	"github.com/xslot-sdk/xslot-go/pkg/bacnet"
	"github.com/xslot-sdk/xslot-go/pkg/frame"
	"github.com/xslot-sdk/xslot-go/pkg/message"
	"github.com/xslot-sdk/xslot-go/pkg/nodetable"
	"github.com/xslot-sdk/xslot-go/pkg/transport"
	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

// maxParseObjects bounds how many objects a single inbound REPORT or
// RESPONSE payload can decode into; 128 bytes of payload can never
// contain more objects than this regardless of format.
const maxParseObjects = 64

// Session owns a transport, the node table, the sequence counter, and
// the host's upcall slots. Exactly one transport is installed at a time,
// selected by Start's probe order.
type Session struct {
	cfg      Config
	hal      hal.Provider
	logger   *slog.Logger

	mu        sync.Mutex
	mode      Mode
	running   bool
	transport transport.Transport
	nodes     *nodetable.Table
	seq       atomic.Uint32

	upcallMu     sync.RWMutex
	onReport     func(from uint16, objs []bacnet.Object)
	onWrite      func(from uint16, obj bacnet.Object)
	onRawData    func(from uint16, cmd frame.Command, payload []byte)
	onNodeStatus func(addr uint16, online bool)

	heartbeatStop chan struct{}
	heartbeatDone chan struct{}
}

// New creates a Session over the given configuration and hardware
// provider. The session does nothing until Start is called.
func New(cfg Config, provider hal.Provider, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	clock := provider.Clock()
	return &Session{
		cfg:    cfg,
		hal:    provider,
		logger: logger.WithGroup("session"),
		nodes:  nodetable.New(cfg.NodeTableCapacity, clock),
	}
}

// Start opens the configured UART and probes transports in order:
// TPMesh, then Direct, then Null. The first to probe successfully is
// installed and its mode recorded. Falling through to Null is non-fatal:
// the session still starts, running in ModeNone, and Start returns
// xserr.NoDevice once to report it.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	clock := s.hal.Clock()
	tp, mode, probeErr := s.probeTransports(ctx, clock)
	tp.SetReceiveCallback(s.onFrameBytes)

	s.mu.Lock()
	s.transport = tp
	s.mode = mode
	s.running = true
	s.mu.Unlock()

	if s.cfg.EnableHeartbeat {
		s.startHeartbeat()
	}

	return probeErr
}

// probeTransports tries TPMesh then Direct, each over its own freshly
// opened port: both attr.Driver.Stop and transport.Direct.Stop
// unconditionally close the port they were given on failure, so a
// failed probe must not leave a half-closed handle for the next one to
// inherit.
func (s *Session) probeTransports(ctx context.Context, clock hal.Clock) (transport.Transport, Mode, error) {
	if !s.cfg.ForceDirect {
		if port, err := s.hal.OpenPort(s.cfg.UARTPort, s.cfg.baudRate()); err == nil {
			tpMesh := transport.NewTPMesh(port, clock, toTPMeshConfig(s.cfg), s.logger)
			if err := tpMesh.Start(ctx); err == nil {
				return tpMesh, ModeWireless, nil
			}
			s.logger.Debug("tpmesh probe failed")
		} else {
			s.logger.Debug("tpmesh port open failed", "error", err)
		}
	}

	if port, err := s.hal.OpenPort(s.cfg.UARTPort, s.cfg.baudRate()); err == nil {
		direct := transport.NewDirect(port, clock, s.logger)
		if err := direct.Start(ctx); err == nil {
			if err := direct.Probe(ctx); err == nil {
				return direct, ModeHmi, nil
			}
			direct.Stop()
		}
	} else {
		s.logger.Debug("direct port open failed", "error", err)
	}

	null := transport.NewNull()
	null.Start(ctx)
	return null, ModeNone, xserr.New(xserr.NoDevice, "no transport responded to probe")
}

// toTPMeshConfig adapts session.Config's mesh-relevant fields into
// transport.TPMeshConfig.
func toTPMeshConfig(cfg Config) transport.TPMeshConfig {
	return transport.TPMeshConfig{
		LocalAddress: cfg.LocalAddr,
		Cell:         cfg.CellID,
		PowerDbm:     cfg.PowerDbm,
		LowPower:     cfg.PowerMode == PowerLow,
		WakeupMs:     cfg.WakeupPeriodMs,
	}
}

// Stop halts the heartbeat ticker (if running), stops the transport, and
// marks the session not running. No further upcalls occur after Stop
// returns.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	tp := s.transport
	s.mu.Unlock()

	s.stopHeartbeat()

	if tp != nil {
		return tp.Stop()
	}
	return nil
}

// Mode reports which transport the session is currently running.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// IsRunning reports whether Start has succeeded and Stop has not yet
// been called.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) nextSeq() uint8 {
	return uint8(s.seq.Add(1))
}

func (s *Session) currentTransport() transport.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

func (s *Session) sendFrame(f frame.Frame) error {
	tp := s.currentTransport()
	if tp == nil {
		return xserr.New(xserr.NotInitialized, "session not started")
	}
	buf := make([]byte, frame.MaxFrameSize)
	n, err := frame.Encode(f, buf)
	if err != nil {
		return err
	}
	return tp.Send(buf[:n])
}

// Report sends objs to the hub as an incremental-format batch.
func (s *Session) Report(objs []bacnet.Object) error {
	f, err := message.BuildReport(s.cfg.LocalAddr, AddrHub, s.nextSeq(), objs, true)
	if err != nil {
		return err
	}
	return s.sendFrame(f)
}

// Write sends a WRITE of obj to target.
func (s *Session) Write(target uint16, obj bacnet.Object) error {
	f, err := message.BuildWrite(s.cfg.LocalAddr, target, s.nextSeq(), obj)
	if err != nil {
		return err
	}
	return s.sendFrame(f)
}

// Query sends a QUERY for ids to target.
func (s *Session) Query(target uint16, ids []uint16) error {
	f, err := message.BuildQuery(s.cfg.LocalAddr, target, s.nextSeq(), ids)
	if err != nil {
		return err
	}
	return s.sendFrame(f)
}

// Ping sends an empty-payload PING to target.
func (s *Session) Ping(target uint16) error {
	f, err := message.BuildPing(s.cfg.LocalAddr, target, s.nextSeq())
	if err != nil {
		return err
	}
	return s.sendFrame(f)
}

// Respond sends a RESPONSE carrying objs to target, the counterpart a
// host calls after resolving a QUERY's raw-data upcall.
func (s *Session) Respond(target uint16, objs []bacnet.Object) error {
	f, err := message.BuildResponse(s.cfg.LocalAddr, target, s.nextSeq(), objs)
	if err != nil {
		return err
	}
	return s.sendFrame(f)
}

// GetNodes returns a snapshot of every node the table currently tracks.
func (s *Session) GetNodes() []nodetable.Entry {
	entries := make([]nodetable.Entry, 0, s.nodes.Len())
	s.nodes.Range(func(e nodetable.Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries
}

// IsNodeOnline reports whether addr is currently marked online.
func (s *Session) IsNodeOnline(addr uint16) bool {
	e, ok := s.nodes.Get(addr)
	return ok && e.Online
}

// CheckNodeTimeouts sweeps the node table, firing the node-status upcall
// for every online->offline transition.
func (s *Session) CheckNodeTimeouts(timeoutMs int64) {
	s.nodes.Expire(timeoutMs, func(addr uint16) {
		if fn := s.nodeStatusHandler(); fn != nil {
			fn(addr, false)
		}
	})
}

// UpdateWirelessConfig reconfigures the active transport's cell id and
// transmit power at runtime.
func (s *Session) UpdateWirelessConfig(cell uint8, power int8) error {
	tp := s.currentTransport()
	if tp == nil {
		return xserr.New(xserr.NotInitialized, "session not started")
	}
	s.cfg.CellID = cell
	s.cfg.PowerDbm = power
	return tp.Configure(cell, power)
}

// OnReport registers the upcall invoked for every parsed REPORT.
func (s *Session) OnReport(fn func(from uint16, objs []bacnet.Object)) {
	s.upcallMu.Lock()
	s.onReport = fn
	s.upcallMu.Unlock()
}

// OnWrite registers the upcall invoked for every parsed WRITE.
func (s *Session) OnWrite(fn func(from uint16, obj bacnet.Object)) {
	s.upcallMu.Lock()
	s.onWrite = fn
	s.upcallMu.Unlock()
}

// OnRawData registers the combined raw-data upcall invoked for QUERY and
// RESPONSE frames, which the session does not interpret itself.
func (s *Session) OnRawData(fn func(from uint16, cmd frame.Command, payload []byte)) {
	s.upcallMu.Lock()
	s.onRawData = fn
	s.upcallMu.Unlock()
}

// OnNodeStatus registers the upcall invoked on every online/offline
// transition, whether from Touch or from CheckNodeTimeouts.
func (s *Session) OnNodeStatus(fn func(addr uint16, online bool)) {
	s.upcallMu.Lock()
	s.onNodeStatus = fn
	s.upcallMu.Unlock()
}

func (s *Session) reportHandler() func(uint16, []bacnet.Object) {
	s.upcallMu.RLock()
	defer s.upcallMu.RUnlock()
	return s.onReport
}

func (s *Session) writeHandler() func(uint16, bacnet.Object) {
	s.upcallMu.RLock()
	defer s.upcallMu.RUnlock()
	return s.onWrite
}

func (s *Session) rawDataHandler() func(uint16, frame.Command, []byte) {
	s.upcallMu.RLock()
	defer s.upcallMu.RUnlock()
	return s.onRawData
}

func (s *Session) nodeStatusHandler() func(uint16, bool) {
	s.upcallMu.RLock()
	defer s.upcallMu.RUnlock()
	return s.onNodeStatus
}

// onFrameBytes is the transport's receive callback: it runs on the
// transport's reader goroutine, so it must never block on a host call.
// It decodes, validates addressing, touches the node table, and
// dispatches by command exactly per the inbound dispatch table,
// including the automatic PONG and WRITE_ACK replies.
func (s *Session) onFrameBytes(data []byte) {
	f, err := frame.Decode(data)
	if err != nil {
		s.logger.Debug("dropped frame", "error", err)
		return
	}
	if f.To != s.cfg.LocalAddr && f.To != AddrBroadcast {
		return
	}

	newlyOnline := s.nodes.Touch(f.From, 0)
	if newlyOnline {
		if fn := s.nodeStatusHandler(); fn != nil {
			fn(f.From, true)
		}
	}

	s.dispatch(f)
}

func (s *Session) dispatch(f frame.Frame) {
	switch f.Cmd {
	case frame.Ping:
		reply, err := message.BuildPong(s.cfg.LocalAddr, f.From, f.Seq)
		if err != nil {
			return
		}
		if err := s.sendFrame(reply); err != nil {
			s.logger.Debug("pong send failed", "error", err)
		}

	case frame.Pong:
		// no-op; Touch already recorded freshness.

	case frame.Report:
		objs, err := message.ParseReport(f.Data, maxParseObjects)
		if err != nil {
			s.logger.Debug("dropped report", "error", err)
			return
		}
		if fn := s.reportHandler(); fn != nil {
			fn(f.From, objs)
		}

	case frame.Query:
		if fn := s.rawDataHandler(); fn != nil {
			fn(f.From, frame.Query, f.Data)
		}

	case frame.Response:
		if fn := s.rawDataHandler(); fn != nil {
			fn(f.From, frame.Response, f.Data)
		}

	case frame.Write:
		obj, err := message.ParseWrite(f.Data)
		if err != nil {
			s.logger.Debug("dropped write", "error", err)
			return
		}
		if fn := s.writeHandler(); fn != nil {
			fn(f.From, obj)
		}
		ack, err := message.BuildWriteAck(s.cfg.LocalAddr, f.From, f.Seq, 0)
		if err != nil {
			return
		}
		if err := s.sendFrame(ack); err != nil {
			s.logger.Debug("write-ack send failed", "error", err)
		}

	case frame.WriteAck:
		// no-op; the outbound WRITE was fire-and-forget.

	default:
		// unknown command: drop silently.
	}
}
