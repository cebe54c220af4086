// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/xslot-sdk/xslot-go/internal/hal"
	"github.com/xslot-sdk/xslot-go/internal/ringbuf"
	"github.com/xslot-sdk/xslot-go/pkg/frame"
)

const directReadBufSize = 256
const directRingHint = 256

// Direct carries raw X-Slot frames over a UART with no AT layer. Its
// reader goroutine reframes the byte stream per the sync-byte + LEN +
// CRC algorithm, resynchronizing one byte at a time on any structural or
// CRC failure. Grounded on kabili207-meshcore-go/serial.go's
// processFrames/findMagic resync loop, generalized from a 2-byte magic
// and Fletcher-16 checksum to X-Slot's single sync byte and CRC-16.
type Direct struct {
	stats

	port   hal.Port
	clock  hal.Clock
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	recvFn   func([]byte)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDirect creates a Direct transport over port.
func NewDirect(port hal.Port, clock hal.Clock, logger *slog.Logger) *Direct {
	if logger == nil {
		logger = slog.Default()
	}
	return &Direct{port: port, clock: clock, logger: logger.WithGroup("transport.direct")}
}

func (d *Direct) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	go d.readLoop(ctx)
	return nil
}

func (d *Direct) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.stopCh)
	doneCh := d.doneCh
	d.mu.Unlock()

	err := d.port.Close()
	<-doneCh
	return err
}

func (d *Direct) Send(data []byte) error {
	_, err := d.port.Write(data)
	return err
}

// Probe opens the port's data stream and waits up to 500ms for a sync
// byte, confirming there's a device on the other end speaking the X-Slot
// framing.
func (d *Direct) Probe(ctx context.Context) error {
	type readResult struct {
		b   [1]byte
		n   int
		err error
	}
	ch := make(chan readResult, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		var r readResult
		for {
			r.n, r.err = d.port.Read(r.b[:])
			if r.err != nil || (r.n == 1 && r.b[0] == frame.Sync) {
				break
			}
			select {
			case <-done:
				return
			default:
			}
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return probeFailed()
		}
		return nil
	case <-time.After(500 * time.Millisecond):
		return probeFailed()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func probeFailed() error {
	return &noSyncError{}
}

type noSyncError struct{}

func (*noSyncError) Error() string { return "direct transport: no sync byte observed within 500ms" }

func (d *Direct) Configure(cell uint8, power int8) error {
	return nil
}

func (d *Direct) SetReceiveCallback(fn func([]byte)) {
	d.mu.Lock()
	d.recvFn = fn
	d.mu.Unlock()
}

func (d *Direct) receiveCallback() func([]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recvFn
}

func (d *Direct) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Direct) Stats() Stats {
	return d.stats.snapshot()
}

func (d *Direct) readLoop(ctx context.Context) {
	defer close(d.doneCh)

	buf := make([]byte, directReadBufSize)
	ring := ringbuf.New(directRingHint)

	for {
		select {
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		n, err := d.port.Read(buf)
		if n > 0 {
			ring.Write(buf[:n])
			d.processFrames(ring)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			d.logger.Error("read error", "error", err)
			return
		}
	}
}

// processFrames implements spec §4.7's reframer steps (a)-(e) against
// the accumulated ring buffer, delivering every complete valid frame and
// advancing past whatever bytes it consumes, including single-byte
// resyncs on bad data.
func (d *Direct) processFrames(ring *ringbuf.Buffer) {
	for {
		data := ring.Bytes()

		// (a) discard bytes until 0xAA.
		idx := indexOfSync(data)
		if idx < 0 {
			ring.Advance(len(data))
			return
		}
		if idx > 0 {
			ring.Advance(idx)
			data = ring.Bytes()
		}

		// (b) require >= 10 bytes.
		if len(data) < frame.HeaderSize+2 {
			return
		}

		// (c) read LEN; if >128 drop one sync byte and restart.
		length := int(data[7])
		if length > frame.MaxDataLen {
			ring.Advance(1)
			d.reframeResyncs.Add(1)
			continue
		}

		// (d) require >= 10+LEN bytes.
		total := frame.HeaderSize + length + 2
		if len(data) < total {
			return
		}

		// (e) verify CRC; valid -> deliver and advance, invalid -> drop
		// one sync byte and restart.
		candidate := data[:total]
		if !frame.VerifyCRC(candidate) {
			d.crcFailures.Add(1)
			ring.Advance(1)
			d.reframeResyncs.Add(1)
			continue
		}

		delivered := make([]byte, total)
		copy(delivered, candidate)
		ring.Advance(total)
		d.framesReceived.Add(1)

		if fn := d.receiveCallback(); fn != nil {
			fn(delivered)
		}
	}
}

func indexOfSync(data []byte) int {
	for i, b := range data {
		if b == frame.Sync {
			return i
		}
	}
	return -1
}
