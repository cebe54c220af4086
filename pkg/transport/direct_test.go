// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/xslot-sdk/xslot-go/internal/haltest"
	"github.com/xslot-sdk/xslot-go/pkg/frame"
)

func encodeTestFrame(t *testing.T, f frame.Frame) []byte {
	t.Helper()
	buf := make([]byte, frame.MaxFrameSize)
	n, err := frame.Encode(f, buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf[:n]
}

func TestDirect_DeliversValidFrame(t *testing.T) {
	local, remote := haltest.NewPort()
	d := NewDirect(local, &haltest.Clock{}, nil)

	received := make(chan []byte, 1)
	d.SetReceiveCallback(func(b []byte) { received <- b })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { d.Stop() })

	f := frame.Frame{From: 1, To: 2, Seq: 0, Cmd: frame.Ping}
	wire := encodeTestFrame(t, f)
	remote.Write(wire)

	select {
	case got := <-received:
		if string(got) != string(wire) {
			t.Fatalf("delivered = %x, want %x", got, wire)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivered frame")
	}

	if d.Stats().FramesReceived != 1 {
		t.Errorf("FramesReceived = %d, want 1", d.Stats().FramesReceived)
	}
}

// TestDirect_ReframerWithNoise reproduces the literal end-to-end scenario:
// a stream with leading noise, then a valid frame, then noise followed by
// a frame with a corrupted CRC, then a final valid frame. The reframer
// must deliver exactly the two valid frames, in order, dropping the
// corrupted one.
func TestDirect_ReframerWithNoise(t *testing.T) {
	local, remote := haltest.NewPort()
	d := NewDirect(local, &haltest.Clock{}, nil)

	received := make(chan []byte, 8)
	d.SetReceiveCallback(func(b []byte) {
		cp := make([]byte, len(b))
		copy(cp, b)
		received <- cp
	})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { d.Stop() })

	first := encodeTestFrame(t, frame.Frame{From: 0x00FE, To: 0x0001, Seq: 0, Cmd: frame.Pong})
	corrupted := encodeTestFrame(t, frame.Frame{From: 0x00FE, To: 0x0001, Seq: 0, Cmd: frame.Pong})
	corrupted[len(corrupted)-1] ^= 0xFF
	last := encodeTestFrame(t, frame.Frame{From: 0x00FE, To: 0x0001, Seq: 0, Cmd: frame.Pong})

	var stream []byte
	stream = append(stream, 'Z', 'Z')
	stream = append(stream, first...)
	stream = append(stream, 'B', 'B', 'C', 'C')
	stream = append(stream, corrupted...)
	stream = append(stream, last...)

	go remote.Write(stream)

	var got [][]byte
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case b := <-received:
			got = append(got, b)
		case <-deadline:
			t.Fatalf("timed out after receiving %d frames, want 2", len(got))
		}
	}

	if len(got) != 2 {
		t.Fatalf("delivered %d frames, want exactly 2", len(got))
	}
	if string(got[0]) != string(first) {
		t.Errorf("first delivered frame mismatch")
	}
	if string(got[1]) != string(last) {
		t.Errorf("second delivered frame mismatch")
	}

	select {
	case extra := <-received:
		t.Fatalf("received unexpected third frame: %x", extra)
	case <-time.After(50 * time.Millisecond):
	}

	if d.Stats().CRCFailures == 0 {
		t.Error("expected at least one counted CRC failure for the corrupted frame")
	}
}

func TestDirect_Probe_DetectsSync(t *testing.T) {
	local, remote := haltest.NewPort()
	d := NewDirect(local, &haltest.Clock{}, nil)

	go remote.Write([]byte{frame.Sync, 0, 0})

	if err := d.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
}

func TestDirect_Probe_TimesOutWithoutSync(t *testing.T) {
	local, remote := haltest.NewPort()
	d := NewDirect(local, &haltest.Clock{}, nil)
	_ = remote

	err := d.Probe(context.Background())
	if err == nil {
		t.Fatal("expected Probe to fail when no sync byte arrives")
	}
}
