// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package frame

import (
	"math/rand"
	"testing"

	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

func TestEncodeDecode_PingRoundTrip(t *testing.T) {
	f := Frame{From: 0xFFBE, To: 0xFFFE, Seq: 7, Cmd: Ping}
	buf := make([]byte, MaxFrameSize)
	n, err := Encode(f, buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0xAA, 0xBE, 0xFF, 0xFE, 0xFF, 0x07, 0x01, 0x00}
	if string(buf[:8]) != string(want) {
		t.Fatalf("header = %x, want %x", buf[:8], want)
	}

	got, err := Decode(buf[:n])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.From != f.From || got.To != f.To || got.Seq != f.Seq || got.Cmd != f.Cmd || len(got.Data) != 0 {
		t.Fatalf("decoded = %+v, want %+v", got, f)
	}
}

func TestEncodeDecode_RoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cmds := []Command{Ping, Pong, Report, Query, Response, Write, WriteAck}
	for i := 0; i < 500; i++ {
		dataLen := rng.Intn(MaxDataLen + 1)
		data := make([]byte, dataLen)
		rng.Read(data)
		f := Frame{
			From: uint16(rng.Intn(65536)),
			To:   uint16(rng.Intn(65536)),
			Seq:  uint8(rng.Intn(256)),
			Cmd:  cmds[rng.Intn(len(cmds))],
			Data: data,
		}
		buf := make([]byte, MaxFrameSize)
		n, err := Encode(f, buf)
		if err != nil {
			t.Fatalf("round %d: Encode: %v", i, err)
		}
		got, err := Decode(buf[:n])
		if err != nil {
			t.Fatalf("round %d: Decode: %v", i, err)
		}
		if got.From != f.From || got.To != f.To || got.Seq != f.Seq || got.Cmd != f.Cmd {
			t.Fatalf("round %d: decoded header = %+v, want %+v", i, got, f)
		}
		if string(got.Data) != string(f.Data) {
			t.Fatalf("round %d: decoded data = %x, want %x", i, got.Data, f.Data)
		}
	}
}

func TestEncode_RejectsOversizedData(t *testing.T) {
	f := Frame{Cmd: Report, Data: make([]byte, MaxDataLen+1)}
	buf := make([]byte, MaxFrameSize)
	_, err := Encode(f, buf)
	if err == nil {
		t.Fatal("expected error encoding data longer than MaxDataLen")
	}
	if xserr.CodeOf(err) != xserr.NoMemory {
		t.Errorf("error code = %v, want NoMemory", xserr.CodeOf(err))
	}
}

func TestDecode_BoundaryLengths(t *testing.T) {
	tests := []struct {
		name    string
		dataLen int
		wantErr bool
	}{
		{"LEN=0", 0, false},
		{"LEN=128", 128, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{From: 1, To: 2, Seq: 0, Cmd: Report, Data: make([]byte, tt.dataLen)}
			buf := make([]byte, MaxFrameSize)
			n, err := Encode(f, buf)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			_, err = Decode(buf[:n])
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_RejectsLenOver128(t *testing.T) {
	buf := []byte{0xAA, 0, 0, 0, 0, 0, 0, 129}
	buf = append(buf, make([]byte, 129+2)...)
	_, err := Decode(buf)
	if err == nil {
		t.Fatal("expected error decoding LEN=129")
	}
	if xserr.CodeOf(err) != xserr.InvalidParam {
		t.Errorf("error code = %v, want InvalidParam", xserr.CodeOf(err))
	}
}

func TestDecode_RejectsBadSync(t *testing.T) {
	f := Frame{Cmd: Ping}
	buf := make([]byte, MaxFrameSize)
	n, _ := Encode(f, buf)
	buf[0] = 0xAB
	_, err := Decode(buf[:n])
	if xserr.CodeOf(err) != xserr.InvalidParam {
		t.Errorf("error code = %v, want InvalidParam", xserr.CodeOf(err))
	}
}

func TestDecode_RejectsShortFrame(t *testing.T) {
	f := Frame{Cmd: Report, Data: []byte{1, 2, 3}}
	buf := make([]byte, MaxFrameSize)
	n, _ := Encode(f, buf)
	_, err := Decode(buf[:n-1])
	if xserr.CodeOf(err) != xserr.InvalidParam {
		t.Errorf("error code = %v, want InvalidParam", xserr.CodeOf(err))
	}
}

func TestDecode_CorruptedCRC(t *testing.T) {
	f := Frame{From: 1, To: 2, Seq: 3, Cmd: Ping}
	buf := make([]byte, MaxFrameSize)
	n, _ := Encode(f, buf)
	buf[n-1] ^= 0xFF
	_, err := Decode(buf[:n])
	if xserr.CodeOf(err) != xserr.CrcError {
		t.Errorf("error code = %v, want CrcError", xserr.CodeOf(err))
	}
}

func TestVerifyCRC_MatchesDecodeOutcome(t *testing.T) {
	f := Frame{From: 1, To: 2, Seq: 3, Cmd: Query, Data: []byte{9, 9}}
	buf := make([]byte, MaxFrameSize)
	n, _ := Encode(f, buf)
	if !VerifyCRC(buf[:n]) {
		t.Fatal("VerifyCRC rejected a valid frame")
	}
	buf[n-1] ^= 0x01
	if VerifyCRC(buf[:n]) {
		t.Fatal("VerifyCRC accepted a corrupted frame")
	}
}

func TestVerifyCRC_ValidFrameImpliesInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		dataLen := rng.Intn(MaxDataLen + 1)
		data := make([]byte, dataLen)
		rng.Read(data)
		f := Frame{From: uint16(rng.Intn(65536)), To: uint16(rng.Intn(65536)), Seq: uint8(rng.Intn(256)), Cmd: Report, Data: data}
		buf := make([]byte, MaxFrameSize)
		n, _ := Encode(f, buf)
		b := buf[:n]
		if !VerifyCRC(b) {
			t.Fatalf("round %d: VerifyCRC rejected freshly encoded frame", i)
		}
		if b[0] != Sync {
			t.Fatalf("round %d: sync byte = 0x%02X", i, b[0])
		}
		if b[7] > MaxDataLen {
			t.Fatalf("round %d: LEN = %d exceeds max", i, b[7])
		}
		if len(b) < HeaderSize+int(b[7]) {
			t.Fatalf("round %d: frame shorter than header+LEN", i)
		}
	}
}
