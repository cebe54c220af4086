// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

// Package frame implements the X-Slot wire frame: a fixed 8-byte header,
// a variable data section, and a 2-byte CRC trailer.
package frame

import (
	"github.com/xslot-sdk/xslot-go/pkg/wire"
	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

// Sync is the fixed first byte of every X-Slot frame.
const Sync byte = 0xAA

// HeaderSize is the length in bytes of the fixed frame header
// (SYNC, FROM, TO, SEQ, CMD, LEN).
const HeaderSize = 8

// MaxDataLen is the largest permitted value of LEN.
const MaxDataLen = 128

// MaxFrameSize is the largest possible encoded frame: header + max data + CRC.
const MaxFrameSize = HeaderSize + MaxDataLen + 2

// Command identifies the frame's payload layout and the session action it triggers.
type Command uint8

const (
	Ping      Command = 0x01
	Pong      Command = 0x02
	Report    Command = 0x10
	Query     Command = 0x11
	Response  Command = 0x12
	Write     Command = 0x20
	WriteAck  Command = 0x21
)

func (c Command) String() string {
	switch c {
	case Ping:
		return "PING"
	case Pong:
		return "PONG"
	case Report:
		return "REPORT"
	case Query:
		return "QUERY"
	case Response:
		return "RESPONSE"
	case Write:
		return "WRITE"
	case WriteAck:
		return "WRITE_ACK"
	default:
		return "UNKNOWN"
	}
}

// Frame is one X-Slot protocol frame.
type Frame struct {
	From uint16
	To   uint16
	Seq  uint8
	Cmd  Command
	Data []byte
}

// Encode writes f into out as SYNC|FROM|TO|SEQ|CMD|LEN|DATA|CRC16, returning
// the number of bytes written. out must be at least HeaderSize+len(Data)+2
// bytes; MaxFrameSize is always sufficient.
func Encode(f Frame, out []byte) (int, error) {
	if len(f.Data) > MaxDataLen {
		return 0, xserr.New(xserr.NoMemory, "data length %d exceeds %d", len(f.Data), MaxDataLen)
	}
	w := wire.NewWriter(out)
	ok := w.WriteUint8(Sync) &&
		w.WriteUint16(f.From) &&
		w.WriteUint16(f.To) &&
		w.WriteUint8(f.Seq) &&
		w.WriteUint8(uint8(f.Cmd)) &&
		w.WriteUint8(uint8(len(f.Data))) &&
		w.WriteBytes(f.Data)
	if !ok {
		return 0, xserr.New(xserr.NoMemory, "frame encode overflow")
	}
	crc := wire.CRC16(w.Bytes())
	if !w.WriteUint16(crc) {
		return 0, xserr.New(xserr.NoMemory, "frame encode overflow writing CRC")
	}
	return w.Offset(), nil
}

// Decode parses a frame from data, validating structure and CRC.
// Structural failures (short buffer, bad sync, LEN overflow, length
// mismatch) return InvalidParam; a structurally valid frame with a
// mismatched checksum returns CrcError.
func Decode(data []byte) (Frame, error) {
	if len(data) < HeaderSize+2 {
		return Frame{}, xserr.New(xserr.InvalidParam, "frame too short: %d bytes", len(data))
	}
	r := wire.NewReader(data)
	sync, _ := r.ReadUint8()
	if sync != Sync {
		return Frame{}, xserr.New(xserr.InvalidParam, "bad sync byte 0x%02X", sync)
	}
	from, _ := r.ReadUint16()
	to, _ := r.ReadUint16()
	seq, _ := r.ReadUint8()
	cmd, _ := r.ReadUint8()
	length, _ := r.ReadUint8()
	if length > MaxDataLen {
		return Frame{}, xserr.New(xserr.InvalidParam, "LEN %d exceeds %d", length, MaxDataLen)
	}
	if len(data) < HeaderSize+int(length)+2 {
		return Frame{}, xserr.New(xserr.InvalidParam, "frame length %d too short for LEN %d", len(data), length)
	}
	payload := r.ReadBytes(int(length))
	crcField, _ := r.ReadUint16()

	want := wire.CRC16(data[:HeaderSize+int(length)])
	if crcField != want {
		return Frame{}, xserr.New(xserr.CrcError, "crc mismatch: got 0x%04X, want 0x%04X", crcField, want)
	}

	dataCopy := make([]byte, length)
	copy(dataCopy, payload)
	return Frame{From: from, To: to, Seq: seq, Cmd: Command(cmd), Data: dataCopy}, nil
}

// VerifyCRC reports whether data is a structurally valid frame with a
// matching checksum, without allocating an extracted Frame.
func VerifyCRC(data []byte) bool {
	if len(data) < HeaderSize+2 {
		return false
	}
	if data[0] != Sync {
		return false
	}
	length := int(data[7])
	if length > MaxDataLen {
		return false
	}
	if len(data) < HeaderSize+length+2 {
		return false
	}
	got := uint16(data[HeaderSize+length]) | uint16(data[HeaderSize+length+1])<<8
	want := wire.CRC16(data[:HeaderSize+length])
	return got == want
}
