// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

// Package message builds and parses X-Slot frame payloads, one function
// per command, binding the frame codec to the BACnet object codec.
package message

import (
	"github.com/xslot-sdk/xslot-go/pkg/bacnet"
	"github.com/xslot-sdk/xslot-go/pkg/frame"
	"github.com/xslot-sdk/xslot-go/pkg/wire"
	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

// BuildPing builds an empty-payload PING frame.
func BuildPing(from, to uint16, seq uint8) (frame.Frame, error) {
	return frame.Frame{From: from, To: to, Seq: seq, Cmd: frame.Ping}, nil
}

// BuildPong builds an empty-payload PONG frame.
func BuildPong(from, to uint16, seq uint8) (frame.Frame, error) {
	return frame.Frame{From: from, To: to, Seq: seq, Cmd: frame.Pong}, nil
}

// BuildReport builds a REPORT frame carrying objs as an incremental or
// full batch depending on incremental.
func BuildReport(from, to uint16, seq uint8, objs []bacnet.Object, incremental bool) (frame.Frame, error) {
	buf := make([]byte, frame.MaxDataLen)
	w := wire.NewWriter(buf)
	var err error
	if incremental {
		err = bacnet.EncodeIncrementalBatch(objs, w)
	} else {
		err = bacnet.EncodeFullBatch(objs, w)
	}
	if err != nil {
		return frame.Frame{}, err
	}
	return frame.Frame{From: from, To: to, Seq: seq, Cmd: frame.Report, Data: w.Bytes()}, nil
}

// BuildQuery builds a QUERY frame: COUNT(1) | OBJ_ID(2,LE) * N.
func BuildQuery(from, to uint16, seq uint8, ids []uint16) (frame.Frame, error) {
	if len(ids) == 0 {
		return frame.Frame{}, xserr.New(xserr.InvalidParam, "empty object id list")
	}
	if len(ids) > 255 {
		return frame.Frame{}, xserr.New(xserr.NoMemory, "%d object ids exceeds COUNT byte", len(ids))
	}
	buf := make([]byte, frame.MaxDataLen)
	w := wire.NewWriter(buf)
	if !w.WriteUint8(uint8(len(ids))) {
		return frame.Frame{}, xserr.New(xserr.NoMemory, "query count overflow")
	}
	for _, id := range ids {
		if !w.WriteUint16(id) {
			return frame.Frame{}, xserr.New(xserr.NoMemory, "query payload exceeds %d bytes", frame.MaxDataLen)
		}
	}
	return frame.Frame{From: from, To: to, Seq: seq, Cmd: frame.Query, Data: w.Bytes()}, nil
}

// BuildResponse builds a RESPONSE frame carrying objs as a full batch.
func BuildResponse(from, to uint16, seq uint8, objs []bacnet.Object) (frame.Frame, error) {
	buf := make([]byte, frame.MaxDataLen)
	w := wire.NewWriter(buf)
	if err := bacnet.EncodeFullBatch(objs, w); err != nil {
		return frame.Frame{}, err
	}
	return frame.Frame{From: from, To: to, Seq: seq, Cmd: frame.Response, Data: w.Bytes()}, nil
}

// BuildWrite builds a WRITE frame carrying a single full-format object.
func BuildWrite(from, to uint16, seq uint8, obj bacnet.Object) (frame.Frame, error) {
	buf := make([]byte, frame.MaxDataLen)
	w := wire.NewWriter(buf)
	if err := bacnet.EncodeFull(obj, w); err != nil {
		return frame.Frame{}, err
	}
	return frame.Frame{From: from, To: to, Seq: seq, Cmd: frame.Write, Data: w.Bytes()}, nil
}

// BuildWriteAck builds a WRITE_ACK frame carrying a single status byte
// (0 = ok, nonzero reserved).
func BuildWriteAck(from, to uint16, seq uint8, status uint8) (frame.Frame, error) {
	return frame.Frame{From: from, To: to, Seq: seq, Cmd: frame.WriteAck, Data: []byte{status}}, nil
}

// ParseReport parses a REPORT payload, auto-detecting full vs incremental
// format. maxCount bounds the number of objects returned.
func ParseReport(payload []byte, maxCount int) ([]bacnet.Object, error) {
	r := wire.NewReader(payload)
	return bacnet.DecodeBatchAuto(r, maxCount)
}

// ParseQuery parses a QUERY payload into its requested object ids.
func ParseQuery(payload []byte, maxCount int) ([]uint16, error) {
	r := wire.NewReader(payload)
	count, ok := r.ReadUint8()
	if !ok {
		return nil, xserr.New(xserr.InvalidParam, "truncated query count")
	}
	limit := int(count)
	if maxCount >= 0 && maxCount < limit {
		limit = maxCount
	}
	ids := make([]uint16, 0, limit)
	for i := 0; i < int(count); i++ {
		id, ok := r.ReadUint16()
		if !ok {
			return nil, xserr.New(xserr.InvalidParam, "truncated object id at index %d", i)
		}
		if i < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ParseResponse parses a RESPONSE payload as a full-format batch.
func ParseResponse(payload []byte, maxCount int) ([]bacnet.Object, error) {
	r := wire.NewReader(payload)
	return bacnet.DecodeFullBatch(r, maxCount)
}

// ParseWrite parses a WRITE payload as a single full-format object.
func ParseWrite(payload []byte) (bacnet.Object, error) {
	r := wire.NewReader(payload)
	return bacnet.DecodeFull(r)
}

// ParseWriteAck parses a WRITE_ACK payload's status byte.
func ParseWriteAck(payload []byte) (uint8, error) {
	if len(payload) < 1 {
		return 0, xserr.New(xserr.InvalidParam, "empty write-ack payload")
	}
	return payload[0], nil
}
