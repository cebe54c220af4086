// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package bacnet

import (
	"github.com/xslot-sdk/xslot-go/pkg/wire"
	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

// EncodeFullBatch writes COUNT(1) followed by each object in full format.
// Encoding an empty batch is rejected with InvalidParam.
func EncodeFullBatch(objs []Object, w *wire.Writer) error {
	if len(objs) == 0 {
		return xserr.New(xserr.InvalidParam, "empty batch")
	}
	if len(objs) > 255 {
		return xserr.New(xserr.NoMemory, "batch of %d objects exceeds COUNT byte", len(objs))
	}
	if !w.WriteUint8(uint8(len(objs))) {
		return xserr.New(xserr.NoMemory, "batch count overflow")
	}
	for i, obj := range objs {
		if err := EncodeFull(obj, w); err != nil {
			return err
		}
		_ = i
	}
	return nil
}

// DecodeFullBatch parses COUNT(1) followed by up to maxCount objects in
// full format, silently discarding any objects beyond maxCount.
func DecodeFullBatch(r *wire.Reader, maxCount int) ([]Object, error) {
	count, ok := r.ReadUint8()
	if !ok {
		return nil, xserr.New(xserr.InvalidParam, "truncated batch count")
	}
	return decodeBatch(r, int(count), maxCount, DecodeFull)
}

// EncodeIncrementalBatch writes COUNT(1) followed by each object in
// incremental format. Encoding an empty batch is rejected with InvalidParam.
func EncodeIncrementalBatch(objs []Object, w *wire.Writer) error {
	if len(objs) == 0 {
		return xserr.New(xserr.InvalidParam, "empty batch")
	}
	if len(objs) > 255 {
		return xserr.New(xserr.NoMemory, "batch of %d objects exceeds COUNT byte", len(objs))
	}
	if !w.WriteUint8(uint8(len(objs))) {
		return xserr.New(xserr.NoMemory, "batch count overflow")
	}
	for _, obj := range objs {
		if err := EncodeIncremental(obj, w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeIncrementalBatch parses COUNT(1) followed by up to maxCount objects
// in incremental format, silently discarding any objects beyond maxCount.
func DecodeIncrementalBatch(r *wire.Reader, maxCount int) ([]Object, error) {
	count, ok := r.ReadUint8()
	if !ok {
		return nil, xserr.New(xserr.InvalidParam, "truncated batch count")
	}
	return decodeBatch(r, int(count), maxCount, DecodeIncremental)
}

func decodeBatch(r *wire.Reader, count, maxCount int, decodeOne func(*wire.Reader) (Object, error)) ([]Object, error) {
	limit := count
	if maxCount >= 0 && maxCount < limit {
		limit = maxCount
	}
	objs := make([]Object, 0, limit)
	for i := 0; i < count; i++ {
		obj, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		if i < limit {
			objs = append(objs, obj)
		}
	}
	return objs, nil
}

// DetectBatchFormat peeks at a full wire payload (COUNT byte plus at
// least one object) and reports whether it is encoded in the incremental
// format, per the byte-at-offset-3 discrimination rule: after the COUNT
// byte, the type/hint byte of the first object sits at offset 3 (COUNT
// at 0, OBJ_ID at 1-2, type/hint at 3). ok is false if data is too short
// to inspect.
func DetectBatchFormat(data []byte) (incremental bool, ok bool) {
	if len(data) <= 3 {
		return false, false
	}
	if data[0] == 0 {
		return false, false
	}
	return data[3]&0x80 != 0, true
}

// DecodeBatchAuto auto-detects full vs incremental format per
// DetectBatchFormat and decodes accordingly. It peeks at the reader's
// remaining bytes without otherwise disturbing its position.
func DecodeBatchAuto(r *wire.Reader, maxCount int) ([]Object, error) {
	peek := r.Peek(r.Remaining())
	incremental, ok := DetectBatchFormat(peek)
	if !ok {
		return nil, xserr.New(xserr.InvalidParam, "batch too short to classify")
	}
	if incremental {
		return DecodeIncrementalBatch(r, maxCount)
	}
	return DecodeFullBatch(r, maxCount)
}
