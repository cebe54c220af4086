// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

// Package bacnet serializes and parses BACnet object values in the two
// wire formats X-Slot carries as message payloads: a full format with an
// explicit type and flags byte, and a compact incremental format that
// recovers a canonical type on parse at the cost of losing the AI/AO/AV
// (and BI/BO/BV) distinction.
package bacnet

import (
	"github.com/xslot-sdk/xslot-go/pkg/wire"
	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

// ObjectType is the BACnet object type tag carried in the full wire format.
type ObjectType uint8

const (
	AI    ObjectType = 0
	AO    ObjectType = 1
	AV    ObjectType = 2
	BI    ObjectType = 3
	BO    ObjectType = 4
	BV    ObjectType = 5
	Other ObjectType = 255
)

func (t ObjectType) String() string {
	switch t {
	case AI:
		return "AI"
	case AO:
		return "AO"
	case AV:
		return "AV"
	case BI:
		return "BI"
	case BO:
		return "BO"
	case BV:
		return "BV"
	default:
		return "Other"
	}
}

// IsAnalog reports whether t carries an Analog value.
func (t ObjectType) IsAnalog() bool {
	return t == AI || t == AO || t == AV
}

// IsBinary reports whether t carries a Binary value.
func (t ObjectType) IsBinary() bool {
	return t == BI || t == BO || t == BV
}

// Flags is the per-object bitmask carried in the full wire format.
// Bit 7 is reserved as the incremental-format marker and must be zero
// in any Flags value written in the full format.
type Flags uint8

const (
	Changed      Flags = 1 << 0
	OutOfService Flags = 1 << 1
	incrementalMarker Flags = 1 << 7
)

// Kind identifies which concrete Value variant an Object carries.
type Kind uint8

const (
	KindAnalog Kind = iota
	KindBinary
	KindRaw
)

// Value is the present-value payload of an Object. The concrete variant
// is fixed by the owning Object's Type.
type Value interface {
	Kind() Kind
}

// Analog is a 32-bit IEEE-754 present value, used by AI/AO/AV objects.
type Analog float32

func (Analog) Kind() Kind { return KindAnalog }

// Binary is a 0/1 present value, used by BI/BO/BV objects.
type Binary uint8

func (Binary) Kind() Kind { return KindBinary }

// Raw is a 16-byte opaque present value, used by any object type other
// than the six recognized analog/binary kinds.
type Raw [16]byte

func (Raw) Kind() Kind { return KindRaw }

// Object is one BACnet object value as exchanged on the X-Slot wire.
type Object struct {
	ID    uint16
	Type  ObjectType
	Flags Flags
	Value Value
}

// valueKindFor returns the Value variant required for t, per §3's fixed
// type-to-variant mapping.
func valueKindFor(t ObjectType) Kind {
	switch {
	case t.IsAnalog():
		return KindAnalog
	case t.IsBinary():
		return KindBinary
	default:
		return KindRaw
	}
}

func validObjectForEncode(obj Object) error {
	if obj.Value == nil {
		return xserr.New(xserr.InvalidParam, "object %d: nil value", obj.ID)
	}
	want := valueKindFor(obj.Type)
	if obj.Value.Kind() != want {
		return xserr.New(xserr.InvalidParam, "object %d: type %s requires value kind %d, got %d", obj.ID, obj.Type, want, obj.Value.Kind())
	}
	if obj.Flags&incrementalMarker != 0 {
		return xserr.New(xserr.InvalidParam, "object %d: bit 7 of flags must be 0 in full format", obj.ID)
	}
	return nil
}

// EncodeFull writes one object in the full wire format:
// OBJ_ID(2,LE) | OBJ_TYPE(1) | FLAGS(1) | VALUE.
func EncodeFull(obj Object, w *wire.Writer) error {
	if err := validObjectForEncode(obj); err != nil {
		return err
	}
	if !w.WriteUint16(obj.ID) || !w.WriteUint8(uint8(obj.Type)) || !w.WriteUint8(uint8(obj.Flags)) {
		return xserr.New(xserr.NoMemory, "object %d: full header overflow", obj.ID)
	}
	if !writeValue(w, obj.Value) {
		return xserr.New(xserr.NoMemory, "object %d: value overflow", obj.ID)
	}
	return nil
}

// DecodeFull parses one object in the full wire format.
func DecodeFull(r *wire.Reader) (Object, error) {
	id, ok := r.ReadUint16()
	if !ok {
		return Object{}, xserr.New(xserr.InvalidParam, "truncated object header")
	}
	rawType, ok := r.ReadUint8()
	if !ok {
		return Object{}, xserr.New(xserr.InvalidParam, "truncated object type")
	}
	rawFlags, ok := r.ReadUint8()
	if !ok {
		return Object{}, xserr.New(xserr.InvalidParam, "truncated object flags")
	}
	t := ObjectType(rawType)
	val, err := readValue(r, valueKindFor(t))
	if err != nil {
		return Object{}, err
	}
	return Object{ID: id, Type: t, Flags: Flags(rawFlags), Value: val}, nil
}

// typeHint bits for the incremental format: bit 7 set marks the format,
// the low nibble encodes which Value variant follows.
const (
	hintAnalog uint8 = 0
	hintBinary uint8 = 1
	hintOther  uint8 = 2
)

// EncodeIncremental writes one object in the compact incremental format:
// OBJ_ID(2,LE) | TYPE_HINT(1) | VALUE. TYPE_HINT's bit 7 is always set.
func EncodeIncremental(obj Object, w *wire.Writer) error {
	if obj.Value == nil {
		return xserr.New(xserr.InvalidParam, "object %d: nil value", obj.ID)
	}
	var hint uint8
	switch obj.Value.Kind() {
	case KindAnalog:
		hint = hintAnalog
	case KindBinary:
		hint = hintBinary
	default:
		hint = hintOther
	}
	hint |= uint8(incrementalMarker)
	if !w.WriteUint16(obj.ID) || !w.WriteUint8(hint) {
		return xserr.New(xserr.NoMemory, "object %d: incremental header overflow", obj.ID)
	}
	if !writeValue(w, obj.Value) {
		return xserr.New(xserr.NoMemory, "object %d: value overflow", obj.ID)
	}
	return nil
}

// DecodeIncremental parses one object in the incremental format. The
// object type is recovered canonically, not preserved: analog hints
// become AV and binary hints become BV (see design note on AI/AO/AV and
// BI/BO/BV collapsing on the incremental path). Other hints become Raw
// with type Other.
func DecodeIncremental(r *wire.Reader) (Object, error) {
	id, ok := r.ReadUint16()
	if !ok {
		return Object{}, xserr.New(xserr.InvalidParam, "truncated object header")
	}
	hint, ok := r.ReadUint8()
	if !ok {
		return Object{}, xserr.New(xserr.InvalidParam, "truncated type hint")
	}
	var t ObjectType
	var kind Kind
	switch hint & 0x0F {
	case hintAnalog:
		t, kind = AV, KindAnalog
	case hintBinary:
		t, kind = BV, KindBinary
	default:
		t, kind = Other, KindRaw
	}
	val, err := readValue(r, kind)
	if err != nil {
		return Object{}, err
	}
	return Object{ID: id, Type: t, Value: val}, nil
}

func writeValue(w *wire.Writer, v Value) bool {
	switch tv := v.(type) {
	case Analog:
		return w.WriteFloat32(float32(tv))
	case Binary:
		return w.WriteUint8(uint8(tv))
	case Raw:
		return w.WriteBytes(tv[:])
	default:
		return false
	}
}

func readValue(r *wire.Reader, kind Kind) (Value, error) {
	switch kind {
	case KindAnalog:
		v, ok := r.ReadFloat32()
		if !ok {
			return nil, xserr.New(xserr.InvalidParam, "truncated analog value")
		}
		return Analog(v), nil
	case KindBinary:
		v, ok := r.ReadUint8()
		if !ok {
			return nil, xserr.New(xserr.InvalidParam, "truncated binary value")
		}
		return Binary(v), nil
	default:
		b := r.ReadBytes(16)
		if b == nil {
			return nil, xserr.New(xserr.InvalidParam, "truncated raw value")
		}
		var raw Raw
		copy(raw[:], b)
		return raw, nil
	}
}

// wireSizeOf returns the number of VALUE bytes for an object's value kind.
func wireSizeOf(kind Kind) int {
	switch kind {
	case KindAnalog:
		return 4
	case KindBinary:
		return 1
	default:
		return 16
	}
}
