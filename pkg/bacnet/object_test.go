// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package bacnet

import (
	"testing"

	"github.com/xslot-sdk/xslot-go/pkg/wire"
)

func TestEncodeDecodeFull_Analog(t *testing.T) {
	obj := Object{ID: 0, Type: AI, Flags: Changed, Value: Analog(25.5)}
	buf := make([]byte, 16)
	w := wire.NewWriter(buf)
	if err := EncodeFull(obj, w); err != nil {
		t.Fatalf("EncodeFull: %v", err)
	}

	want := []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0xCC, 0x41}
	if got := w.Bytes(); string(got) != string(want) {
		t.Fatalf("encoded bytes = %x, want %x", got, want)
	}

	r := wire.NewReader(w.Bytes())
	got, err := DecodeFull(r)
	if err != nil {
		t.Fatalf("DecodeFull: %v", err)
	}
	if got.ID != obj.ID || got.Type != obj.Type || got.Flags != obj.Flags {
		t.Fatalf("decoded = %+v, want %+v", got, obj)
	}
	if v, ok := got.Value.(Analog); !ok || v != 25.5 {
		t.Fatalf("decoded value = %v, want Analog(25.5)", got.Value)
	}
}

func TestEncodeDecodeFull_Binary(t *testing.T) {
	obj := Object{ID: 3, Type: BO, Flags: 0, Value: Binary(1)}
	buf := make([]byte, 16)
	w := wire.NewWriter(buf)
	if err := EncodeFull(obj, w); err != nil {
		t.Fatalf("EncodeFull: %v", err)
	}
	r := wire.NewReader(w.Bytes())
	got, err := DecodeFull(r)
	if err != nil {
		t.Fatalf("DecodeFull: %v", err)
	}
	if v, ok := got.Value.(Binary); !ok || v != 1 {
		t.Fatalf("decoded value = %v, want Binary(1)", got.Value)
	}
}

func TestEncodeFull_RejectsMismatchedValueKind(t *testing.T) {
	obj := Object{ID: 0, Type: AI, Value: Binary(1)}
	buf := make([]byte, 16)
	w := wire.NewWriter(buf)
	if err := EncodeFull(obj, w); err == nil {
		t.Fatal("expected error encoding AI object with Binary value")
	}
}

func TestEncodeFull_RejectsIncrementalMarkerBit(t *testing.T) {
	obj := Object{ID: 0, Type: AI, Flags: 0x80, Value: Analog(1)}
	buf := make([]byte, 16)
	w := wire.NewWriter(buf)
	if err := EncodeFull(obj, w); err == nil {
		t.Fatal("expected error encoding object with flags bit 7 set")
	}
}

func TestEncodeFull_OverflowReturnsNoMemory(t *testing.T) {
	obj := Object{ID: 0, Type: AI, Value: Analog(1)}
	buf := make([]byte, 3)
	w := wire.NewWriter(buf)
	if err := EncodeFull(obj, w); err == nil {
		t.Fatal("expected NoMemory on undersized buffer")
	}
}

func TestDecodeFull_TruncatedReturnsInvalidParam(t *testing.T) {
	r := wire.NewReader([]byte{0x00, 0x00, 0x00})
	if _, err := DecodeFull(r); err == nil {
		t.Fatal("expected error decoding truncated object")
	}
}

func TestEncodeDecodeIncremental_RoundTrip(t *testing.T) {
	obj := Object{ID: 0, Type: AV, Value: Analog(25.5)}
	buf := make([]byte, 16)
	w := wire.NewWriter(buf)
	if err := EncodeIncremental(obj, w); err != nil {
		t.Fatalf("EncodeIncremental: %v", err)
	}
	want := []byte{0x00, 0x00, 0x80, 0x00, 0x00, 0xCC, 0x41}
	if got := w.Bytes(); string(got) != string(want) {
		t.Fatalf("encoded bytes = %x, want %x", got, want)
	}

	r := wire.NewReader(w.Bytes())
	got, err := DecodeIncremental(r)
	if err != nil {
		t.Fatalf("DecodeIncremental: %v", err)
	}
	if got.Type != AV {
		t.Errorf("decoded type = %v, want AV", got.Type)
	}
	if v, ok := got.Value.(Analog); !ok || v != 25.5 {
		t.Fatalf("decoded value = %v, want Analog(25.5)", got.Value)
	}
}

func TestDecodeIncremental_AnalogTypesCollapseToAV(t *testing.T) {
	for _, orig := range []ObjectType{AI, AO, AV} {
		obj := Object{ID: 1, Type: orig, Value: Analog(1)}
		buf := make([]byte, 16)
		w := wire.NewWriter(buf)
		if err := EncodeIncremental(obj, w); err != nil {
			t.Fatalf("EncodeIncremental(%v): %v", orig, err)
		}
		r := wire.NewReader(w.Bytes())
		got, err := DecodeIncremental(r)
		if err != nil {
			t.Fatalf("DecodeIncremental(%v): %v", orig, err)
		}
		if got.Type != AV {
			t.Errorf("%v collapsed to %v, want AV", orig, got.Type)
		}
	}
}

func TestDecodeIncremental_BinaryTypesCollapseToBV(t *testing.T) {
	for _, orig := range []ObjectType{BI, BO, BV} {
		obj := Object{ID: 1, Type: orig, Value: Binary(0)}
		buf := make([]byte, 16)
		w := wire.NewWriter(buf)
		if err := EncodeIncremental(obj, w); err != nil {
			t.Fatalf("EncodeIncremental(%v): %v", orig, err)
		}
		r := wire.NewReader(w.Bytes())
		got, err := DecodeIncremental(r)
		if err != nil {
			t.Fatalf("DecodeIncremental(%v): %v", orig, err)
		}
		if got.Type != BV {
			t.Errorf("%v collapsed to %v, want BV", orig, got.Type)
		}
	}
}

func TestEncodeDecodeFull_RawObject(t *testing.T) {
	var raw Raw
	for i := range raw {
		raw[i] = byte(i)
	}
	obj := Object{ID: 42, Type: Other, Value: raw}
	buf := make([]byte, 32)
	w := wire.NewWriter(buf)
	if err := EncodeFull(obj, w); err != nil {
		t.Fatalf("EncodeFull: %v", err)
	}
	r := wire.NewReader(w.Bytes())
	got, err := DecodeFull(r)
	if err != nil {
		t.Fatalf("DecodeFull: %v", err)
	}
	gotRaw, ok := got.Value.(Raw)
	if !ok || gotRaw != raw {
		t.Fatalf("decoded value = %v, want %v", got.Value, raw)
	}
}
