package ifdata

import (
	"bytes"
	"testing"

	"github.com/jetsetilly/a2lsync/dwarf"
)

func TestLinkMapRoundTrip(t *testing.T) {
	lm := LinkMap{
		SymbolName:      "foo",
		Address:         0x2000,
		Datatype:        0x8F,
		BitOffset:       3,
		Valid:           true,
		TrailingUnknown: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	raw := lm.Encode()
	got, ok := DecodeLinkMap(raw)
	if !ok {
		t.Fatal("decode failed")
	}
	if got.SymbolName != lm.SymbolName || got.Address != lm.Address || got.Datatype != lm.Datatype ||
		got.BitOffset != lm.BitOffset || got.Valid != lm.Valid || !bytes.Equal(got.TrailingUnknown, lm.TrailingUnknown) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, lm)
	}
}

func TestDatatypeCodeTable(t *testing.T) {
	cases := []struct {
		t    *dwarf.TypeInfo
		want byte
	}{
		{&dwarf.TypeInfo{Kind: dwarf.KindUint8}, 0x87},
		{&dwarf.TypeInfo{Kind: dwarf.KindUint16}, 0x8F},
		{&dwarf.TypeInfo{Kind: dwarf.KindUint32}, 0x9F},
		{&dwarf.TypeInfo{Kind: dwarf.KindUint64}, 0xBF},
		{&dwarf.TypeInfo{Kind: dwarf.KindSint8}, 0xC7},
		{&dwarf.TypeInfo{Kind: dwarf.KindSint16}, 0xCF},
		{&dwarf.TypeInfo{Kind: dwarf.KindSint32}, 0xDF},
		{&dwarf.TypeInfo{Kind: dwarf.KindSint64}, 0xFF},
		{&dwarf.TypeInfo{Kind: dwarf.KindFloat}, 0x01},
		{&dwarf.TypeInfo{Kind: dwarf.KindDouble}, 0x02},
	}
	for _, c := range cases {
		if got := DatatypeCode(c.t); got != c.want {
			t.Errorf("DatatypeCode(%s) = %#x, want %#x", c.t.Kind, got, c.want)
		}
	}
}

func TestDatatypeCodeBitfield(t *testing.T) {
	bf := &dwarf.TypeInfo{Kind: dwarf.KindBitfield, BitSize: 5, Signed: false}
	got := DatatypeCode(bf)
	want := byte(0x80 | (5 - 1))
	if got != want {
		t.Errorf("bitfield datatype = %#x, want %#x", got, want)
	}
}

func TestZeroingPreservesSymbolName(t *testing.T) {
	lm := LinkMap{SymbolName: "foo", Address: 0x3000, Valid: true}
	raw := lm.Encode()
	zeroed := Zero(raw)
	got, ok := DecodeLinkMap(zeroed)
	if !ok {
		t.Fatal("decode failed")
	}
	if got.SymbolName != "foo" {
		t.Errorf("symbol name lost on zeroing: %q", got.SymbolName)
	}
	if got.Address != 0 || got.Valid {
		t.Errorf("zeroing did not clear address/valid: %+v", got)
	}
}

func TestDPBlobStructUnchanged(t *testing.T) {
	b := DPBlob{Size: 4}
	raw := b.Encode()
	structType := &dwarf.TypeInfo{Kind: dwarf.KindStruct, Size: 16}
	updated := UpdateDPBlob(raw, structType)
	got, _ := DecodeDPBlob(updated)
	if got.Size != 4 {
		t.Errorf("struct DP_BLOB size changed: got %d, want unchanged 4", got.Size)
	}
}

func TestDPBlobPrimitiveUpdated(t *testing.T) {
	b := DPBlob{Size: 1}
	raw := b.Encode()
	u32 := &dwarf.TypeInfo{Kind: dwarf.KindUint32, Size: 4}
	updated := UpdateDPBlob(raw, u32)
	got, _ := DecodeDPBlob(updated)
	if got.Size != 4 {
		t.Errorf("DP_BLOB size = %d, want 4", got.Size)
	}
}
