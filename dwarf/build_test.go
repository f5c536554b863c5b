package dwarf

import (
	"debug/dwarf"
	"testing"
)

func TestPrimitiveKind(t *testing.T) {
	cases := []struct {
		encoding int64
		size     int
		want     Kind
	}{
		{0x4, 4, KindFloat},
		{0x4, 8, KindDouble},
		{0x5, 1, KindSint8},
		{0x5, 2, KindSint16},
		{0x5, 4, KindSint32},
		{0x5, 8, KindSint64},
		{0x7, 1, KindUint8},
		{0x7, 4, KindUint32},
		{0x2, 1, KindUint8}, // boolean
	}
	for _, c := range cases {
		if got := primitiveKind(c.encoding, c.size); got != c.want {
			t.Errorf("primitiveKind(%x, %d) = %s, want %s", c.encoding, c.size, got, c.want)
		}
	}
}

func TestSubrangeCount(t *testing.T) {
	e := &dwarf.Entry{Field: []dwarf.Field{
		{Attr: dwarf.AttrUpperBound, Val: int64(9)},
	}}
	if got := subrangeCount(e); got != 10 {
		t.Errorf("subrangeCount(upper_bound=9) = %d, want 10", got)
	}

	e2 := &dwarf.Entry{Field: []dwarf.Field{
		{Attr: dwarf.AttrCount, Val: int64(5)},
	}}
	if got := subrangeCount(e2); got != 5 {
		t.Errorf("subrangeCount(count=5) = %d, want 5", got)
	}

	e3 := &dwarf.Entry{}
	if got := subrangeCount(e3); got != 0 {
		t.Errorf("subrangeCount(no bound) = %d, want 0", got)
	}
}

func TestNormalizeBitfieldDwarf4(t *testing.T) {
	base := &TypeInfo{Name: "unsigned int", Kind: KindUint32, Size: 4}
	// a 3-bit field starting at bit 5 from the start of a 32-bit container,
	// DWARF 4/5 style (DW_AT_data_bit_offset measured from storage start).
	e := &dwarf.Entry{Field: []dwarf.Field{
		{Attr: dwarf.AttrDataBitOffset, Val: int64(5)},
	}}
	byteOffset := 0
	bf := normalizeBitfield(base, e, 3, &byteOffset)

	if bf.Kind != KindBitfield {
		t.Fatalf("expected KindBitfield, got %s", bf.Kind)
	}
	wantLSB := 5 // data_bit_offset is already lsb-relative on little-endian targets
	if bf.BitOffset != wantLSB {
		t.Errorf("BitOffset = %d, want %d", bf.BitOffset, wantLSB)
	}
	if byteOffset != 0 {
		t.Errorf("byteOffset advanced unexpectedly to %d", byteOffset)
	}
}

func TestNormalizeBitfieldDwarf4SpillsIntoNextWord(t *testing.T) {
	base := &TypeInfo{Name: "unsigned int", Kind: KindUint32, Size: 4}
	// data_bit_offset of 35 within a 32-bit storage unit means it actually
	// lives one storage unit further along.
	e := &dwarf.Entry{Field: []dwarf.Field{
		{Attr: dwarf.AttrDataBitOffset, Val: int64(35)},
	}}
	byteOffset := 4
	normalizeBitfield(base, e, 2, &byteOffset)
	if byteOffset != 8 {
		t.Errorf("byteOffset = %d, want 8 (advanced by one storage unit)", byteOffset)
	}
}

func TestNormalizeBitfieldLegacyMSBOffset(t *testing.T) {
	base := &TypeInfo{Name: "unsigned int", Kind: KindUint32, Size: 4}
	// DWARF 2/3: bit_offset counts from the MSB of the storage unit.
	e := &dwarf.Entry{Field: []dwarf.Field{
		{Attr: dwarf.AttrBitOffset, Val: int64(0)},
	}}
	byteOffset := 0
	bf := normalizeBitfield(base, e, 8, &byteOffset)
	wantLSB := 32 - 0 - 8
	if bf.BitOffset != wantLSB {
		t.Errorf("BitOffset = %d, want %d", bf.BitOffset, wantLSB)
	}
}

func TestSignedAndUnsignedKindForSize(t *testing.T) {
	if signedKindForSize(1) != KindSint8 {
		t.Error("signedKindForSize(1) != KindSint8")
	}
	if signedKindForSize(8) != KindSint64 {
		t.Error("signedKindForSize(8) != KindSint64")
	}
	if unsignedKindForSize(2) != KindUint16 {
		t.Error("unsignedKindForSize(2) != KindUint16")
	}
}
