package update

import (
	"testing"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
)

func debugDataWith(name string, addr uint64, t *dwarf.TypeInfo, types map[uint64]*dwarf.TypeInfo) *dwarf.DebugData {
	if types == nil {
		types = map[uint64]*dwarf.TypeInfo{}
	}
	return &dwarf.DebugData{
		Variables: map[string][]dwarf.VarInfo{name: {{Address: addr, TypeOffset: t.DIEOffset}}},
		Types:     types,
		Demangled: map[string]string{},
	}
}

// Scenario 1 from spec.md §8: MEASUREMENT `foo` UBYTE/0 updates to match a
// DWARF uint16_t at 0x2000.
func TestMeasurementUpdateScenario1(t *testing.T) {
	u16 := &dwarf.TypeInfo{DIEOffset: 1, Kind: dwarf.KindUint16, Size: 2}
	dd := debugDataWith("foo", 0x2000, u16, map[uint64]*dwarf.TypeInfo{1: u16})

	mod := &a2l.Module{Measurements: []*a2l.Measurement{
		{Name: "foo", DataType: a2l.UByte, ECUAddress: 0},
	}}

	s := Module(mod, dd, Options{SymbolLinks: true, Axis17Plus: true})
	if s.Updated["MEASUREMENT"] != 1 {
		t.Fatalf("expected 1 updated measurement, summary: %+v", s)
	}

	m := mod.FindMeasurement("foo")
	if m.ECUAddress != 0x2000 {
		t.Errorf("address = %#x, want 0x2000", m.ECUAddress)
	}
	if m.DataType != a2l.UWord {
		t.Errorf("datatype = %s, want UWORD", m.DataType)
	}
	if m.BitMask != 0 {
		t.Errorf("bit_mask = %#x, want 0", m.BitMask)
	}
	if m.SymbolLink == nil || m.SymbolLink.SymbolName != "foo" {
		t.Errorf("SYMBOL_LINK missing or wrong: %+v", m.SymbolLink)
	}
}

// Scenario 2: bitfield member S.c at 0x3004 with mask 0x007FFFFF.
func TestMeasurementBitfieldScenario2(t *testing.T) {
	u32 := &dwarf.TypeInfo{DIEOffset: 1, Kind: dwarf.KindUint32, Size: 4}
	a := &dwarf.TypeInfo{DIEOffset: 2, Kind: dwarf.KindBitfield, Size: 4, BaseType: u32, BitOffset: 0, BitSize: 5}
	b := &dwarf.TypeInfo{DIEOffset: 3, Kind: dwarf.KindBitfield, Size: 4, BaseType: u32, BitOffset: 5, BitSize: 5}
	// c doesn't fit in the 22 remaining bits of the first storage word
	// (offset 10, 32-10=22 < 23), so it starts a new storage unit at
	// byte offset 4 with bit_offset 0; d continues packing after it.
	c := &dwarf.TypeInfo{DIEOffset: 4, Kind: dwarf.KindBitfield, Size: 4, BaseType: u32, BitOffset: 0, BitSize: 23}
	d := &dwarf.TypeInfo{DIEOffset: 5, Kind: dwarf.KindBitfield, Size: 4, BaseType: u32, BitOffset: 23, BitSize: 1}
	s := &dwarf.TypeInfo{
		DIEOffset: 6, Kind: dwarf.KindStruct, Size: 8,
		MemberOrder: []string{"a", "b", "c", "d"},
		Members: map[string]*dwarf.Member{
			"a": {Name: "a", Type: a, Offset: 0},
			"b": {Name: "b", Type: b, Offset: 0},
			"c": {Name: "c", Type: c, Offset: 4},
			"d": {Name: "d", Type: d, Offset: 4},
		},
	}
	types := map[uint64]*dwarf.TypeInfo{1: u32, 2: a, 3: b, 4: c, 5: d, 6: s}
	dd := debugDataWith("S", 0x3000, s, types)

	mod := &a2l.Module{Measurements: []*a2l.Measurement{
		{Name: "S.c", DataType: a2l.UByte},
	}}
	Module(mod, dd, Options{})

	m := mod.FindMeasurement("S.c")
	if m.ECUAddress != 0x3004 {
		t.Errorf("address = %#x, want 0x3004", m.ECUAddress)
	}
	want := uint64(0x007FFFFF)
	if m.BitMask != want {
		t.Errorf("bit_mask = %#x, want %#x", m.BitMask, want)
	}
}

// Scenario 3: enum conversion builder wiring through the updater.
func TestMeasurementEnumConversionScenario3(t *testing.T) {
	e := &dwarf.TypeInfo{
		DIEOffset: 1, Kind: dwarf.KindEnum, Name: "E", Size: 4,
		Enumerators: []dwarf.Enumerator{{Name: "A", Value: 0}, {Name: "B", Value: 1}, {Name: "C", Value: 2}},
	}
	dd := debugDataWith("e", 0x4000, e, map[uint64]*dwarf.TypeInfo{1: e})

	mod := &a2l.Module{Measurements: []*a2l.Measurement{
		{Name: "e", Conversion: "NO_COMPU_METHOD"},
	}}
	Module(mod, dd, Options{})

	m := mod.FindMeasurement("e")
	if m.Conversion != "E" {
		t.Fatalf("conversion = %q, want E", m.Conversion)
	}
	vt := mod.FindCompuVtab("E")
	if vt == nil || len(vt.Pairs) != 3 {
		t.Fatalf("expected COMPU_VTAB E with 3 pairs, got %+v", vt)
	}
}

func TestCharacteristicScalarToValBlkAndBack(t *testing.T) {
	u8 := &dwarf.TypeInfo{DIEOffset: 1, Kind: dwarf.KindUint8, Size: 1}
	arr := &dwarf.TypeInfo{DIEOffset: 2, Kind: dwarf.KindArray, Dim: []int{7}, Stride: 1, ElementType: u8}
	types := map[uint64]*dwarf.TypeInfo{1: u8, 2: arr}

	dd := debugDataWith("p", 0x5000, arr, types)
	mod := &a2l.Module{Characteristics: []*a2l.Characteristic{
		{Name: "p", Type: a2l.Value},
	}}
	Module(mod, dd, Options{Axis17Plus: true})

	c := mod.FindCharacteristic("p")
	if c.Type != a2l.ValBlk {
		t.Fatalf("type = %s, want VAL_BLK", c.Type)
	}
	if len(c.MatrixDim) != 1 || c.MatrixDim[0] != 7 {
		t.Fatalf("matrix_dim = %v, want [7]", c.MatrixDim)
	}

	// and back: the same symbol as a scalar demotes to VALUE again
	Module(mod, debugDataWith("p", 0x5000, u8, types), Options{Axis17Plus: true})
	c = mod.FindCharacteristic("p")
	if c.Type != a2l.Value {
		t.Fatalf("type after scalar update = %s, want VALUE", c.Type)
	}
	if c.MatrixDim != nil {
		t.Fatalf("matrix_dim after scalar update = %v, want nil", c.MatrixDim)
	}
}

func TestCharacteristicAsciiSetsNumber(t *testing.T) {
	i8 := &dwarf.TypeInfo{DIEOffset: 1, Kind: dwarf.KindSint8, Size: 1}
	arr := &dwarf.TypeInfo{DIEOffset: 2, Kind: dwarf.KindArray, Dim: []int{16}, Stride: 1, ElementType: i8}
	types := map[uint64]*dwarf.TypeInfo{1: i8, 2: arr}
	dd := debugDataWith("str", 0x6000, arr, types)

	mod := &a2l.Module{Characteristics: []*a2l.Characteristic{
		{Name: "str", Type: a2l.Ascii},
	}}
	Module(mod, dd, Options{})

	c := mod.FindCharacteristic("str")
	if c.Number != 16 {
		t.Fatalf("number = %d, want 16", c.Number)
	}
	if c.MatrixDim != nil {
		t.Fatalf("matrix_dim = %v, want nil for ASCII", c.MatrixDim)
	}
}

func TestCleanupStripsRemovedNamesFromGroups(t *testing.T) {
	mod := &a2l.Module{
		Groups: []*a2l.Group{{Name: "g", RefMeasurement: []string{"gone", "kept"}}},
	}
	cleanup(mod, []string{"gone"})
	if len(mod.Groups[0].RefMeasurement) != 1 || mod.Groups[0].RefMeasurement[0] != "kept" {
		t.Fatalf("cleanup left %v, want [kept]", mod.Groups[0].RefMeasurement)
	}
}

func TestUpdateIdempotent(t *testing.T) {
	u16 := &dwarf.TypeInfo{DIEOffset: 1, Kind: dwarf.KindUint16, Size: 2}
	dd := debugDataWith("foo", 0x2000, u16, map[uint64]*dwarf.TypeInfo{1: u16})
	mod := &a2l.Module{Measurements: []*a2l.Measurement{{Name: "foo", DataType: a2l.UByte}}}

	Module(mod, dd, Options{SymbolLinks: true, Axis17Plus: true})
	snapshot := *mod.FindMeasurement("foo")

	Module(mod, dd, Options{SymbolLinks: true, Axis17Plus: true})
	again := mod.FindMeasurement("foo")
	if again.ECUAddress != snapshot.ECUAddress || again.DataType != snapshot.DataType {
		t.Fatalf("second update pass changed state: %+v vs %+v", again, snapshot)
	}
}
