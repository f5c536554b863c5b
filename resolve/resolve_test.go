package resolve

import (
	"testing"

	"github.com/jetsetilly/a2lsync/dwarf"
)

func structType() (*dwarf.TypeInfo, map[uint64]*dwarf.TypeInfo) {
	u16 := &dwarf.TypeInfo{DIEOffset: 1, Kind: dwarf.KindUint16, Size: 2}
	u8 := &dwarf.TypeInfo{DIEOffset: 2, Kind: dwarf.KindUint8, Size: 1}
	arr := &dwarf.TypeInfo{DIEOffset: 3, Kind: dwarf.KindArray, Dim: []int{4}, Stride: 2, ElementType: u16}
	s := &dwarf.TypeInfo{
		DIEOffset: 4, Kind: dwarf.KindStruct, Size: 16,
		MemberOrder: []string{"a", "b", "arr"},
		Members: map[string]*dwarf.Member{
			"a":   {Name: "a", Type: u8, Offset: 0},
			"b":   {Name: "b", Type: u16, Offset: 2},
			"arr": {Name: "arr", Type: arr, Offset: 4},
		},
	}
	types := map[uint64]*dwarf.TypeInfo{1: u16, 2: u8, 3: arr, 4: s}
	return s, types
}

func debugDataWith(name string, addr uint64, t *dwarf.TypeInfo, types map[uint64]*dwarf.TypeInfo) *dwarf.DebugData {
	return &dwarf.DebugData{
		Variables: map[string][]dwarf.VarInfo{
			name: {{Address: addr, TypeOffset: t.DIEOffset}},
		},
		Types:     types,
		Demangled: map[string]string{},
	}
}

func TestResolveMember(t *testing.T) {
	s, types := structType()
	dd := debugDataWith("foo", 0x1000, s, types)

	res, errStrs := Resolve("foo.b", dd)
	if errStrs != nil {
		t.Fatalf("unexpected errors: %v", errStrs)
	}
	if res.Address != 0x1002 {
		t.Errorf("address = %#x, want 0x1002", res.Address)
	}
	if res.Type.Kind != dwarf.KindUint16 {
		t.Errorf("type = %s, want uint16", res.Type.Kind)
	}
}

func TestResolveArrayIndexAndUnderscoreForm(t *testing.T) {
	s, types := structType()
	dd := debugDataWith("foo", 0x1000, s, types)

	res, errStrs := Resolve("foo.arr[2]", dd)
	if errStrs != nil {
		t.Fatalf("unexpected errors: %v", errStrs)
	}
	if res.Address != 0x1004+2*2 {
		t.Errorf("address = %#x, want %#x", res.Address, 0x1004+4)
	}

	res2, errStrs2 := Resolve("foo.arr._2_", dd)
	if errStrs2 != nil {
		t.Fatalf("unexpected errors: %v", errStrs2)
	}
	if res2.Address != res.Address {
		t.Errorf("._2_ form gave %#x, want %#x (same as [2])", res2.Address, res.Address)
	}
}

func TestResolveArrayDefaultsToZero(t *testing.T) {
	s, types := structType()
	dd := debugDataWith("foo", 0x1000, s, types)

	res, errStrs := Resolve("foo.arr", dd)
	if errStrs != nil {
		t.Fatalf("unexpected errors: %v", errStrs)
	}
	if res.Address != 0x1004 {
		t.Errorf("address = %#x, want 0x1004 (index 0)", res.Address)
	}
}

func TestResolveOutOfBounds(t *testing.T) {
	s, types := structType()
	dd := debugDataWith("foo", 0x1000, s, types)

	_, errStrs := Resolve("foo.arr[9]", dd)
	if errStrs == nil {
		t.Fatal("expected an out-of-bounds error")
	}
}

func TestResolveUnknownSymbol(t *testing.T) {
	dd := &dwarf.DebugData{Variables: map[string][]dwarf.VarInfo{}, Types: map[uint64]*dwarf.TypeInfo{}, Demangled: map[string]string{}}
	_, errStrs := Resolve("nope", dd)
	if errStrs == nil {
		t.Fatal("expected a not-found error")
	}
}

func TestResolveDemangledFallback(t *testing.T) {
	s, types := structType()
	dd := debugDataWith("_Z3fooi", 0x2000, s, types)
	dd.Demangled["foo"] = "_Z3fooi"

	res, errStrs := Resolve("foo.a", dd)
	if errStrs != nil {
		t.Fatalf("unexpected errors: %v", errStrs)
	}
	if res.Address != 0x2000 {
		t.Errorf("address = %#x, want 0x2000", res.Address)
	}
}
