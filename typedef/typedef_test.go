package typedef

import (
	"testing"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/reclayout"
)

// Scenario 6 from spec.md §8: INSTANCE `inst` of nonexistent `unknown_t`,
// backed by a DWARF struct{int32 a; float b}, should mint a new
// TYPEDEF_STRUCTURE with measurement components and redirect the instance.
func TestEnsureForInstancesCreatesStructure(t *testing.T) {
	i32 := &dwarf.TypeInfo{DIEOffset: 1, Kind: dwarf.KindSint32, Size: 4}
	f32 := &dwarf.TypeInfo{DIEOffset: 2, Kind: dwarf.KindFloat, Size: 4}
	st := &dwarf.TypeInfo{
		DIEOffset: 3, Kind: dwarf.KindStruct, Size: 8,
		MemberOrder: []string{"a", "b"},
		Members: map[string]*dwarf.Member{
			"a": {Name: "a", Type: i32, Offset: 0},
			"b": {Name: "b", Type: f32, Offset: 4},
		},
	}
	types := map[uint64]*dwarf.TypeInfo{1: i32, 2: f32, 3: st}
	dd := &dwarf.DebugData{Types: types}

	mod := &a2l.Module{
		Instances: []*a2l.Instance{{Name: "inst", TypedefName: "unknown_t"}},
	}
	rl := reclayout.Build(mod)
	r := New(mod, dd, rl)

	r.EnsureForInstances(map[string]*dwarf.TypeInfo{"inst": st})

	inst := mod.FindInstance("inst")
	if inst.TypedefName == "unknown_t" {
		t.Fatal("instance was not redirected to a newly minted typedef")
	}
	newStruct := mod.FindTypedefStructure(inst.TypedefName)
	if newStruct == nil {
		t.Fatalf("no TYPEDEF_STRUCTURE named %q was created", inst.TypedefName)
	}
	if len(newStruct.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(newStruct.Components))
	}
	if newStruct.Components[0].SymbolTypeLink != "a" || newStruct.Components[1].SymbolTypeLink != "b" {
		t.Fatalf("unexpected component order/names: %+v", newStruct.Components)
	}

	aRef := mod.FindTypedefMeasurement(newStruct.Components[0].TypedefRef)
	if aRef == nil || aRef.DataType != a2l.SLong {
		t.Fatalf("component a's typedef = %+v, want SLONG measurement", aRef)
	}
	bRef := mod.FindTypedefMeasurement(newStruct.Components[1].TypedefRef)
	if bRef == nil || bRef.DataType != a2l.Float32 {
		t.Fatalf("component b's typedef = %+v, want FLOAT32 measurement", bRef)
	}
}

func TestGCRemovesUnreferencedTypedefs(t *testing.T) {
	mod := &a2l.Module{
		TypedefMeasurements: []*a2l.TypedefMeasurement{{Name: "orphan"}, {Name: "used"}},
		Instances:           []*a2l.Instance{{Name: "i1", TypedefName: "used"}},
	}
	r := New(mod, &dwarf.DebugData{Types: map[uint64]*dwarf.TypeInfo{}}, nil)
	r.GC()

	if mod.FindTypedefMeasurement("orphan") != nil {
		t.Error("orphaned typedef measurement was not collected")
	}
	if mod.FindTypedefMeasurement("used") == nil {
		t.Error("referenced typedef measurement was incorrectly collected")
	}
}

func TestClassifyStructuresFixedPoint(t *testing.T) {
	mod := &a2l.Module{
		TypedefCharacteristics: []*a2l.TypedefCharacteristic{{Name: "Param_A"}},
		TypedefStructures: []*a2l.TypedefStructure{
			{Name: "Inner", Components: []a2l.StructureComponent{{Name: "p", TypedefRef: "Param_A"}}},
			{Name: "Outer", Components: []a2l.StructureComponent{{Name: "inner", TypedefRef: "Inner"}}},
		},
	}
	r := New(mod, &dwarf.DebugData{Types: map[uint64]*dwarf.TypeInfo{}}, nil)
	r.ClassifyStructures()

	if !mod.FindTypedefStructure("Inner").IsCalib {
		t.Error("Inner should be calib (references a TYPEDEF_CHARACTERISTIC)")
	}
	if !mod.FindTypedefStructure("Outer").IsCalib {
		t.Error("Outer should inherit calib via Inner (transitive reachability)")
	}
}
