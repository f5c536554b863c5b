package enumconv

import (
	"testing"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
)

func enumType() *dwarf.TypeInfo {
	return &dwarf.TypeInfo{
		Name: "E", Kind: dwarf.KindEnum, Size: 4,
		Enumerators: []dwarf.Enumerator{{Name: "A", Value: 0}, {Name: "B", Value: 1}, {Name: "C", Value: 2}},
	}
}

func TestEnsureCreatesConversion(t *testing.T) {
	m := &a2l.Module{}
	r := NewRegistry()
	name := r.Ensure(m, enumType())
	if name != "E" {
		t.Fatalf("name = %q, want E", name)
	}
	cm := m.FindCompuMethod("E")
	if cm == nil || cm.ConvType != "TAB_VERB" || cm.CompuTabRef != "E" {
		t.Fatalf("compu method not created correctly: %+v", cm)
	}
	vt := m.FindCompuVtab("E")
	if vt == nil || len(vt.Pairs) != 3 {
		t.Fatalf("vtab not created correctly: %+v", vt)
	}
}

func TestEnsureResizesOnEnumGrowth(t *testing.T) {
	m := &a2l.Module{}
	r := NewRegistry()
	e := enumType()
	r.Ensure(m, e)

	e.Enumerators = append(e.Enumerators, dwarf.Enumerator{Name: "D", Value: 3})
	r.Ensure(m, e)

	vt := m.FindCompuVtab("E")
	if len(vt.Pairs) != 4 {
		t.Fatalf("expected 4 pairs after resize, got %d", len(vt.Pairs))
	}
	if vt.Pairs[3].Text != "D" {
		t.Errorf("pairs[3] = %+v, want D", vt.Pairs[3])
	}
}

func TestEnsurePreservesVtabRangeKind(t *testing.T) {
	m := &a2l.Module{}
	m.CompuVtabRanges = append(m.CompuVtabRanges, &a2l.CompuVtabRange{Name: "E"})
	r := NewRegistry()
	r.Ensure(m, enumType())

	if m.FindCompuVtab("E") != nil {
		t.Error("should not have created a COMPU_VTAB when a COMPU_VTAB_RANGE already exists")
	}
	vr := m.FindCompuVtabRange("E")
	if len(vr.Triples) != 3 {
		t.Fatalf("expected 3 triples, got %d", len(vr.Triples))
	}
	if vr.Triples[1].Lower != 1 || vr.Triples[1].Upper != 1 {
		t.Errorf("triple[1] = %+v, want lower=upper=1", vr.Triples[1])
	}
}
