package reclayout

import (
	"testing"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
)

func simpleModule() *a2l.Module {
	l := &a2l.RecordLayout{
		Name: "__UBYTE_Z",
		FncValues: &a2l.RecordLayoutBlock{
			Kind: "FNC_VALUES", Position: 1, DataType: a2l.UByte,
			IndexMode: a2l.RowDir, AddrType: a2l.AddrDirect,
		},
	}
	m := &a2l.Module{RecordLayouts: []*a2l.RecordLayout{l}}
	m.Characteristics = append(m.Characteristics, &a2l.Characteristic{Name: "c1", Deposit: "__UBYTE_Z"})
	m.Characteristics = append(m.Characteristics, &a2l.Characteristic{Name: "c2", Deposit: "__UBYTE_Z"})
	return m
}

func TestMintDefaultIdempotent(t *testing.T) {
	m := &a2l.Module{}
	idx := Build(m)
	n1 := idx.MintDefault(a2l.ULong)
	n2 := idx.MintDefault(a2l.ULong)
	if n1 != n2 {
		t.Errorf("minting twice gave %q and %q, want same name", n1, n2)
	}
	if len(m.RecordLayouts) != 1 {
		t.Errorf("expected 1 layout, got %d", len(m.RecordLayouts))
	}
}

func TestUpdateForTypeSharedLayoutRedirect(t *testing.T) {
	m := simpleModule()
	idx := Build(m)
	if idx.RefCount("__UBYTE_Z") != 2 {
		t.Fatalf("expected refcount 2, got %d", idx.RefCount("__UBYTE_Z"))
	}

	i32 := &dwarf.TypeInfo{Kind: dwarf.KindSint32, Size: 4}
	types := map[uint64]*dwarf.TypeInfo{}

	newName := idx.UpdateForType("__UBYTE_Z", i32, types)
	if newName == "__UBYTE_Z" {
		t.Fatalf("expected a new/redirected layout name, got the same one")
	}
	if idx.RefCount("__UBYTE_Z") != 1 {
		t.Errorf("old layout refcount = %d, want 1 (c2 still uses it)", idx.RefCount("__UBYTE_Z"))
	}
	if idx.RefCount(newName) != 1 {
		t.Errorf("new layout refcount = %d, want 1", idx.RefCount(newName))
	}
}

func TestUpdateForTypeNoOp(t *testing.T) {
	m := simpleModule()
	idx := Build(m)
	u8 := &dwarf.TypeInfo{Kind: dwarf.KindUint8, Size: 1}
	got := idx.UpdateForType("__UBYTE_Z", u8, map[uint64]*dwarf.TypeInfo{})
	if got != "__UBYTE_Z" {
		t.Errorf("same datatype should be a no-op, got redirected to %q", got)
	}
}
