// Package enumconv implements C5, the enum conversion builder: it creates
// and updates COMPU_METHOD/COMPU_VTAB/COMPU_VTAB_RANGE entries from DWARF
// enum types (spec.md §4.5). Grounded on the teacher's own small
// table-builder style in coprocessor/developer/dwarf/types_fragments.go,
// which turns a DWARF aggregate into a flat description table the same way
// this builds a flat value/name table from a DWARF enum.
package enumconv

import (
	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
)

// Registry tracks, for the duration of one update pass, which enum
// conversion names have already been seen so the caller can decide whether
// "first seen" (create) or "subsequent" (resize) behaviour applies, per
// §4.5 ("When a DWARF enum is first seen... On subsequent updates...").
type Registry struct {
	seen map[string]bool
}

// NewRegistry returns an empty enum-conversion registry for one update pass.
func NewRegistry() *Registry { return &Registry{seen: make(map[string]bool)} }

// Ensure implements §4.5 for enum type t: it creates a COMPU_METHOD
// (TAB_VERB, format %.4, compu_tab_ref = same name) if none of that name
// exists, then resizes an existing COMPU_VTAB or COMPU_VTAB_RANGE of that
// name to the enum's current enumerator list (a VTAB_RANGE stays a
// VTAB_RANGE), or creates a COMPU_VTAB with the enum's (value, name) pairs
// when neither exists. This is the same on the first call and on later
// ones. Returns the conversion name to assign to the entity.
func (r *Registry) Ensure(m *a2l.Module, t *dwarf.TypeInfo) string {
	name := t.Name
	if name == "" {
		return ""
	}

	if cm := m.FindCompuMethod(name); cm == nil {
		m.CompuMethods = append(m.CompuMethods, &a2l.CompuMethod{
			Name: name, ConvType: "TAB_VERB", Format: "%.4", CompuTabRef: name,
		})
	}

	if vtab := m.FindCompuVtab(name); vtab != nil {
		resizeVtab(vtab, t)
	} else if vr := m.FindCompuVtabRange(name); vr != nil {
		resizeVtabRange(vr, t)
	} else {
		m.CompuVtabs = append(m.CompuVtabs, buildVtab(name, t))
	}

	r.seen[name] = true
	return name
}

func buildVtab(name string, t *dwarf.TypeInfo) *a2l.CompuVtab {
	v := &a2l.CompuVtab{Name: name}
	for _, e := range t.Enumerators {
		v.Pairs = append(v.Pairs, a2l.CompuVtabPair{Value: e.Value, Text: e.Name})
	}
	return v
}

// resizeVtab implements §4.5 "resize its pairs/triples to match the enum's
// enumerator count, overwriting values and names" for a plain COMPU_VTAB.
func resizeVtab(v *a2l.CompuVtab, t *dwarf.TypeInfo) {
	v.Pairs = v.Pairs[:0]
	for _, e := range t.Enumerators {
		v.Pairs = append(v.Pairs, a2l.CompuVtabPair{Value: e.Value, Text: e.Name})
	}
}

// resizeVtabRange implements the same resize for COMPU_VTAB_RANGE, where
// "both lower and upper bounds of each triple are set to the enumerator's
// value" (§4.5).
func resizeVtabRange(v *a2l.CompuVtabRange, t *dwarf.TypeInfo) {
	v.Triples = v.Triples[:0]
	for _, e := range t.Enumerators {
		v.Triples = append(v.Triples, a2l.CompuVtabRangeTriple{Lower: e.Value, Upper: e.Value, Text: e.Name})
	}
}

// IsRegistered reports whether name is an enum conversion
// registered during this pass, used by the updater's "for each existing
// VTAB/VTAB_RANGE whose name is registered in the enum conversion list"
// resize step when walking pre-existing entities that weren't freshly
// created via Ensure.
func (r *Registry) IsRegistered(name string) bool { return r.seen[name] }
