// Package reclayout implements C4, the record-layout manager: it mints,
// mutates, deduplicates, and refcounts RECORD_LAYOUT entries as the
// datatypes of the entities that use them change (spec.md §4.4). It is
// grounded on the teacher's own index-plus-refcount style seen in
// coprocessor/developer/dwarf/sorting.go and dwarf_stats.go, where a small
// side-table keyed by name is built once per pass and kept consistent
// across mutation -- the same "build an index, mutate through it" shape
// used here for RECORD_LAYOUT.
package reclayout

import (
	"fmt"
	"strings"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/logger"
)

// Index is §3's record-layout index: a name->index map plus a parallel
// refcount vector.
type Index struct {
	module   *a2l.Module
	idxmap   map[string]int
	refcount []int
}

// Build constructs the index from every axis_pts/characteristic entity's
// current deposit reference (§4.4 "Built once from the module").
func Build(m *a2l.Module) *Index {
	idx := &Index{
		module:   m,
		idxmap:   make(map[string]int, len(m.RecordLayouts)),
		refcount: make([]int, len(m.RecordLayouts)),
	}
	for i, l := range m.RecordLayouts {
		idx.idxmap[l.Name] = i
	}
	for _, c := range m.Characteristics {
		idx.incref(c.Deposit)
	}
	for _, ap := range m.AxisPtsList {
		idx.incref(ap.Deposit)
	}
	return idx
}

func (idx *Index) incref(name string) {
	if i, ok := idx.idxmap[name]; ok {
		idx.refcount[i]++
	}
}

func (idx *Index) decref(name string) {
	if i, ok := idx.idxmap[name]; ok && idx.refcount[i] > 0 {
		idx.refcount[i]--
	}
}

// RefCount returns the current reference count of the named layout, or 0 if
// unknown.
func (idx *Index) RefCount(name string) int {
	if i, ok := idx.idxmap[name]; ok {
		return idx.refcount[i]
	}
	return 0
}

// blockKinds lists the RECORD_LAYOUT sub-block kinds in the fixed order
// position arithmetic depends on. UpdateForType walks the same order with
// its own FNC_VALUES-then-axis-letters loop rather than through this list.
var blockKinds = []string{"FNC_VALUES", "AXIS_PTS_X", "AXIS_PTS_Y", "AXIS_PTS_Z", "AXIS_PTS_4", "AXIS_PTS_5"}

func axisLetter(kind string) string {
	return strings.TrimPrefix(kind, "AXIS_PTS_")
}

// UpdateForType implements §4.4's update protocol: given the layout
// currently named oldName and the DWARF type T now backing the entity, it
// returns the name of the layout the entity should reference afterward,
// mutating the module's RecordLayouts/idxmap/refcount as needed.
func (idx *Index) UpdateForType(oldName string, t *dwarf.TypeInfo, types map[uint64]*dwarf.TypeInfo) string {
	oldIdx, ok := idx.idxmap[oldName]
	if !ok {
		return oldName
	}
	old := idx.module.RecordLayouts[oldIdx]
	updated := old.Clone()

	changed := false
	if updated.FncValues != nil {
		if applyBlock(updated.FncValues, t, types) {
			changed = true
		}
	}
	for _, letter := range []string{"X", "Y", "Z", "4", "5"} {
		blk, ok := updated.AxisPts[letter]
		if !ok {
			continue
		}
		member := t.NthMember(blk.Position)
		if applyBlock(blk, member.GetReference(types), types) {
			changed = true
		}
		if member != nil {
			ref := member.GetReference(types)
			if ref != nil && ref.IsArray() && len(ref.Dim) > 0 {
				if updated.FixNoAxisPts == nil {
					updated.FixNoAxisPts = make(map[string]int)
				}
				if updated.FixNoAxisPts[letter] != ref.Dim[0] {
					updated.FixNoAxisPts[letter] = ref.Dim[0]
					changed = true
				}
			}
		}
	}

	if !changed {
		return oldName // step 3: L' == L, no-op
	}

	renameFncValuesDatatype(old, updated)

	// step 4: search for an existing layout equal to L' modulo name
	for i, l := range idx.module.RecordLayouts {
		if i == oldIdx {
			continue
		}
		if l.Equal(updated) {
			idx.decref(oldName)
			idx.refcount[i]++
			return l.Name
		}
	}

	if idx.refcount[oldIdx] <= 1 {
		// step 5: overwrite in place
		updated.Name = old.Name
		idx.module.RecordLayouts[oldIdx] = updated
		return updated.Name
	}

	// step 6: mint a unique name
	newName := mintLayoutName(updated.Name, idx.idxmap)
	updated.Name = newName
	idx.module.RecordLayouts = append(idx.module.RecordLayouts, updated)
	idx.idxmap[newName] = len(idx.module.RecordLayouts) - 1
	idx.refcount = append(idx.refcount, 1)
	idx.decref(oldName)
	return newName
}

// mintLayoutName implements §4.4 step 6's naming scheme: "<name>_UPDATED",
// then ".2", ".3"... if that in turn already ends in _UPDATED or
// _UPDATED.n, increment the trailing counter instead.
func mintLayoutName(name string, existing map[string]int) string {
	base := name
	n := 1
	if i := strings.LastIndex(name, "_UPDATED"); i >= 0 {
		rest := name[i+len("_UPDATED"):]
		if rest == "" {
			base = name[:i] + "_UPDATED"
			n = 2
		} else if strings.HasPrefix(rest, ".") {
			var counter int
			if _, err := fmt.Sscanf(rest[1:], "%d", &counter); err == nil {
				base = name[:i] + "_UPDATED"
				n = counter + 1
			}
		}
	}
	if n == 1 {
		base = name + "_UPDATED"
	}
	candidate := base
	for {
		if _, clash := existing[candidate]; !clash {
			return candidate
		}
		candidate = fmt.Sprintf("%s.%d", base, n)
		n++
	}
}

// renameFncValuesDatatype does the "targeted substring replacement of the
// old FNC_VALUES datatype with the new one (e.g. __UBYTE_Z -> __ULONG_Z)"
// described in §4.4 step 2.
func renameFncValuesDatatype(old, updated *a2l.RecordLayout) {
	if old.FncValues == nil || updated.FncValues == nil {
		return
	}
	if old.FncValues.DataType == updated.FncValues.DataType {
		return
	}
	oldTok := string(old.FncValues.DataType)
	newTok := string(updated.FncValues.DataType)
	if strings.Contains(updated.Name, oldTok) {
		updated.Name = strings.Replace(updated.Name, oldTok, newTok, 1)
	}
}

// applyBlock replaces blk's datatype with the A2L datatype derived from t,
// returning whether anything changed.
func applyBlock(blk *a2l.RecordLayoutBlock, t *dwarf.TypeInfo, types map[uint64]*dwarf.TypeInfo) bool {
	if blk == nil || t == nil {
		return false
	}
	dt := dwarfToA2LType(t)
	if blk.DataType == dt {
		return false
	}
	blk.DataType = dt
	return true
}

// dwarfToA2LType maps a DWARF type's Kind to an A2L DataType keyword.
func dwarfToA2LType(t *dwarf.TypeInfo) a2l.DataType {
	if t == nil {
		return a2l.UByte
	}
	switch t.Kind {
	case dwarf.KindUint8:
		return a2l.UByte
	case dwarf.KindSint8:
		return a2l.SByte
	case dwarf.KindUint16:
		return a2l.UWord
	case dwarf.KindSint16:
		return a2l.SWord
	case dwarf.KindUint32:
		return a2l.ULong
	case dwarf.KindSint32:
		return a2l.SLong
	case dwarf.KindUint64:
		return a2l.UInt64
	case dwarf.KindSint64:
		return a2l.Int64
	case dwarf.KindFloat:
		return a2l.Float32
	case dwarf.KindDouble:
		return a2l.Float64
	case dwarf.KindEnum:
		switch t.Size {
		case 1:
			return a2l.UByte
		case 2:
			return a2l.UWord
		default:
			return a2l.ULong
		}
	case dwarf.KindBitfield:
		return dwarfToA2LType(t.BaseType)
	case dwarf.KindArray:
		return dwarfToA2LType(t.ElementType)
	case dwarf.KindPointer:
		switch t.Size {
		case 2:
			return a2l.UWord
		case 8:
			return a2l.UInt64
		default:
			return a2l.ULong
		}
	default:
		return a2l.UByte
	}
}

// DwarfToA2LType exports dwarfToA2LType for use by other components (C6,
// C7) that need the same mapping.
func DwarfToA2LType(t *dwarf.TypeInfo) a2l.DataType { return dwarfToA2LType(t) }

// MintDefault implements §4.4's "Default minting": when a CHARACTERISTIC has
// no record layout, create "__<datatype>_Z" with a single FNC_VALUES at
// position 1, RowDir/Direct. Idempotent per module: a second call with the
// same datatype returns the existing layout's name unchanged (§8 round-trip
// law "Record-layout minting with the same datatype twice returns the same
// layout name").
func (idx *Index) MintDefault(dt a2l.DataType) string {
	name := fmt.Sprintf("__%s_Z", dt)
	if _, ok := idx.idxmap[name]; ok {
		return name
	}
	l := &a2l.RecordLayout{
		Name: name,
		FncValues: &a2l.RecordLayoutBlock{
			Kind: "FNC_VALUES", Position: 1, DataType: dt,
			IndexMode: a2l.RowDir, AddrType: a2l.AddrDirect,
		},
	}
	idx.module.RecordLayouts = append(idx.module.RecordLayouts, l)
	idx.idxmap[name] = len(idx.module.RecordLayouts) - 1
	idx.refcount = append(idx.refcount, 0)
	logMint(name)
	return name
}

// Reference increments the named layout's refcount, used when an entity is
// newly pointed at a layout (including a freshly minted default).
func (idx *Index) Reference(name string) { idx.incref(name) }

// Unreference decrements the named layout's refcount, used when an entity
// stops referring to a layout (deletion, redirection away).
func (idx *Index) Unreference(name string) { idx.decref(name) }

// Orphans returns the names of every layout with refcount 0, for
// diagnostics (§7 kind 5: "no user-visible failure; layouts are only ever
// redirected, refcount invariants must hold").
func (idx *Index) Orphans() []string {
	var out []string
	for name, i := range idx.idxmap {
		if idx.refcount[i] == 0 {
			out = append(out, name)
		}
	}
	return out
}

func logMint(name string) {
	logger.Log("reclayout", "minted default record layout %s", name)
}
