package dwarf

import (
	"debug/dwarf"
	"sort"
)

// unitInfo records enough about a compile unit to map an arbitrary DIE
// offset back to the unit it was declared in (§4.1 "Cross-unit
// references"). Go's debug/dwarf exposes DIE offsets as global byte offsets
// into .debug_info but doesn't directly expose which CU an arbitrary offset
// belongs to, so we build that table ourselves from the CU entries seen
// during the initial walk.
type unitInfo struct {
	offset   uint64 // offset of the TagCompileUnit DIE itself
	name     string
	addrBase int64
	hasBase  bool
}

// unitList is a UnitList (§4.1) sorted by starting offset, supporting
// binary search from an arbitrary DIE offset to its owning unit.
type unitList struct {
	units []unitInfo
}

func (ul *unitList) add(u unitInfo) int {
	ul.units = append(ul.units, u)
	return len(ul.units) - 1
}

// finalize must be called once all units are known; it sorts by offset so
// indexOf's binary search is valid.
func (ul *unitList) finalize() {
	sort.Slice(ul.units, func(i, j int) bool { return ul.units[i].offset < ul.units[j].offset })
}

// indexOf returns the index of the unit that contains the DIE at off, found
// by locating the last unit whose starting offset is <= off.
func (ul *unitList) indexOf(off uint64) int {
	i := sort.Search(len(ul.units), func(i int) bool { return ul.units[i].offset > off })
	if i == 0 {
		return 0
	}
	return i - 1
}

// attrInt64 retrieves an int64-valued attribute, honoring DW_AT_specification
// and DW_AT_abstract_origin indirection when the primary entry lacks it
// (§4.1 "Honor DW_AT_specification and DW_AT_abstract_origin chains when
// attributes are missing from the primary DIE").
func attrInt64(r *dwarf.Reader, e *dwarf.Entry, attr dwarf.Attr) (int64, bool) {
	v, ok := followIndirection(r, e, attr)
	if !ok {
		return 0, false
	}
	iv, ok := v.(int64)
	return iv, ok
}

func attrString(r *dwarf.Reader, e *dwarf.Entry, attr dwarf.Attr) (string, bool) {
	v, ok := followIndirection(r, e, attr)
	if !ok {
		return "", false
	}
	sv, ok := v.(string)
	return sv, ok
}

// followIndirection looks up attr on e; if absent, follows
// DW_AT_specification then DW_AT_abstract_origin to another entry and tries
// again there, one level at a time, up to a small fixed depth to avoid
// cycles in damaged debug info.
func followIndirection(r *dwarf.Reader, e *dwarf.Entry, attr dwarf.Attr) (any, bool) {
	cur := e
	for depth := 0; depth < 4 && cur != nil; depth++ {
		if v := cur.Val(attr); v != nil {
			return v, true
		}

		var next dwarf.Offset
		if v := cur.Val(dwarf.AttrSpecification); v != nil {
			next, _ = v.(dwarf.Offset)
		} else if v := cur.Val(dwarf.AttrAbstractOrigin); v != nil {
			next, _ = v.(dwarf.Offset)
		} else {
			return nil, false
		}

		r.Seek(next)
		ne, err := r.Next()
		if err != nil || ne == nil {
			return nil, false
		}
		cur = ne
	}
	return nil, false
}
