// Package dwarf implements C1, the DWARF model: it loads an ELF or PE
// binary, parses its DWARF 2-5 debug sections, and produces a queryable
// model of global variables and a deduplicated, reference-resolved type
// graph, in the style of the teacher's own coprocessor/developer/dwarf
// package (which does the same thing for Atari 2600 ARM coprocessor
// cartridges, minus the A2L-specific parts).
package dwarf

import (
	"fmt"
	"strings"
)

// Kind tags the variant carried by a TypeInfo.
type Kind int

const (
	KindUint8 Kind = iota
	KindUint16
	KindUint32
	KindUint64
	KindSint8
	KindSint16
	KindSint32
	KindSint64
	KindFloat
	KindDouble
	KindStruct
	KindUnion
	KindClass
	KindArray
	KindEnum
	KindBitfield
	KindPointer
	KindFuncPtr
	KindTypeRef
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindSint8:
		return "sint8"
	case KindSint16:
		return "sint16"
	case KindSint32:
		return "sint32"
	case KindSint64:
		return "sint64"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindClass:
		return "class"
	case KindArray:
		return "array"
	case KindEnum:
		return "enum"
	case KindBitfield:
		return "bitfield"
	case KindPointer:
		return "pointer"
	case KindFuncPtr:
		return "funcptr"
	case KindTypeRef:
		return "typeref"
	default:
		return "other"
	}
}

// Member describes one field of a Struct/Union/Class, preserving the
// insertion (declaration) order required by record-layout position
// arithmetic (§9 design notes: "Member maps ... require stable insertion
// order").
type Member struct {
	Name   string
	Type   *TypeInfo
	Offset int // byte offset within the enclosing aggregate
}

// Enumerator is one (name, value) pair of an Enum type.
type Enumerator struct {
	Name  string
	Value int64
}

// TypeInfo is one entry of the deduplicated type graph, keyed externally by
// the DIE offset it originated from (see DebugData.Types). Rather than a Go
// interface hierarchy, a single struct carries kind-specific fields the way
// the teacher's own SourceType does -- this avoids an allocation-heavy type
// switch at every call site that just wants .Size() or .Name.
type TypeInfo struct {
	Name string
	Kind Kind

	// DIEOffset is this type's own offset, used as a stable identity when
	// types are copied (e.g. when a typedef clones its target).
	DIEOffset uint64

	// CompileUnit is the index into DebugData.UnitNames this type was found
	// in. Needed to resolve TypeRef targets that were deferred across units.
	CompileUnit int

	// primitive / aggregate byte size. For Pointer this is the pointer
	// width, not the pointee size (§3 invariant c).
	Size int

	// aggregate
	Members     map[string]*Member
	MemberOrder []string // insertion order; Members is keyed for O(1) lookup
	Inheritance map[string]*Member // Class only

	// array
	Dim         []int
	Stride      int
	ElementType *TypeInfo

	// enum
	Enumerators []Enumerator

	// bitfield
	BaseType  *TypeInfo
	BitOffset int // little-endian normalized, lsb-from-storage-start
	BitSize   int

	// pointer / funcptr / typeref
	TargetOffset uint64
	TargetUnit   int
	Signed       bool // for encodings that need it beyond Kind (bitfields)
}

// addMember stores m in Members, recording its name in MemberOrder the first
// time it is seen so iteration stays in declaration order.
func (t *TypeInfo) addMember(m *Member) {
	if t.Members == nil {
		t.Members = make(map[string]*Member)
	}
	if _, exists := t.Members[m.Name]; !exists {
		t.MemberOrder = append(t.MemberOrder, m.Name)
	}
	t.Members[m.Name] = m
}

// OrderedMembers returns this type's members (including flattened
// inheritance, for Class) in declaration order.
func (t *TypeInfo) OrderedMembers() []*Member {
	out := make([]*Member, 0, len(t.MemberOrder))
	for _, name := range t.MemberOrder {
		out = append(out, t.Members[name])
	}
	return out
}

// NthMember returns the n'th member (1-based, per RECORD_LAYOUT `position`
// semantics in §4.4) of a struct type, or the type itself for position 1
// when it isn't a struct.
func (t *TypeInfo) NthMember(position int) *TypeInfo {
	if t == nil {
		return nil
	}
	if t.Kind != KindStruct && t.Kind != KindClass && t.Kind != KindUnion {
		if position == 1 {
			return t
		}
		return nil
	}
	ordered := t.OrderedMembers()
	if position < 1 || position > len(ordered) {
		return nil
	}
	return ordered[position-1].Type
}

// IsArray reports whether t is an Array.
func (t *TypeInfo) IsArray() bool { return t != nil && t.Kind == KindArray }

// IsComposite reports whether t is a Struct/Union/Class.
func (t *TypeInfo) IsComposite() bool {
	return t != nil && (t.Kind == KindStruct || t.Kind == KindUnion || t.Kind == KindClass)
}

// IsPointer reports whether t is a Pointer.
func (t *TypeInfo) IsPointer() bool { return t != nil && t.Kind == KindPointer }

// IsEnum reports whether t is an Enum.
func (t *TypeInfo) IsEnum() bool { return t != nil && t.Kind == KindEnum }

// IsSigned reports whether t's natural value range is signed.
func (t *TypeInfo) IsSigned() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindSint8, KindSint16, KindSint32, KindSint64, KindFloat, KindDouble:
		return true
	case KindBitfield:
		return t.Signed
	case KindEnum:
		for _, e := range t.Enumerators {
			if e.Value < 0 {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// GetSize returns the type's size in bytes. Pointer returns the pointer
// width, not the pointee size (§3 invariant c).
func (t *TypeInfo) GetSize() int {
	if t == nil {
		return 0
	}
	return t.Size
}

// GetReference dereferences any chain of TypeRef to a concrete type, or
// returns the last valid link if the chain is broken (§3 invariant b).
func (t *TypeInfo) GetReference(types map[uint64]*TypeInfo) *TypeInfo {
	cur := t
	seen := make(map[uint64]bool)
	for cur != nil && cur.Kind == KindTypeRef {
		if seen[cur.TargetOffset] {
			break // cyclic TypeRef chain, tolerate damaged debug info
		}
		seen[cur.TargetOffset] = true
		next, ok := types[cur.TargetOffset]
		if !ok {
			break // unresolved TypeRef target: leave as-is, per §3 invariant a
		}
		cur = next
	}
	return cur
}

// Deref follows exactly one layer of TypeRef, per the §9 design-notes
// "deref(types) helper that follows one layer of TypeRef".
func (t *TypeInfo) Deref(types map[uint64]*TypeInfo) *TypeInfo {
	if t == nil || t.Kind != KindTypeRef {
		return t
	}
	if next, ok := types[t.TargetOffset]; ok {
		return next
	}
	return t
}

// NaturalRange returns the type's natural (min, max) internal value range,
// used by the limit-adjustment algorithm in §4.6.
func (t *TypeInfo) NaturalRange() (lo, hi float64) {
	if t == nil {
		return 0, 0
	}
	switch t.Kind {
	case KindUint8:
		return 0, 0xFF
	case KindUint16:
		return 0, 0xFFFF
	case KindUint32:
		return 0, 0xFFFFFFFF
	case KindUint64:
		return 0, 0xFFFFFFFFFFFFFFFF
	case KindSint8:
		return -0x80, 0x7F
	case KindSint16:
		return -0x8000, 0x7FFF
	case KindSint32:
		return -0x80000000, 0x7FFFFFFF
	case KindSint64:
		return -0x8000000000000000, 0x7FFFFFFFFFFFFFFF
	case KindFloat:
		return -3.402823e+38, 3.402823e+38
	case KindDouble:
		return -1.7976931348623157e+308, 1.7976931348623157e+308
	case KindEnum:
		if len(t.Enumerators) == 0 {
			return 0, 0
		}
		lo, hi = float64(t.Enumerators[0].Value), float64(t.Enumerators[0].Value)
		for _, e := range t.Enumerators[1:] {
			v := float64(e.Value)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		return lo, hi
	case KindBitfield:
		rangeSpan := float64(uint64(1)<<uint(t.BitSize) - 1)
		if t.Signed {
			half := rangeSpan / 2
			return -half, half
		}
		return 0, rangeSpan
	default:
		return 0, 0
	}
}

// Mask returns the bitfield mask ((1<<bit_size)-1) << bit_offset, or
// all-ones for non-bitfield types (§8 invariant: bit_mask computation).
func (t *TypeInfo) Mask() uint64 {
	if t == nil {
		return 0xFFFFFFFFFFFFFFFF
	}
	if t.Kind == KindBitfield {
		return ((uint64(1) << uint(t.BitSize)) - 1) << uint(t.BitOffset)
	}
	switch t.Size {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	case 4:
		return 0xFFFFFFFF
	case 8:
		return 0xFFFFFFFFFFFFFFFF
	default:
		return 0xFFFFFFFFFFFFFFFF
	}
}

func (t *TypeInfo) String() string {
	if t == nil {
		return "<nil type>"
	}
	return fmt.Sprintf("%s (%s, %d bytes)", t.Name, t.Kind, t.Size)
}

// compare structurally compares two types the way §4.7's missing-target
// creation needs to ("structurally compared using compare(other, types)
// which dereferences TypeRef, ignores names when one side is anonymous, and
// compares recursively"). types supplies the arena both a and b's TypeRefs
// may need dereferencing against -- in a cross-unit comparison this should
// be a merged view, but within a single DebugData it's the same map.
func Compare(a, b *TypeInfo, types map[uint64]*TypeInfo) bool {
	return compareWithSeen(a, b, types, make(map[[2]uint64]bool))
}

func compareWithSeen(a, b *TypeInfo, types map[uint64]*TypeInfo, seen map[[2]uint64]bool) bool {
	a = a.GetReference(types)
	b = b.GetReference(types)

	if a == nil || b == nil {
		return a == b
	}

	key := [2]uint64{a.DIEOffset, b.DIEOffset}
	if seen[key] {
		return true // already comparing this pair further up the recursion; assume equal to break cycles
	}
	seen[key] = true

	if a.Kind != b.Kind {
		return false
	}
	if a.Size != b.Size {
		return false
	}

	anonA := isAnonymousName(a.Name)
	anonB := isAnonymousName(b.Name)
	if !anonA && !anonB && a.Name != b.Name {
		return false
	}

	switch a.Kind {
	case KindStruct, KindUnion, KindClass:
		if len(a.MemberOrder) != len(b.MemberOrder) {
			return false
		}
		for i, name := range a.MemberOrder {
			bn := b.MemberOrder[i]
			ma, mb := a.Members[name], b.Members[bn]
			if ma.Offset != mb.Offset {
				return false
			}
			if !compareWithSeen(ma.Type, mb.Type, types, seen) {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.Dim) != len(b.Dim) {
			return false
		}
		for i := range a.Dim {
			if a.Dim[i] != b.Dim[i] {
				return false
			}
		}
		return compareWithSeen(a.ElementType, b.ElementType, types, seen)
	case KindEnum:
		if len(a.Enumerators) != len(b.Enumerators) {
			return false
		}
		for i := range a.Enumerators {
			if a.Enumerators[i] != b.Enumerators[i] {
				return false
			}
		}
		return true
	case KindBitfield:
		return a.BitOffset == b.BitOffset && a.BitSize == b.BitSize && a.Signed == b.Signed &&
			compareWithSeen(a.BaseType, b.BaseType, types, seen)
	case KindPointer:
		aTarget, aOK := types[a.TargetOffset]
		bTarget, bOK := types[b.TargetOffset]
		if aOK != bOK {
			return false
		}
		if !aOK {
			return true // both point at unresolved targets; nothing further to compare
		}
		return compareWithSeen(aTarget, bTarget, types, seen)
	default:
		return true
	}
}

func isAnonymousName(name string) bool {
	return name == "" || strings.HasPrefix(name, "_unnamed_")
}
