// Package resolve implements C2, the symbol resolver: it maps an A2L
// identifier -- possibly carrying struct-member or array-index suffixes, and
// possibly a mangled C++ name -- to an (address, type) pair inside a
// dwarf.DebugData model (spec.md §4.2). It is grounded on the teacher's own
// source_dwarf_loclist_operations.go address-from-expression walk and the
// general "resolve a dotted path through a type" shape used throughout
// coprocessor/developer/source_variables*.go, adapted from CPU-register
// expressions to the A2L name grammar described in §4.2.
package resolve

import (
	"strconv"
	"strings"

	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/errs"
)

// Result is a successful resolution: the fully qualified name actually used
// (after demangled-name substitution), the computed address, and the type
// reached after descending every suffix component.
type Result struct {
	ResolvedName string
	Address      uint64
	Type         *dwarf.TypeInfo
	Unit         int
}

// Resolve implements §4.2's algorithm. Errors are returned as a list of
// strings, one per attempted path, per spec.md §4.2 ("Errors are surfaced as
// a list of strings so that the CLI can log each attempted resolution
// path").
func Resolve(name string, dd *dwarf.DebugData) (Result, []string) {
	head, comps := splitName(name)

	vars, ok := dd.Variables[head]
	triedHead := head
	if !ok {
		if mangled, ok2 := dd.Demangled[head]; ok2 {
			vars, ok = dd.Variables[mangled]
			triedHead = mangled
		}
	}
	if !ok || len(vars) == 0 {
		return Result{}, []string{
			errs.Errorf("symbol %q not found in DWARF variable map", head).Error(),
		}
	}

	// Multiple VarInfo entries occur for statics in different translation
	// units (§3); the first usable one is taken, same as the teacher's own
	// "first match wins" address lookup.
	var lastErr []string
	for _, v := range vars {
		t := dd.Types[v.TypeOffset]
		addr, typ, errStrs := descend(v.Address, t, comps, dd.Types)
		if errStrs != nil {
			lastErr = errStrs
			continue
		}
		return Result{ResolvedName: triedHead + name[len(head):], Address: addr, Type: typ, Unit: v.Unit}, nil
	}
	return Result{}, lastErr
}

// nameComponent is one suffix component: either a named member access or an
// array index.
type nameComponent struct {
	member string
	index  int
	isIdx  bool
}

// splitName implements §4.2's name grammar: split at '.', then extract
// trailing [n]/._n_ index tokens as separate components. [n] and ._n_ are
// treated identically (§4.2: "equivalent, the underscore form predates A2L
// 1.7").
func splitName(name string) (string, []nameComponent) {
	// First, normalize "._n_" occurrences into "[n]" so a single pass over
	// '.'-split parts plus bracket-stripping handles both forms.
	normalized := normalizeUnderscoreIndices(name)

	parts := strings.Split(normalized, ".")
	head := parts[0]

	var comps []nameComponent
	for _, p := range parts[1:] {
		comps = append(comps, parseDotComponent(p)...)
	}

	// The head itself may carry trailing [n] brackets (e.g. "arr[0]").
	headBase, headIdx := extractBracketIndices(head)
	return headBase, append(headIdx, comps...)
}

// normalizeUnderscoreIndices rewrites "._n_" to "[n]" wherever it occurs, so
// splitName's '.' pass doesn't need two code paths.
func normalizeUnderscoreIndices(name string) string {
	var b strings.Builder
	i := 0
	for i < len(name) {
		if name[i] == '.' && i+1 < len(name) && name[i+1] == '_' {
			// look for closing "_" after digits
			j := i + 2
			start := j
			for j < len(name) && name[j] >= '0' && name[j] <= '9' {
				j++
			}
			if j > start && j < len(name) && name[j] == '_' {
				b.WriteString("[")
				b.WriteString(name[start:j])
				b.WriteString("]")
				i = j + 1
				continue
			}
		}
		b.WriteByte(name[i])
		i++
	}
	return b.String()
}

// parseDotComponent handles one '.'-delimited part, which is either a bare
// member name or a member name immediately followed by [n][m]... indices.
func parseDotComponent(p string) []nameComponent {
	base, idx := extractBracketIndices(p)
	if base == "" {
		return idx
	}
	return append([]nameComponent{{member: base}}, idx...)
}

// extractBracketIndices strips trailing "[n]" groups from s, returning the
// remaining base and the parsed index components in order.
func extractBracketIndices(s string) (string, []nameComponent) {
	var idxs []nameComponent
	for strings.HasSuffix(s, "]") {
		open := strings.LastIndex(s, "[")
		if open < 0 {
			break
		}
		numStr := s[open+1 : len(s)-1]
		n, err := strconv.Atoi(numStr)
		if err != nil {
			break
		}
		idxs = append([]nameComponent{{index: n, isIdx: true}}, idxs...)
		s = s[:open]
	}
	return s, idxs
}

// descend walks comps through t starting from baseAddr, per §4.2's
// algorithm for Struct/Union/Class member access and Array index
// linearization.
func descend(baseAddr uint64, t *dwarf.TypeInfo, comps []nameComponent, types map[uint64]*dwarf.TypeInfo) (uint64, *dwarf.TypeInfo, []string) {
	addr := baseAddr
	cur := t.GetReference(types)
	i := 0
	for i < len(comps) {
		c := comps[i]
		if cur == nil {
			return 0, nil, []string{"remaining portion could not be matched: type is nil"}
		}
		switch cur.Kind {
		case dwarf.KindStruct, dwarf.KindUnion, dwarf.KindClass:
			if c.isIdx {
				return 0, nil, []string{"remaining portion could not be matched: expected member name, got index"}
			}
			mem, ok := cur.Members[c.member]
			if !ok {
				return 0, nil, []string{errs.Errorf("no member %q on type %s", c.member, cur.Name).Error()}
			}
			addr += uint64(mem.Offset)
			cur = mem.Type.GetReference(types)
			i++
		case dwarf.KindArray:
			n := len(cur.Dim)
			if n == 0 {
				n = 1
			}
			indices := make([]int, n)
			consumed := 0
			for d := 0; d < n && i < len(comps) && comps[i].isIdx; d++ {
				indices[d] = comps[i].index
				i++
				consumed++
			}
			// missing trailing indices default to 0 (§4.2: "array alone
			// resolves to element 0 at the array's base address")
			for d := 0; d < n; d++ {
				dim := 1
				if d < len(cur.Dim) {
					dim = cur.Dim[d]
				}
				if indices[d] < 0 || (dim > 0 && indices[d] >= dim) {
					return 0, nil, []string{errs.Errorf("array index %d out of bounds (dimension %d)", indices[d], dim).Error()}
				}
			}
			offset := linearize(indices, cur.Dim) * cur.Stride
			addr += uint64(offset)
			cur = cur.ElementType.GetReference(types)
			if consumed == 0 {
				// bare array reference with no index components at all:
				// still consumed nothing from comps, so nothing to advance
				// beyond what the loop already did.
			}
		default:
			if i < len(comps) {
				return 0, nil, []string{"remaining portion could not be matched"}
			}
		}
	}
	return addr, cur, nil
}

// linearize computes idx0*d1*d2*...*dn + idx1*d2*...*dn + ... + idxn per
// §4.2's array linearization formula.
func linearize(indices, dims []int) int {
	total := 0
	for i, idx := range indices {
		stride := 1
		for j := i + 1; j < len(dims); j++ {
			stride *= dims[j]
		}
		total += idx * stride
	}
	return total
}
