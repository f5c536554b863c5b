// Package typedef implements C7, the typedef reconciler: classification of
// TYPEDEF_STRUCTURE as calibration- vs measurement-bearing, creation of
// missing TYPEDEF_* targets demanded by an INSTANCE or STRUCTURE_COMPONENT,
// component generation from a DWARF struct, referrer propagation on rename,
// and garbage collection of unreferenced typedefs (spec.md §4.7). Grounded
// on the teacher's own source_types.go / source_types_variables.go, which
// build a typed description of a DWARF struct's members once and reuse it
// across every instance the same way STRUCTURE_COMPONENTs are generated
// here once per distinct DWARF type.
package typedef

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/logger"
	"github.com/jetsetilly/a2lsync/reclayout"
)

// Referrer is either an Instance(idx-equivalent name) or a
// StructureComponent(struct-name, component-name), per §3's typedef
// reference map.
type Referrer struct {
	InstanceName string // set for an Instance referrer
	StructName   string // set for a StructureComponent referrer
	ComponentName string
}

func (r Referrer) isInstance() bool { return r.StructName == "" }

// RefMap is §3's typedef reference map: typedef-name -> list of referrers,
// used to propagate renames when a typedef is created or redirected.
type RefMap map[string][]Referrer

// Reconciler carries the names-in-use sets (§3's "Typedef name set") across
// one reconciliation pass, guarding the creation recursion against infinite
// loops (§9: "Guard against infinite recursion via the typedef_names.structure
// set updated before recursion").
type Reconciler struct {
	mod   *a2l.Module
	dd    *dwarf.DebugData
	rl    *reclayout.Index
	refs  RefMap
	creating map[string]bool
}

// New builds a Reconciler and its initial reference map by scanning every
// INSTANCE and STRUCTURE_COMPONENT in mod.
func New(mod *a2l.Module, dd *dwarf.DebugData, rl *reclayout.Index) *Reconciler {
	r := &Reconciler{mod: mod, dd: dd, rl: rl, refs: make(RefMap), creating: make(map[string]bool)}
	for _, inst := range mod.Instances {
		r.refs[inst.TypedefName] = append(r.refs[inst.TypedefName], Referrer{InstanceName: inst.Name})
	}
	for _, st := range mod.TypedefStructures {
		for _, comp := range st.Components {
			r.refs[comp.TypedefRef] = append(r.refs[comp.TypedefRef], Referrer{StructName: st.Name, ComponentName: comp.Name})
		}
	}
	return r
}

// ClassifyStructures implements §4.7's "Structure classification" via
// fixed-point propagation: a struct referencing any calibration-bearing
// typedef (or another already-calib struct) becomes calib; one referencing
// only TYPEDEF_MEASUREMENTs stays non-calib; one referencing both is warned.
func (r *Reconciler) ClassifyStructures() {
	changed := true
	for changed {
		changed = false
		for _, st := range r.mod.TypedefStructures {
			sawCalib, sawMeasure := false, false
			for _, comp := range st.Components {
				switch {
				case r.mod.FindTypedefCharacteristic(comp.TypedefRef) != nil,
					r.mod.FindTypedefAxis(comp.TypedefRef) != nil,
					r.mod.FindTypedefBlob(comp.TypedefRef) != nil:
					sawCalib = true
				case r.mod.FindTypedefMeasurement(comp.TypedefRef) != nil:
					sawMeasure = true
				default:
					if nested := r.mod.FindTypedefStructure(comp.TypedefRef); nested != nil && nested.IsCalib {
						sawCalib = true
					} else if nested != nil {
						sawMeasure = true
					}
				}
			}
			if sawCalib && sawMeasure {
				logger.Log("typedef", "struct %s mixes calibration and measurement components", st.Name)
			}
			want := sawCalib
			if want != st.IsCalib {
				st.IsCalib = want
				changed = true
			}
		}
	}
}

// EnsureForInstances implements §4.7's "Missing-target creation": for every
// typedef name referenced by at least one INSTANCE, find or create a
// matching TYPEDEF_STRUCTURE for each distinct DWARF type observed, then
// redirect the INSTANCEs to it.
func (r *Reconciler) EnsureForInstances(instanceTypes map[string]*dwarf.TypeInfo) {
	byTypedef := make(map[string][]string) // typedef name -> instance names wanting it
	for name := range instanceTypes {
		inst := r.mod.FindInstance(name)
		if inst == nil {
			continue
		}
		byTypedef[inst.TypedefName] = append(byTypedef[inst.TypedefName], name)
	}

	for typedefName, instNames := range byTypedef {
		// group instance names by structurally distinct DWARF type
		var distinct []*dwarf.TypeInfo
		groups := make(map[*dwarf.TypeInfo][]string)
		for _, iname := range instNames {
			t := instanceTypes[iname]
			var match *dwarf.TypeInfo
			for _, d := range distinct {
				if dwarf.Compare(d, t, r.dd.Types) {
					match = d
					break
				}
			}
			if match == nil {
				distinct = append(distinct, t)
				match = t
			}
			groups[match] = append(groups[match], iname)
		}

		existing := r.mod.FindTypedefStructure(typedefName)
		needsNewTypedef := existing == nil || !typeMatches(r, existing, distinct[0])

		if !needsNewTypedef {
			continue
		}

		for _, t := range distinct {
			name := r.resolveOrCreateTarget(typedefName, t, "struct")
			for _, iname := range groups[t] {
				if inst := r.mod.FindInstance(iname); inst != nil && inst.TypedefName != name {
					inst.TypedefName = name
				}
			}
		}
	}
}

func typeMatches(r *Reconciler, st *a2l.TypedefStructure, t *dwarf.TypeInfo) bool {
	return t != nil && t.IsComposite() && len(st.Components) == len(t.OrderedMembers())
}

// resolveOrCreateTarget implements the per-distinct-type resolution loop of
// §4.7: try an existing TYPEDEF of the right class and name/shape, else
// mint one.
func (r *Reconciler) resolveOrCreateTarget(preferredName string, t *dwarf.TypeInfo, context string) string {
	t = t.GetReference(r.dd.Types)
	if t == nil {
		return preferredName
	}

	switch {
	case t.IsComposite():
		return r.createOrReuseStruct(preferredName, t)
	case t.IsPointer():
		return r.createOrReuseBlob(preferredName, t)
	default:
		if context == "measurement" {
			return r.createOrReuseTypedefMeasurement(preferredName, t)
		}
		return r.createOrReuseTypedefCharacteristic(preferredName, t)
	}
}

func (r *Reconciler) createOrReuseStruct(preferredName string, t *dwarf.TypeInfo) string {
	if existing := r.mod.FindTypedefStructure(preferredName); existing != nil && typeMatches(r, existing, t) {
		return preferredName
	}
	for _, st := range r.mod.TypedefStructures {
		if typeMatches(r, st, t) {
			return st.Name
		}
	}

	name := mintName(r.mod, t, preferredName)
	if r.creating[name] {
		return name // §9: recursion guard
	}
	r.creating[name] = true

	st := &a2l.TypedefStructure{Name: name, Size: t.GetSize()}
	r.mod.TypedefStructures = append(r.mod.TypedefStructures, st)
	r.generateComponents(st, t)
	return name
}

// generateComponents implements §4.7's "Component generation": one
// STRUCTURE_COMPONENT per struct member, recursing into update for nested
// structs (handled by createOrReuseStruct via resolveOrCreateTarget).
func (r *Reconciler) generateComponents(st *a2l.TypedefStructure, t *dwarf.TypeInfo) {
	for _, m := range t.OrderedMembers() {
		mt := m.Type.GetReference(r.dd.Types)
		if mt == nil || mt.Kind == dwarf.KindFuncPtr {
			continue // §4.7: "Skip members whose ultimate type is FuncPtr"
		}

		comp := a2l.StructureComponent{
			Name:           m.Name,
			AddressOffset:  m.Offset,
			SymbolTypeLink: m.Name,
		}

		target := mt
		if target.IsPointer() {
			comp.AddrType = pointerAddrType(target.Size)
			if tgt, ok := r.dd.Types[target.TargetOffset]; ok {
				target = tgt.GetReference(r.dd.Types)
			}
		}
		if target != nil && target.IsArray() {
			comp.MatrixDim = append([]int(nil), target.Dim...)
		}

		context := "measurement"
		if st.IsCalib {
			context = "characteristic"
		}
		comp.TypedefRef = r.resolveOrCreateTarget(defaultComponentTypedefName(m.Name), target, context)

		st.Components = append(st.Components, comp)
	}
}

func defaultComponentTypedefName(memberName string) string {
	return memberName
}

func pointerAddrType(size int) a2l.AddressType {
	switch size {
	case 1:
		return a2l.AddrPByte
	case 2:
		return a2l.AddrPWord
	case 8:
		return a2l.AddrPLongLong
	default:
		return a2l.AddrPLong
	}
}

func (r *Reconciler) createOrReuseBlob(preferredName string, t *dwarf.TypeInfo) string {
	if existing := r.mod.FindTypedefBlob(preferredName); existing != nil {
		return preferredName
	}
	name := mintName(r.mod, t, preferredName)
	r.mod.TypedefBlobs = append(r.mod.TypedefBlobs, &a2l.TypedefBlob{Name: name, Size: t.GetSize()})
	return name
}

func (r *Reconciler) createOrReuseTypedefMeasurement(preferredName string, t *dwarf.TypeInfo) string {
	if existing := r.mod.FindTypedefMeasurement(preferredName); existing != nil {
		return preferredName
	}
	name := mintName(r.mod, t, preferredName)
	lo, hi := t.NaturalRange()
	r.mod.TypedefMeasurements = append(r.mod.TypedefMeasurements, &a2l.TypedefMeasurement{
		Name: name, DataType: reclayout.DwarfToA2LType(t), LowerLimit: lo, UpperLimit: hi,
		BitMask: t.Mask(),
	})
	return name
}

func (r *Reconciler) createOrReuseTypedefCharacteristic(preferredName string, t *dwarf.TypeInfo) string {
	if existing := r.mod.FindTypedefCharacteristic(preferredName); existing != nil {
		return preferredName
	}
	name := mintName(r.mod, t, preferredName)
	lo, hi := t.NaturalRange()
	dt := reclayout.DwarfToA2LType(t)
	deposit := ""
	if r.rl != nil {
		deposit = r.rl.MintDefault(dt)
	} else {
		deposit = fmt.Sprintf("__%s_Z", dt)
	}
	r.mod.TypedefCharacteristics = append(r.mod.TypedefCharacteristics, &a2l.TypedefCharacteristic{
		Name: name, Type: a2l.Value, Deposit: deposit, LowerLimit: lo, UpperLimit: hi,
	})
	return name
}

// mintName implements §4.7's naming scheme for missing-target creation:
// Measurement_<type> for primitives (also for a TYPEDEF_CHARACTERISTIC; no
// Parameter_<type> name is produced), _0x<mask> suffix for
// bitfields, Array_d1_d2_..._ prefix for arrays, By/Short/Long/LongLong
// Pointer_ prefix for pointers, and the type's own name (or _unnamed_<kind>_)
// for structs/classes/enums/unions, with _CopyN collision suffixes.
func mintName(mod *a2l.Module, t *dwarf.TypeInfo, fallback string) string {
	base := buildBaseName(t, fallback)
	if !nameCollides(mod, base) {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_Copy%d", base, n)
		if !nameCollides(mod, candidate) {
			return candidate
		}
	}
}

func buildBaseName(t *dwarf.TypeInfo, fallback string) string {
	if t == nil {
		return fallback
	}
	switch t.Kind {
	case dwarf.KindStruct, dwarf.KindClass, dwarf.KindUnion:
		if t.Name != "" {
			return t.Name
		}
		return "_unnamed_" + t.Kind.String() + "_"
	case dwarf.KindEnum:
		if t.Name != "" {
			return t.Name
		}
		return "_unnamed_enum_"
	case dwarf.KindBitfield:
		return fmt.Sprintf("%s_0x%x", buildBaseName(t.BaseType, fallback), t.Mask())
	case dwarf.KindArray:
		var dims []string
		for _, d := range t.Dim {
			dims = append(dims, strconv.Itoa(d))
		}
		return "Array_" + strings.Join(dims, "_") + "_" + buildBaseName(t.ElementType, fallback)
	case dwarf.KindPointer:
		prefix := "LongPointer_"
		switch t.Size {
		case 1:
			prefix = "BytePointer_"
		case 2:
			prefix = "ShortPointer_"
		case 8:
			prefix = "LongLongPointer_"
		}
		return prefix + fallback
	default:
		return "Measurement_" + primitiveName(t.Kind)
	}
}

func primitiveName(k dwarf.Kind) string {
	switch k {
	case dwarf.KindUint8:
		return "UByte"
	case dwarf.KindSint8:
		return "SByte"
	case dwarf.KindUint16:
		return "UWord"
	case dwarf.KindSint16:
		return "SWord"
	case dwarf.KindUint32:
		return "ULong"
	case dwarf.KindSint32:
		return "SLong"
	case dwarf.KindFloat:
		return "Float32"
	case dwarf.KindDouble:
		return "Float64"
	default:
		return k.String()
	}
}

func nameCollides(mod *a2l.Module, name string) bool {
	return mod.FindTypedefStructure(name) != nil ||
		mod.FindTypedefMeasurement(name) != nil ||
		mod.FindTypedefCharacteristic(name) != nil ||
		mod.FindTypedefAxis(name) != nil ||
		mod.FindTypedefBlob(name) != nil
}

// GC implements §4.7's "Garbage collection": after updates, any TYPEDEF_*
// with no referrer is removed, iterated to fixed point since removing a
// struct removes its components' edges.
func (r *Reconciler) GC() {
	changed := true
	for changed {
		changed = false
		refCounts := r.countReferrers()

		for i := 0; i < len(r.mod.TypedefStructures); i++ {
			st := r.mod.TypedefStructures[i]
			if refCounts[st.Name] == 0 {
				r.mod.TypedefStructures = append(r.mod.TypedefStructures[:i], r.mod.TypedefStructures[i+1:]...)
				i--
				changed = true
			}
		}
		for i := 0; i < len(r.mod.TypedefMeasurements); i++ {
			td := r.mod.TypedefMeasurements[i]
			if refCounts[td.Name] == 0 {
				r.mod.TypedefMeasurements = append(r.mod.TypedefMeasurements[:i], r.mod.TypedefMeasurements[i+1:]...)
				i--
				changed = true
			}
		}
		for i := 0; i < len(r.mod.TypedefCharacteristics); i++ {
			td := r.mod.TypedefCharacteristics[i]
			if refCounts[td.Name] == 0 {
				r.mod.TypedefCharacteristics = append(r.mod.TypedefCharacteristics[:i], r.mod.TypedefCharacteristics[i+1:]...)
				i--
				changed = true
			}
		}
		for i := 0; i < len(r.mod.TypedefBlobs); i++ {
			td := r.mod.TypedefBlobs[i]
			if refCounts[td.Name] == 0 {
				r.mod.TypedefBlobs = append(r.mod.TypedefBlobs[:i], r.mod.TypedefBlobs[i+1:]...)
				i--
				changed = true
			}
		}
		for i := 0; i < len(r.mod.TypedefAxes); i++ {
			td := r.mod.TypedefAxes[i]
			if refCounts[td.Name] == 0 {
				r.mod.TypedefAxes = append(r.mod.TypedefAxes[:i], r.mod.TypedefAxes[i+1:]...)
				i--
				changed = true
			}
		}
	}
}

func (r *Reconciler) countReferrers() map[string]int {
	counts := make(map[string]int)
	for _, inst := range r.mod.Instances {
		counts[inst.TypedefName]++
	}
	for _, st := range r.mod.TypedefStructures {
		for _, comp := range st.Components {
			counts[comp.TypedefRef]++
		}
	}
	return counts
}
