package dwarf

import (
	"debug/dwarf"
	"fmt"

	"github.com/jetsetilly/a2lsync/errs"
)

// attrByteStride (DW_AT_byte_stride, 0x2e) has no named constant in Go's
// debug/dwarf package.
const attrByteStride = dwarf.Attr(0x2e)

// ctxFrame is one entry in run's context stack of (tag, optional name),
// used to recover the enclosing function/namespace of a variable (§4.1).
type ctxFrame struct {
	tag  dwarf.Tag
	name string
}

type build struct {
	dwrf      *dwarf.Data
	units     unitList
	debugAddr []byte

	// deferred pending type loads, keyed by DIE offset, so that lazy type
	// loading (§4.1 "Lazy: only types referenced by located variables are
	// loaded") can be driven by a worklist instead of a recursive call
	// stack that could blow up on self-referential structs.
	pending []uint64
	loading map[uint64]bool // cycle guard while a type is mid-construction
}

func newBuild(dwrf *dwarf.Data) (*build, error) {
	r := dwrf.Reader()
	e, err := r.Next()
	if err != nil {
		return nil, errs.Errorf("reading .debug_info: %v", err)
	}
	if e == nil {
		return nil, errs.Errorf(".debug_info has zero compile units")
	}
	return &build{dwrf: dwrf, loading: make(map[uint64]bool)}, nil
}

// run performs the depth-first traversal described in §4.1 over every
// compile unit, recording global variable locations and lazily loading the
// types they reference.
func (b *build) run(dd *DebugData) error {
	b.debugAddr = dd.Sections[".debug_addr"]

	r := b.dwrf.Reader()

	var unitIdx int
	var curUnit *unitInfo
	depth := 0
	// context stack, truncated to depth-1 at each step, used to recover the
	// enclosing function/namespace of a variable without fetching names we
	// don't need (§4.1: "Only fetch the name attribute for tags that will
	// be needed... fetching every name doubles runtime").
	var ctx []ctxFrame

	for {
		e, err := r.Next()
		if err != nil {
			// a parse error is logged and ends the walk: the units after it
			// are not read, but the variables already found still get their
			// types loaded below (§4.1 failure semantics)
			logUnitSkipped(unitIdx, err.Error())
			break
		}
		if e == nil {
			break
		}

		if e.Tag == 0 {
			// terminator: pop one level
			if depth > 0 {
				depth--
				if len(ctx) > 0 {
					ctx = ctx[:len(ctx)-1]
				}
			}
			continue
		}

		if len(ctx) > depth {
			ctx = ctx[:depth]
		}

		switch e.Tag {
		case dwarf.TagCompileUnit:
			name, _ := e.Val(dwarf.AttrName).(string)
			addrBase, hasBase := e.Val(dwarf.AttrAddrBase).(int64)
			u := unitInfo{offset: uint64(e.Offset), name: name, addrBase: addrBase, hasBase: hasBase}
			unitIdx = b.units.add(u)
			curUnit = &b.units.units[unitIdx]
			dd.UnitNames = append(dd.UnitNames, name)

		case dwarf.TagNamespace, dwarf.TagSubprogram:
			name, _ := e.Val(dwarf.AttrName).(string)
			ctx = append(ctx, ctxFrame{tag: e.Tag, name: name})

		case dwarf.TagVariable:
			b.processVariable(r, e, curUnit, unitIdx, ctx, dd)
		}

		if e.Children {
			depth++
		}
	}

	b.units.finalize()

	// drain the lazy-type worklist; processVariable only enqueues offsets,
	// and loadType below enqueues pointer targets, so a self-referential
	// struct pointer does not turn into recursion.
	for len(b.pending) > 0 {
		off := b.pending[0]
		b.pending = b.pending[1:]
		if _, ok := dd.Types[off]; ok {
			continue
		}
		if err := b.loadType(off, dd); err != nil {
			logTypeError(off, err)
		}
	}

	return nil
}

func logTypeError(off uint64, err error) {
	logDropped(fmt.Sprintf("@%x", off), "type load failed: "+err.Error())
}

// processVariable handles one DW_TAG_variable at global (or namespace/
// function-static) scope, extracting its name, type, and address, honoring
// DW_AT_specification/DW_AT_abstract_origin chains for attributes absent on
// the primary DIE.
func (b *build) processVariable(r *dwarf.Reader, e *dwarf.Entry, unit *unitInfo, unitIdx int, ctx []ctxFrame, dd *DebugData) {
	name, ok := attrString(r, e, dwarf.AttrName)
	if !ok || name == "" {
		return
	}

	typeOff, ok := referenceAttr(r, e, dwarf.AttrType)
	if !ok {
		logDropped(name, "no DW_AT_type")
		return
	}

	loc := e.Val(dwarf.AttrLocation)
	expr, ok := loc.([]byte)
	if !ok {
		// either no location at all, or a location list (PC-range
		// dependent) -- only a plain ClassExprLoc addresses a global
		// unambiguously, so anything else is dropped per §4.1.
		logDropped(name, "no usable (address-class) location expression")
		return
	}

	res, err := evalAddressLocation(expr, b.debugAddr, unit.addrBase, unit.hasBase)
	if err != nil {
		logDropped(name, err.Error())
		return
	}
	if !res.ok {
		logDropped(name, "location is frame/register-relative, not a fixed address")
		return
	}

	var enclosing string
	var namespaces []string
	for _, f := range ctx {
		if f.tag == dwarf.TagSubprogram && f.name != "" {
			enclosing = f.name
		} else if f.tag == dwarf.TagNamespace && f.name != "" {
			namespaces = append(namespaces, f.name)
		}
	}

	dd.Variables[name] = append(dd.Variables[name], VarInfo{
		Address:           res.address,
		TypeOffset:        uint64(typeOff),
		Unit:              unitIdx,
		EnclosingFunction: enclosing,
		Namespaces:        namespaces,
	})

	b.enqueueType(uint64(typeOff))
}

func (b *build) enqueueType(off uint64) {
	b.pending = append(b.pending, off)
}

func referenceAttr(r *dwarf.Reader, e *dwarf.Entry, attr dwarf.Attr) (dwarf.Offset, bool) {
	v, ok := followIndirection(r, e, attr)
	if !ok {
		return 0, false
	}
	off, ok := v.(dwarf.Offset)
	return off, ok
}

// loadType builds the TypeInfo for the DIE at off. Member, element, typedef
// and qualifier target types are loaded by direct recursion (the loading
// guard breaks cycles); pointer targets are queued on the worklist. Types
// are memoized in dd.Types by offset so a shared type referenced by many
// variables is only built once (§3: "deduplicated... type graph").
func (b *build) loadType(off uint64, dd *DebugData) error {
	if _, ok := dd.Types[off]; ok {
		return nil
	}
	if b.loading[off] {
		return nil // cycle: self-referential struct pointer (§9 design notes)
	}
	b.loading[off] = true
	defer delete(b.loading, off)

	r := b.dwrf.Reader()
	r.Seek(dwarf.Offset(off))
	e, err := r.Next()
	if err != nil {
		return err
	}
	if e == nil {
		return errs.Errorf("no DIE at offset %x", off)
	}

	unitIdx := b.units.indexOf(off)

	typ, err := b.buildType(r, e, off, unitIdx, dd)
	if err != nil {
		return err
	}
	if typ == nil {
		return nil
	}

	dd.Types[off] = typ
	if typ.Name != "" {
		if _, exists := dd.TypeNames[typ.Name]; !exists {
			dd.TypeNames[typ.Name] = off
		}
	}
	return nil
}

func (b *build) buildType(r *dwarf.Reader, e *dwarf.Entry, off uint64, unitIdx int, dd *DebugData) (*TypeInfo, error) {
	switch e.Tag {
	case dwarf.TagBaseType:
		return b.buildBaseType(e, off, unitIdx)

	case dwarf.TagPointerType:
		return b.buildPointerType(r, e, off, unitIdx)

	case dwarf.TagArrayType:
		return b.buildArrayType(r, e, off, unitIdx, dd)

	case dwarf.TagEnumerationType:
		return b.buildEnumType(r, e, off, unitIdx)

	case dwarf.TagStructType, dwarf.TagUnionType, dwarf.TagClassType:
		return b.buildCompositeType(r, e, off, unitIdx, dd)

	case dwarf.TagTypedef:
		return b.buildTypedef(r, e, off, unitIdx, dd)

	case dwarf.TagConstType, dwarf.TagVolatileType, dwarf.TagRestrictType:
		// transparent qualifiers: recurse straight through to the
		// referenced type (§4.1 "typedef/const_type/volatile_type ...
		// recurse on the referenced type").
		return b.buildQualifiedPassthrough(r, e, unitIdx, dd)

	case dwarf.TagSubroutineType:
		return b.buildFuncPtrType(r, e, off, unitIdx)

	default:
		// unsupported tag for a type entry; treat as an opaque Other of
		// whatever size is declared, or zero.
		size, _ := e.Val(dwarf.AttrByteSize).(int64)
		return &TypeInfo{Kind: KindOther, Size: int(size), DIEOffset: off, CompileUnit: unitIdx}, nil
	}
}

func (b *build) buildBaseType(e *dwarf.Entry, off uint64, unitIdx int) (*TypeInfo, error) {
	name, _ := e.Val(dwarf.AttrName).(string)
	size, ok := e.Val(dwarf.AttrByteSize).(int64)
	if !ok {
		return nil, errs.Errorf("base type %s has no DW_AT_byte_size", name)
	}
	enc, _ := e.Val(dwarf.AttrEncoding).(int64)

	kind := primitiveKind(enc, int(size))
	return &TypeInfo{Name: name, Kind: kind, Size: int(size), DIEOffset: off, CompileUnit: unitIdx}, nil
}

// primitiveKind maps (DW_AT_encoding, byte-size) to a primitive Kind per
// §4.1 "base_type -> map DW_AT_encoding x byte-size to the primitive
// variant".
func primitiveKind(encoding int64, size int) Kind {
	const (
		dwAteAddress  = 0x1
		dwAteBoolean  = 0x2
		dwAteFloat    = 0x4
		dwAteSigned   = 0x5
		dwAteSignedC  = 0x6
		dwAteUnsigned = 0x7
		dwAteUnsignedC = 0x8
	)

	switch encoding {
	case dwAteFloat:
		if size >= 8 {
			return KindDouble
		}
		return KindFloat
	case dwAteSigned, dwAteSignedC:
		return signedKindForSize(size)
	case dwAteBoolean, dwAteUnsigned, dwAteUnsignedC, dwAteAddress:
		return unsignedKindForSize(size)
	default:
		return unsignedKindForSize(size)
	}
}

func signedKindForSize(size int) Kind {
	switch {
	case size <= 1:
		return KindSint8
	case size <= 2:
		return KindSint16
	case size <= 4:
		return KindSint32
	default:
		return KindSint64
	}
}

func unsignedKindForSize(size int) Kind {
	switch {
	case size <= 1:
		return KindUint8
	case size <= 2:
		return KindUint16
	case size <= 4:
		return KindUint32
	default:
		return KindUint64
	}
}

func (b *build) buildPointerType(r *dwarf.Reader, e *dwarf.Entry, off uint64, unitIdx int) (*TypeInfo, error) {
	size, ok := e.Val(dwarf.AttrByteSize).(int64)
	if !ok {
		size = int64(r.AddressSize())
		if size == 0 {
			size = addressSize
		}
	}

	target, hasTarget := referenceAttr(r, e, dwarf.AttrType)
	typ := &TypeInfo{Kind: KindPointer, Size: int(size), DIEOffset: off, CompileUnit: unitIdx, Name: "pointer"}
	if hasTarget {
		typ.TargetOffset = uint64(target)
		typ.TargetUnit = b.units.indexOf(uint64(target))
		b.enqueueType(uint64(target))
	}
	return typ, nil
}

func (b *build) buildFuncPtrType(r *dwarf.Reader, e *dwarf.Entry, off uint64, unitIdx int) (*TypeInfo, error) {
	target, hasTarget := referenceAttr(r, e, dwarf.AttrType)
	typ := &TypeInfo{Kind: KindFuncPtr, Size: int(r.AddressSize()), DIEOffset: off, CompileUnit: unitIdx, Name: "funcptr"}
	if hasTarget {
		typ.TargetOffset = uint64(target)
		typ.TargetUnit = b.units.indexOf(uint64(target))
	}
	return typ, nil
}

func (b *build) buildArrayType(r *dwarf.Reader, e *dwarf.Entry, off uint64, unitIdx int, dd *DebugData) (*TypeInfo, error) {
	elemOff, ok := referenceAttr(r, e, dwarf.AttrType)
	if !ok {
		return nil, errs.Errorf("array type has no element DW_AT_type")
	}
	if err := b.loadType(uint64(elemOff), dd); err != nil {
		return nil, err
	}
	elemType := dd.Types[uint64(elemOff)]
	if elemType == nil {
		return nil, errs.Errorf("could not resolve array element type")
	}

	var dims []int
	depth := 0
	for {
		ce, err := r.Next()
		if err != nil {
			return nil, err
		}
		if ce == nil {
			break
		}
		if ce.Tag == 0 {
			if depth == 0 {
				break
			}
			depth--
			continue
		}
		if ce.Tag == dwarf.TagSubrangeType {
			n := subrangeCount(ce)
			dims = append(dims, n)
		}
		if ce.Children {
			depth++
		} else if depth == 0 {
			// a non-container direct child with no children of its own at
			// depth 0 still needs the implicit "no more siblings" check;
			// Next() will hand us the parent's terminator next, which is
			// handled above.
		}
	}

	stride := elemType.Size
	if fld := e.Val(attrByteStride); fld != nil {
		if s, ok := fld.(int64); ok {
			stride = int(s)
		}
	}

	if len(dims) == 0 {
		// default bound derived from total size / stride when absent (§4.1)
		if totalSize, ok := e.Val(dwarf.AttrByteSize).(int64); ok && stride > 0 {
			dims = []int{int(totalSize) / stride}
		} else {
			dims = []int{0}
		}
	}

	total := 1
	for _, d := range dims {
		total *= d
	}

	return &TypeInfo{
		Name:        elemType.Name,
		Kind:        KindArray,
		Size:        total * stride,
		DIEOffset:   off,
		CompileUnit: unitIdx,
		Dim:         dims,
		Stride:      stride,
		ElementType: elemType,
	}, nil
}

func subrangeCount(e *dwarf.Entry) int {
	if fld := e.Val(dwarf.AttrCount); fld != nil {
		if c, ok := fld.(int64); ok {
			return int(c)
		}
	}
	if fld := e.Val(dwarf.AttrUpperBound); fld != nil {
		if u, ok := fld.(int64); ok {
			return int(u) + 1
		}
	}
	return 0
}

func (b *build) buildEnumType(r *dwarf.Reader, e *dwarf.Entry, off uint64, unitIdx int) (*TypeInfo, error) {
	size, _ := e.Val(dwarf.AttrByteSize).(int64)
	name, hasName := e.Val(dwarf.AttrName).(string)

	var enumerators []Enumerator
	depth := 0
	for {
		ce, err := r.Next()
		if err != nil {
			return nil, err
		}
		if ce == nil {
			break
		}
		if ce.Tag == 0 {
			if depth == 0 {
				break
			}
			depth--
			continue
		}
		if ce.Tag == dwarf.TagEnumerator {
			enName, _ := ce.Val(dwarf.AttrName).(string)
			enVal, _ := ce.Val(dwarf.AttrConstValue).(int64)
			enumerators = append(enumerators, Enumerator{Name: enName, Value: enVal})
		}
		if ce.Children {
			depth++
		}
	}

	if !hasName {
		// the type name is, in order, any containing typedef name (applied
		// later by buildTypedef's override), else the enum's own name,
		// else a synthesized name keyed on the DIE offset (§4.1).
		name = fmt.Sprintf("enum_%x", off)
	}

	return &TypeInfo{
		Name: name, Kind: KindEnum, Size: int(size),
		DIEOffset: off, CompileUnit: unitIdx, Enumerators: enumerators,
	}, nil
}

func (b *build) buildCompositeType(r *dwarf.Reader, e *dwarf.Entry, off uint64, unitIdx int, dd *DebugData) (*TypeInfo, error) {
	size, _ := e.Val(dwarf.AttrByteSize).(int64)
	name, hasName := e.Val(dwarf.AttrName).(string)
	if !hasName {
		name = fmt.Sprintf("_unnamed_%x", off)
	}

	kind := KindStruct
	if e.Tag == dwarf.TagUnionType {
		kind = KindUnion
	} else if e.Tag == dwarf.TagClassType {
		kind = KindClass
	}

	typ := &TypeInfo{Name: name, Kind: kind, Size: int(size), DIEOffset: off, CompileUnit: unitIdx}

	depth := 0
	for {
		ce, err := r.Next()
		if err != nil {
			return nil, err
		}
		if ce == nil {
			break
		}
		if ce.Tag == 0 {
			if depth == 0 {
				break
			}
			depth--
			continue
		}

		switch ce.Tag {
		case dwarf.TagMember:
			if err := b.addMemberTo(typ, r, ce, dd); err != nil {
				return nil, err
			}
		case dwarf.TagInheritance:
			if err := b.addInheritanceTo(typ, r, ce, dd); err != nil {
				return nil, err
			}
		}

		if ce.Children {
			depth++
		}
	}

	// flatten Class inheritance into the member map at proper offsets
	// (§3: "inherited members are flattened into the member map at their
	// proper offsets").
	if typ.Inheritance != nil {
		for _, base := range typ.Inheritance {
			if base.Type == nil {
				continue
			}
			for _, m := range base.Type.OrderedMembers() {
				flattened := &Member{Name: m.Name, Type: m.Type, Offset: base.Offset + m.Offset}
				if _, exists := typ.Members[m.Name]; !exists {
					typ.addMember(flattened)
				}
			}
		}
	}

	return typ, nil
}

func (b *build) addMemberTo(typ *TypeInfo, r *dwarf.Reader, e *dwarf.Entry, dd *DebugData) error {
	name, _ := e.Val(dwarf.AttrName).(string)
	if name == "" {
		name = fmt.Sprintf("_anon_%x", uint64(e.Offset))
	}

	memberTypeOff, ok := referenceAttr(r, e, dwarf.AttrType)
	if !ok {
		return nil
	}
	if err := b.loadType(uint64(memberTypeOff), dd); err != nil {
		return err
	}
	memberType := dd.Types[uint64(memberTypeOff)]
	if memberType == nil {
		return nil
	}

	offset := 0
	if v, ok := e.Val(dwarf.AttrDataMemberLoc).(int64); ok {
		offset = int(v)
	}

	if bitSize, ok := e.Val(dwarf.AttrBitSize).(int64); ok {
		memberType = normalizeBitfield(memberType, e, int(bitSize), &offset)
	}

	typ.addMember(&Member{Name: name, Type: memberType, Offset: offset})

	// anonymous members inherit their containing struct's flattening:
	// their own members are inlined at the anonymous member's offset
	// (§4.1).
	anonName, hasName := e.Val(dwarf.AttrName).(string)
	if (!hasName || anonName == "") && memberType.IsComposite() {
		for _, m := range memberType.OrderedMembers() {
			typ.addMember(&Member{Name: m.Name, Type: m.Type, Offset: offset + m.Offset})
		}
	}

	return nil
}

// normalizeBitfield wraps memberType in a Bitfield TypeInfo, normalizing the
// bit offset to little-endian lsb-from-storage-start semantics as described
// in §4.1: DWARF 2/3's DW_AT_bit_offset is msb-from-container-start and must
// be converted on little-endian targets; DWARF 4/5's DW_AT_data_bit_offset
// is measured from the containing storage and may exceed the member size,
// in which case byteOffset is advanced and the bit offset reduced modulo
// the storage size.
func normalizeBitfield(base *TypeInfo, e *dwarf.Entry, bitSize int, byteOffset *int) *TypeInfo {
	storageSize := base.Size * 8
	signed := base.IsSigned()

	var bitOffset int
	if dataBitOff, ok := e.Val(dwarf.AttrDataBitOffset).(int64); ok {
		// DWARF 4/5: measured from the start of the containing storage unit,
		// may exceed the member's own storage size. On little-endian targets
		// it already counts from the lsb, so only whole storage units are
		// moved into byteOffset.
		total := int(dataBitOff)
		*byteOffset += (total / storageSize) * base.Size
		bitOffset = total % storageSize
	} else if legacyOffset, ok := e.Val(dwarf.AttrBitOffset).(int64); ok {
		// DWARF 2/3: msb-from-container-start; convert to lsb-from-start on
		// little-endian targets.
		bitOffset = storageSize - int(legacyOffset) - bitSize
	}

	return &TypeInfo{
		Name: base.Name, Kind: KindBitfield, Size: base.Size,
		BaseType: base, BitOffset: bitOffset, BitSize: bitSize, Signed: signed,
	}
}

func (b *build) addInheritanceTo(typ *TypeInfo, r *dwarf.Reader, e *dwarf.Entry, dd *DebugData) error {
	baseOff, ok := referenceAttr(r, e, dwarf.AttrType)
	if !ok {
		return nil
	}
	if err := b.loadType(uint64(baseOff), dd); err != nil {
		return err
	}
	baseType := dd.Types[uint64(baseOff)]
	if baseType == nil {
		return nil
	}

	offset := 0
	if v, ok := e.Val(dwarf.AttrDataMemberLoc).(int64); ok {
		offset = int(v)
	}

	if typ.Inheritance == nil {
		typ.Inheritance = make(map[string]*Member)
	}
	typ.Inheritance[baseType.Name] = &Member{Name: baseType.Name, Type: baseType, Offset: offset}
	return nil
}

func (b *build) buildTypedef(r *dwarf.Reader, e *dwarf.Entry, off uint64, unitIdx int, dd *DebugData) (*TypeInfo, error) {
	targetOff, ok := referenceAttr(r, e, dwarf.AttrType)
	if !ok {
		return nil, nil
	}
	if err := b.loadType(uint64(targetOff), dd); err != nil {
		return nil, err
	}
	target := dd.Types[uint64(targetOff)]
	if target == nil {
		return nil, nil
	}

	// make a copy of the named type and override the name field (§4.1:
	// "typedef names are propagated into their targets when the target has
	// no name").
	clone := *target
	clone.DIEOffset = off
	clone.CompileUnit = unitIdx
	if name, ok := e.Val(dwarf.AttrName).(string); ok && name != "" {
		clone.Name = name
		if target.Name == "" || isAnonymousName(target.Name) {
			target.Name = name
		}
	}
	return &clone, nil
}

func (b *build) buildQualifiedPassthrough(r *dwarf.Reader, e *dwarf.Entry, unitIdx int, dd *DebugData) (*TypeInfo, error) {
	targetOff, ok := referenceAttr(r, e, dwarf.AttrType)
	if !ok {
		return nil, nil
	}
	if err := b.loadType(uint64(targetOff), dd); err != nil {
		return nil, err
	}
	return dd.Types[uint64(targetOff)], nil
}
