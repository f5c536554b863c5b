// Package a2l implements the minimal in-memory object model for A2L
// (ASAP2) calibration description files described in spec.md §3. The
// surface syntax parser/serializer is explicitly out of scope (spec.md §1);
// this package models only the mutable tree the rest of a2lsync's
// components (C3-C8) read and rewrite in place, in the spirit of the
// teacher's own plain-struct SourceType/SourceVariable model
// (coprocessor/developer/source_types.go, source_types_variables.go).
package a2l

// DataType is an A2L datatype keyword.
type DataType string

const (
	UByte   DataType = "UBYTE"
	SByte   DataType = "SBYTE"
	UWord   DataType = "UWORD"
	SWord   DataType = "SWORD"
	ULong   DataType = "ULONG"
	SLong   DataType = "SLONG"
	UInt64  DataType = "A_UINT64"
	Int64   DataType = "A_INT64"
	Float32 DataType = "FLOAT32_IEEE"
	Float64 DataType = "FLOAT64_IEEE"
)

// CharacteristicType is the ASAP2 CHARACTERISTIC TYPE value.
type CharacteristicType string

const (
	Value  CharacteristicType = "VALUE"
	ValBlk CharacteristicType = "VAL_BLK"
	Ascii  CharacteristicType = "ASCII"
	Curve  CharacteristicType = "CURVE"
	Map    CharacteristicType = "MAP"
	Cuboid CharacteristicType = "CUBOID"
	Cube4  CharacteristicType = "CUBE_4"
	Cube5  CharacteristicType = "CUBE_5"
)

// AddressType is the ASAP2 ADDRESS_TYPE qualifier used on pointer-typed
// STRUCTURE_COMPONENTs and record-layout axis sub-blocks.
type AddressType string

const (
	AddrDirect   AddressType = "DIRECT"
	AddrPByte    AddressType = "PBYTE"
	AddrPWord    AddressType = "PWORD"
	AddrPLong    AddressType = "PLONG"
	AddrPLongLong AddressType = "PLONGLONG"
)

// IndexMode is the ASAP2 record-layout INDEX_MODE.
type IndexMode string

const (
	RowDir    IndexMode = "ROW_DIR"
	ColumnDir IndexMode = "COLUMN_DIR"
)

// SymbolLink is the ASAP2 SYMBOL_LINK keyword: a symbol-name/byte-offset
// pair binding an entity to its source-level storage (§3, §4.6 "Symbol-link
// policy").
type SymbolLink struct {
	SymbolName string
	Offset     int64
}

// IfData is an opaque tool-specific sub-tree embedded under an entity. Its
// Dialect selects the A2ML schema C3 uses to decode/encode Raw; unknown
// dialects are preserved byte-for-byte and never touched by the updater.
type IfData struct {
	Dialect string // "CANAPE_EXT", "ASAP1B_CCP", or anything else (preserved verbatim)
	Raw     []byte
}

// AxisDescr is one AXIS_DESCR block of a CURVE/MAP/CUBOID/CUBE4/CUBE5
// CHARACTERISTIC.
type AxisDescr struct {
	InputQuantity  string // name of a MEASUREMENT, or "NO_INPUT_QUANTITY"
	Conversion     string
	MaxAxisPoints  int
	LowerLimit     float64
	UpperLimit     float64
	AxisPtsRef     string // set when this axis shares an AXIS_PTS entity
}

// Measurement is the A2L MEASUREMENT entity: a read-only signal (§3).
type Measurement struct {
	Name       string
	LongIdent  string
	DataType   DataType
	Conversion string
	Resolution int
	Accuracy   float64
	LowerLimit float64
	UpperLimit float64

	SymbolLink *SymbolLink
	ECUAddress uint64
	BitMask    uint64 // 0 when not a bitfield
	MatrixDim  []int
	ArraySize  int // legacy; cleared on update (§4.6 step 3)
	Virtual    bool

	IfData []IfData
}

// Characteristic is the A2L CHARACTERISTIC entity: a tunable parameter (§3).
type Characteristic struct {
	Name       string
	LongIdent  string
	Type       CharacteristicType
	Deposit    string // RECORD_LAYOUT name
	MaxDiff    float64
	Conversion string
	LowerLimit float64
	UpperLimit float64

	SymbolLink        *SymbolLink
	Address           uint64
	BitMask           uint64
	MatrixDim         []int
	Number            int // ASCII string length
	AxisDescrs        []AxisDescr
	ComparisonQuantity string // or "NO_INPUT_QUANTITY"
	VirtualCharacteristic bool

	IfData []IfData
}

// AxisPts is the A2L AXIS_PTS entity: a shared axis (§3).
type AxisPts struct {
	Name          string
	LongIdent     string
	InputQuantity string // or "NO_INPUT_QUANTITY"
	Deposit       string // RECORD_LAYOUT name
	MaxAxisPoints int
	LowerLimit    float64
	UpperLimit    float64
	Conversion    string

	SymbolLink *SymbolLink
	Address    uint64

	IfData []IfData
}

// Blob is the A2L BLOB entity: opaque binary data (§3).
type Blob struct {
	Name       string
	LongIdent  string
	SymbolLink *SymbolLink
	Address    uint64
	Size       int
}

// Instance is the A2L INSTANCE entity: an instantiation of a TYPEDEF_* (§3).
type Instance struct {
	Name          string
	LongIdent     string
	TypedefName   string
	SymbolLink    *SymbolLink
	StartAddress  uint64
	Size          int // informational only per §9 open question; never used for offset arithmetic
}

// VarCharacteristic binds a CHARACTERISTIC or AXIS_PTS to a VARIANT_CODING
// criterion, carrying one address per combination of criteria values (§4.6
// step 7).
type VarCharacteristic struct {
	Name      string // the underlying CHARACTERISTIC/AXIS_PTS name
	Criteria  []string
	Addresses []uint64
}

// RecordLayoutBlock is one FNC_VALUES/AXIS_PTS_{X..5}/NO_AXIS_PTS_* sub-block
// of a RECORD_LAYOUT (§3, §4.4).
type RecordLayoutBlock struct {
	Kind        string // "FNC_VALUES", "AXIS_PTS_X" .. "AXIS_PTS_5"
	Position    int    // 1-based member id into the referencing entity's type
	DataType    DataType
	IndexMode   IndexMode
	AddrType    AddressType
}

// RecordLayout is the A2L RECORD_LAYOUT entity: in-memory placement of a
// CHARACTERISTIC/AXIS_PTS's data (§3, §4.4).
type RecordLayout struct {
	Name           string
	FncValues      *RecordLayoutBlock
	AxisPts        map[string]*RecordLayoutBlock // "X","Y","Z","4","5"
	FixNoAxisPts   map[string]int                // "X".."5" -> FIX_NO_AXIS_PTS_*
}

// Clone returns a deep copy of l, used by the record-layout manager's clone-
// mutate-compare update protocol (§4.4 step 1).
func (l *RecordLayout) Clone() *RecordLayout {
	if l == nil {
		return nil
	}
	out := &RecordLayout{Name: l.Name}
	if l.FncValues != nil {
		fv := *l.FncValues
		out.FncValues = &fv
	}
	if l.AxisPts != nil {
		out.AxisPts = make(map[string]*RecordLayoutBlock, len(l.AxisPts))
		for k, v := range l.AxisPts {
			cp := *v
			out.AxisPts[k] = &cp
		}
	}
	if l.FixNoAxisPts != nil {
		out.FixNoAxisPts = make(map[string]int, len(l.FixNoAxisPts))
		for k, v := range l.FixNoAxisPts {
			out.FixNoAxisPts[k] = v
		}
	}
	return out
}

// Equal reports whether l and other describe the same layout modulo name
// (§4.4 step 4: "search existing layouts for one equal to L' modulo the
// name").
func (l *RecordLayout) Equal(other *RecordLayout) bool {
	if l == nil || other == nil {
		return l == other
	}
	if !blockEqual(l.FncValues, other.FncValues) {
		return false
	}
	if len(l.AxisPts) != len(other.AxisPts) {
		return false
	}
	for k, v := range l.AxisPts {
		if !blockEqual(v, other.AxisPts[k]) {
			return false
		}
	}
	if len(l.FixNoAxisPts) != len(other.FixNoAxisPts) {
		return false
	}
	for k, v := range l.FixNoAxisPts {
		if other.FixNoAxisPts[k] != v {
			return false
		}
	}
	return true
}

func blockEqual(a, b *RecordLayoutBlock) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CompuMethod is the A2L COMPU_METHOD entity: a raw-to-physical conversion
// rule (§3).
type CompuMethod struct {
	Name        string
	LongIdent   string
	ConvType    string // "TAB_VERB", "LINEAR", "RAT_FUNC", "FORMULA", "IDENTICAL", ...
	Format      string
	Unit        string
	Coeffs      []float64 // for LINEAR: [factor, offset]; RAT_FUNC: 6 coeffs
	Formula     string
	FormulaInv  string
	CompuTabRef string // name of COMPU_VTAB/COMPU_VTAB_RANGE, for TAB_VERB
}

// CompuVtabPair is one (value, text) pair of a COMPU_VTAB.
type CompuVtabPair struct {
	Value int64
	Text  string
}

// CompuVtab is the A2L COMPU_VTAB entity: a discrete value->name table (§3).
type CompuVtab struct {
	Name         string
	LongIdent    string
	DefaultValue string
	Pairs        []CompuVtabPair
}

// CompuVtabRangeTriple is one (lower, upper, text) triple of a
// COMPU_VTAB_RANGE.
type CompuVtabRangeTriple struct {
	Lower, Upper int64
	Text         string
}

// CompuVtabRange is the A2L COMPU_VTAB_RANGE entity (§3).
type CompuVtabRange struct {
	Name         string
	LongIdent    string
	DefaultValue string
	Triples      []CompuVtabRangeTriple
}

// Group is the A2L GROUP entity, naming a collection of measurements and
// characteristics (§3, §4.6 step 8).
type Group struct {
	Name              string
	LongIdent         string
	RefCharacteristic []string
	RefMeasurement    []string
	SubGroups         []string
	Root              bool
}

// Function is the A2L FUNCTION entity (§3, §4.6 step 8).
type Function struct {
	Name              string
	LongIdent         string
	InMeasurement     []string
	OutMeasurement    []string
	LocMeasurement    []string
	DefCharacteristic []string
	RefCharacteristic []string
}

// Transformer is the A2L TRANSFORMER entity (§4.6 step 8).
type Transformer struct {
	Name       string
	InObjects  []string
	OutObjects []string
}

// TypedefMeasurement/Characteristic/Axis/Blob are the A2L TYPEDEF_*
// entities used as templates by INSTANCE (§3).
type TypedefMeasurement struct {
	Name       string
	LongIdent  string
	DataType   DataType
	Conversion string
	LowerLimit float64
	UpperLimit float64
	BitMask    uint64
	MatrixDim  []int
}

type TypedefCharacteristic struct {
	Name       string
	LongIdent  string
	Type       CharacteristicType
	Deposit    string
	Conversion string
	LowerLimit float64
	UpperLimit float64
	Number     int
}

type TypedefAxis struct {
	Name          string
	LongIdent     string
	InputQuantity string
	Deposit       string
	Conversion    string
	MaxAxisPoints int
	LowerLimit    float64
	UpperLimit    float64
}

type TypedefBlob struct {
	Name      string
	LongIdent string
	Size      int
}

// StructureComponent is one field of a TYPEDEF_STRUCTURE (§3, §4.7).
type StructureComponent struct {
	Name           string
	TypedefRef     string // name of the TYPEDEF_* this component instantiates
	AddressOffset  int
	SymbolTypeLink string // member name inside the DWARF struct
	AddrType       AddressType
	MatrixDim      []int
}

// TypedefStructure is the A2L TYPEDEF_STRUCTURE entity: a reusable struct
// template built from STRUCTURE_COMPONENTs (§3, §4.7).
type TypedefStructure struct {
	Name            string
	LongIdent       string
	Size            int
	Components      []StructureComponent
	IsCalib         bool // computed by the typedef reconciler's fixed-point classification
	SymbolTypeLink  string // names the DWARF type this struct was bound to, Vector CompileUnit/Namespace extension included verbatim
}

// Module is one ASAP2 MODULE: the container the updater, record-layout
// manager, and creator all operate within (§3).
type Module struct {
	Name      string
	LongIdent string

	Measurements    []*Measurement
	Characteristics []*Characteristic
	AxisPtsList     []*AxisPts
	Blobs           []*Blob
	Instances       []*Instance
	VarChars        []*VarCharacteristic

	RecordLayouts   []*RecordLayout
	CompuMethods    []*CompuMethod
	CompuVtabs      []*CompuVtab
	CompuVtabRanges []*CompuVtabRange

	Groups       []*Group
	Functions    []*Function
	Transformers []*Transformer

	TypedefMeasurements    []*TypedefMeasurement
	TypedefCharacteristics []*TypedefCharacteristic
	TypedefAxes            []*TypedefAxis
	TypedefBlobs           []*TypedefBlob
	TypedefStructures      []*TypedefStructure
}

// Project is the A2L root: a collection of modules (§3).
type Project struct {
	Name      string
	LongIdent string
	Modules   []*Module

	// ASAP2Version is used by §4.6 "Symbol-link policy": SYMBOL_LINK is only
	// written at 1.6+.
	ASAP2VersionMajor int
	ASAP2VersionMinor int
}

// SymbolLinkSupported reports whether this project's declared ASAP2 version
// is 1.6 or later (§4.6 "Symbol-link policy").
func (p *Project) SymbolLinkSupported() bool {
	return p.ASAP2VersionMajor > 1 || (p.ASAP2VersionMajor == 1 && p.ASAP2VersionMinor >= 6)
}

// Axis17Plus reports whether the project is at ASAP2 1.7+, used by the
// matrix-dim algorithm (§4.6 "Matrix-dim").
func (p *Project) Axis17Plus() bool {
	return p.ASAP2VersionMajor > 1 || (p.ASAP2VersionMajor == 1 && p.ASAP2VersionMinor >= 7)
}

// NewProject returns an empty project with one module, ASAP2 version 1.71,
// per §6 "--create to start from an empty project with one module and ASAP2
// version 1.71".
func NewProject(name string) *Project {
	return &Project{
		Name:              name,
		ASAP2VersionMajor: 1,
		ASAP2VersionMinor: 71,
		Modules:           []*Module{{Name: name}},
	}
}
