package create

import (
	"fmt"
	"strings"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/reclayout"
)

// expandDimension turns a parsed DIMENSION into the list of (a2lSuffix,
// symbolSuffix) pairs described at §4.8 "Split iteration": N = Π nᵢ total
// entries, row-major (last dimension fastest). A manual suffix list gives
// one entry per suffix, at most N, so a shorter list gives fewer entries.
type splitEntry struct {
	A2LSuffix    string
	SymbolSuffix string
}

func expandDimension(d parsedDimension) []splitEntry {
	if d.Mode == splitNone || len(d.Dims) == 0 {
		return nil
	}
	total := 1
	for _, n := range d.Dims {
		total *= n
	}
	indices := make([][]int, 0, total)
	cur := make([]int, len(d.Dims))
	for {
		indices = append(indices, append([]int(nil), cur...))
		i := len(cur) - 1
		for i >= 0 {
			cur[i]++
			if cur[i] < d.Dims[i] {
				break
			}
			cur[i] = 0
			i--
		}
		if i < 0 {
			break
		}
	}

	var out []splitEntry
	switch d.Mode {
	case splitAuto:
		for _, idx := range indices {
			out = append(out, splitEntry{A2LSuffix: bracketSuffix(idx), SymbolSuffix: bracketSuffix(idx)})
		}
	case splitManual:
		for i, sfx := range d.ManualSuffixes {
			if i >= len(indices) {
				break
			}
			out = append(out, splitEntry{A2LSuffix: sfx, SymbolSuffix: sfx})
		}
	case splitTemplate:
		for _, idx := range indices {
			s := applyTemplate(d.Template, idx)
			out = append(out, splitEntry{A2LSuffix: s, SymbolSuffix: s})
		}
	}
	return out
}

func bracketSuffix(idx []int) string {
	var b strings.Builder
	for _, i := range idx {
		fmt.Fprintf(&b, "[%d]", i)
	}
	return b.String()
}

// applyTemplate fills successive %d/%x/%X/%c/%C verbs in tpl from idx, left
// to right, per §4.8 "Template (apply format string to the decomposed
// indices)". %c/%C are not Go fmt verbs so they're handled by hand,
// producing a/b/c.. and A/B/C.. respectively.
func applyTemplate(tpl string, idx []int) string {
	var out strings.Builder
	pos := 0
	for i := 0; i < len(tpl); i++ {
		if tpl[i] != '%' || i+1 >= len(tpl) {
			out.WriteByte(tpl[i])
			continue
		}
		verb := tpl[i+1]
		if verb != 'd' && verb != 'x' && verb != 'X' && verb != 'c' && verb != 'C' {
			out.WriteByte(tpl[i])
			continue
		}
		var v int
		if pos < len(idx) {
			v = idx[pos]
		}
		pos++
		i++
		switch verb {
		case 'd':
			fmt.Fprintf(&out, "%d", v)
		case 'x':
			fmt.Fprintf(&out, "%x", v)
		case 'X':
			fmt.Fprintf(&out, "%X", v)
		case 'c':
			out.WriteByte(byte('a' + v%26))
		case 'C':
			out.WriteByte(byte('A' + v%26))
		}
	}
	return out.String()
}

// entity is the decoded form of one top-level directive, ready for
// emission.
type entity struct {
	kind       string // "SYMBOL", "ELEMENT", "SUB_STRUCTURE", "INSTANCE", "MAIN_GROUP", "SUB_GROUP", "CONVERSION", "VAR_CRITERION"
	baseName   string
	a2lType    string // "MEASURE", "CHARACTERISTIC", "AXIS_PTS"
	dataType   parsedDataType
	dimension  parsedDimension
	conversion parsedConversion
	group      string
	groupKind  string // "IN", "OUT", "DEF"
}

func parseDirective(d Directive) (entity, bool) {
	attrs := splitAttrs(d.Tokens)
	if len(attrs) == 0 {
		return entity{}, false
	}
	head := attrs[0]
	if !directiveKeywords[head.Key] {
		return entity{}, false
	}
	e := entity{kind: head.Key}
	if len(head.Values) > 0 {
		e.baseName = head.Values[0]
	}
	if a, ok := findAttr(attrs, "A2L_TYPE"); ok && len(a.Values) > 0 {
		e.a2lType = a.Values[0]
	}
	if a, ok := findAttr(attrs, "DATA_TYPE"); ok {
		e.dataType = parseDataType(a.Values)
	}
	if a, ok := findAttr(attrs, "DIMENSION"); ok {
		e.dimension = parseDimension(a.Values)
	}
	if a, ok := findAttr(attrs, "CONVERSION"); ok {
		e.conversion = parseConversion(a.Values)
	}
	if a, ok := findAttr(attrs, "GROUP"); ok {
		if len(a.Values) > 0 {
			e.groupKind = a.Values[0]
		}
		if len(a.Values) > 1 {
			e.group = strings.Join(a.Values[1:], " ")
		}
	}
	return e, true
}

// Options configures how Create names and links emitted entities.
type Options struct {
	SymbolLinks bool // write SYMBOL_LINK per §4.6 "Symbol-link policy"
}

// Summary counts entities created by a Create call, per §4.8's "returns a
// summary of what it created and any directives it could not resolve".
type Summary struct {
	Created   map[string]int
	Skipped   []string
}

// Create scans src for @@ directives and synthesizes the entities they
// describe into mod, minting default RECORD_LAYOUTs via rl as needed
// (§4.8).
func Create(mod *a2l.Module, rl *reclayout.Index, src []byte, opts Options) Summary {
	sum := Summary{Created: map[string]int{}}
	directives := ScanAllComments(src)
	for _, d := range directives {
		e, ok := parseDirective(d)
		if !ok {
			continue
		}
		switch e.kind {
		case "SYMBOL", "ELEMENT":
			createMeasurementOrCharacteristic(mod, rl, e, opts, &sum)
		case "MAIN_GROUP", "SUB_GROUP":
			createGroup(mod, e, &sum)
		default:
			sum.Skipped = append(sum.Skipped, e.kind+" "+e.baseName)
		}
	}
	return sum
}

func createMeasurementOrCharacteristic(mod *a2l.Module, rl *reclayout.Index, e entity, opts Options, sum *Summary) {
	entries := expandDimension(e.dimension)
	if entries == nil {
		entries = []splitEntry{{}}
	}
	for _, entry := range entries {
		a2lName := e.baseName + entry.A2LSuffix
		symbolName := e.baseName + entry.SymbolSuffix
		if mod.FindMeasurement(a2lName) != nil || mod.FindCharacteristic(a2lName) != nil {
			sum.Skipped = append(sum.Skipped, "collision: "+a2lName)
			continue
		}
		switch e.a2lType {
		case "CHARACTERISTIC", "AXIS_PTS":
			deposit := rl.MintDefault(e.dataType.DataType)
			c := &a2l.Characteristic{
				Name:       a2lName,
				Type:       a2l.Value,
				Deposit:    deposit,
				Conversion: conversionName(e.conversion, mod),
				LowerLimit: float64(e.dataType.Lo),
				UpperLimit: float64(e.dataType.Hi),
				BitMask:    e.dataType.BitMask,
			}
			if opts.SymbolLinks {
				c.SymbolLink = &a2l.SymbolLink{SymbolName: symbolName}
			}
			mod.Characteristics = append(mod.Characteristics, c)
			sum.Created["CHARACTERISTIC"]++
		default:
			m := &a2l.Measurement{
				Name:       a2lName,
				DataType:   e.dataType.DataType,
				Conversion: conversionName(e.conversion, mod),
				LowerLimit: float64(e.dataType.Lo),
				UpperLimit: float64(e.dataType.Hi),
				BitMask:    e.dataType.BitMask,
			}
			if opts.SymbolLinks {
				m.SymbolLink = &a2l.SymbolLink{SymbolName: symbolName}
			}
			mod.Measurements = append(mod.Measurements, m)
			sum.Created["MEASUREMENT"]++
		}
	}
}

// conversionName materializes a CONVERSION attribute as a COMPU_METHOD name,
// minting one on first use (§4.8 "CONVERSION").
func conversionName(c parsedConversion, mod *a2l.Module) string {
	switch c.Kind {
	case "":
		return "NO_COMPU_METHOD"
	case "REF":
		return c.RefName
	case "LINEAR":
		name := "CM_LINEAR"
		if mod.FindCompuMethod(name) == nil {
			mod.CompuMethods = append(mod.CompuMethods, &a2l.CompuMethod{
				Name: name, ConvType: "LINEAR", Unit: c.Unit, Coeffs: []float64{c.Factor, c.Offset},
			})
		}
		return name
	case "FORMULA":
		name := "CM_FORMULA"
		if mod.FindCompuMethod(name) == nil {
			mod.CompuMethods = append(mod.CompuMethods, &a2l.CompuMethod{
				Name: name, ConvType: "FORMULA", Unit: c.Unit, Formula: c.Formula, FormulaInv: c.FormulaInv,
			})
		}
		return name
	case "TABLE":
		name := "CM_TABLE"
		if mod.FindCompuVtab(name) == nil {
			mod.CompuVtabs = append(mod.CompuVtabs, &a2l.CompuVtab{
				Name: name, DefaultValue: c.Default, Pairs: c.TablePairs,
			})
			mod.CompuMethods = append(mod.CompuMethods, &a2l.CompuMethod{
				Name: name, ConvType: "TAB_VERB", CompuTabRef: name,
			})
		}
		return name
	}
	return "NO_COMPU_METHOD"
}

func createGroup(mod *a2l.Module, e entity, sum *Summary) {
	g := mod.FindGroup(e.baseName)
	if g == nil {
		g = &a2l.Group{Name: e.baseName, Root: e.kind == "MAIN_GROUP"}
		mod.Groups = append(mod.Groups, g)
		sum.Created["GROUP"]++
	}
	if e.group == "" {
		return
	}
	switch e.groupKind {
	case "OUT":
		g.RefMeasurement = append(g.RefMeasurement, e.group)
	default:
		g.RefCharacteristic = append(g.RefCharacteristic, e.group)
	}
}
