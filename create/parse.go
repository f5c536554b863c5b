package create

import (
	"strconv"
	"strings"

	"github.com/jetsetilly/a2lsync/a2l"
)

// attr is one keyword/value pair within a directive, per §4.8: "Each
// carries a set of keyword/value attributes".
type attr struct {
	Key    string
	Values []string
}

// directiveKeywords are §4.8's directive names; attrKeywords are the
// attribute keywords recognised inside a directive body. Both are used by
// splitAttrs to find the next keyword boundary regardless of whether it
// opens a new directive or a new attribute -- a directive's own name token
// doubles as its first attribute (SYMBOL = x).
var directiveKeywords = map[string]bool{
	"SYMBOL": true, "ELEMENT": true, "SUB_STRUCTURE": true, "INSTANCE": true,
	"MAIN_GROUP": true, "SUB_GROUP": true, "CONVERSION": true, "VAR_CRITERION": true,
}

var attrKeywords = map[string]bool{
	"A2L_TYPE": true, "DATA_TYPE": true, "DIMENSION": true, "GROUP": true,
	"X_AXIS": true, "Y_AXIS": true, "UNIT": true, "DESCRIPTION": true,
	"CRITERION": true, "VALUE": true,
}

func isKeyword(tok string) bool { return directiveKeywords[tok] || attrKeywords[tok] }

// splitAttrs walks tokens, splitting on every "<KEYWORD> =" boundary. An
// unknown directive name (no recognised keyword at all) yields a single
// no-op attribute, per §4.8: "unknown directive names parse as no-ops so
// that unrelated @@ markers in documentation comments do not error."
func splitAttrs(tokens []string) []attr {
	var out []attr
	i := 0
	for i < len(tokens) {
		key := tokens[i]
		i++
		if i < len(tokens) && tokens[i] == "=" {
			i++
		}
		var vals []string
		for i < len(tokens) && !(isKeyword(tokens[i]) && i+1 < len(tokens) && tokens[i+1] == "=") {
			vals = append(vals, tokens[i])
			i++
		}
		out = append(out, attr{Key: key, Values: vals})
	}
	return out
}

func findAttr(attrs []attr, key string) (attr, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a, true
		}
	}
	return attr{}, false
}

// parsedDataType is the decoded form of a DATA_TYPE attribute's value
// tokens (§4.8): datatype keyword, optional bitmask, optional [lo...hi]
// range.
type parsedDataType struct {
	DataType a2l.DataType
	BitMask  uint64
	HasRange bool
	Lo, Hi   int64
}

func parseDataType(values []string) parsedDataType {
	var out parsedDataType
	if len(values) == 0 {
		return out
	}
	out.DataType = mapDataTypeKeyword(values[0])
	for _, v := range values[1:] {
		if strings.HasPrefix(v, "[") {
			lo, hi := parseRange(v)
			out.HasRange = true
			out.Lo, out.Hi = lo, hi
			continue
		}
		out.BitMask = uint64(parseIntMaybeHex(v))
	}
	return out
}

func mapDataTypeKeyword(s string) a2l.DataType {
	switch s {
	case "UBYTE":
		return a2l.UByte
	case "SBYTE":
		return a2l.SByte
	case "UWORD":
		return a2l.UWord
	case "SWORD":
		return a2l.SWord
	case "ULONG":
		return a2l.ULong
	case "SLONG":
		return a2l.SLong
	case "UINT64":
		return a2l.UInt64
	case "INT64":
		return a2l.Int64
	case "FLOAT":
		return a2l.Float32
	case "DOUBLE":
		return a2l.Float64
	default:
		return a2l.DataType(s)
	}
}

// parseRange implements §4.8's "[lo...hi] ranges accept integers or hex
// (0x..., -0x...); ... may be adjacent to operands."
func parseRange(v string) (int64, int64) {
	v = strings.TrimPrefix(v, "[")
	v = strings.TrimSuffix(v, "]")
	parts := strings.SplitN(v, "...", 2)
	lo := parseIntMaybeHex(strings.TrimSpace(parts[0]))
	var hi int64
	if len(parts) > 1 {
		hi = parseIntMaybeHex(strings.TrimSpace(parts[1]))
	}
	return lo, hi
}

func parseIntMaybeHex(s string) int64 {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0
	}
	return n
}

// splitMode identifies which DIMENSION SPLIT variant was used (§4.8
// "DIMENSION").
type splitMode int

const (
	splitNone splitMode = iota
	splitAuto
	splitManual
	splitTemplate
)

type parsedDimension struct {
	Dims           []int
	Mode           splitMode
	ManualSuffixes []string
	Template       string
}

// parseDimension implements §4.8's "DIMENSION = n1 [n2 ...] up to five
// entries, optionally followed by SPLIT, SPLIT USE "sfx1" "sfx2" ..., or
// SPLIT USE_TEMPLATE "...%d...".
func parseDimension(values []string) parsedDimension {
	var out parsedDimension
	i := 0
	for i < len(values) && len(out.Dims) < 5 {
		n, err := strconv.Atoi(values[i])
		if err != nil {
			break
		}
		out.Dims = append(out.Dims, n)
		i++
	}
	if i >= len(values) || values[i] != "SPLIT" {
		return out
	}
	out.Mode = splitAuto
	i++
	if i < len(values) && values[i] == "USE_TEMPLATE" {
		out.Mode = splitTemplate
		i++
		if i < len(values) {
			out.Template = unquote(values[i])
		}
		return out
	}
	if i < len(values) && values[i] == "USE" {
		out.Mode = splitManual
		i++
		for i < len(values) {
			out.ManualSuffixes = append(out.ManualSuffixes, unquote(values[i]))
			i++
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parsedConversion is the decoded CONVERSION attribute (§4.8 "CONVERSION =
// LINEAR f o "unit" ... | FORMULA ... | TABLE ... | named reference").
type parsedConversion struct {
	Kind       string // "LINEAR", "FORMULA", "TABLE", "REF"
	Factor     float64
	Offset     float64
	Unit       string
	Formula    string
	FormulaInv string
	RefName    string
	TablePairs []a2l.CompuVtabPair
	Default    string
}

func parseConversion(values []string) parsedConversion {
	var out parsedConversion
	if len(values) == 0 {
		return out
	}
	switch values[0] {
	case "LINEAR":
		out.Kind = "LINEAR"
		if len(values) > 1 {
			out.Factor = parseFloat(values[1])
		}
		if len(values) > 2 {
			out.Offset = parseFloat(values[2])
		}
		if len(values) > 3 {
			out.Unit = unquote(values[3])
		}
	case "FORMULA":
		out.Kind = "FORMULA"
		i := 1
		if i < len(values) {
			out.Formula = unquote(values[i])
			i++
		}
		if i < len(values) && values[i] == "INVERSE" {
			i++
			if i < len(values) {
				out.FormulaInv = unquote(values[i])
				i++
			}
		}
		if i < len(values) {
			out.Unit = unquote(values[i])
		}
	case "TABLE":
		out.Kind = "TABLE"
		i := 1
		for i+1 < len(values) {
			if values[i] == "DEFAULT_VALUE" {
				if i+1 < len(values) {
					out.Default = unquote(values[i+1])
				}
				break
			}
			v := parseIntMaybeHex(values[i])
			text := unquote(values[i+1])
			out.TablePairs = append(out.TablePairs, a2l.CompuVtabPair{Value: v, Text: text})
			i += 2
		}
	default:
		out.Kind = "REF"
		out.RefName = values[0]
	}
	return out
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
