package update

import "github.com/jetsetilly/a2lsync/dwarf"
import "github.com/jetsetilly/a2lsync/a2l"

// adjustLimits implements §4.6's "Limit adjustment": derive the datatype's
// natural range, apply the entity's physical conversion if one applies,
// then either take it verbatim (if the current limits are (0,0)) or
// intersect with the current limits (new lower can't go below old lower,
// new upper can't go above old upper).
func adjustLimits(curLo, curHi float64, t *dwarf.TypeInfo, cm *a2l.CompuMethod) (float64, float64) {
	natLo, natHi := t.NaturalRange()

	if cm != nil && cm.ConvType == "LINEAR" && len(cm.Coeffs) >= 2 {
		factor, offset := cm.Coeffs[0], cm.Coeffs[1]
		a := natLo*factor + offset
		b := natHi*factor + offset
		if a <= b {
			natLo, natHi = a, b
		} else {
			natLo, natHi = b, a
		}
	}

	if curLo == 0 && curHi == 0 {
		return natLo, natHi
	}

	lo := natLo
	if curLo > lo {
		lo = curLo
	}
	hi := natHi
	if curHi < hi {
		hi = curHi
	}
	return lo, hi
}

// flattenDims walks nested arrays collecting every dimension into one flat
// list, per §9's "multi-dimensional arrays may appear either as nested
// arrays or as one multi-dim entry and must be treated equivalently".
func flattenDims(t *dwarf.TypeInfo) []int {
	var out []int
	cur := t
	for cur != nil && cur.Kind == dwarf.KindArray {
		out = append(out, cur.Dim...)
		cur = cur.ElementType
	}
	return out
}

// matrixDim implements §4.6's "Matrix-dim" algorithm: in pre-1.7 mode, pad
// the flattened dimension list with 1s to exactly 3 entries and truncate to
// 3; in 1.7+ mode use the natural length; if there are no dimensions at
// all, clear the field regardless of version.
func matrixDim(t *dwarf.TypeInfo, axis17Plus bool) []int {
	dims := flattenDims(t)
	if len(dims) == 0 {
		return nil
	}
	if axis17Plus {
		return dims
	}
	for len(dims) < 3 {
		dims = append(dims, 1)
	}
	return dims[:3]
}
