package update

import (
	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/enumconv"
	"github.com/jetsetilly/a2lsync/reclayout"
)

// updateCharacteristics implements §4.6 step 4 over every CHARACTERISTIC.
func updateCharacteristics(mod *a2l.Module, dd *dwarf.DebugData, rl *reclayout.Index, enums *enumconv.Registry, opt Options, s *Summary) {
	for _, c := range mod.Characteristics {
		if c.VirtualCharacteristic {
			continue // §4.6 step 4: "Skip any with VIRTUAL_CHARACTERISTIC"
		}
		if !updateOneCharacteristic(mod, c, dd, rl, enums, opt) {
			s.fail("CHARACTERISTIC")
			if !opt.PreserveUnknown {
				mod.RemoveCharacteristic(c.Name)
				s.Removed = append(s.Removed, c.Name)
			} else {
				c.Address = 0
				zeroIfData(c.IfData)
			}
			continue
		}
		s.ok("CHARACTERISTIC")
	}
}

func updateOneCharacteristic(mod *a2l.Module, c *a2l.Characteristic, dd *dwarf.DebugData, rl *reclayout.Index, enums *enumconv.Registry, opt Options) bool {
	res, attempts := resolveWithFallback(c.SymbolLink, c.IfData, c.Name, dd)
	if attempts != nil {
		logFailure("CHARACTERISTIC", c.Name, attempts)
		return false
	}

	c.Address = res.Address
	writeSymbolLink(opt, &c.SymbolLink, res.ResolvedName, 0)

	fncPos := 1
	if c.Deposit == "" {
		c.Deposit = rl.MintDefault(reclayout.DwarfToA2LType(res.Type))
		rl.Reference(c.Deposit)
	}
	layout := mod.FindRecordLayout(c.Deposit)
	if layout != nil && layout.FncValues != nil {
		fncPos = layout.FncValues.Position
	}
	fncType := res.Type.GetReference(dd.Types).NthMember(fncPos)
	if fncType != nil && fncType.IsEnum() {
		c.Conversion = enums.Ensure(mod, fncType)
	}

	cm := mod.FindCompuMethod(c.Conversion)
	baseType := fncType
	if baseType == nil {
		baseType = res.Type
	}
	c.LowerLimit, c.UpperLimit = adjustLimits(c.LowerLimit, c.UpperLimit, baseType, cm)

	repairCharacteristicType(c, res.Type, opt.Axis17Plus)
	updateAxisDescrs(mod, c, res.Type, dd)

	newLayout := rl.UpdateForType(c.Deposit, res.Type, dd.Types)
	if newLayout != c.Deposit {
		// UpdateForType has already moved the refcounts to newLayout
		c.Deposit = newLayout
	}

	for i := range c.IfData {
		updateIfDataBlob(&c.IfData[i], res.ResolvedName, res.Address, res.Type)
	}

	return true
}

// repairCharacteristicType implements §4.6 step 4's CharacteristicType
// repair rules (a)-(e).
func repairCharacteristicType(c *a2l.Characteristic, t *dwarf.TypeInfo, axis17Plus bool) {
	isCurveLike := c.Type == a2l.Curve || c.Type == a2l.Map || c.Type == a2l.Cuboid || c.Type == a2l.Cube4 || c.Type == a2l.Cube5

	// (a) downgrade curve-like types with no axis descriptors to Value
	if isCurveLike && len(c.AxisDescrs) == 0 {
		c.Type = a2l.Value
		isCurveLike = false
	}

	if c.Type == a2l.Ascii {
		// (e) Ascii: number = array's single dimension
		dims := flattenDims(t)
		if len(dims) > 0 {
			c.Number = dims[0]
		}
		c.MatrixDim = nil
		return
	}

	if isCurveLike {
		return // matrix-dim/type promotion rules only apply to Value/ValBlk
	}

	// (b) set matrix-dim from the outer type for Value/ValBlk
	c.MatrixDim = matrixDim(t, axis17Plus)

	// (c)/(d): promote Value->ValBlk when matrix-dim exists, demote
	// ValBlk->Value when it doesn't.
	if len(c.MatrixDim) > 0 && c.Type == a2l.Value {
		c.Type = a2l.ValBlk
	} else if len(c.MatrixDim) == 0 && c.Type == a2l.ValBlk {
		c.Type = a2l.Value
	}
}

// updateAxisDescrs implements §4.6 step 4's "Update AXIS_DESCR" rule: each
// descriptor's max_axis_points is taken from the referenced AXIS_PTS when
// axis_pts_ref is set, otherwise derived from the nth array member dictated
// by the layout's AXIS_PTS_{X..5} positions.
func updateAxisDescrs(mod *a2l.Module, c *a2l.Characteristic, t *dwarf.TypeInfo, dd *dwarf.DebugData) {
	letters := []string{"X", "Y", "Z", "4", "5"}
	for i := range c.AxisDescrs {
		ad := &c.AxisDescrs[i]
		if ad.AxisPtsRef != "" {
			if ap := mod.FindAxisPts(ad.AxisPtsRef); ap != nil {
				ad.MaxAxisPoints = ap.MaxAxisPoints
			}
			continue
		}
		if i >= len(letters) {
			continue
		}
		member := axisMemberType(mod, c.Deposit, letters[i], t, dd.Types)
		if member != nil && member.IsArray() && len(member.Dim) > 0 {
			ad.MaxAxisPoints = member.Dim[0]
		}
	}
}
