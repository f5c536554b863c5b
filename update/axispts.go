package update

import (
	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/enumconv"
	"github.com/jetsetilly/a2lsync/reclayout"
)

// updateAxisPtsList implements §4.6 step 2 over every AXIS_PTS in the
// module. It runs before CHARACTERISTIC updates per §5's ordering
// guarantee.
func updateAxisPtsList(mod *a2l.Module, dd *dwarf.DebugData, rl *reclayout.Index, enums *enumconv.Registry, opt Options, s *Summary) {
	for _, ap := range mod.AxisPtsList {
		if !updateOneAxisPts(mod, ap, dd, rl, enums, opt) {
			s.fail("AXIS_PTS")
			if !opt.PreserveUnknown {
				mod.RemoveAxisPts(ap.Name)
				s.Removed = append(s.Removed, ap.Name)
			} else {
				ap.Address = 0
				zeroIfData(ap.IfData)
			}
			continue
		}
		s.ok("AXIS_PTS")
	}
}

func updateOneAxisPts(mod *a2l.Module, ap *a2l.AxisPts, dd *dwarf.DebugData, rl *reclayout.Index, enums *enumconv.Registry, opt Options) bool {
	res, attempts := resolveWithFallback(ap.SymbolLink, ap.IfData, ap.Name, dd)
	if attempts != nil {
		logFailure("AXIS_PTS", ap.Name, attempts)
		return false
	}

	ap.Address = res.Address
	writeSymbolLink(opt, &ap.SymbolLink, res.ResolvedName, 0)

	axisMember := axisMemberType(mod, ap.Deposit, "X", res.Type, dd.Types)
	if axisMember != nil {
		if axisMember.IsArray() && len(axisMember.Dim) > 0 {
			ap.MaxAxisPoints = axisMember.Dim[0]
		}
		elem := axisMember
		if elem.IsArray() {
			elem = elem.ElementType.GetReference(dd.Types)
		}
		if elem != nil && elem.IsEnum() {
			ap.Conversion = enums.Ensure(mod, elem)
		}
	}

	cm := mod.FindCompuMethod(ap.Conversion)
	baseType := axisMember
	if baseType == nil {
		baseType = res.Type
	}
	ap.LowerLimit, ap.UpperLimit = adjustLimits(ap.LowerLimit, ap.UpperLimit, baseType, cm)

	if ap.Deposit == "" {
		ap.Deposit = rl.MintDefault(reclayout.DwarfToA2LType(res.Type))
		rl.Reference(ap.Deposit)
	} else {
		newName := rl.UpdateForType(ap.Deposit, res.Type, dd.Types)
		if newName != ap.Deposit {
			// UpdateForType has already moved the refcounts to newName
			ap.Deposit = newName
		}
	}

	for i := range ap.IfData {
		updateIfDataBlob(&ap.IfData[i], res.ResolvedName, res.Address, res.Type)
	}

	return true
}

// axisMemberType follows the named layout's AXIS_PTS_<letter> position into
// t to locate the axis member (§4.6 step 2: "Follow AXIS_PTS_X position
// into the type to locate the axis member").
func axisMemberType(mod *a2l.Module, layoutName, letter string, t *dwarf.TypeInfo, types map[uint64]*dwarf.TypeInfo) *dwarf.TypeInfo {
	layout := mod.FindRecordLayout(layoutName)
	if layout == nil || layout.AxisPts == nil {
		return t.GetReference(types)
	}
	blk, ok := layout.AxisPts[letter]
	if !ok {
		return t.GetReference(types)
	}
	m := t.GetReference(types).NthMember(blk.Position)
	return m.GetReference(types)
}
