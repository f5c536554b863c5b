package update

import "github.com/jetsetilly/a2lsync/a2l"

// updateVarCharacteristicsOpt implements §4.6 step 7: for each entry whose name
// matches an updated CHARACTERISTIC or AXIS_PTS, re-base the address list so
// the first entry equals the entity's new address and every other entry
// preserves its offset from the old first entry. When the referenced base
// entity no longer exists: if preserving, reset the first address to 0 and
// keep offsets; else drop the VAR_CHARACTERISTIC.
func updateVarCharacteristicsOpt(mod *a2l.Module, opt Options, s *Summary) {
	kept := mod.VarChars[:0:0]
	for _, vc := range mod.VarChars {
		newBase, found := baseAddress(mod, vc.Name)

		if !found {
			if !opt.PreserveUnknown {
				s.fail("VAR_CHARACTERISTIC")
				continue
			}
			if len(vc.Addresses) > 0 {
				offset0 := vc.Addresses[0]
				for i := range vc.Addresses {
					vc.Addresses[i] -= offset0
				}
			}
			kept = append(kept, vc)
			s.fail("VAR_CHARACTERISTIC")
			continue
		}

		if len(vc.Addresses) > 0 {
			oldFirst := vc.Addresses[0]
			for i := range vc.Addresses {
				vc.Addresses[i] = newBase + (vc.Addresses[i] - oldFirst)
			}
		}
		kept = append(kept, vc)
		s.ok("VAR_CHARACTERISTIC")
	}
	mod.VarChars = kept
}

func baseAddress(mod *a2l.Module, name string) (uint64, bool) {
	if c := mod.FindCharacteristic(name); c != nil {
		return c.Address, true
	}
	if ap := mod.FindAxisPts(name); ap != nil {
		return ap.Address, true
	}
	return 0, false
}
