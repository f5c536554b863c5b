package update

import (
	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
)

// updateBlobs implements §4.6 step 5: resolve symbol, set size from the
// DWARF type's raw byte size.
func updateBlobs(mod *a2l.Module, dd *dwarf.DebugData, opt Options, s *Summary) {
	for _, b := range mod.Blobs {
		res, attempts := resolveWithFallback(b.SymbolLink, nil, b.Name, dd)
		if attempts != nil {
			logFailure("BLOB", b.Name, attempts)
			s.fail("BLOB")
			if !opt.PreserveUnknown {
				removeBlobHelper(mod, b.Name)
				s.Removed = append(s.Removed, b.Name)
			} else {
				b.Address = 0
			}
			continue
		}
		b.Address = res.Address
		b.Size = res.Type.GetSize()
		writeSymbolLink(opt, &b.SymbolLink, res.ResolvedName, 0)
		s.ok("BLOB")
	}
}

// InstanceType is one INSTANCE's resolved DWARF type, collected for the
// typedef reconciler (C7) per §4.6 step 6: "collect the DWARF type (peeling
// one pointer indirection and one array layer) for the typedef reconciler".
type InstanceType struct {
	Instance *a2l.Instance
	Type     *dwarf.TypeInfo
}

// updateInstances implements §4.6 step 6: resolve symbol, set
// start_address. It returns the peeled type of every resolved INSTANCE;
// Module discards that list, so it does not reach C7 from here.
func updateInstances(mod *a2l.Module, dd *dwarf.DebugData, opt Options, s *Summary) []InstanceType {
	var out []InstanceType
	for _, inst := range mod.Instances {
		res, attempts := resolveWithFallback(inst.SymbolLink, nil, inst.Name, dd)
		if attempts != nil {
			logFailure("INSTANCE", inst.Name, attempts)
			s.fail("INSTANCE")
			continue
		}
		inst.StartAddress = res.Address
		writeSymbolLink(opt, &inst.SymbolLink, res.ResolvedName, 0)
		s.ok("INSTANCE")

		out = append(out, InstanceType{Instance: inst, Type: peelIndirection(res.Type, dd.Types)})
	}
	return out
}

// peelIndirection removes one pointer indirection and one array layer, per
// §4.6 step 6.
func peelIndirection(t *dwarf.TypeInfo, types map[uint64]*dwarf.TypeInfo) *dwarf.TypeInfo {
	cur := t.GetReference(types)
	if cur != nil && cur.Kind == dwarf.KindPointer {
		if target, ok := types[cur.TargetOffset]; ok {
			cur = target.GetReference(types)
		}
	}
	if cur != nil && cur.Kind == dwarf.KindArray {
		cur = cur.ElementType.GetReference(types)
	}
	return cur
}

// removeBlobHelper is a small helper kept local to this file since a2l.Module has
// no exported BLOB removal (blobs are less central than the other
// addressable kinds).
func removeBlobHelper(mod *a2l.Module, name string) bool {
	for i, b := range mod.Blobs {
		if b.Name == name {
			mod.Blobs = append(mod.Blobs[:i], mod.Blobs[i+1:]...)
			return true
		}
	}
	return false
}
