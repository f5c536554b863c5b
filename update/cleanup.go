package update

import "github.com/jetsetilly/a2lsync/a2l"

// cleanup implements §4.6 step 8: names removed from the module during this
// pass are stripped from every identifier list in GROUP, FUNCTION,
// TRANSFORMER, and from the input-quantity/comparison-quantity fields of
// AXIS_DESCR/CHARACTERISTIC/AXIS_PTS (replaced with NO_INPUT_QUANTITY).
// Identifier lists that become empty cause their containing optional block
// to be cleared.
func cleanup(mod *a2l.Module, removed []string) {
	if len(removed) == 0 {
		return
	}
	removedSet := make(map[string]bool, len(removed))
	for _, r := range removed {
		removedSet[r] = true
	}

	for _, g := range mod.Groups {
		g.RefCharacteristic = stripAll(g.RefCharacteristic, removedSet)
		g.RefMeasurement = stripAll(g.RefMeasurement, removedSet)
	}

	for _, f := range mod.Functions {
		f.InMeasurement = stripAll(f.InMeasurement, removedSet)
		f.OutMeasurement = stripAll(f.OutMeasurement, removedSet)
		f.LocMeasurement = stripAll(f.LocMeasurement, removedSet)
		f.DefCharacteristic = stripAll(f.DefCharacteristic, removedSet)
		f.RefCharacteristic = stripAll(f.RefCharacteristic, removedSet)
	}

	for _, tr := range mod.Transformers {
		tr.InObjects = stripAll(tr.InObjects, removedSet)
		tr.OutObjects = stripAll(tr.OutObjects, removedSet)
	}

	for _, c := range mod.Characteristics {
		if removedSet[c.ComparisonQuantity] {
			c.ComparisonQuantity = a2l.NoInputQuantity
		}
		for i := range c.AxisDescrs {
			if removedSet[c.AxisDescrs[i].InputQuantity] {
				c.AxisDescrs[i].InputQuantity = a2l.NoInputQuantity
			}
		}
	}

	for _, ap := range mod.AxisPtsList {
		if removedSet[ap.InputQuantity] {
			ap.InputQuantity = a2l.NoInputQuantity
		}
	}
}

func stripAll(list []string, removed map[string]bool) []string {
	out := list[:0:0]
	for _, s := range list {
		if !removed[s] {
			out = append(out, s)
		}
	}
	return out
}
