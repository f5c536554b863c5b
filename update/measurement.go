package update

import (
	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/enumconv"
	"github.com/jetsetilly/a2lsync/ifdata"
	"github.com/jetsetilly/a2lsync/reclayout"
)

// updateMeasurements implements §4.6 step 3, iterated over every
// MEASUREMENT in the module.
func updateMeasurements(mod *a2l.Module, dd *dwarf.DebugData, enums *enumconv.Registry, opt Options, s *Summary) {
	for _, meas := range mod.Measurements {
		if meas.Virtual {
			continue // §4.6 step 3: "Skip any MEASUREMENT with VIRTUAL"
		}
		if !updateOneMeasurement(mod, meas, dd, enums, opt) {
			s.fail("MEASUREMENT")
			if !opt.PreserveUnknown {
				mod.RemoveMeasurement(meas.Name)
				s.Removed = append(s.Removed, meas.Name)
			} else {
				meas.ECUAddress = 0
				zeroIfData(meas.IfData)
			}
			continue
		}
		s.ok("MEASUREMENT")
	}
}

func updateOneMeasurement(mod *a2l.Module, meas *a2l.Measurement, dd *dwarf.DebugData, enums *enumconv.Registry, opt Options) bool {
	res, attempts := resolveWithFallback(meas.SymbolLink, meas.IfData, meas.Name, dd)
	if attempts != nil {
		logFailure("MEASUREMENT", meas.Name, attempts)
		return false
	}

	meas.ECUAddress = res.Address
	meas.DataType = reclayout.DwarfToA2LType(res.Type)
	writeSymbolLink(opt, &meas.SymbolLink, res.ResolvedName, 0)

	if res.Type != nil && res.Type.Kind == dwarf.KindBitfield {
		meas.BitMask = res.Type.Mask()
	} else {
		meas.BitMask = 0
	}

	if res.Type != nil && res.Type.IsEnum() {
		meas.Conversion = enums.Ensure(mod, res.Type)
	}

	cm := mod.FindCompuMethod(meas.Conversion)
	meas.LowerLimit, meas.UpperLimit = adjustLimits(meas.LowerLimit, meas.UpperLimit, res.Type, cm)

	meas.MatrixDim = matrixDim(res.Type, opt.Axis17Plus)
	meas.ArraySize = 0 // §4.6 step 3: "Clear array_size (legacy)"

	for i := range meas.IfData {
		updateIfDataBlob(&meas.IfData[i], res.ResolvedName, res.Address, res.Type)
	}

	return true
}

func updateIfDataBlob(blob *a2l.IfData, name string, addr uint64, t *dwarf.TypeInfo) {
	switch blob.Dialect {
	case ifdata.DialectCANAPEExt:
		blob.Raw = ifdata.UpdateLinkMap(blob.Raw, name, addr, t)
	case ifdata.DialectASAP1BCCP:
		blob.Raw = ifdata.UpdateDPBlob(blob.Raw, t)
	}
}

func zeroIfData(list []a2l.IfData) {
	for i := range list {
		if list[i].Dialect == ifdata.DialectCANAPEExt {
			list[i].Raw = ifdata.Zero(list[i].Raw)
		}
	}
}
