// Package update implements C6, the updater: per-entity reconciliation of
// MEASUREMENT / CHARACTERISTIC / AXIS_PTS / BLOB / INSTANCE /
// VAR_CHARACTERISTIC against the DWARF model built by C1, plus cleanup of
// dangling references left behind when entities are dropped (spec.md §4.6).
// Grounded on the teacher's own "rebuild a derived view, then reconcile the
// live model against it" pass in coprocessor/developer/dwarf_stats.go and
// source_sorting.go: a single pass over every relevant entity kind, each
// producing either an update or a logged failure.
package update

import (
	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/enumconv"
	"github.com/jetsetilly/a2lsync/errs"
	"github.com/jetsetilly/a2lsync/ifdata"
	"github.com/jetsetilly/a2lsync/logger"
	"github.com/jetsetilly/a2lsync/reclayout"
	"github.com/jetsetilly/a2lsync/resolve"
)

// Options configures one update pass over a module (§6 CLI flags
// --update/--update-preserve map to PreserveUnknown).
type Options struct {
	PreserveUnknown bool
	SymbolLinks     bool // project.SymbolLinkSupported()
	Axis17Plus      bool // project.Axis17Plus()
}

// Summary counts updated vs not-updated entities per kind, printed by the
// CLI at verbose level 1 (§7).
type Summary struct {
	Updated    map[string]int
	NotUpdated map[string]int
	Removed    []string // entity names dropped this pass, fed to the cleanup step
}

func newSummary() *Summary {
	return &Summary{Updated: make(map[string]int), NotUpdated: make(map[string]int)}
}

func (s *Summary) ok(kind string)  { s.Updated[kind]++ }
func (s *Summary) fail(kind string) { s.NotUpdated[kind]++ }

// Module runs the full C6 pass over mod against dd, in the sequencing §5
// requires: AXIS_PTS before CHARACTERISTIC, record layouts alongside their
// users, enum conversions interleaved with each entity kind's own pass, and
// cleanup of dangling references last.
func Module(mod *a2l.Module, dd *dwarf.DebugData, opt Options) *Summary {
	s := newSummary()
	rl := reclayout.Build(mod)
	enums := enumconv.NewRegistry()

	updateAxisPtsList(mod, dd, rl, enums, opt, s)
	updateMeasurements(mod, dd, enums, opt, s)
	updateCharacteristics(mod, dd, rl, enums, opt, s)
	updateBlobs(mod, dd, opt, s)
	updateInstances(mod, dd, opt, s)
	updateVarCharacteristicsOpt(mod, opt, s)
	cleanup(mod, s.Removed)

	return s
}

// resolveWithFallback implements §4.6's "Failure policy" / §8's boundary
// behavior: try SYMBOL_LINK, then an IF_DATA CANAPE_EXT symbol name, then
// the entity's own name, returning every attempted-path error message if
// all three miss.
func resolveWithFallback(link *a2l.SymbolLink, ifData []a2l.IfData, ownName string, dd *dwarf.DebugData) (resolve.Result, []string) {
	var candidates []string
	if link != nil && link.SymbolName != "" {
		candidates = append(candidates, link.SymbolName)
	}
	if lm := ifdata.FindIfData(ifData, ifdata.DialectCANAPEExt); lm != nil {
		if decoded, ok := ifdata.DecodeLinkMap(lm.Raw); ok && decoded.SymbolName != "" {
			candidates = append(candidates, decoded.SymbolName)
		}
	}
	candidates = append(candidates, ownName)

	var attempts []string
	for _, c := range candidates {
		res, errStrs := resolve.Resolve(c, dd)
		if errStrs == nil {
			return res, nil
		}
		attempts = append(attempts, errStrs...)
	}
	return resolve.Result{}, attempts
}

// writeSymbolLink implements §4.6's "Symbol-link policy": write/update
// SYMBOL_LINK at A2L 1.6+, otherwise clear it (pre-1.6 A2L never had the
// keyword; IF_DATA carries the symbol pairing instead).
func writeSymbolLink(opt Options, cur **a2l.SymbolLink, name string, offset int64) {
	if !opt.SymbolLinks {
		*cur = nil
		return
	}
	*cur = &a2l.SymbolLink{SymbolName: name, Offset: offset}
}

func logFailure(kind, name string, attempts []string) {
	logger.Log("update", errs.Errorf("%s %s: resolution failed (%d attempts): %v", kind, name, len(attempts), attempts).Error())
}
