// Command a2lsync is the thin CLI wiring spec.md §6's flags to the library
// packages, grounded on the teacher's own preference for small explicit
// main packages over a CLI framework (no cobra/urfave anywhere in the
// retrieved pack either).
package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/config"
	"github.com/jetsetilly/a2lsync/create"
	"github.com/jetsetilly/a2lsync/dwarf"
	"github.com/jetsetilly/a2lsync/errs"
	"github.com/jetsetilly/a2lsync/logger"
	"github.com/jetsetilly/a2lsync/reclayout"
	"github.com/jetsetilly/a2lsync/typedef"
	"github.com/jetsetilly/a2lsync/update"
)

type repeatedFlag []string

func (r *repeatedFlag) String() string     { return strings.Join(*r, ",") }
func (r *repeatedFlag) Set(v string) error { *r = append(*r, v); return nil }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("a2lsync", flag.ContinueOnError)

	create_ := fs.Bool("create", false, "start from an empty project with one module, ASAP2 1.71")
	elffile := fs.String("elffile", "", "load DWARF from this ELF/PE file")
	fs.StringVar(elffile, "e", "", "alias for --elffile")
	// merge/merge-project/merge-includes are accepted for CLI-surface
	// completeness (spec.md §6) but have no effect: merging requires
	// reading a second A2L file, which needs the external text parser
	// named out of scope in SPEC_FULL.md §1.
	var merge repeatedFlag
	fs.Var(&merge, "merge", "module-level merge (repeatable)")
	fs.Var(&merge, "m", "alias for --merge")
	mergeProject := fs.String("merge-project", "", "project-level merge")
	fs.StringVar(mergeProject, "p", "", "alias for --merge-project")
	mergeIncludes := fs.Bool("merge-includes", false, "flatten /include directives")
	fs.BoolVar(mergeIncludes, "i", false, "alias for --merge-includes")
	doUpdate := fs.Bool("update", false, "destructive update")
	fs.BoolVar(doUpdate, "u", false, "alias for --update")
	updatePreserve := fs.Bool("update-preserve", false, "non-destructive update (requires elffile)")
	var characteristics, measurements repeatedFlag
	fs.Var(&characteristics, "characteristic", "insert a single CHARACTERISTIC symbol (repeatable)")
	fs.Var(&measurements, "measurement", "insert a single MEASUREMENT symbol (repeatable)")
	characteristicRange := fs.String("characteristic-range", "", "LO HI: insert every CHARACTERISTIC symbol in range")
	measurementRange := fs.String("measurement-range", "", "LO HI: insert every MEASUREMENT symbol in range")
	characteristicRegex := fs.String("characteristic-regex", "", "insert every CHARACTERISTIC symbol matching RE")
	measurementRegex := fs.String("measurement-regex", "", "insert every MEASUREMENT symbol matching RE")
	targetGroup := fs.String("target-group", "", "place created items in this GROUP (created if missing)")
	check := fs.Bool("check", false, "validate without writing")
	cleanup := fs.Bool("cleanup", false, "drop dangling references")
	ifdataCleanup := fs.Bool("ifdata-cleanup", false, "same as --cleanup; IF_DATA is not modified")
	sortOut := fs.Bool("sort", false, "write entities back in canonical sorted order")
	showXCP := fs.Bool("show-xcp", false, "print XCP-relevant summary")
	output := fs.String("output", "", "write the resulting A2L here")
	fs.StringVar(output, "o", "", "alias for --output")
	strict := fs.Bool("strict", false, "fail on any A2L syntactic inconsistency")
	fs.BoolVar(strict, "s", false, "alias for --strict")
	verbose := fs.Bool("v", false, "verbose")
	veryVerbose := fs.Bool("vv", false, "very verbose")
	configPath := fs.String("config", "", "YAML file of persisted CLI defaults")
	createSrc := fs.String("create-from", "", "source file to scan for @@ creator directives")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		cfg = c
	}
	if *targetGroup == "" {
		*targetGroup = cfg.TargetGroup
	}
	if !*strict {
		*strict = cfg.Strict
	}

	input := fs.Arg(0)
	if input == "" && !*create_ {
		fmt.Fprintln(os.Stderr, errs.Errorf("a2lsync: INPUT required unless --create"))
		return 1
	}

	var project *a2l.Project
	if *create_ {
		project = a2l.NewProject("a2lsync")
	} else {
		if _, err := os.Stat(input); err != nil {
			fmt.Fprintln(os.Stderr, errs.Errorf("a2lsync: input %q not found: %w", input, err))
			return 1
		}
		// A2L surface syntax is out of scope (spec.md §1): the CLI operates
		// on a project supplied by an external parser/serializer. --create
		// is the one path that exercises the in-memory model end to end
		// without one.
		fmt.Fprintln(os.Stderr, errs.Errorf("a2lsync: loading an existing A2L file requires an external parser; use --create"))
		return 1
	}
	mod := project.Modules[0]

	var dd *dwarf.DebugData
	if *elffile != "" {
		d, err := dwarf.Load(*elffile)
		if err != nil {
			fmt.Fprintln(os.Stderr, errs.Errorf("a2lsync: %w", err))
			return 1
		}
		dd = d
	}

	if (*doUpdate || *updatePreserve) && dd == nil {
		fmt.Fprintln(os.Stderr, errs.Errorf("a2lsync: --update/--update-preserve requires --elffile"))
		return 1
	}

	rl := reclayout.Build(mod)

	if *doUpdate || *updatePreserve {
		opt := update.Options{
			PreserveUnknown: *updatePreserve,
			SymbolLinks:     project.SymbolLinkSupported(),
			Axis17Plus:      project.Axis17Plus(),
		}
		summary := update.Module(mod, dd, opt)
		r := typedef.New(mod, dd, rl)
		r.ClassifyStructures()
		r.GC()
		if *veryVerbose {
			logger.Write(os.Stdout)
		}
		if *verbose || *veryVerbose {
			printSummary(summary)
		}
	}

	if *createSrc != "" {
		src, err := os.ReadFile(*createSrc)
		if err != nil {
			fmt.Fprintln(os.Stderr, errs.Errorf("a2lsync: %w", err))
			return 1
		}
		sum := create.Create(mod, rl, src, create.Options{SymbolLinks: project.SymbolLinkSupported()})
		if *verbose || *veryVerbose {
			fmt.Printf("created: %+v\n", sum.Created)
		}
	}

	for _, name := range characteristics {
		insertSingle(mod, rl, dd, name, false, *targetGroup)
	}
	for _, name := range measurements {
		insertSingle(mod, rl, dd, name, true, *targetGroup)
	}

	if *characteristicRange != "" {
		insertRange(mod, rl, dd, *characteristicRange, false, *targetGroup)
	}
	if *measurementRange != "" {
		insertRange(mod, rl, dd, *measurementRange, true, *targetGroup)
	}
	if *characteristicRegex != "" {
		insertRegex(mod, rl, dd, *characteristicRegex, false, *targetGroup)
	}
	if *measurementRegex != "" {
		insertRegex(mod, rl, dd, *measurementRegex, true, *targetGroup)
	}

	if *cleanup || *ifdataCleanup {
		// dangling-reference cleanup runs as part of update.Module; a
		// standalone --cleanup with no --update still drops orphaned
		// record layouts left over from earlier edits (§7 kind 5).
		// --ifdata-cleanup takes this same path and leaves IF_DATA as it is.
		orphans := rl.Orphans()
		if len(orphans) > 0 {
			keep := mod.RecordLayouts[:0]
			for _, l := range mod.RecordLayouts {
				if !a2l.Contains(orphans, l.Name) {
					keep = append(keep, l)
				}
			}
			mod.RecordLayouts = keep
		}
	}

	if *sortOut {
		sortModule(mod)
	}

	if *showXCP {
		printXCP(mod)
	}

	if *check {
		return 0
	}

	if *output != "" {
		// Text encoding is likewise out of scope; report what would have
		// been written.
		fmt.Fprintf(os.Stdout, "a2lsync: %d measurements, %d characteristics ready to write to %s\n",
			len(mod.Measurements), len(mod.Characteristics), *output)
	}

	return 0
}

func insertSingle(mod *a2l.Module, rl *reclayout.Index, dd *dwarf.DebugData, name string, measurement bool, group string) {
	if dd == nil {
		return
	}
	vars, ok := dd.Variables[name]
	if !ok || len(vars) == 0 {
		logger.Log("create", "symbol %q not found in DWARF, skipped", name)
		return
	}
	addEntity(mod, rl, name, vars[0].TypeOffset, dd, measurement, group)
}

func insertRange(mod *a2l.Module, rl *reclayout.Index, dd *dwarf.DebugData, spec string, measurement bool, group string) {
	if dd == nil {
		return
	}
	parts := strings.Fields(spec)
	if len(parts) != 2 {
		logger.Log("create", "malformed range %q, want \"LO HI\"", spec)
		return
	}
	lo, errLo := strconv.ParseUint(parts[0], 0, 64)
	hi, errHi := strconv.ParseUint(parts[1], 0, 64)
	if errLo != nil || errHi != nil {
		logger.Log("create", "malformed range %q", spec)
		return
	}
	for name, vars := range dd.Variables {
		if len(vars) == 0 {
			continue
		}
		addr := vars[0].Address
		if addr >= lo && addr <= hi {
			addEntity(mod, rl, name, vars[0].TypeOffset, dd, measurement, group)
		}
	}
}

func insertRegex(mod *a2l.Module, rl *reclayout.Index, dd *dwarf.DebugData, pattern string, measurement bool, group string) {
	if dd == nil {
		return
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Log("create", "invalid regex %q: %v", pattern, err)
		return
	}
	for name, vars := range dd.Variables {
		if len(vars) == 0 || !re.MatchString(name) {
			continue
		}
		addEntity(mod, rl, name, vars[0].TypeOffset, dd, measurement, group)
	}
}

func addEntity(mod *a2l.Module, rl *reclayout.Index, name string, typeOffset uint64, dd *dwarf.DebugData, measurement bool, group string) {
	t, ok := dd.Types[typeOffset]
	if !ok {
		return
	}
	dt := reclayout.DwarfToA2LType(t)
	if measurement {
		if mod.FindMeasurement(name) != nil {
			return
		}
		mod.Measurements = append(mod.Measurements, &a2l.Measurement{
			Name: name, DataType: dt, Conversion: "NO_COMPU_METHOD",
			SymbolLink: &a2l.SymbolLink{SymbolName: name},
		})
	} else {
		if mod.FindCharacteristic(name) != nil {
			return
		}
		mod.Characteristics = append(mod.Characteristics, &a2l.Characteristic{
			Name: name, Type: a2l.Value, Deposit: rl.MintDefault(dt), Conversion: "NO_COMPU_METHOD",
			SymbolLink: &a2l.SymbolLink{SymbolName: name},
		})
	}
	if group != "" {
		g := mod.FindGroup(group)
		if g == nil {
			g = &a2l.Group{Name: group}
			mod.Groups = append(mod.Groups, g)
		}
		if measurement {
			g.RefMeasurement = append(g.RefMeasurement, name)
		} else {
			g.RefCharacteristic = append(g.RefCharacteristic, name)
		}
	}
}

func printSummary(s *update.Summary) {
	fmt.Println("updated:")
	for k, v := range s.Updated {
		fmt.Printf("  %s: %d\n", k, v)
	}
	fmt.Println("not updated:")
	for k, v := range s.NotUpdated {
		fmt.Printf("  %s: %d\n", k, v)
	}
	if len(s.Removed) > 0 {
		fmt.Printf("removed: %v\n", s.Removed)
	}
}

func printXCP(mod *a2l.Module) {
	fmt.Printf("XCP summary: %d measurements, %d characteristics, %d axis points\n",
		len(mod.Measurements), len(mod.Characteristics), len(mod.AxisPtsList))
}

// sortModule implements §6's --sort: canonical name order, per-kind.
func sortModule(mod *a2l.Module) {
	sortByName(mod.Measurements, func(m *a2l.Measurement) string { return m.Name })
	sortByName(mod.Characteristics, func(c *a2l.Characteristic) string { return c.Name })
	sortByName(mod.AxisPtsList, func(a *a2l.AxisPts) string { return a.Name })
}

func sortByName[T any](list []T, key func(T) string) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && key(list[j-1]) > key(list[j]); j-- {
			list[j-1], list[j] = list[j], list[j-1]
		}
	}
}
