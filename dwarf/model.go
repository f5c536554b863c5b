package dwarf

import (
	"debug/dwarf"
	"debug/elf"
	"debug/pe"
	"os"

	"github.com/jetsetilly/a2lsync/errs"
	"github.com/jetsetilly/a2lsync/logger"
)

// VarInfo is one located instance of a global or static variable, keyed by
// name in DebugData.Variables. Multiple entries occur for statics defined in
// several translation units (§3).
type VarInfo struct {
	Address           uint64
	TypeOffset        uint64
	Unit              int
	EnclosingFunction string
	Namespaces        []string
}

// DebugData is C1's output: a queryable model of global variables and a
// deduplicated, reference-resolved type graph (§4.1).
type DebugData struct {
	Variables map[string][]VarInfo
	Types     map[uint64]*TypeInfo
	TypeNames map[string]uint64
	Demangled map[string]string // demangled -> mangled
	UnitNames []string
	Sections  map[string][]byte

	// No file handle is kept: Load closes the file before it returns, and
	// Go's debug/dwarf keeps its own copies of what it needs once parsed,
	// so there's no long-lived mmap to guard here the way a C
	// implementation would need (§5 design note).
}

// Load reads an ELF or PE file at path and parses its DWARF sections into a
// DebugData model. It fails with a descriptive error if .debug_info is
// absent or has zero compile units.
func Load(path string) (*DebugData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Errorf("opening %s: %v", path, err)
	}
	defer f.Close()

	data, sections, err := openObject(f, path)
	if err != nil {
		return nil, err
	}

	dd := &DebugData{
		Variables: make(map[string][]VarInfo),
		Types:     make(map[uint64]*TypeInfo),
		TypeNames: make(map[string]uint64),
		Demangled: make(map[string]string),
		Sections:  sections,
	}

	b, err := newBuild(data)
	if err != nil {
		return nil, err
	}

	if err := b.run(dd); err != nil {
		return nil, err
	}

	populateDemangled(dd)

	return dd, nil
}

// openObject opens the DWARF data for either container format and also
// retains the raw named sections a caller might want for diagnostics
// (§6: "Sections consulted").
func openObject(f *os.File, path string) (*dwarf.Data, map[string][]byte, error) {
	keep := map[string]bool{
		".debug_info": true, ".debug_abbrev": true, ".debug_str": true,
		".debug_str_offsets": true, ".debug_addr": true, ".debug_line": true,
		".debug_loc": true, ".debug_loclists": true, ".debug_ranges": true,
		".debug_rnglists": true,
	}

	if ef, err := elf.NewFile(f); err == nil {
		sections := make(map[string][]byte)
		for _, s := range ef.Sections {
			if keep[s.Name] {
				if raw, err := s.Data(); err == nil {
					sections[s.Name] = raw
				}
			}
		}
		d, err := ef.DWARF()
		if err != nil {
			return nil, nil, errs.Errorf("parsing DWARF in %s: %v", path, err)
		}
		return d, sections, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, nil, errs.Errorf("seeking %s: %v", path, err)
	}

	if pf, err := pe.NewFile(f); err == nil {
		sections := make(map[string][]byte)
		for _, s := range pf.Sections {
			if keep["."+s.Name] || keep[s.Name] {
				if raw, err := s.Data(); err == nil {
					sections[s.Name] = raw
				}
			}
		}
		d, err := pf.DWARF()
		if err != nil {
			return nil, nil, errs.Errorf("parsing DWARF in %s: %v", path, err)
		}
		return d, sections, nil
	}

	return nil, nil, errs.Errorf("%s is not a recognised ELF or PE file", path)
}

// populateDemangled attempts to demangle every Itanium-mangled variable name
// found, retaining only the plausible results (§4.1 "C++ demangling").
func populateDemangled(dd *DebugData) {
	for name := range dd.Variables {
		if dm, ok := Demangle(name); ok {
			dd.Demangled[dm] = name
		}
	}
}

// logDropped records that a variable was dropped during the build because of
// missing or unsupported attributes (§4.1 "Failure semantics").
func logDropped(name, reason string) {
	logger.Log("dwarf", "dropped variable %q: %s", name, reason)
}

func logUnitSkipped(unit int, reason string) {
	logger.Log("dwarf", "skipped compile unit %d: %s", unit, reason)
}
