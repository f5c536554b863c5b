package create

import (
	"testing"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/reclayout"
)

// Scenario 5 from spec.md §8: `@@ SYMBOL = x @@ A2L_TYPE = MEASURE @@
// DATA_TYPE = UBYTE 0x3f [3...40] @@ DIMENSION = 3 4 SPLIT @@ END` produces
// 12 MEASUREMENTs named x[i][j] with matrix_dim absent and limits (3, 40).
func TestCreateSplitDimensionScenario5(t *testing.T) {
	src := []byte(`
// @@ SYMBOL = x
// @@ A2L_TYPE = MEASURE
// @@ DATA_TYPE = UBYTE 0x3f [3...40]
// @@ DIMENSION = 3 4 SPLIT
// @@ END
`)
	mod := &a2l.Module{}
	rl := reclayout.Build(mod)
	sum := Create(mod, rl, src, Options{SymbolLinks: true})

	if sum.Created["MEASUREMENT"] != 12 {
		t.Fatalf("created = %+v, want 12 MEASUREMENTs", sum.Created)
	}
	if len(mod.Measurements) != 12 {
		t.Fatalf("len(mod.Measurements) = %d, want 12", len(mod.Measurements))
	}
	m := mod.FindMeasurement("x[0][0]")
	if m == nil {
		t.Fatal("x[0][0] not created")
	}
	if m.MatrixDim != nil {
		t.Errorf("matrix_dim = %v, want absent", m.MatrixDim)
	}
	if m.LowerLimit != 3 || m.UpperLimit != 40 {
		t.Errorf("limits = (%v, %v), want (3, 40)", m.LowerLimit, m.UpperLimit)
	}
	if m.BitMask != 0x3f {
		t.Errorf("bit_mask = %#x, want 0x3f", m.BitMask)
	}
	if m.DataType != a2l.UByte {
		t.Errorf("datatype = %s, want UBYTE", m.DataType)
	}
	last := mod.FindMeasurement("x[2][3]")
	if last == nil {
		t.Fatal("x[2][3] not created (last of 3x4 grid)")
	}
	if last.SymbolLink == nil || last.SymbolLink.SymbolName != "x[2][3]" {
		t.Errorf("SYMBOL_LINK = %+v, want x[2][3]", last.SymbolLink)
	}
}

func TestCreateCollisionSkipsDuplicate(t *testing.T) {
	src := []byte(`
// @@ SYMBOL = y
// @@ A2L_TYPE = MEASURE
// @@ DATA_TYPE = UWORD
// @@ END
`)
	mod := &a2l.Module{Measurements: []*a2l.Measurement{{Name: "y"}}}
	rl := reclayout.Build(mod)
	sum := Create(mod, rl, src, Options{})

	if sum.Created["MEASUREMENT"] != 0 {
		t.Fatalf("expected no measurement created on collision, got %+v", sum.Created)
	}
	if len(sum.Skipped) != 1 {
		t.Fatalf("expected 1 skipped entry, got %v", sum.Skipped)
	}
}

func TestCreateManualSplitSuffixes(t *testing.T) {
	src := []byte(`
// @@ SYMBOL = z
// @@ A2L_TYPE = CHARACTERISTIC
// @@ DATA_TYPE = UBYTE
// @@ DIMENSION = 2 SPLIT USE "_lo" "_hi"
// @@ END
`)
	mod := &a2l.Module{}
	rl := reclayout.Build(mod)
	sum := Create(mod, rl, src, Options{})

	if sum.Created["CHARACTERISTIC"] != 2 {
		t.Fatalf("created = %+v, want 2 CHARACTERISTICs", sum.Created)
	}
	if mod.FindCharacteristic("z_lo") == nil || mod.FindCharacteristic("z_hi") == nil {
		t.Fatalf("expected z_lo and z_hi, got %+v", mod.Characteristics)
	}
}
