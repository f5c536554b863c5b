package errs_test

import (
	"fmt"
	"testing"

	"github.com/jetsetilly/a2lsync/errs"
)

const testPattern = "test error: %s"
const testPatternB = "test error B: %s"

func TestDuplicateCollapse(t *testing.T) {
	e := errs.Errorf(testPattern, "foo")
	if e.Error() != "test error: foo" {
		t.Fatalf("unexpected message: %s", e.Error())
	}

	f := errs.Errorf(testPattern, e)
	if f.Error() != "test error: foo" {
		t.Fatalf("expected duplicate collapse, got: %s", f.Error())
	}
}

func TestIsAndHas(t *testing.T) {
	e := errs.Errorf(testPattern, "foo")
	if !errs.Is(e, testPattern) {
		t.Fatal("expected Is to match")
	}
	if errs.Has(e, testPatternB) {
		t.Fatal("did not expect Has to match unrelated pattern")
	}

	f := errs.Errorf(testPatternB, e)
	if errs.Is(f, testPattern) {
		t.Fatal("Is should not match through a wrap")
	}
	if !errs.Is(f, testPatternB) {
		t.Fatal("Is should match the outer pattern")
	}
	if !errs.Has(f, testPattern) {
		t.Fatal("Has should match through the wrap")
	}
}

func TestPlainErrorsAreNotAny(t *testing.T) {
	e := fmt.Errorf("plain error")
	if errs.IsAny(e) {
		t.Fatal("plain fmt errors are not errs values")
	}
}

func TestKindFatal(t *testing.T) {
	if !errs.KindInputNotFound.Fatal() {
		t.Fatal("input-not-found must be fatal")
	}
	if !errs.KindDwarfAbsent.Fatal() {
		t.Fatal("dwarf-absent must be fatal")
	}
	if errs.KindResolutionFailure.Fatal() {
		t.Fatal("resolution failures are per-entity non-fatal")
	}
}
