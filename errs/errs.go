// Package errs provides a small pattern-based error type used throughout
// a2lsync in place of bare fmt.Errorf chains.
//
// Errors are created with Errorf, which works like fmt.Errorf but keeps the
// format pattern and arguments separate from the formatted message. This
// lets Is and Has answer "was this error produced by this call site" without
// string-matching the fully formatted (and therefore value-dependent)
// message.
//
//	err := errs.Errorf("resolve %s: %v", name, cause)
//	if errs.Is(err, "resolve %s: %v") { ... }
//
// Has walks the chain of wrapped errs values and reports whether the
// pattern occurs anywhere in it, not just at the outermost layer.
package errs

import (
	"fmt"
	"strings"
)

type wrapped struct {
	pattern string
	values  []any
}

// Errorf creates a new errs error. The pattern is retained verbatim (not
// formatted immediately) so that Is/Has can match against it later.
func Errorf(pattern string, values ...any) error {
	return wrapped{pattern: pattern, values: values}
}

// Error implements the error interface. Adjacent duplicate chain parts
// (separated by ": ") are collapsed, so wrapping an error that already
// starts with the same text as the wrapping pattern doesn't repeat it.
func (e wrapped) Error() string {
	s := fmt.Errorf(e.pattern, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// IsAny reports whether err was created by Errorf.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(wrapped)
	return ok
}

// Is reports whether err was created by Errorf with exactly this pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(wrapped); ok {
		return e.pattern == pattern
	}
	return false
}

// Has reports whether pattern occurs anywhere in err's wrap chain.
func Has(err error, pattern string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, pattern) {
		return true
	}
	for _, v := range err.(wrapped).values {
		if e, ok := v.(wrapped); ok {
			if Has(e, pattern) {
				return true
			}
		}
	}
	return false
}

// Kind classifies the fatal/non-fatal error taxonomy of §7.
type Kind int

const (
	// KindInputNotFound: input file missing or unreadable. Fatal.
	KindInputNotFound Kind = iota
	// KindParseError: A2L parse error. Fatal in strict mode.
	KindParseError
	// KindDwarfAbsent: DWARF source missing or empty when update requested. Fatal.
	KindDwarfAbsent
	// KindResolutionFailure: per-entity symbol resolution failure. Non-fatal.
	KindResolutionFailure
	// KindRecordLayout: record-layout redirection/minting anomaly. Non-fatal, no user-visible failure.
	KindRecordLayout
	// KindCreatorParse: per-directive creator parse error. Non-fatal.
	KindCreatorParse
	// KindTypedefInconsistency: typedef/component category mismatch. Non-fatal warning.
	KindTypedefInconsistency
)

func (k Kind) String() string {
	switch k {
	case KindInputNotFound:
		return "input-not-found"
	case KindParseError:
		return "a2l-parse-error"
	case KindDwarfAbsent:
		return "dwarf-absent"
	case KindResolutionFailure:
		return "resolution-failure"
	case KindRecordLayout:
		return "record-layout"
	case KindCreatorParse:
		return "creator-parse-error"
	case KindTypedefInconsistency:
		return "typedef-inconsistency"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of this kind should always abort the run,
// independent of strict mode (see §7: kinds 1 and 3 are always fatal, kind 2
// only in strict mode).
func (k Kind) Fatal() bool {
	return k == KindInputNotFound || k == KindDwarfAbsent
}
