package dwarf

import "strings"

// Demangle attempts an Itanium C++ demangling of name, producing only the
// qualified name (no parameter list, no return type, no template arguments)
// as described in §4.1 "C++ demangling". It is deliberately conservative:
// on anything it doesn't recognise it returns false rather than guessing,
// since a failed demangle must never prevent symbol resolution (§9 design
// notes) -- callers simply fall back to the mangled spelling.
//
// No demangling library appears anywhere in the retrieved reference corpus
// (see DESIGN.md), so this hand-rolls just enough of the Itanium ABI grammar
// to recover qualified names, in the same spirit as the teacher's own
// hand-rolled DWARF expression evaluator.
func Demangle(name string) (string, bool) {
	if !strings.HasPrefix(name, "_Z") {
		return "", false
	}
	rest := name[2:]

	// special encodings: vtable ("TV"), typeinfo ("TI"/"TS"), guard
	// variables ("GV") -- these are exactly the "plausibly-wrong" results
	// the spec says to filter, so reject them outright rather than produce
	// a technically-correct but useless demangle.
	if strings.HasPrefix(rest, "TV") || strings.HasPrefix(rest, "TI") ||
		strings.HasPrefix(rest, "TS") || strings.HasPrefix(rest, "GV") {
		return "", false
	}

	// local-linkage marker, e.g. "_ZL3fooi" for a file-static.
	rest = strings.TrimPrefix(rest, "L")

	var qualified string
	var ok bool
	if strings.HasPrefix(rest, "N") {
		qualified, ok = demangleNestedName(rest[1:])
	} else {
		qualified, ok = demangleOneName(rest)
	}
	if !ok {
		return "", false
	}

	if qualified == "" || strings.ContainsAny(qualified, " <>(),") {
		return "", false
	}
	if len(qualified) <= 1 {
		return "", false
	}

	return qualified, true
}

// demangleNestedName parses the sequence of <length><name> components up to
// the terminating 'E' of an "N...E" nested-name production, joining them
// with "::". CV-qualifiers ('K' const, 'V' volatile) preceding a nested name
// are skipped. Template-argument lists ("I...E") are not supported and
// cause demangling to be abandoned (returns false) -- we only need plain
// qualified names for symbol resolution, and a mis-parsed template
// shouldn't produce a silently-wrong name.
func demangleNestedName(s string) (string, bool) {
	for len(s) > 0 && (s[0] == 'K' || s[0] == 'V' || s[0] == 'r') {
		s = s[1:]
	}

	var parts []string
	for len(s) > 0 {
		if s[0] == 'E' {
			return strings.Join(parts, "::"), true
		}
		if s[0] == 'I' {
			return "", false // template args: bail out rather than mis-demangle
		}
		name, remainder, ok := takeLengthPrefixedName(s)
		if !ok {
			return "", false
		}
		parts = append(parts, name)
		s = remainder
	}
	return "", false // unterminated nested name
}

// demangleOneName parses a single <length><name> production (used for
// un-nested global names), stopping at the first non-digit boundary and
// discarding anything that follows (parameter/return encodings).
func demangleOneName(s string) (string, bool) {
	name, _, ok := takeLengthPrefixedName(s)
	if !ok {
		return "", false
	}
	return name, true
}

// takeLengthPrefixedName reads a decimal length prefix followed by that many
// bytes of identifier, returning the identifier and what's left of s.
func takeLengthPrefixedName(s string) (name, remainder string, ok bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return "", s, false
	}
	length := 0
	for _, c := range s[:i] {
		length = length*10 + int(c-'0')
	}
	if i+length > len(s) {
		return "", s, false
	}
	return s[i : i+length], s[i+length:], true
}
